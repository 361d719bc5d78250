package scheduler

import (
	"container/heap"
	"time"

	"go.uber.org/zap"
)

// Deferred is a simulation-time task queue drained by the owning tick loop.
// Tasks run to completion once due; there is no cancellation.
type Deferred struct {
	now    time.Duration
	seq    uint64
	queue  deferredHeap
	logger *zap.Logger
}

type deferredTask struct {
	due  time.Duration
	seq  uint64
	name string
	fn   TaskFn
}

// NewDeferred creates an empty queue whose clock starts at zero.
func NewDeferred(logger *zap.Logger) *Deferred {
	return &Deferred{logger: logger}
}

// After queues fn to run once the clock has advanced by at least delay.
func (d *Deferred) After(delay time.Duration, name string, fn TaskFn) {
	if delay < 0 {
		delay = 0
	}
	d.seq++
	heap.Push(&d.queue, &deferredTask{due: d.now + delay, seq: d.seq, name: name, fn: fn})
}

// Advance moves the clock to now and runs every task that has come due, in
// due-time order (ties in insertion order). Returns the number of tasks run.
// Tasks queued by a running task with zero delay run in the same call.
func (d *Deferred) Advance(now time.Duration) int {
	if now > d.now {
		d.now = now
	}
	ran := 0
	for d.queue.Len() > 0 && d.queue[0].due <= d.now {
		t := heap.Pop(&d.queue).(*deferredTask)
		d.run(t)
		ran++
	}
	return ran
}

// Flush runs every queued task regardless of due time, in due order, and
// moves the clock to the latest due time. Used when the owning loop exits.
func (d *Deferred) Flush() int {
	ran := 0
	for d.queue.Len() > 0 {
		t := heap.Pop(&d.queue).(*deferredTask)
		if t.due > d.now {
			d.now = t.due
		}
		d.run(t)
		ran++
	}
	return ran
}

// Pending returns the number of queued tasks.
func (d *Deferred) Pending() int { return d.queue.Len() }

// Now returns the queue's clock.
func (d *Deferred) Now() time.Duration { return d.now }

func (d *Deferred) run(t *deferredTask) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("deferred task panicked",
				zap.String("task", t.name), zap.Any("recover", r))
		}
	}()
	t.fn()
}

type deferredHeap []*deferredTask

func (h deferredHeap) Len() int { return len(h) }
func (h deferredHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h deferredHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deferredHeap) Push(x interface{}) { *h = append(*h, x.(*deferredTask)) }
func (h *deferredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
