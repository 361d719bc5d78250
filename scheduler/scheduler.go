package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// Scheduler runs wall-clock housekeeping tasks (leaderboard refresh, arena
// reaping). Simulation-time work goes through Deferred instead.
type Scheduler struct {
	mu      sync.Mutex
	every   map[string]chan struct{}
	once    map[string]*time.Timer
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped bool
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		every:  make(map[string]chan struct{}),
		once:   make(map[string]*time.Timer),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// Every runs fn on a fixed interval until cancelled.
// Registering an existing name replaces the old task.
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.every[name]; ok {
		close(old)
	}
	quit := make(chan struct{})
	s.every[name] = quit

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.safeRun(name, fn)
			case <-quit:
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// Once runs fn a single time after delay. Registering an existing name
// cancels the pending run.
func (s *Scheduler) Once(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.once[name]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.once[name] == t {
			delete(s.once, name)
		}
		s.mu.Unlock()
		s.safeRun(name, fn)
	})
	s.once[name] = t
}

// Cancel stops a recurring or one-shot task by name.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quit, ok := s.every[name]; ok {
		close(quit)
		delete(s.every, name)
	}
	if t, ok := s.once[name]; ok {
		t.Stop()
		delete(s.once, name)
	}
}

// Stop halts all tasks. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
	for name, t := range s.once {
		t.Stop()
		delete(s.once, name)
	}
}

// Names returns the sorted names of recurring tasks.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.every))
	for name := range s.every {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) safeRun(name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}
