package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

func TestEvery_Fires(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.Every("tick", 20*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestEvery_Replaces(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count1, count2 int32
	s.Every("task", 20*time.Millisecond, func() { atomic.AddInt32(&count1, 1) })
	time.Sleep(30 * time.Millisecond)
	s.Every("task", 20*time.Millisecond, func() { atomic.AddInt32(&count2, 1) })
	time.Sleep(80 * time.Millisecond)

	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old task must stop after replacement")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestOnce_FiresOnce(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.Once("once", 30*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestOnce_ReplaceCancelsOld(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.Once("d", 500*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	s.Once("d", 30*time.Millisecond, func() { atomic.AddInt32(&count, 10) })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestCancel_Every(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.Every("task", 20*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Cancel("task")
	snap := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count), "task must stop after Cancel")
}

func TestCancel_Once(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var count int32
	s.Once("d", 100*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	s.Cancel("d")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestCancel_Unknown(t *testing.T) {
	s := New(newNop())
	defer s.Stop()
	s.Cancel("nope")
}

func TestStop_HaltsEverything(t *testing.T) {
	s := New(newNop())

	var c1, c2 int32
	s.Every("a", 20*time.Millisecond, func() { atomic.AddInt32(&c1, 1) })
	s.Once("b", 60*time.Millisecond, func() { atomic.AddInt32(&c2, 1) })
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snap := atomic.LoadInt32(&c1)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&c1))
	assert.Equal(t, int32(0), atomic.LoadInt32(&c2))

	// registrations after Stop are ignored
	s.Every("late", time.Millisecond, func() { atomic.AddInt32(&c1, 100) })
	assert.Equal(t, []string{"a"}, s.Names())
}

func TestStop_Idempotent(t *testing.T) {
	s := New(newNop())
	s.Stop()
	s.Stop()
}

func TestNames(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	require.Empty(t, s.Names())
	s.Every("beta", time.Hour, func() {})
	s.Every("alpha", time.Hour, func() {})
	assert.Equal(t, []string{"alpha", "beta"}, s.Names())
	s.Cancel("alpha")
	assert.Equal(t, []string{"beta"}, s.Names())
}

func TestEvery_PanicRecovery(t *testing.T) {
	s := New(newNop())
	defer s.Stop()

	var runs int32
	s.Every("panic", 20*time.Millisecond, func() {
		atomic.AddInt32(&runs, 1)
		panic("oops")
	})
	time.Sleep(90 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2), "task keeps running after a panic")
}
