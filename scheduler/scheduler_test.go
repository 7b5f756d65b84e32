package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/miyabiren/tabletop-companion/scheduler"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, cond func() bool, d time.Duration) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTickerRunsRepeatedly(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n int64
	s.AddTicker("tick", 10*time.Millisecond, func() { atomic.AddInt64(&n, 1) })
	waitFor(t, func() bool { return atomic.LoadInt64(&n) >= 3 }, time.Second)
	assert.Equal(t, []string{"tick"}, s.ListTickers())
}

func TestAddTickerReplacesExisting(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var old, cur int64
	s.AddTicker("tick", 10*time.Millisecond, func() { atomic.AddInt64(&old, 1) })
	s.AddTicker("tick", 10*time.Millisecond, func() { atomic.AddInt64(&cur, 1) })

	waitFor(t, func() bool { return atomic.LoadInt64(&cur) >= 2 }, time.Second)
	assert.Len(t, s.ListTickers(), 1)

	snapshot := atomic.LoadInt64(&old)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, snapshot, atomic.LoadInt64(&old), "replaced task must stop running")
}

func TestRemoveStopsTicker(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n int64
	s.AddTicker("tick", 10*time.Millisecond, func() { atomic.AddInt64(&n, 1) })
	waitFor(t, func() bool { return atomic.LoadInt64(&n) >= 1 }, time.Second)

	s.Remove("tick")
	assert.Empty(t, s.ListTickers())

	snapshot := atomic.LoadInt64(&n)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, snapshot, atomic.LoadInt64(&n))
}

func TestAddDelayFiresOnce(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n int64
	s.AddDelay("later", 10*time.Millisecond, func() { atomic.AddInt64(&n, 1) })
	waitFor(t, func() bool { return atomic.LoadInt64(&n) == 1 }, time.Second)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&n))
}

func TestPanickingTaskDoesNotKillScheduler(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	defer s.Stop()

	var n int64
	s.AddTicker("boom", 10*time.Millisecond, func() {
		atomic.AddInt64(&n, 1)
		panic("task failure")
	})
	waitFor(t, func() bool { return atomic.LoadInt64(&n) >= 2 }, time.Second)
}

func TestStopCancelsEverything(t *testing.T) {
	s := scheduler.New(zap.NewNop())

	var n int64
	s.AddTicker("a", 10*time.Millisecond, func() { atomic.AddInt64(&n, 1) })
	s.AddDelay("b", 10*time.Millisecond, func() { atomic.AddInt64(&n, 1) })
	s.Stop()
	assert.Empty(t, s.ListTickers())

	snapshot := atomic.LoadInt64(&n)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, snapshot, atomic.LoadInt64(&n))
}
