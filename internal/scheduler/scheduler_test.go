package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskRunsAndStops(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	var runs int64
	s.Start(ctx, Task{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) {
			atomic.AddInt64(&runs, 1)
		},
	})

	time.Sleep(60 * time.Millisecond)
	cancel()
	s.Wait()

	got := atomic.LoadInt64(&runs)
	if got < 2 {
		t.Errorf("task ran %d times, want at least 2", got)
	}

	after := atomic.LoadInt64(&runs)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt64(&runs) != after {
		t.Error("task kept running after cancellation")
	}
}

func TestTaskRunsImmediately(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int64
	s.Start(ctx, Task{
		Name:     "immediate",
		Interval: time.Hour,
		Run: func(ctx context.Context) {
			atomic.AddInt64(&runs, 1)
		},
	})

	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("task ran %d times before first tick, want 1", atomic.LoadInt64(&runs))
	}
}

func TestPanickingTaskKeepsRunning(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	var runs int64
	s.Start(ctx, Task{
		Name:     "panicky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) {
			atomic.AddInt64(&runs, 1)
			panic("boom")
		},
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Wait()

	if atomic.LoadInt64(&runs) < 2 {
		t.Errorf("panicking task ran %d times, want the loop to survive panics", atomic.LoadInt64(&runs))
	}
}
