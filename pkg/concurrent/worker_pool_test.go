package concurrent

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"
)

func TestScheduleRunsEveryTask(t *testing.T) {
	pool := NewWorkerPool(4, 8)
	pool.Spawn(2)

	counter := atomic.NewInt32(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		pool.Schedule(func() {
			counter.Inc()
			wg.Done()
		})
	}
	wg.Wait()
	pool.Close()

	if got := counter.Load(); got != 20 {
		t.Errorf("expected 20 tasks to run, got %d", got)
	}
}

func TestScheduleSpawnsUpToMaxWorkers(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	release := make(chan struct{})
	var wg sync.WaitGroup

	// no resident workers: each task below must claim its own worker slot
	wg.Add(2)
	pool.Schedule(func() {
		<-release
		wg.Done()
	})
	pool.Schedule(func() {
		<-release
		wg.Done()
	})

	err := pool.ScheduleTimeout(50*time.Millisecond, func() {
		t.Error("saturated pool must not run the task")
	})
	if err != ErrScheduleTimeout {
		t.Errorf("expected ErrScheduleTimeout, got %v", err)
	}

	close(release)
	wg.Wait()
	pool.Close()
}

func TestScheduleTimeoutWhenSaturated(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	pool.Spawn(1)

	release := make(chan struct{})
	var wg sync.WaitGroup

	// the single worker blocks on the first task, the second fills the queue
	wg.Add(2)
	pool.Schedule(func() {
		<-release
		wg.Done()
	})
	pool.Schedule(func() {
		wg.Done()
	})

	err := pool.ScheduleTimeout(50*time.Millisecond, func() {
		t.Error("saturated pool must not run the task")
	})
	if err != ErrScheduleTimeout {
		t.Errorf("expected ErrScheduleTimeout, got %v", err)
	}

	close(release)
	wg.Wait()
	pool.Close()
}
