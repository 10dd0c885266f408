package concurrent

import (
	"errors"
	"time"
)

// ErrScheduleTimeout is returned by ScheduleTimeout when no worker picks up
// the task within the given duration.
var ErrScheduleTimeout = errors.New("schedule error: timed out")

// WorkerPool runs tasks on a bounded set of goroutines, so a burst of
// websocket frames cannot spawn an unbounded number of goroutines.
type WorkerPool struct {
	sem  chan struct{}
	work chan func()
}

func NewWorkerPool(maxWorkers, queueSize int) *WorkerPool {
	return &WorkerPool{
		sem:  make(chan struct{}, maxWorkers),
		work: make(chan func(), queueSize),
	}
}

// Spawn starts n resident workers that keep draining scheduled tasks until
// the pool is closed. n must not exceed maxWorkers.
func (wp *WorkerPool) Spawn(n int) {
	for i := 0; i < n; i++ {
		wp.sem <- struct{}{}
		go wp.taskWorker(func() {})
	}
}

func (wp *WorkerPool) Schedule(task func()) {
	wp.schedule(task, nil)
}

func (wp *WorkerPool) ScheduleTimeout(timeout time.Duration, task func()) error {
	return wp.schedule(task, time.After(timeout))
}

func (wp *WorkerPool) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-timeout:
		return ErrScheduleTimeout
	case wp.work <- task:
		return nil
	case wp.sem <- struct{}{}:
		go wp.taskWorker(task)
		return nil
	}
}

func (wp *WorkerPool) taskWorker(task func()) {
	defer func() { <-wp.sem }()
	task()
	for task := range wp.work {
		task()
	}
}

func (wp *WorkerPool) Close() {
	close(wp.work)
}
