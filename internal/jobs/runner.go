package jobs

import (
	"context"
	"errors"
	"sync"

	"offersync/internal/infra"
)

var (
	ErrQueueFull    = errors.New("jobs: queue is full")
	ErrRunnerClosed = errors.New("jobs: runner is shut down")
)

// Task is one unit of background work. Tasks run to completion; the context
// they receive is never cancelled by the runner.
type Task func(ctx context.Context)

// Runner executes submitted tasks on a fixed number of workers fed by a
// bounded queue.
type Runner struct {
	queue  chan Task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger infra.Logger
}

// NewRunner starts workers goroutines draining a queue of queueSize tasks.
func NewRunner(workers, queueSize int, logger infra.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	r := &Runner{
		queue:  make(chan Task, queueSize),
		logger: logger,
	}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.work(i)
	}
	return r
}

// Submit enqueues a task without blocking.
func (r *Runner) Submit(task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}
	select {
	case r.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued and running tasks to
// finish or for ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) work(id int) {
	defer r.wg.Done()
	for task := range r.queue {
		r.run(id, task)
	}
}

func (r *Runner) run(id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Int("worker", id).Interface("panic", rec).Msg("jobs: task panicked")
		}
	}()
	task(context.Background())
}
