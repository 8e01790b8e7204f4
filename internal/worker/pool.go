// Package worker runs independent tasks on a bounded set of goroutines.
package worker

import (
	"context"
	"sync"
)

// Task is one unit of work
type Task func(ctx context.Context) error

// Pool executes tasks concurrently. The first task error cancels the pool:
// queued tasks are dropped and running tasks see a cancelled context.
type Pool struct {
	workers   int
	tasks     chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	errOnce   sync.Once
	err       error
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx with the given number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		tasks:   make(chan Task, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			if err := task(p.ctx); err != nil {
				p.fail(err)
				return
			}
		}
	}
}

func (p *Pool) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		p.cancel()
	})
}

// Submit queues a task. It returns false once the pool is cancelled. Submit
// must not be called after Wait.
func (p *Pool) Submit(task Task) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Wait closes the queue, waits for running tasks and returns the first task
// error, or the context error if the parent was cancelled
func (p *Pool) Wait() error {
	p.closeOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()

	p.errOnce.Do(func() {
		p.err = p.ctx.Err()
	})
	p.cancel()
	return p.err
}

// Run executes tasks on workers goroutines and returns the first error
func Run(ctx context.Context, workers int, tasks ...Task) error {
	if workers > len(tasks) {
		workers = len(tasks)
	}
	pool := NewPool(ctx, workers)
	pool.Start()
	for _, task := range tasks {
		if !pool.Submit(task) {
			break
		}
	}
	return pool.Wait()
}
