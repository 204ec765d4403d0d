package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// taskTimeout bounds one task; a fetch includes bounded billing API
// retries, so this is generous
const taskTimeout = 2 * time.Minute

// PoolMetrics provides metrics about the worker pool's performance
type PoolMetrics struct {
	TotalTasks         int64
	CompletedTasks     int64
	FailedTasks        int64
	AverageExecutionMs int64
	TotalExecutionMs   int64
	mu                 sync.RWMutex
}

// Task represents a unit of work to be executed
type Task func(ctx context.Context) error

// Pool manages a pool of workers for executing tasks concurrently
type Pool struct {
	maxWorkers int
	tasks      chan Task
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	metrics    *PoolMetrics
	stopping   int32
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		maxWorkers: maxWorkers,
		tasks:      make(chan Task, maxWorkers*2), // Buffer the channel to prevent blocking
		ctx:        ctx,
		cancel:     cancel,
		metrics:    &PoolMetrics{},
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop stops the worker pool and waits for all tasks to complete
func (p *Pool) Stop() {
	if !atomic.CompareAndSwapInt32(&p.stopping, 0, 1) {
		return // Already stopping
	}

	p.cancel()
	p.wg.Wait()
	close(p.tasks)
}

// GetMetrics returns the current metrics for the pool
func (p *Pool) GetMetrics() PoolMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	completed := p.metrics.CompletedTasks
	if completed < 1 {
		completed = 1
	}
	return PoolMetrics{
		TotalTasks:         p.metrics.TotalTasks,
		CompletedTasks:     p.metrics.CompletedTasks,
		FailedTasks:        p.metrics.FailedTasks,
		AverageExecutionMs: p.metrics.TotalExecutionMs / completed,
		TotalExecutionMs:   p.metrics.TotalExecutionMs,
	}
}

// Submit submits a task to the pool and reports whether it was accepted.
// Tasks are rejected once the pool is stopping or its context is cancelled.
func (p *Pool) Submit(task Task) bool {
	if atomic.LoadInt32(&p.stopping) == 1 {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}

			start := time.Now()
			taskCtx, cancel := context.WithTimeout(p.ctx, taskTimeout)
			err := task(taskCtx)
			cancel()

			executionMs := time.Since(start).Milliseconds()
			p.metrics.mu.Lock()
			p.metrics.TotalExecutionMs += executionMs
			if err != nil {
				p.metrics.FailedTasks++
			} else {
				p.metrics.CompletedTasks++
			}
			p.metrics.mu.Unlock()

		case <-p.ctx.Done():
			return
		}
	}
}

// ExecuteTasks executes a slice of tasks concurrently and waits for all of
// them to finish
func (p *Pool) ExecuteTasks(tasks []Task) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))

	p.metrics.mu.Lock()
	p.metrics.TotalTasks += int64(len(tasks))
	p.metrics.mu.Unlock()

	for _, t := range tasks {
		task := t
		wrappedTask := func(ctx context.Context) error {
			defer wg.Done()
			return task(ctx)
		}

		// A rejected task never runs, so settle its wait here
		if !p.Submit(wrappedTask) {
			wg.Done()
		}
	}

	wg.Wait()
}
