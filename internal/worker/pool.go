package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sevatrust/seva-donations/internal/metrics"
)

const defaultQueueSize = 1024

type task func(ctx context.Context)

// Pool runs submitted tasks on a fixed set of goroutines. Stop drains the queue.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
	ctx  context.Context

	mu      sync.RWMutex
	stopped bool
}

func NewPool(n int) *Pool { return newPool(n, defaultQueueSize) }

func newPool(n, queue int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, queue), ctx: context.Background()}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
				p.run(job)
			}
		}()
	}
	return p
}

func (p *Pool) run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker task panic", "err", rec)
		}
	}()
	job(p.ctx)
}

// Submit queues f without blocking. It reports false when the queue is full or
// the pool is stopped; the task is then dropped.
func (p *Pool) Submit(f func(ctx context.Context)) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		metrics.WorkerTasksRejected.WithLabelValues("stopped").Inc()
		return false
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		return true
	default:
		metrics.WorkerTasksRejected.WithLabelValues("full").Inc()
		return false
	}
}

// Stop refuses new tasks, then waits for queued ones. Calling it twice is safe.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
