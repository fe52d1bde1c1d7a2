package task

import (
	"fmt"
	"log/slog"
	"sync"
)

// WorkerPool runs submitted closures on a bounded set of goroutines. The
// backlog is unbounded FIFO: Submit never blocks, and jobs start in
// submission order once a worker frees up. A panicking job never takes a
// worker down with it.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	backlog []func()
	closed  bool

	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewWorkerPool creates a pool of workerCount goroutines and starts them.
// A count below one is a configuration error.
func NewWorkerPool(workerCount int, logger *slog.Logger) (*WorkerPool, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workerCount)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &WorkerPool{logger: logger}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Debug("worker pool started", "worker_count", workerCount)
	return p, nil
}

// Submit appends a job to the backlog and returns immediately. Jobs
// submitted after Stop are dropped with a warning.
func (p *WorkerPool) Submit(job func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("job submitted to stopped worker pool, dropping")
		return
	}
	p.backlog = append(p.backlog, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// Stop lets workers drain the backlog, then waits for them to exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
	p.logger.Debug("worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.backlog) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.backlog) == 0 && p.closed {
			p.mu.Unlock()
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		}
		job := p.backlog[0]
		p.backlog = p.backlog[1:]
		p.mu.Unlock()

		p.run(job, id)
	}
}

// run executes a single job with panic isolation. Queue wrappers convert
// failures into task state; this recover only guards stray panics so they
// cannot terminate the worker goroutine.
func (p *WorkerPool) run(job func(), workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked in worker pool",
				"worker_id", workerID,
				"panic", r)
		}
	}()
	job()
}
