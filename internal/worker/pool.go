package worker

import (
	"context"
	"sync"

	"github.com/osse101/MinerSync_Go/internal/logger"
)

// Job represents a task to be executed by a worker
type Job interface {
	Process(ctx context.Context) error
}

// JobFunc adapts a named function to Job
type JobFunc struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Process runs the wrapped function
func (j JobFunc) Process(ctx context.Context) error {
	return j.Fn(ctx)
}

// Pool represents a worker pool
type Pool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewPool creates a new worker pool
func NewPool(workers int, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker is the worker loop
func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			p.run(job)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) run(job Job) {
	ctx := logger.WithRequestID(p.ctx, logger.GenerateRequestID())
	if err := job.Process(ctx); err != nil {
		log := logger.FromContext(ctx)
		if named, ok := job.(JobFunc); ok {
			log = log.With("job", named.Name)
		}
		log.Error(LogMsgWorkerJobFailed, "error", err)
	}
}

// Enqueue adds a job to the queue, blocking while it is full.
// Jobs enqueued after Stop are dropped.
func (p *Pool) Enqueue(job Job) {
	select {
	case p.jobQueue <- job:
	case <-p.ctx.Done():
		logger.FromContext(p.ctx).Warn(LogMsgJobDroppedStopped)
	}
}

// TryEnqueue adds a job without blocking and reports whether it was accepted.
func (p *Pool) TryEnqueue(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		logger.FromContext(p.ctx).Warn(LogMsgJobQueueFull)
		return false
	}
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
