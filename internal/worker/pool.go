package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"redditanalyzer/pkg/logger"
)

// ErrPoolClosed is returned by Submit after Shutdown has started
var ErrPoolClosed = errors.New("worker pool is shutting down")

// Job is one unit of background work
type Job struct {
	ID  string
	Run func(ctx context.Context)
	// OnPanic is called with the recovered value when Run panics
	OnPanic func(recovered interface{})
	// OnDrop is called when shutdown cancels the job before Run starts
	OnDrop func()
}

// Stats summarises pool activity
type Stats struct {
	Submitted int64
	Finished  int64
	Panicked  int64
	Running   int64
}

// Pool runs each submitted job on its own goroutine. A non-zero concurrency
// limit makes excess jobs wait for a slot; zero means no limit.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger

	mu     sync.Mutex
	closed bool

	submitted atomic.Int64
	finished  atomic.Int64
	panicked  atomic.Int64
	running   atomic.Int64
}

// NewPool creates a pool. maxConcurrent <= 0 runs every job immediately.
func NewPool(maxConcurrent int, log logger.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: log.WithField("component", "worker_pool"),
	}
	if maxConcurrent > 0 {
		p.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}

	logger.LogComponentStart(p.logger, "worker_pool", map[string]interface{}{
		"max_concurrent": maxConcurrent,
	})
	return p
}

// Submit schedules job and returns immediately
func (p *Pool) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	p.submitted.Add(1)
	go p.execute(job)

	p.logger.DebugWithFields("Job submitted", map[string]interface{}{
		"job_id": job.ID,
	})
	return nil
}

func (p *Pool) execute(job Job) {
	defer p.wg.Done()
	defer p.finished.Add(1)

	if p.sem != nil {
		err := p.sem.Acquire(p.ctx, 1)
		if err == nil && p.ctx.Err() != nil {
			p.sem.Release(1)
			err = p.ctx.Err()
		}
		if err != nil {
			p.logger.WarnWithFields("Job dropped before start", map[string]interface{}{
				"job_id": job.ID,
				"error":  err.Error(),
			})
			if job.OnDrop != nil {
				p.runHook(job, job.OnDrop)
			}
			return
		}
		defer p.sem.Release(1)
	}

	p.running.Add(1)
	defer p.running.Add(-1)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.ErrorWithFields("Job panicked", map[string]interface{}{
				"job_id": job.ID,
				"panic":  fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			})
			if job.OnPanic != nil {
				p.runHook(job, func() { job.OnPanic(r) })
			}
		}
	}()

	job.Run(p.ctx)

	p.logger.DebugWithFields("Job finished", map[string]interface{}{
		"job_id":   job.ID,
		"duration": time.Since(start),
	})
}

// runHook runs one of the job's hooks; a panicking hook is logged and swallowed
func (p *Pool) runHook(job Job, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorWithFields("Job hook panicked", map[string]interface{}{
				"job_id": job.ID,
				"panic":  fmt.Sprint(r),
			})
		}
	}()
	hook()
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Finished:  p.finished.Load(),
		Panicked:  p.panicked.Load(),
		Running:   p.running.Load(),
	}
}

// Shutdown stops accepting jobs and waits for running ones. When ctx expires
// first, the pool context is cancelled and the number of jobs still
// outstanding is returned together with ctx's error.
func (p *Pool) Shutdown(ctx context.Context) (int, error) {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		logger.LogComponentStop(p.logger, "worker_pool", "all jobs finished")
		return 0, nil
	case <-ctx.Done():
		stats := p.Stats()
		abandoned := int(stats.Submitted - stats.Finished)
		p.cancel()
		p.logger.WarnWithFields("Worker pool shutdown timed out", map[string]interface{}{
			"abandoned": abandoned,
		})
		return abandoned, ctx.Err()
	}
}
