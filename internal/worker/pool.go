package worker

import (
	"context"
	"log/slog"
	"sync"
)

// CheckFunc runs a single check invocation for a monitoring request
type CheckFunc func(ctx context.Context, requestID, correlationID string) (*Result, error)

// WorkerPool manages a pool of worker goroutines for concurrent check
// invocations. Each job is an independent check; the pool imposes only a
// concurrency bound, never ordering.
type WorkerPool struct {
	workers int
	jobs    chan Job
	results chan Result
	checkFn CheckFunc
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, jobQueueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers: workers,
		jobs:    make(chan Job, jobQueueSize),
		results: make(chan Result, jobQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetChecker sets the function that will process jobs
func (wp *WorkerPool) SetChecker(fn CheckFunc) {
	wp.checkFn = fn
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	slog.Info("Starting worker pool", "workers", wp.workers)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	slog.Info("Stopping worker pool")

	close(wp.jobs)
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()

	slog.Info("Worker pool stopped")
}

// Submit submits a job to the worker pool
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobs <- job:
		slog.Debug("Job submitted to worker pool",
			"request_id", job.RequestID,
			"correlation_id", job.CorrelationID,
		)
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the results channel
func (wp *WorkerPool) GetResults() <-chan Result {
	return wp.results
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	slog.Debug("Worker started", "worker_id", id)

	for job := range wp.jobs {
		slog.Debug("Worker processing job",
			"worker_id", id,
			"request_id", job.RequestID,
			"correlation_id", job.CorrelationID,
		)

		result, err := wp.checkFn(job.Context, job.RequestID, job.CorrelationID)

		jobResult := Result{RequestID: job.RequestID, Error: err}
		if result != nil {
			jobResult.Record = result.Record
		}

		select {
		case wp.results <- jobResult:
		case <-wp.ctx.Done():
			return
		}
	}

	slog.Debug("Worker stopped", "worker_id", id)
}

// GetJobQueueLength returns the current number of jobs in the queue
func (wp *WorkerPool) GetJobQueueLength() int {
	return len(wp.jobs)
}
