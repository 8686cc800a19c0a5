package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"spendscan/internal/pipeline"
)

// Job is the smallest useful unit. Extend as needed later (priority, trace, retry, etc).
type Job struct {
	DocumentID  uuid.UUID
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// PipelineQueue fans documents out to a fixed pool of pipeline workers.
type PipelineQueue struct {
	proc    *pipeline.Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*PipelineQueue)

func WithWorkers(n int) Option {
	return func(q *PipelineQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *PipelineQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *PipelineQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewPipelineQueue(proc *pipeline.Processor, logger *slog.Logger, opts ...Option) *PipelineQueue {
	q := &PipelineQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *PipelineQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					err := q.proc.Process(ctx, job.DocumentID)
					cancel()

					switch {
					case errors.Is(err, pipeline.ErrAlreadyProcessing):
						q.logger.Warn("skipped duplicate run", "worker_id", workerID, "document_id", job.DocumentID)
					case err != nil:
						q.logger.Error("processing failed", "worker_id", workerID, "document_id", job.DocumentID, "error", err)
					default:
						q.logger.Info("processed document successfully", "worker_id", workerID, "document_id", job.DocumentID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *PipelineQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "document_id", job.DocumentID)
	default:
		q.logger.Warn("queue full, applying backpressure", "document_id", job.DocumentID)
		q.ch <- job
	}
	return nil
}

func (q *PipelineQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
