package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Extractor is the orchestrator contract the workers call.
type Extractor interface {
	Extract(ctx context.Context, path string, opts extract.Options) (*extract.Result, error)
}

// Job is one document to extract. Index lets the caller restore input order.
type Job struct {
	Index   int
	RunID   string
	Path    string
	Options extract.Options
}

// Outcome is the result of one Job.
type Outcome struct {
	Job      Job
	Result   *extract.Result
	Err      error
	Rejected bool // the document itself is unusable (corrupt, encrypted, unreadable)
	Duration time.Duration
}

// ExtractQueue runs extractions on a fixed pool of workers. Results are
// delivered on Results, which is closed once every worker has stopped.
type ExtractQueue struct {
	ex      Extractor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	out  chan Outcome
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ExtractQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ExtractQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewExtractQueue starts the workers. Cancelling ctx cancels every running
// and queued extraction.
func NewExtractQueue(ctx context.Context, ex Extractor, logger *slog.Logger, opts ...Option) *ExtractQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ExtractQueue{
		ex:      ex,
		logger:  logger,
		workers: 4,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.out = make(chan Outcome, q.workers)
	q.start(ctx)
	return q
}

func (q *ExtractQueue) start(ctx context.Context) {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.out <- q.process(ctx, workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
		go func() {
			q.wg.Wait()
			close(q.out)
		}()
	})
}

func (q *ExtractQueue) process(ctx context.Context, workerID int, job Job) Outcome {
	start := time.Now()
	if job.RunID != "" {
		ctx = common.WithRunID(ctx, job.RunID)
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	res, err := q.ex.Extract(ctx, job.Path, job.Options)
	cancel()

	o := Outcome{Job: job, Result: res, Err: err, Rejected: common.IsInputError(err), Duration: time.Since(start)}
	switch {
	case o.Rejected:
		q.logger.Warn("document rejected", "worker_id", workerID, "run_id", job.RunID, "path", job.Path, "code", common.CodeOf(err), "error", err)
	case err != nil:
		q.logger.Error("extraction failed", "worker_id", workerID, "run_id", job.RunID, "path", job.Path, "error", err)
	default:
		q.logger.Info("extracted document successfully",
			"worker_id", workerID,
			"run_id", job.RunID,
			"path", job.Path,
			"rows", len(res.Installments),
			"duration_ms", o.Duration.Milliseconds(),
		)
	}
	return o
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ExtractQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document", "path", job.Path, "run_id", job.RunID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results delivers one Outcome per enqueued job.
func (q *ExtractQueue) Results() <-chan Outcome {
	return q.out
}

// Shutdown stops accepting jobs and waits for the queued ones to finish or
// for ctx to end. Results must be drained concurrently.
func (q *ExtractQueue) Shutdown(ctx context.Context) {
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
		q.logger.Debug("queue drained, shutdown complete")
	}
}
