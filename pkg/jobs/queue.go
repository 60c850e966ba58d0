package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNotRunning is returned when a job is offered to a queue that is not started or already stopped.
var ErrNotRunning = errors.New("queue is not running")

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// GiveUpFunc is called once a job has exhausted its retries.
type GiveUpFunc func(Job, error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// JobTimeout bounds a single handler call. Zero leaves the handler on the queue context.
	JobTimeout time.Duration
	Logger     *zap.Logger
	OnGiveUp   GiveUpFunc
}

// Stats is a point-in-time view of queue activity.
type Stats struct {
	Pending   int
	Processed int64
	Failed    int64
	Abandoned int64
}

// Queue runs jobs on a fixed pool of goroutines. Failed jobs are retried with linear backoff.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger
	ch      chan Job

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	abandoned atomic.Int64
}

// NewQueue builds a queue; it accepts jobs only after Start.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		ch:      make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.ctx != nil {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	q.wg.Add(q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		go q.work()
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Int("buffer", q.cfg.BufferSize))
}

// Stop cancels the workers and waits for in-flight handlers to return.
// Jobs still buffered are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("discarded", len(q.ch)))
}

// Enqueue adds a job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	ctx, ok := q.live()
	if !ok {
		return fmt.Errorf("enqueue on %s: %w", q.name, ErrNotRunning)
	}
	stamp(&job)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue on %s: %w", q.name, ctx.Err())
	}
}

// TryEnqueue adds a job only if buffer space is free and reports whether it was accepted.
func (q *Queue) TryEnqueue(job Job) bool {
	if _, ok := q.live(); !ok {
		return false
	}
	stamp(&job)
	select {
	case q.ch <- job:
		return true
	default:
		return false
	}
}

// Stats reports queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.ch),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Abandoned: q.abandoned.Load(),
	}
}

func (q *Queue) live() (context.Context, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.ctx, q.running
}

func stamp(job *Job) {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.ch:
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	ctx := q.ctx
	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}
	err := q.handler(ctx, job)
	if err == nil {
		q.processed.Add(1)
		return
	}
	q.failed.Add(1)
	q.retry(job, err)
}

func (q *Queue) retry(job Job, cause error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(cause)}
	if job.Attempt > q.cfg.MaxRetries {
		q.abandoned.Add(1)
		q.logger.Error("job abandoned after retries", fields...)
		if q.cfg.OnGiveUp != nil {
			q.cfg.OnGiveUp(job, cause)
		}
		return
	}
	q.logger.Warn("job failed, scheduling retry", fields...)

	delay := q.cfg.RetryDelay * time.Duration(job.Attempt)
	time.AfterFunc(delay, func() {
		if err := q.Enqueue(job); err != nil && !errors.Is(err, ErrNotRunning) && q.ctx.Err() == nil {
			q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
		}
	})
}
