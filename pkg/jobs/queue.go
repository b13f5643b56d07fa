package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one queued unit of work routed by Type.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

var (
	// ErrPermanent marks a failure the queue must not retry.
	ErrPermanent = errors.New("permanent job failure")
	// ErrStopped is returned by Enqueue once Stop has been called.
	ErrStopped = errors.New("queue stopped")
	// ErrQueueFull is returned by Enqueue when the buffer has no free slot.
	ErrQueueFull = errors.New("queue full")
)

// Permanent wraps err so the job is dropped instead of retried.
func Permanent(err error) error {
	return fmt.Errorf("%w: %v", ErrPermanent, err)
}

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory dispatcher with a fixed worker pool and delayed retries.
// Stop drains jobs already buffered before returning.
type Queue struct {
	name     string
	handlers map[string]Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs        chan Job
	ctx         context.Context
	cancel      context.CancelFunc
	retryCtx    context.Context
	retryCancel context.CancelFunc
	wg          sync.WaitGroup
	retries     sync.WaitGroup

	mu       sync.RWMutex
	started  bool
	stopping bool
	closed   bool

	retryMu      sync.Mutex
	retryStopped bool
}

// NewQueue builds a queue. Register handlers with Handle before Start.
func NewQueue(name string, cfg QueueConfig) *Queue {
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
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handlers:   make(map[string]Handler),
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Handle registers the handler for jobType. It must be called before Start.
func (q *Queue) Handle(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		panic(fmt.Sprintf("queue %s: Handle called after Start", q.name))
	}
	q.handlers[jobType] = handler
}

// Start begins worker consumption. Calls after the first are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.retryCtx, q.retryCancel = context.WithCancel(q.ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop rejects new jobs, abandons pending retries and waits until buffered
// jobs have been processed.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopping {
		q.mu.Unlock()
		return
	}
	q.stopping = true
	q.mu.Unlock()

	q.retryMu.Lock()
	q.retryStopped = true
	q.retryMu.Unlock()
	q.retryCancel()
	q.retries.Wait()

	q.mu.Lock()
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
	q.logger.Info("queue stopped")
}

// Enqueue pushes a job onto the queue without waiting for buffer space.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopping {
		return fmt.Errorf("queue %s: %w", q.name, ErrStopped)
	}
	if _, ok := q.handlers[job.Type]; !ok {
		return fmt.Errorf("queue %s has no handler for %q", q.name, job.Type)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(job)
	}
}

func (q *Queue) process(job Job) {
	err := q.handlers[job.Type](q.ctx, job)
	if err == nil {
		return
	}
	if errors.Is(err, ErrPermanent) {
		q.logger.Error("job failed permanently", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	q.retry(job, err)
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}

	q.retryMu.Lock()
	if q.retryStopped {
		q.retryMu.Unlock()
		q.logger.Warn("queue stopping, dropping failed job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	q.retries.Add(1)
	q.retryMu.Unlock()

	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt), zap.Error(err))

	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.retryCtx.Done():
			q.logger.Warn("retry abandoned", zap.String("job_id", j.ID))
		case <-timer.C:
			q.requeue(j)
		}
	}(job)
}

func (q *Queue) requeue(job Job) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.jobs <- job:
	case <-q.retryCtx.Done():
		q.logger.Warn("retry abandoned", zap.String("job_id", job.ID))
	}
}
