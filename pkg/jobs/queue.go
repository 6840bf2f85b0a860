package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the buffer cannot take another job right away.
	ErrQueueFull = errors.New("job queue full")
	// ErrQueueStopped is returned for jobs offered or retried after Stop.
	ErrQueueStopped = errors.New("job queue stopped")
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// DrainTimeout bounds how long Stop lets workers empty the buffer before
	// cancelling running handlers. Zero waits for the buffer to empty.
	DrainTimeout time.Duration
	// OnGiveUp is called once a job has exhausted its retries, or could not
	// run before the queue stopped.
	OnGiveUp func(Job, error)
}

// Queue is an in-memory dispatcher with a fixed worker pool and delayed retries.
type Queue struct {
	name    string
	handler Handler

	workers      int
	maxRetries   int
	retryDelay   time.Duration
	drainTimeout time.Duration
	logger       *zap.Logger
	onGiveUp     func(Job, error)

	jobs     chan Job
	quit     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	retries  sync.WaitGroup
	mu       sync.Mutex
	started  bool
	stopping bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
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
		name:         name,
		handler:      handler,
		workers:      cfg.Workers,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		drainTimeout: cfg.DrainTimeout,
		logger:       cfg.Logger.With(zap.String("queue", name)),
		onGiveUp:     cfg.OnGiveUp,
		jobs:         make(chan Job, cfg.BufferSize),
		quit:         make(chan struct{}),
	}
}

// Start begins worker consumption. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop refuses new jobs and lets the workers finish everything already
// accepted. Running handlers keep an uncancelled context until the buffer is
// empty or DrainTimeout passes. Jobs that still could not run, including
// pending retries, are handed to OnGiveUp. Later calls are no-ops.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopping {
		q.mu.Unlock()
		return
	}
	q.stopping = true
	close(q.quit)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	if q.drainTimeout > 0 {
		timer := time.NewTimer(q.drainTimeout)
		select {
		case <-done:
		case <-timer.C:
			q.logger.Warn("queue drain timed out, cancelling running jobs", zap.Int("buffered", len(q.jobs)))
			q.cancel()
			<-done
		}
		timer.Stop()
	} else {
		<-done
	}
	q.retries.Wait()
	q.cancel()

	dropped := 0
	for {
		select {
		case job := <-q.jobs:
			dropped++
			q.giveUp(job, ErrQueueStopped)
		default:
			q.logger.Info("queue stopped", zap.Int("given_up", dropped))
			return
		}
	}
}

// Enqueue hands a job to the pool without blocking the caller. It assigns an ID
// when the job has none and returns it.
func (q *Queue) Enqueue(job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return "", fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopping {
		return "", fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}

	select {
	case <-q.ctx.Done():
		return "", fmt.Errorf("queue %s stopped: %w", q.name, q.ctx.Err())
	case q.jobs <- job:
		return job.ID, nil
	default:
		return "", fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		case <-q.quit:
			for {
				select {
				case job := <-q.jobs:
					q.process(job)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) process(job Job) {
	if err := q.ctx.Err(); err != nil {
		q.giveUp(job, err)
		return
	}
	if err := q.handler(q.ctx, job); err != nil {
		q.handleFailure(job, err)
	}
}

func (q *Queue) giveUp(job Job, err error) {
	q.logger.Error("job given up", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))
	if q.onGiveUp != nil {
		q.onGiveUp(job, err)
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.giveUp(job, err)
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.quit:
			q.giveUp(j, fmt.Errorf("%w before retry: %v", ErrQueueStopped, err))
		case <-q.ctx.Done():
			q.giveUp(j, q.ctx.Err())
		case <-timer.C:
			if _, enqErr := q.Enqueue(j); enqErr != nil {
				q.giveUp(j, enqErr)
			}
		}
	}(job)
}
