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

// ErrQueueFull is returned when the buffer cannot take another job.
var ErrQueueFull = errors.New("queue is full")

// ErrNotRunning is returned by Enqueue before Start or after Stop.
var ErrNotRunning = errors.New("queue is not running")

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  any
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks a handler error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// QueueConfig tunes a Queue. Zero values fall back to one worker, a buffer
// of sixteen jobs per worker and a one second base delay.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnGiveUp runs once a job has failed for good.
	OnGiveUp func(Job, error)
}

// Stats counts job outcomes since Start.
type Stats struct {
	Pending   int
	Succeeded uint64
	Retried   uint64
	Abandoned uint64
}

// Queue runs jobs on a fixed pool of goroutines. Enqueue never blocks; a
// failing job is retried by the worker that picked it up, with the delay
// doubling after every attempt.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	log     *zap.SugaredLogger

	buf chan Job

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	succeeded atomic.Uint64
	retried   atomic.Uint64
	abandoned atomic.Uint64
}

// NewQueue builds a stopped queue.
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
		name:    name,
		handler: handler,
		cfg:     cfg,
		log:     cfg.Logger.Sugar().With("queue", name),
		buf:     make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it on a running queue does nothing.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(workerCtx)
	}
	q.log.Infow("queue started", "workers", q.cfg.Workers, "buffer", cap(q.buf))
}

// Stop cancels the workers and waits for them. Buffered jobs are discarded.
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
	q.log.Infow("queue stopped", "discarded", len(q.buf))
}

// Enqueue buffers a job for the workers.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("queue %s: %w", q.name, ErrNotRunning)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.buf <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Stats returns the outcome counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.buf),
		Succeeded: q.succeeded.Load(),
		Retried:   q.retried.Load(),
		Abandoned: q.abandoned.Load(),
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.buf:
			q.run(ctx, job)
		}
	}
}

// run drives one job through its attempts.
func (q *Queue) run(ctx context.Context, job Job) {
	delay := q.cfg.RetryDelay
	for {
		err := q.handler(ctx, job)
		if err == nil {
			q.succeeded.Add(1)
			return
		}
		job.Attempt++
		if IsPermanent(err) || job.Attempt > q.cfg.MaxRetries {
			q.abandon(job, err)
			return
		}

		q.retried.Add(1)
		q.log.Warnw("job failed, retrying", "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			q.log.Debugw("retry cancelled by shutdown", "job_id", job.ID)
			return
		case <-timer.C:
		}
		delay *= 2
	}
}

func (q *Queue) abandon(job Job, err error) {
	q.abandoned.Add(1)
	q.log.Errorw("job abandoned", "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", err)
	if q.cfg.OnGiveUp != nil {
		q.cfg.OnGiveUp(job, err)
	}
}
