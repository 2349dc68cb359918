package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tracker-api/internal/store"
)

// Runner errors
var (
	ErrQueueFull     = errors.New("job queue is full")
	ErrRunnerStopped = errors.New("job runner is stopped")
)

// Config holds configuration for the job runner
type Config struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory queue
	QueueSize int

	// MaxAttempts bounds how many times a job is executed before it is
	// marked failed
	MaxAttempts int

	// RetryDelay is multiplied by the attempt count to space out retries
	RetryDelay time.Duration

	// JobTimeout bounds a single execution
	JobTimeout time.Duration

	// StuckJobAge defines how long a job can sit in pending or processing
	// before the monitor re-dispatches it
	StuckJobAge time.Duration

	// CheckInterval defines how often the monitor runs
	CheckInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount:   2,
		QueueSize:     100,
		MaxAttempts:   3,
		RetryDelay:    2 * time.Second,
		JobTimeout:    time.Minute,
		StuckJobAge:   30 * time.Minute,
		CheckInterval: 5 * time.Minute,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.StuckJobAge <= 0 {
		c.StuckJobAge = d.StuckJobAge
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	return c
}

// Runner manages background job processing
type Runner struct {
	store      Store
	registry   *Registry
	queue      chan *Record
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     Config
	logger     *slog.Logger

	handlerMu  sync.RWMutex
	errHandler func(rec *Record, err error)
}

var _ Enqueuer = (*Runner)(nil)

// NewRunner creates a new Runner
func NewRunner(store Store, registry *Registry, config Config, logger *slog.Logger) *Runner {
	config = config.withDefaults()
	logger = logger.With("component", "job_runner")

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		registry:   registry,
		queue:      make(chan *Record, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		errHandler: func(rec *Record, err error) {
			logger.Error("job failed permanently",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"attempts", rec.Attempts,
				"error", err)
		},
	}
}

// SetErrorHandler sets the function called when a job fails permanently.
// It may be called while workers are running.
func (r *Runner) SetErrorHandler(handler func(rec *Record, err error)) {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()
	r.errHandler = handler
}

// Enqueue persists job and queues it for execution. A job whose dedupe key
// was already stored is silently dropped. If the in-memory queue is full the
// job stays persisted as pending and ErrQueueFull is returned; the monitor
// dispatches it later.
func (r *Runner) Enqueue(ctx context.Context, job Job) error {
	rec := NewRecord(job)

	if err := r.store.Save(ctx, rec); err != nil {
		if store.IsDuplicateError(err) {
			r.logger.Debug("duplicate job dropped",
				"job_type", rec.Type,
				"dedupe_key", rec.DedupeKey)
			return nil
		}
		return fmt.Errorf("failed to save job: %w", err)
	}

	return r.dispatch(rec)
}

// dispatch puts rec on the in-memory queue without blocking.
func (r *Runner) dispatch(rec *Record) error {
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}
	select {
	case r.queue <- rec:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(r.queue))
	}
}

// Start recovers unfinished jobs and starts the workers and the monitor
func (r *Runner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckJobMonitor()

	return nil
}

// Stop signals workers to exit and waits for in-flight jobs to return.
// Jobs left on the queue remain pending in the store.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// Recover re-dispatches jobs left pending or processing by a previous run
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.store.ListByStatus(ctx, StatusPending, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.ListByStatus(ctx, StatusProcessing, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	r.requeue(ctx, pending, processing, "reset after recovery")
	return nil
}

// requeue resets processing records to pending and dispatches both sets.
func (r *Runner) requeue(ctx context.Context, pending, processing []*Record, reason string) {
	for _, rec := range processing {
		if err := r.store.UpdateStatus(ctx, rec.ID, StatusPending, reason); err != nil {
			r.logger.Error("failed to reset processing job",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
			continue
		}
		rec.Status = StatusPending
		pending = append(pending, rec)
	}

	for _, rec := range pending {
		if err := r.dispatch(rec); err != nil {
			r.logger.Warn("failed to requeue job",
				"job_id", rec.ID,
				"job_type", rec.Type,
				"error", err)
		}
	}
}

// worker processes jobs from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return
		case rec := <-r.queue:
			r.process(rec, id)
		}
	}
}

// process claims and executes a single job
func (r *Runner) process(rec *Record, workerID int) {
	log := r.logger.With(
		"job_id", rec.ID,
		"job_type", rec.Type,
		"worker_id", workerID,
	)

	attempts, claimed, err := r.store.Claim(r.ctx, rec.ID)
	if err != nil {
		log.Error("failed to claim job", "error", err)
		return
	}
	if !claimed {
		log.Debug("job already claimed or finished")
		return
	}
	rec.Attempts = attempts

	job, err := r.registry.Build(rec)
	if err != nil {
		r.fail(r.ctx, rec, err, log)
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.config.JobTimeout)
	err = r.execute(ctx, job)
	cancel()

	// Status writes must land even when Stop cancelled the execution.
	statusCtx := context.WithoutCancel(r.ctx)

	if err == nil {
		log.Info("job completed", "attempts", rec.Attempts)
		if updateErr := r.store.UpdateStatus(statusCtx, rec.ID, StatusCompleted, ""); updateErr != nil {
			log.Error("failed to mark job completed", "error", updateErr)
		}
		return
	}

	if rec.Attempts >= r.config.MaxAttempts {
		r.fail(statusCtx, rec, err, log)
		return
	}

	log.Warn("job execution failed, scheduling retry",
		"attempts", rec.Attempts,
		"max_attempts", r.config.MaxAttempts,
		"error", err)
	if updateErr := r.store.UpdateStatus(statusCtx, rec.ID, StatusPending, err.Error()); updateErr != nil {
		log.Error("failed to reset job for retry", "error", updateErr)
		return
	}
	rec.Status = StatusPending
	time.AfterFunc(time.Duration(rec.Attempts)*r.config.RetryDelay, func() {
		if dispatchErr := r.dispatch(rec); dispatchErr != nil {
			log.Warn("failed to requeue job for retry", "error", dispatchErr)
		}
	})
}

// execute runs job, converting a panic into an error.
func (r *Runner) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return job.Execute(ctx)
}

// fail marks rec failed and reports it.
func (r *Runner) fail(ctx context.Context, rec *Record, err error, log *slog.Logger) {
	if updateErr := r.store.UpdateStatus(ctx, rec.ID, StatusFailed, err.Error()); updateErr != nil {
		log.Error("failed to mark job failed", "error", updateErr)
	}
	rec.Status = StatusFailed
	rec.LastError = err.Error()
	r.handlerMu.RLock()
	handler := r.errHandler
	r.handlerMu.RUnlock()
	handler(rec, err)
}

// stuckJobMonitor periodically re-dispatches jobs that have been pending or
// processing for longer than StuckJobAge
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkStuckJobs(r.ctx)
		}
	}
}

// checkStuckJobs runs one monitor pass.
func (r *Runner) checkStuckJobs(ctx context.Context) {
	stuck, err := r.store.ListByStatus(ctx, StatusProcessing, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
		return
	}
	stale, err := r.store.ListByStatus(ctx, StatusPending, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stale pending jobs", "error", err)
		return
	}

	if len(stuck) == 0 && len(stale) == 0 {
		return
	}

	r.logger.Info("re-dispatching stale jobs",
		"processing_count", len(stuck),
		"pending_count", len(stale))
	r.requeue(ctx, stale, stuck, "reset after being stuck in processing state")
}
