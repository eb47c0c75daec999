package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	jobrepo "github.com/yungbote/exampaper-backend/internal/data/repos/jobs"
	"github.com/yungbote/exampaper-backend/internal/jobs/runtime"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
	// JobTimeout bounds one handler run; 0 means no limit.
	JobTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 2
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	return c
}

type Worker struct {
	log      *logger.Logger
	repo     jobrepo.JobRunRepo
	registry *runtime.Registry
	metrics  *observability.Metrics
	cfg      Config
	wake     chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo jobrepo.JobRunRepo, registry *runtime.Registry, metrics *observability.Metrics, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		metrics:  metrics,
		cfg:      cfg,
		wake:     make(chan struct{}, cfg.Concurrency),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has observed ctx cancellation.
func (w *Worker) Wait() { w.wg.Wait() }

// Wake nudges an idle loop to claim immediately instead of waiting for the
// next poll. It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
		case <-w.wake:
		}
		// Drain the queue before going back to sleep.
		for ctx.Err() == nil {
			ran, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				break
			}
			if !ran {
				break
			}
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job was
// claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if w.cfg.JobTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
	}
	defer cancel()

	jc := runtime.NewContext(runCtx, job, w.repo)
	start := time.Now()
	log := w.log.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		w.metrics.ObserveJob(job.JobType, jc.Job.Status, time.Since(start))
		return true, nil
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Job handler panic", "panic", r)
				jc.Fail("panic", &panicError{Val: r})
			}
		}()
		if runErr := h.Run(jc); runErr != nil && !jc.Done() {
			jc.Fail("run", runErr)
		}
	}()
	if !jc.Done() {
		jc.Succeed("done", nil)
	}

	log.Info("Job finished", "status", jc.Job.Status, "stage", jc.Job.Stage, "duration_ms", time.Since(start).Milliseconds())
	w.metrics.ObserveJob(job.JobType, jc.Job.Status, time.Since(start))
	return true, nil
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
