package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	StaleRunning time.Duration
}

func (c Config) normalized() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	return c
}

// Worker is a pool of goroutines claiming job runs from Postgres. Each goroutine
// processes one job at a time; SKIP LOCKED keeps two goroutines (or two processes)
// off the same row.
type Worker struct {
	log        *logger.Logger
	repo       repos.JobRunRepo
	dispatcher *runtime.Dispatcher
	cfg        Config
	wake       <-chan struct{}
	wg         sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo repos.JobRunRepo, dispatcher *runtime.Dispatcher, cfg Config) *Worker {
	return &Worker{
		log:        baseLog.With("component", "JobWorker"),
		repo:       repo,
		dispatcher: dispatcher,
		cfg:        cfg.normalized(),
	}
}

// SetWake installs a channel that interrupts the poll wait, typically fed by a
// pub/sub subscription on enqueue. Must be called before Start.
func (w *Worker) SetWake(ch <-chan struct{}) { w.wake = ch }

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "poll_interval", w.cfg.PollInterval)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has returned after ctx cancellation.
func (w *Worker) Wait() { w.wg.Wait() }

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
		w.drain(ctx, workerID)
	}
}

// errWorkerLost is recorded on jobs whose worker stopped heartbeating during the
// final attempt.
var errWorkerLost = errors.New("worker stopped heartbeating on final attempt")

// drain keeps claiming until the queue has nothing runnable.
func (w *Worker) drain(ctx context.Context, workerID int) {
	if err := w.ReapStale(ctx); err != nil {
		w.log.Warn("DeadLetterStale failed", "worker_id", workerID, "error", err)
	}
	for ctx.Err() == nil {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
			return
		}
		if !processed {
			return
		}
	}
}

// ReapStale dead-letters stale running jobs that have no attempts left and runs the
// dead-letter hooks for each.
func (w *Worker) ReapStale(ctx context.Context) error {
	jobs, err := w.repo.DeadLetterStale(dbctx.Context{Ctx: ctx}, w.dispatcher.Policy().MaxAttempts, w.cfg.StaleRunning, errWorkerLost.Error())
	if err != nil {
		return err
	}
	for _, job := range jobs {
		w.log.Error("Job dead-lettered after losing its worker", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts)
		w.dispatcher.DeadLettered(ctx, job, errWorkerLost)
	}
	return nil
}

// RunOnce claims and dispatches at most one job. It reports whether a job was found.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.dispatcher.Policy().MaxAttempts, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	stop := w.startHeartbeat(ctx, job.ID)
	defer stop()
	w.dispatcher.Dispatch(ctx, job)
	return true, nil
}
