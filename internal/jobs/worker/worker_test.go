package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/testutil"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
)

type countingHandler struct {
	calls atomic.Int64
	err   error
}

func (h *countingHandler) Type() string { return types.JobTypeRFPAnalysis }

func (h *countingHandler) Run(jc *runtime.Context) error {
	h.calls.Add(1)
	return h.err
}

func newTestWorker(t *testing.T, h runtime.Handler) (*Worker, repos.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	if err := reg.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d := runtime.NewDispatcher(log, repo, reg, runtime.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Hour, MaxDelay: time.Hour})
	w := NewWorker(log, repo, d, Config{Concurrency: 2, PollInterval: 10 * time.Millisecond})

	for i := 0; i < 3; i++ {
		testutil.SeedJob(t, context.Background(), db, &types.JobRun{
			JobType: types.JobTypeRFPAnalysis,
			Status:  types.JobStatusQueued,
		})
	}
	return w, repo
}

func TestRunOnceDrainsQueue(t *testing.T) {
	h := &countingHandler{}
	w, repo := newTestWorker(t, h)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		processed, err := w.RunOnce(ctx)
		if err != nil || !processed {
			t.Fatalf("RunOnce %d: processed=%v err=%v", i, processed, err)
		}
	}
	processed, err := w.RunOnce(ctx)
	if err != nil || processed {
		t.Fatalf("empty queue: processed=%v err=%v", processed, err)
	}
	done, _ := repo.ListByStatus(dbctx.Context{Ctx: ctx}, types.JobStatusSucceeded, 10)
	if len(done) != 3 || h.calls.Load() != 3 {
		t.Fatalf("succeeded=%d calls=%d", len(done), h.calls.Load())
	}
}

func TestRetryScheduledJobIsNotReclaimedEarly(t *testing.T) {
	h := &countingHandler{err: fmt.Errorf("score: %w", context.DeadlineExceeded)}
	w, repo := newTestWorker(t, h)
	ctx := context.Background()

	for {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !processed {
			break
		}
	}
	if h.calls.Load() != 3 {
		t.Fatalf("calls: want=3 got=%d", h.calls.Load())
	}
	failed, _ := repo.ListByStatus(dbctx.Context{Ctx: ctx}, types.JobStatusFailed, 10)
	if len(failed) != 3 {
		t.Fatalf("failed: want=3 got=%d", len(failed))
	}
}

func TestStartProcessesAndStops(t *testing.T) {
	h := &countingHandler{}
	w, repo := newTestWorker(t, h)
	wake := make(chan struct{}, 1)
	w.SetWake(wake)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	wake <- struct{}{}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		done, _ := repo.ListByStatus(dbctx.Context{Ctx: ctx}, types.JobStatusSucceeded, 10)
		if len(done) == 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	w.Wait()

	if h.calls.Load() != 3 {
		t.Fatalf("calls: want=3 got=%d", h.calls.Load())
	}
}

func TestReapStaleRunsDeadLetterHooks(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	if err := reg.Register(&countingHandler{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d := runtime.NewDispatcher(log, repo, reg, runtime.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Hour, MaxDelay: time.Hour})
	var hooked []*types.JobRun
	d.OnDeadLetter(func(ctx context.Context, job *types.JobRun, cause error) {
		hooked = append(hooked, job)
	})
	w := NewWorker(log, repo, d, Config{StaleRunning: time.Minute})

	ctx := context.Background()
	job := testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:     types.JobTypeRFPAnalysis,
		Status:      types.JobStatusRunning,
		Attempts:    2,
		HeartbeatAt: testutil.PtrTime(time.Now().UTC().Add(-time.Hour)),
	})

	if err := w.ReapStale(ctx); err != nil {
		t.Fatalf("ReapStale: %v", err)
	}
	if len(hooked) != 1 || hooked[0].ID != job.ID {
		t.Fatalf("dead letter hook: got=%v", hooked)
	}
	processed, err := w.RunOnce(ctx)
	if err != nil || processed {
		t.Fatalf("reaped job must not be claimed: processed=%v err=%v", processed, err)
	}
	dead, _ := repo.ListByStatus(dbctx.Context{Ctx: ctx}, types.JobStatusDead, 10)
	if len(dead) != 1 {
		t.Fatalf("dead: want=1 got=%d", len(dead))
	}
}
