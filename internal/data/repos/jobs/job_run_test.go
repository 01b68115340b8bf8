package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/testutil"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
)

func TestJobRunRepoClaimOrder(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	now := time.Now().UTC()
	queued := testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:   "rfp_analysis",
		Status:    types.JobStatusQueued,
		CreatedAt: now.Add(-3 * time.Hour),
	})
	dueRetry := testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:   "rfp_analysis",
		Status:    types.JobStatusFailed,
		Attempts:  1,
		NextRunAt: testutil.PtrTime(now.Add(-time.Minute)),
		CreatedAt: now.Add(-2 * time.Hour),
	})
	stale := testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:     "rfp_analysis",
		Status:      types.JobStatusRunning,
		Attempts:    1,
		HeartbeatAt: testutil.PtrTime(now.Add(-10 * time.Hour)),
		CreatedAt:   now.Add(-1 * time.Hour),
	})
	// Not runnable: retry in the future, exhausted attempts, fresh heartbeat, dead.
	testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:   "rfp_analysis",
		Status:    types.JobStatusFailed,
		Attempts:  1,
		NextRunAt: testutil.PtrTime(now.Add(time.Hour)),
		CreatedAt: now.Add(-5 * time.Hour),
	})
	testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:   "rfp_analysis",
		Status:    types.JobStatusFailed,
		Attempts:  5,
		CreatedAt: now.Add(-5 * time.Hour),
	})
	testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:     "rfp_analysis",
		Status:      types.JobStatusRunning,
		HeartbeatAt: testutil.PtrTime(now),
		CreatedAt:   now.Add(-5 * time.Hour),
	})
	testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:   "rfp_analysis",
		Status:    types.JobStatusDead,
		CreatedAt: now.Add(-5 * time.Hour),
	})

	wantOrder := []uuid.UUID{queued.ID, dueRetry.ID, stale.ID}
	for i, want := range wantOrder {
		got, err := repo.ClaimNextRunnable(dbc, 5, 30*time.Minute)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if got == nil || got.ID != want {
			t.Fatalf("claim %d: want=%s got=%v", i, want, got)
		}
		if got.Status != types.JobStatusRunning {
			t.Fatalf("claim %d status: want=%q got=%q", i, types.JobStatusRunning, got.Status)
		}
	}
	got, err := repo.ClaimNextRunnable(dbc, 5, 30*time.Minute)
	if err != nil {
		t.Fatalf("final claim: %v", err)
	}
	if got != nil {
		t.Fatalf("final claim: want nil got=%s", got.ID)
	}

	reloaded, err := repo.GetByID(dbc, dueRetry.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("GetByID: err=%v job=%v", err, reloaded)
	}
	if reloaded.Attempts != 2 {
		t.Fatalf("attempts: want=2 got=%d", reloaded.Attempts)
	}
}

func TestJobRunRepoTerminalTransitions(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	job := testutil.SeedJob(t, ctx, db, &types.JobRun{JobType: "rfp_analysis", Status: types.JobStatusQueued})

	claimed, err := repo.MarkRunning(dbc, job.ID)
	if err != nil || claimed == nil {
		t.Fatalf("MarkRunning: err=%v job=%v", err, claimed)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("attempts: want=1 got=%d", claimed.Attempts)
	}

	next := time.Now().UTC().Add(time.Minute)
	if err := repo.MarkRetry(dbc, job.ID, "stage unavailable", next); err != nil {
		t.Fatalf("MarkRetry: %v", err)
	}
	failed, _ := repo.GetByID(dbc, job.ID)
	if failed.Status != types.JobStatusFailed || failed.Error != "stage unavailable" || failed.NextRunAt == nil {
		t.Fatalf("after retry: %+v", failed)
	}

	if err := repo.MarkDead(dbc, job.ID, "exhausted"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}
	dead, err := repo.ListByStatus(dbc, types.JobStatusDead, 10)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != job.ID {
		t.Fatalf("dead letters: got=%v", dead)
	}

	again, err := repo.MarkRunning(dbc, job.ID)
	if err != nil {
		t.Fatalf("MarkRunning dead: %v", err)
	}
	if again != nil {
		t.Fatalf("MarkRunning dead: want nil got=%v", again)
	}
}

func TestJobRunRepoReleaseReturnsAttempt(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	job := testutil.SeedJob(t, ctx, db, &types.JobRun{JobType: "rfp_analysis", Status: types.JobStatusQueued})
	if _, err := repo.MarkRunning(dbc, job.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := repo.Release(dbc, job.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	got, _ := repo.GetByID(dbc, job.ID)
	if got.Status != types.JobStatusQueued || got.Attempts != 0 || got.LockedAt != nil {
		t.Fatalf("after release: status=%s attempts=%d locked=%v", got.Status, got.Attempts, got.LockedAt)
	}
}

func TestJobRunRepoStaleExhaustedJobIsDeadLettered(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	old := testutil.PtrTime(time.Now().UTC().Add(-2 * time.Hour))
	exhausted := testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:     "rfp_analysis",
		Status:      types.JobStatusRunning,
		Attempts:    3,
		HeartbeatAt: old,
	})
	retryable := testutil.SeedJob(t, ctx, db, &types.JobRun{
		JobType:     "rfp_analysis",
		Status:      types.JobStatusRunning,
		Attempts:    2,
		HeartbeatAt: old,
	})

	got, err := repo.ClaimNextRunnable(dbc, 3, 30*time.Minute)
	if err != nil || got == nil || got.ID != retryable.ID {
		t.Fatalf("claim: want=%s got=%v err=%v", retryable.ID, got, err)
	}
	none, err := repo.ClaimNextRunnable(dbc, 3, 30*time.Minute)
	if err != nil || none != nil {
		t.Fatalf("exhausted stale job must not be reclaimed: got=%v err=%v", none, err)
	}

	reaped, err := repo.DeadLetterStale(dbc, 3, 30*time.Minute, "worker lost")
	if err != nil {
		t.Fatalf("DeadLetterStale: %v", err)
	}
	if len(reaped) != 1 || reaped[0].ID != exhausted.ID {
		t.Fatalf("reaped: want=[%s] got=%v", exhausted.ID, reaped)
	}
	reloaded, _ := repo.GetByID(dbc, exhausted.ID)
	if reloaded.Status != types.JobStatusDead || reloaded.Error != "worker lost" {
		t.Fatalf("after reap: status=%q error=%q", reloaded.Status, reloaded.Error)
	}

	again, err := repo.DeadLetterStale(dbc, 3, 30*time.Minute, "worker lost")
	if err != nil || len(again) != 0 {
		t.Fatalf("second reap: got=%v err=%v", again, err)
	}
}
