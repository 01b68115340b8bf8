package jobrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/testutil"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	jobrt "github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
)

type stubHandler struct {
	calls int
	err   error
}

func (h *stubHandler) Type() string { return types.JobTypeRFPAnalysis }

func (h *stubHandler) Run(jc *jobrt.Context) error {
	h.calls++
	return h.err
}

func newActivities(t *testing.T, h *stubHandler) (*Activities, func() *types.JobRun) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := jobrt.NewRegistry()
	if err := reg.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	acts := &Activities{
		Log:        log,
		Jobs:       repo,
		Dispatcher: jobrt.NewDispatcher(log, repo, reg, jobrt.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Minute, MaxDelay: time.Minute}),
	}
	seed := func() *types.JobRun {
		return testutil.SeedJob(t, context.Background(), db, &types.JobRun{
			JobType: types.JobTypeRFPAnalysis,
			Status:  types.JobStatusQueued,
		})
	}
	return acts, seed
}

func TestDeliverRunsOnceThenReportsTerminalState(t *testing.T) {
	h := &stubHandler{}
	acts, seed := newActivities(t, h)
	job := seed()

	out, err := acts.Deliver(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if out.Status != types.JobStatusSucceeded {
		t.Fatalf("status: want=%s got=%s", types.JobStatusSucceeded, out.Status)
	}

	out, err = acts.Deliver(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if out.Status != types.JobStatusSucceeded || h.calls != 1 {
		t.Fatalf("redeliver: status=%s calls=%d", out.Status, h.calls)
	}
}

func TestDeliverReportsRetryThenDead(t *testing.T) {
	h := &stubHandler{err: context.DeadlineExceeded}
	acts, seed := newActivities(t, h)
	job := seed()

	out, err := acts.Deliver(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if out.Status != types.JobStatusFailed || out.NextRunAt == nil {
		t.Fatalf("first delivery: %+v", out)
	}

	out, err = acts.Deliver(context.Background(), job.ID.String())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if out.Status != types.JobStatusDead || out.Error == "" {
		t.Fatalf("second delivery: %+v", out)
	}
}

func TestDeliverRejectsBadJobID(t *testing.T) {
	acts, _ := newActivities(t, &stubHandler{err: errors.New("unused")})
	if _, err := acts.Deliver(context.Background(), "not-a-uuid"); err == nil {
		t.Fatalf("expected error")
	}
}
