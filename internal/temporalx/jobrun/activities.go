package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	jobrt "github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type Activities struct {
	Log        *logger.Logger
	Jobs       repos.JobRunRepo
	Dispatcher *jobrt.Dispatcher
}

// Deliver claims the job run and dispatches it once. Terminal job states are
// reported without running the handler again.
func (a *Activities) Deliver(ctx context.Context, jobID string) (DeliveryResult, error) {
	res := DeliveryResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.Jobs == nil || a.Dispatcher == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id")
	}
	dbc := dbctx.Context{Ctx: ctx}

	job, err := a.Jobs.MarkRunning(dbc, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		existing, err := a.Jobs.GetByID(dbc, id)
		if err != nil {
			return res, err
		}
		if existing == nil {
			return res, fmt.Errorf("jobrun: job not found")
		}
		res.Status = existing.Status
		res.Error = existing.Error
		return res, nil
	}

	stopHB := a.startHeartbeat(ctx, id)
	defer stopHB()

	d := a.Dispatcher.Dispatch(ctx, job)
	switch d.Outcome {
	case jobrt.OutcomeSucceeded:
		res.Status = types.JobStatusSucceeded
	case jobrt.OutcomeDead:
		res.Status = types.JobStatusDead
	case jobrt.OutcomeRetry:
		res.Status = types.JobStatusFailed
		res.NextRunAt = d.NextRunAt
	default:
		// Released on shutdown; let Temporal redeliver the activity.
		return res, fmt.Errorf("jobrun: delivery interrupted: %w", d.Err)
	}
	if d.Err != nil {
		res.Error = d.Err.Error()
	}
	return res, nil
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				activity.RecordHeartbeat(ctx)
			case <-dbHB.C:
				if err := a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID); err != nil && a.Log != nil {
					a.Log.Warn("Job heartbeat failed", "job_id", jobID, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}
