package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/observability"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetry     Outcome = "retry"
	OutcomeDead      Outcome = "dead"
	OutcomeReleased  Outcome = "released"
)

// Delivery describes what happened to one claimed job run.
type Delivery struct {
	Outcome   Outcome
	NextRunAt *time.Time
	Err       error
}

// DeadLetterFunc is invoked after a job run is moved to dead.
type DeadLetterFunc func(ctx context.Context, job *types.JobRun, cause error)

// Dispatcher runs the registered handler for a claimed job and applies the retry
// policy to the outcome. Both the Postgres worker pool and the Temporal activity
// deliver through it.
type Dispatcher struct {
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *Registry
	policy   RetryPolicy
	onDead   []DeadLetterFunc
	now      func() time.Time
}

func NewDispatcher(baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry, policy RetryPolicy) *Dispatcher {
	return &Dispatcher{
		log:      baseLog.With("component", "JobDispatcher"),
		repo:     repo,
		registry: registry,
		policy:   policy.normalized(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) OnDeadLetter(fn DeadLetterFunc) {
	if fn != nil {
		d.onDead = append(d.onDead, fn)
	}
}

func (d *Dispatcher) Policy() RetryPolicy { return d.policy }

// Dispatch expects job to already be marked running with its attempt counted.
func (d *Dispatcher) Dispatch(ctx context.Context, job *types.JobRun) Delivery {
	out := d.dispatch(ctx, job)
	observability.Current().IncJobDelivery(job.JobType, string(out.Outcome))
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, job *types.JobRun) Delivery {
	jc := NewContext(ctx, job, d.repo)
	runErr := d.run(jc)

	// Bookkeeping must land even when the worker is shutting down.
	bctx := context.WithoutCancel(jc.Ctx)
	dbc := dbctx.Context{Ctx: bctx}

	if runErr == nil {
		res, err := marshalResult(jc.Result())
		if err != nil {
			d.log.Warn("Job result not serializable; storing empty result", "job_id", job.ID, "error", err)
		}
		if err := d.repo.MarkSucceeded(dbc, job.ID, res); err != nil {
			d.log.Error("MarkSucceeded failed", "job_id", job.ID, "error", err)
			return Delivery{Outcome: OutcomeSucceeded, Err: err}
		}
		d.log.Info("Job succeeded", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts)
		return Delivery{Outcome: OutcomeSucceeded}
	}

	if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
		if err := d.repo.Release(dbc, job.ID); err != nil {
			d.log.Error("Release failed", "job_id", job.ID, "error", err)
		}
		d.log.Info("Job interrupted; released to queue", "job_id", job.ID, "job_type", job.JobType)
		return Delivery{Outcome: OutcomeReleased, Err: runErr}
	}

	if d.policy.ShouldRetry(job.Attempts, runErr) {
		next := d.now().Add(d.policy.Delay(job.Attempts))
		if err := d.repo.MarkRetry(dbc, job.ID, runErr.Error(), next); err != nil {
			d.log.Error("MarkRetry failed", "job_id", job.ID, "error", err)
		}
		d.log.Warn("Job failed; retry scheduled",
			"job_id", job.ID,
			"job_type", job.JobType,
			"stage", job.Stage,
			"attempts", job.Attempts,
			"next_run_at", next,
			"error", runErr,
		)
		return Delivery{Outcome: OutcomeRetry, NextRunAt: &next, Err: runErr}
	}

	if err := d.repo.MarkDead(dbc, job.ID, runErr.Error()); err != nil {
		d.log.Error("MarkDead failed", "job_id", job.ID, "error", err)
	}
	d.log.Error("Job dead-lettered",
		"job_id", job.ID,
		"job_type", job.JobType,
		"stage", job.Stage,
		"attempts", job.Attempts,
		"error", runErr,
	)
	d.notifyDead(bctx, job, runErr)
	return Delivery{Outcome: OutcomeDead, Err: runErr}
}

// DeadLettered runs the dead-letter hooks for a job that was moved to dead outside
// Dispatch, such as a stale running row with no attempts left.
func (d *Dispatcher) DeadLettered(ctx context.Context, job *types.JobRun, cause error) {
	observability.Current().IncJobDelivery(job.JobType, string(OutcomeDead))
	d.notifyDead(context.WithoutCancel(ctx), job, cause)
}

func (d *Dispatcher) notifyDead(ctx context.Context, job *types.JobRun, cause error) {
	for _, fn := range d.onDead {
		fn(ctx, job, cause)
	}
}

func (d *Dispatcher) run(jc *Context) (err error) {
	h, ok := d.registry.Get(jc.Job.JobType)
	if !ok {
		d.log.Warn("No handler registered for job_type", "job_type", jc.Job.JobType, "job_id", jc.Job.ID)
		return &missingHandlerError{JobType: jc.Job.JobType}
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Job handler panic", "job_id", jc.Job.ID, "job_type", jc.Job.JobType, "panic", r)
			err = &panicError{Val: r}
		}
	}()
	return h.Run(jc)
}

func marshalResult(v any) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON([]byte("{}")), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}")), err
	}
	return datatypes.JSON(b), nil
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for job_type=" + e.JobType
}

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
