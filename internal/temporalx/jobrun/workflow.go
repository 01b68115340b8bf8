package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
)

const (
	minRetryWait = time.Second
	maxRetryWait = 15 * time.Minute
)

// Workflow delivers one job run until it succeeds or is dead-lettered. The job
// runtime decides retry vs dead and the retry time; the workflow only sleeps
// durably between deliveries. Activity retries cover infrastructure failures
// (database or worker loss) that never reached the dispatcher.
func Workflow(ctx workflow.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return temporal.NewNonRetryableApplicationError("jobrun: missing job_id", "InvalidJob", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    10,
		},
	})

	for {
		var out DeliveryResult
		if err := workflow.ExecuteActivity(ctx, ActivityDeliver, jobID).Get(ctx, &out); err != nil {
			return err
		}

		switch out.Status {
		case types.JobStatusSucceeded:
			return nil
		case types.JobStatusDead:
			return temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("job %s dead-lettered: %s", jobID, out.Error),
				ErrTypeDeadLettered,
				nil,
			)
		default:
			if err := workflow.Sleep(ctx, retryWait(ctx, out.NextRunAt)); err != nil {
				return err
			}
		}
	}
}

func retryWait(ctx workflow.Context, nextRunAt *time.Time) time.Duration {
	if nextRunAt == nil || nextRunAt.IsZero() {
		return minRetryWait
	}
	d := nextRunAt.Sub(workflow.Now(ctx))
	if d < minRetryWait {
		return minRetryWait
	}
	if d > maxRetryWait {
		return maxRetryWait
	}
	return d
}
