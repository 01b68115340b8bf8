package temporalx

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/temporalx/jobrun"
)

// WorkflowPublisher starts one job_run workflow per committed job. The workflow id
// is the job id, so a second publish of the same job is rejected by Temporal.
type WorkflowPublisher struct {
	client    temporalsdkclient.Client
	taskQueue string
}

func NewWorkflowPublisher(c temporalsdkclient.Client, taskQueue string) *WorkflowPublisher {
	return &WorkflowPublisher{client: c, taskQueue: taskQueue}
}

func (p *WorkflowPublisher) Publish(ctx context.Context, job *types.JobRun) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("temporal not configured")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    job.ID.String(),
		TaskQueue:             p.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
			NonRetryableErrorTypes: []string{
				jobrun.ErrTypeDeadLettered,
			},
		},
	}
	_, err := p.client.ExecuteWorkflow(ctx, opts, jobrun.WorkflowName, job.ID.String())
	return err
}
