package jobrun

import "time"

const (
	WorkflowName    = "job_run"
	ActivityDeliver = "job_run_deliver"

	// ErrTypeDeadLettered ends the workflow without a Temporal-level retry.
	ErrTypeDeadLettered = "JobDeadLettered"
)

type DeliveryResult struct {
	JobID     string     `json:"job_id"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}
