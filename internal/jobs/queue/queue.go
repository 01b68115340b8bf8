package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/ctxutil"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

// Publisher hands a committed job run to whatever delivers it: a wake-up on the
// worker bus, or a workflow start on Temporal.
type Publisher interface {
	Publish(ctx context.Context, job *types.JobRun) error
}

type Enqueuer interface {
	// Enqueue writes the job row through dbc so it commits with the caller's transaction.
	Enqueue(dbc dbctx.Context, rfpID uuid.UUID) (*types.JobRun, error)
	// Publish must run after the enqueuing transaction commits.
	Publish(ctx context.Context, job *types.JobRun) error
}

type Queue struct {
	log       *logger.Logger
	repo      repos.JobRunRepo
	publisher Publisher
}

func New(baseLog *logger.Logger, repo repos.JobRunRepo, publisher Publisher) *Queue {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Queue{
		log:       baseLog.With("component", "JobQueue"),
		repo:      repo,
		publisher: publisher,
	}
}

func (q *Queue) Enqueue(dbc dbctx.Context, rfpID uuid.UUID) (*types.JobRun, error) {
	if rfpID == uuid.Nil {
		return nil, fmt.Errorf("enqueue: missing rfp id")
	}
	job, err := NewAnalysisJob(dbc.Ctx, rfpID)
	if err != nil {
		return nil, err
	}
	if _, err := q.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return job, nil
}

func (q *Queue) Publish(ctx context.Context, job *types.JobRun) error {
	if job == nil {
		return nil
	}
	if err := q.publisher.Publish(ctx, job); err != nil {
		q.log.Warn("Job publish failed; job stays queued", "job_id", job.ID, "error", err)
		return err
	}
	q.log.Debug("Job published", "job_id", job.ID, "job_type", job.JobType)
	return nil
}

// NewAnalysisJob builds the queued job run for one RFP. The payload carries the
// caller's trace data so the worker logs under the same request.
func NewAnalysisJob(ctx context.Context, rfpID uuid.UUID) (*types.JobRun, error) {
	payload := map[string]any{"rfp_id": rfpID.String()}
	if td := ctxutil.GetTraceData(ctxutil.Default(ctx)); td != nil {
		if td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	entityID := rfpID
	return &types.JobRun{
		ID:         uuid.New(),
		JobType:    types.JobTypeRFPAnalysis,
		EntityType: "rfp",
		EntityID:   &entityID,
		Status:     types.JobStatusQueued,
		Stage:      types.JobStatusQueued,
		Payload:    datatypes.JSON(raw),
		Result:     datatypes.JSON([]byte("{}")),
	}, nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, job *types.JobRun) error { return nil }
