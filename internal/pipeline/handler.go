package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

// Handler runs the analysis pipeline for rfp_analysis job runs.
type Handler struct {
	log  *logger.Logger
	orch *Orchestrator
}

func NewHandler(baseLog *logger.Logger, orch *Orchestrator) *Handler {
	return &Handler{log: baseLog.With("handler", types.JobTypeRFPAnalysis), orch: orch}
}

func (h *Handler) Type() string { return types.JobTypeRFPAnalysis }

func (h *Handler) Run(jc *runtime.Context) error {
	rfpID, ok := jc.PayloadUUID("rfp_id")
	if !ok && jc.Job.EntityID != nil {
		rfpID, ok = *jc.Job.EntityID, *jc.Job.EntityID != uuid.Nil
	}
	if !ok {
		return runtime.Terminal(fmt.Errorf("job payload missing rfp_id"))
	}

	res, err := h.orch.Process(jc.Ctx, rfpID, jc.Progress)
	if errors.Is(err, ErrRFPNotFound) {
		h.log.Warn("rfp not found; skipping", "rfp_id", rfpID, "job_id", jc.Job.ID)
		jc.SetResult(map[string]any{"skipped": "rfp_not_found"})
		return nil
	}
	if err != nil {
		return err
	}
	jc.SetResult(res)
	return nil
}

// MarkRFPFailed is the dead-letter hook for analysis jobs: the RFP leaves QUEUED
// with the final error so readers can tell a failure from a pending run.
func MarkRFPFailed(baseLog *logger.Logger, rfps repos.RFPRepo) runtime.DeadLetterFunc {
	log := baseLog.With("component", "AnalysisDeadLetter")
	return func(ctx context.Context, job *types.JobRun, cause error) {
		if job == nil || job.JobType != types.JobTypeRFPAnalysis || job.EntityID == nil {
			return
		}
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		ok, err := rfps.MarkFailed(dbctx.Context{Ctx: ctx}, *job.EntityID, msg)
		if err != nil {
			log.Error("mark rfp failed", "rfp_id", *job.EntityID, "job_id", job.ID, "error", err)
			return
		}
		if ok {
			log.Warn("rfp marked failed", "rfp_id", *job.EntityID, "job_id", job.ID)
		}
	}
}
