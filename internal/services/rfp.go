package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/data/db"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	rfprepo "github.com/yungbote/rfp-analysis-backend/internal/data/repos/rfp"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/queue"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/rfp-analysis-backend/internal/pkg/errors"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

const (
	AnalysisStatusPending = "PENDING"
	AnalysisStatusFailed  = "FAILED"

	minNameRunes = 2
)

type UploadInput struct {
	Name        string  `json:"name"`
	Deadline    *string `json:"deadline,omitempty"`
	DocumentURL *string `json:"documentUrl,omitempty"`
}

// AnalysisView is either the latest analysis or a status placeholder.
type AnalysisView struct {
	Analysis *types.Analysis
	Status   string
	Error    string
}

type DashboardSummary struct {
	TotalRFPs  int64            `json:"totalRFPs"`
	Analyzed   int64            `json:"analyzed"`
	ByDecision map[string]int64 `json:"byDecision"`
}

type RFPService interface {
	Upload(dbc dbctx.Context, in UploadInput) (*types.RFP, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.RFP, error)
	LatestAnalysis(dbc dbctx.Context, id uuid.UUID) (*AnalysisView, error)
	DashboardSummary(dbc dbctx.Context) (*DashboardSummary, error)
	Requeue(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	DeadLetters(dbc dbctx.Context, limit int) ([]*types.JobRun, error)
}

type rfpService struct {
	log      *logger.Logger
	tx       db.TxRunner
	rfps     repos.RFPRepo
	analyses repos.AnalysisRepo
	jobs     repos.JobRunRepo
	queue    queue.Enqueuer
}

func NewRFPService(
	baseLog *logger.Logger,
	tx db.TxRunner,
	rfps repos.RFPRepo,
	analyses repos.AnalysisRepo,
	jobs repos.JobRunRepo,
	q queue.Enqueuer,
) RFPService {
	return &rfpService{
		log:      baseLog.With("service", "RFPService"),
		tx:       tx,
		rfps:     rfps,
		analyses: analyses,
		jobs:     jobs,
		queue:    q,
	}
}

// Upload stores the RFP and its analysis job in one transaction, then publishes
// the job. A publish failure is logged, not returned: the job is durable and the
// poller (or an operator requeue) picks it up.
func (s *rfpService) Upload(dbc dbctx.Context, in UploadInput) (*types.RFP, error) {
	rfp, err := newRFP(in)
	if err != nil {
		return nil, err
	}

	var job *types.JobRun
	err = s.tx.InTx(dbc.Ctx, func(txc dbctx.Context) error {
		if _, err := s.rfps.Create(txc, rfp); err != nil {
			return fmt.Errorf("create rfp: %w", err)
		}
		var qerr error
		job, qerr = s.queue.Enqueue(txc, rfp.ID)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	if err := s.queue.Publish(dbc.Ctx, job); err != nil {
		s.log.Warn("rfp job publish failed", "rfp_id", rfp.ID, "job_id", job.ID, "error", err)
	}
	s.log.Info("rfp uploaded", "rfp_id", rfp.ID, "job_id", job.ID)
	return rfp, nil
}

func newRFP(in UploadInput) (*types.RFP, error) {
	name := strings.TrimSpace(in.Name)
	if utf8.RuneCountInString(name) < minNameRunes {
		return nil, apperr.InvalidArgument("name must be at least %d characters", minNameRunes)
	}
	rfp := &types.RFP{
		ID:     uuid.New(),
		Name:   name,
		Status: types.RFPStatusQueued,
	}
	if in.Deadline != nil {
		raw := strings.TrimSpace(*in.Deadline)
		deadline, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, apperr.InvalidArgument("deadline must be an ISO-8601 datetime (RFC 3339)")
		}
		d := deadline.UTC()
		rfp.Deadline = &d
	}
	if in.DocumentURL != nil {
		raw := strings.TrimSpace(*in.DocumentURL)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperr.InvalidArgument("documentUrl must be an absolute http(s) URL")
		}
		rfp.DocumentURL = &raw
	}
	return rfp, nil
}

func (s *rfpService) Get(dbc dbctx.Context, id uuid.UUID) (*types.RFP, error) {
	rfp, err := s.rfps.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if rfp == nil {
		return nil, apperr.NotFound("rfp", id)
	}
	return rfp, nil
}

func (s *rfpService) LatestAnalysis(dbc dbctx.Context, id uuid.UUID) (*AnalysisView, error) {
	rfp, err := s.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	a, err := s.analyses.GetLatestByRFP(dbc, id)
	if err != nil {
		return nil, err
	}
	if a != nil {
		return &AnalysisView{Analysis: a}, nil
	}
	if rfp.Status == types.RFPStatusFailed {
		return &AnalysisView{Status: AnalysisStatusFailed, Error: rfp.LastError}, nil
	}
	return &AnalysisView{Status: AnalysisStatusPending}, nil
}

func (s *rfpService) DashboardSummary(dbc dbctx.Context) (*DashboardSummary, error) {
	total, err := s.rfps.Count(dbc)
	if err != nil {
		return nil, err
	}
	analyzed, err := s.rfps.CountByStatus(dbc, types.RFPStatusAnalyzed)
	if err != nil {
		return nil, err
	}
	byDecision, err := s.analyses.CountLatestByDecision(dbc)
	if err != nil {
		return nil, err
	}
	if byDecision == nil {
		byDecision = map[string]int64{}
	}
	return &DashboardSummary{TotalRFPs: total, Analyzed: analyzed, ByDecision: byDecision}, nil
}

// Requeue enqueues a fresh analysis job for an existing RFP. The RFP status is left
// alone; a later success moves FAILED to ANALYZED.
func (s *rfpService) Requeue(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if _, err := s.Get(dbc, id); err != nil {
		return nil, err
	}
	var job *types.JobRun
	err := s.tx.InTx(dbc.Ctx, func(txc dbctx.Context) error {
		var qerr error
		job, qerr = s.queue.Enqueue(txc, id)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	if err := s.queue.Publish(dbc.Ctx, job); err != nil {
		s.log.Warn("requeue publish failed", "rfp_id", id, "job_id", job.ID, "error", err)
	}
	s.log.Info("rfp requeued", "rfp_id", id, "job_id", job.ID)
	return job, nil
}

func (s *rfpService) DeadLetters(dbc dbctx.Context, limit int) ([]*types.JobRun, error) {
	return s.jobs.ListByStatus(dbc, types.JobStatusDead, limit)
}

// UnknownDecision labels analyses without a decision in the dashboard.
const UnknownDecision = rfprepo.UnknownDecision
