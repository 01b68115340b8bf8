// Package pipeline drives one RFP through parse, clause indexing, validation,
// scoring and the bid decision, then records the analysis.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/rfp-analysis-backend/internal/clauses"
	"github.com/yungbote/rfp-analysis-backend/internal/data/db"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/observability"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/stages"
)

const (
	StageIndex   = "index"
	StagePersist = "persist"
)

var ErrRFPNotFound = errors.New("rfp not found")

// ClauseIndexer is satisfied by *clauses.Service.
type ClauseIndexer interface {
	Index(ctx context.Context, rfpID uuid.UUID, candidates []clauses.Candidate) (int, error)
}

// StageFunc observes stage transitions; the job handler uses it to record progress.
type StageFunc func(stage string)

type Result struct {
	RFPID          uuid.UUID `json:"rfp_id"`
	AnalysisID     uuid.UUID `json:"analysis_id"`
	Decision       string    `json:"decision"`
	Score          float64   `json:"score"`
	ClausesIndexed int       `json:"clauses_indexed"`
}

type Orchestrator struct {
	log      *logger.Logger
	rfps     repos.RFPRepo
	analyses repos.AnalysisRepo
	tx       db.TxRunner
	stages   stages.Client
	clauses  ClauseIndexer
	tracer   trace.Tracer
}

func NewOrchestrator(
	baseLog *logger.Logger,
	rfps repos.RFPRepo,
	analyses repos.AnalysisRepo,
	tx db.TxRunner,
	stageClient stages.Client,
	indexer ClauseIndexer,
) *Orchestrator {
	return &Orchestrator{
		log:      baseLog.With("component", "AnalysisPipeline"),
		rfps:     rfps,
		analyses: analyses,
		tx:       tx,
		stages:   stageClient,
		clauses:  indexer,
		tracer:   otel.Tracer("rfp-analysis/pipeline"),
	}
}

// Process runs the whole analysis for rfpID. Nothing is written unless every stage
// succeeds; the Analysis row and the ANALYZED status commit together.
func (o *Orchestrator) Process(ctx context.Context, rfpID uuid.UUID, onStage StageFunc) (*Result, error) {
	if onStage == nil {
		onStage = func(string) {}
	}
	ctx, span := o.tracer.Start(ctx, "rfp.analysis", trace.WithAttributes(attribute.String("rfp.id", rfpID.String())))
	defer span.End()

	res, err := o.process(ctx, rfpID, onStage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("rfp.decision", res.Decision), attribute.Float64("rfp.score", res.Score))
	return res, nil
}

func (o *Orchestrator) process(ctx context.Context, rfpID uuid.UUID, onStage StageFunc) (*Result, error) {
	rfp, err := o.rfps.GetByID(dbctx.Context{Ctx: ctx}, rfpID)
	if err != nil {
		return nil, fmt.Errorf("load rfp: %w", err)
	}
	if rfp == nil {
		return nil, fmt.Errorf("%w: %s", ErrRFPNotFound, rfpID)
	}
	log := o.log.With("rfp_id", rfpID)

	onStage(stages.StageParse)
	var parsed stages.ParsedRFP
	err = o.traced(ctx, stages.StageParse, func(ctx context.Context) error {
		var perr error
		parsed, perr = o.stages.Parse(ctx, stages.ParseRequest{
			RFPID:       rfpID.String(),
			Name:        rfp.Name,
			DocumentURL: rfp.DocumentURL,
		})
		return perr
	})
	if err != nil {
		return nil, err
	}

	candidates := clauses.Extract(parsed.Sections)
	if len(candidates) == 0 {
		log.Info("no clauses extracted", "sections", len(parsed.Sections))
	}

	onStage(stages.StageValidate)
	var (
		validation stages.ValidationResult
		indexed    int
	)
	g, gctx := errgroup.WithContext(ctx)
	if len(candidates) > 0 {
		g.Go(func() error {
			return o.traced(gctx, StageIndex, func(ctx context.Context) error {
				n, ierr := o.clauses.Index(ctx, rfpID, candidates)
				if ierr != nil {
					return fmt.Errorf("index clauses: %w", ierr)
				}
				indexed = n
				return nil
			})
		})
	}
	g.Go(func() error {
		return o.traced(gctx, stages.StageValidate, func(ctx context.Context) error {
			var verr error
			validation, verr = o.stages.Validate(ctx, parsed)
			return verr
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(validation.Issues) > 0 {
		log.Info("validation reported issues", "issues", len(validation.Issues))
	}

	onStage(stages.StageScore)
	var score stages.ScoreResult
	err = o.traced(ctx, stages.StageScore, func(ctx context.Context) error {
		var serr error
		score, serr = o.stages.Score(ctx, stages.ScoreRequest{EvaluationCriteria: parsed.EvaluationCriteria})
		return serr
	})
	if err != nil {
		return nil, err
	}

	onStage(stages.StageDecide)
	var decision stages.DecisionResult
	err = o.traced(ctx, stages.StageDecide, func(ctx context.Context) error {
		var derr error
		decision, derr = o.stages.Decide(ctx, stages.DecideRequest{Total: score.Total})
		return derr
	})
	if err != nil {
		return nil, err
	}

	onStage(StagePersist)
	analysis, err := buildAnalysis(rfpID, parsed, validation, score, decision)
	if err != nil {
		return nil, err
	}
	err = o.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := o.analyses.Create(dbc, analysis); err != nil {
			return fmt.Errorf("create analysis: %w", err)
		}
		ok, err := o.rfps.MarkAnalyzed(dbc, rfpID)
		if err != nil {
			return fmt.Errorf("mark analyzed: %w", err)
		}
		if !ok {
			log.Warn("rfp status not updated after analysis")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.Current().IncDecision(decision.Decision)
	log.Info("rfp analyzed", "decision", decision.Decision, "score", score.Total, "clauses", indexed)
	return &Result{
		RFPID:          rfpID,
		AnalysisID:     analysis.ID,
		Decision:       decision.Decision,
		Score:          score.Total,
		ClausesIndexed: indexed,
	}, nil
}

func (o *Orchestrator) traced(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "rfp.stage."+stage, trace.WithAttributes(attribute.String("stage", stage)))
	defer span.End()
	start := time.Now()
	if err := fn(ctx); err != nil {
		observability.Current().ObserveStage(stage, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	observability.Current().ObserveStage(stage, "ok", time.Since(start))
	return nil
}

func buildAnalysis(rfpID uuid.UUID, parsed stages.ParsedRFP, validation stages.ValidationResult, score stages.ScoreResult, decision stages.DecisionResult) (*types.Analysis, error) {
	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("encode parsed rfp: %w", err)
	}
	validationJSON, err := json.Marshal(validation)
	if err != nil {
		return nil, fmt.Errorf("encode validation: %w", err)
	}
	return &types.Analysis{
		ID:         uuid.New(),
		RFPID:      rfpID,
		Parsed:     datatypes.JSON(parsedJSON),
		Validation: datatypes.JSON(validationJSON),
		Score:      score.Total,
		Decision:   decision.Decision,
		Rationale:  decision.Rationale,
	}, nil
}
