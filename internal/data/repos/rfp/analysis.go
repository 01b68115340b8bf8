package rfp

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

const UnknownDecision = "UNKNOWN"

type AnalysisRepo interface {
	Create(dbc dbctx.Context, analysis *types.Analysis) (*types.Analysis, error)
	GetLatestByRFP(dbc dbctx.Context, rfpID uuid.UUID) (*types.Analysis, error)
	ListByRFP(dbc dbctx.Context, rfpID uuid.UUID) ([]*types.Analysis, error)
	CountLatestByDecision(dbc dbctx.Context) (map[string]int64, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return &analysisRepo{
		db:  db,
		log: baseLog.With("repo", "AnalysisRepo"),
	}
}

func (r *analysisRepo) Create(dbc dbctx.Context, analysis *types.Analysis) (*types.Analysis, error) {
	if err := dbc.DB(r.db).Create(analysis).Error; err != nil {
		return nil, err
	}
	return analysis, nil
}

func (r *analysisRepo) GetLatestByRFP(dbc dbctx.Context, rfpID uuid.UUID) (*types.Analysis, error) {
	if rfpID == uuid.Nil {
		return nil, nil
	}
	var out types.Analysis
	err := dbc.DB(r.db).
		Where("rfp_id = ?", rfpID).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *analysisRepo) ListByRFP(dbc dbctx.Context, rfpID uuid.UUID) ([]*types.Analysis, error) {
	var out []*types.Analysis
	err := dbc.DB(r.db).
		Where("rfp_id = ?", rfpID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type decisionCount struct {
	Decision string
	N        int64
}

// CountLatestByDecision counts each RFP once, by the decision of its latest analysis.
// Empty decisions are reported as UNKNOWN.
func (r *analysisRepo) CountLatestByDecision(dbc dbctx.Context) (map[string]int64, error) {
	var rows []decisionCount
	err := dbc.DB(r.db).Raw(`
    SELECT COALESCE(NULLIF(a.decision, ''), 'UNKNOWN') AS decision, COUNT(*) AS n
    FROM rfp_analysis a
    WHERE a.created_at = (
      SELECT MAX(b.created_at) FROM rfp_analysis b WHERE b.rfp_id = a.rfp_id
    )
    GROUP BY 1
  `).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Decision] += row.N
	}
	return out, nil
}
