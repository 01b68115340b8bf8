package rfp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type RFPRepo interface {
	Create(dbc dbctx.Context, rfp *types.RFP) (*types.RFP, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RFP, error)
	MarkAnalyzed(dbc dbctx.Context, id uuid.UUID) (bool, error)
	MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error)
	Count(dbc dbctx.Context) (int64, error)
	CountByStatus(dbc dbctx.Context, status string) (int64, error)
}

type rfpRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRFPRepo(db *gorm.DB, baseLog *logger.Logger) RFPRepo {
	return &rfpRepo{
		db:  db,
		log: baseLog.With("repo", "RFPRepo"),
	}
}

func (r *rfpRepo) Create(dbc dbctx.Context, rfp *types.RFP) (*types.RFP, error) {
	if rfp.Status == "" {
		rfp.Status = types.RFPStatusQueued
	}
	if err := dbc.DB(r.db).Create(rfp).Error; err != nil {
		return nil, err
	}
	return rfp, nil
}

// GetByID returns (nil, nil) when the RFP does not exist.
func (r *rfpRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RFP, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.RFP
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

// MarkAnalyzed moves QUEUED, FAILED (after a requeue) or ANALYZED (duplicate delivery)
// to ANALYZED and clears last_error.
func (r *rfpRepo) MarkAnalyzed(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.RFP{}).
		Where("id = ? AND status IN ?", id, []string{types.RFPStatusQueued, types.RFPStatusFailed, types.RFPStatusAnalyzed}).
		Updates(map[string]interface{}{
			"status":     types.RFPStatusAnalyzed,
			"last_error": "",
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed only applies to QUEUED RFPs; an RFP that already has an analysis keeps it.
func (r *rfpRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.RFP{}).
		Where("id = ? AND status = ?", id, types.RFPStatusQueued).
		Updates(map[string]interface{}{
			"status":     types.RFPStatusFailed,
			"last_error": errMsg,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *rfpRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.RFP{}).Count(&n).Error
	return n, err
}

func (r *rfpRepo) CountByStatus(dbc dbctx.Context, status string) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.RFP{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
