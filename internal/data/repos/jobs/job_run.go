package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration) (*types.JobRun, error)
	DeadLetterStale(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration, errMsg string) ([]*types.JobRun, error)
	MarkRunning(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error
	MarkRetry(dbc dbctx.Context, id uuid.UUID, errMsg string, nextRunAt time.Time) error
	MarkDead(dbc dbctx.Context, id uuid.UUID, errMsg string) error
	Release(dbc dbctx.Context, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	if len(jobs) == 0 {
		return []*types.JobRun{}, nil
	}
	if err := dbc.DB(r.db).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.JobRun
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.JobRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []*types.JobRun
	err := dbc.DB(r.db).
		Where("status = ?", status).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextRunnable locks the oldest runnable job and moves it to running with one more
// attempt. Runnable means queued, failed with attempts left and a due retry time, or
// running with attempts left and a heartbeat older than staleRunning (its worker is
// presumed dead). Stale rows without attempts left belong to DeadLetterStale.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration) (*types.JobRun, error) {
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.JobRun
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (next_run_at IS NULL OR next_run_at <= ?)
          )
          OR (
            status = ?
            AND attempts < ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.JobStatusQueued, types.JobStatusFailed, maxAttempts, now, types.JobStatusRunning, maxAttempts, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		job.LockedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// DeadLetterStale moves running jobs whose worker went silent on their final attempt
// to dead and returns them. Without this a delivery that keeps killing its worker
// would sit in running forever.
func (r *jobRunRepo) DeadLetterStale(dbc dbctx.Context, maxAttempts int, staleRunning time.Duration, errMsg string) ([]*types.JobRun, error) {
	now := time.Now().UTC()
	var reaped []*types.JobRun
	err := dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		var stale []*types.JobRun
		err := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND attempts >= ? AND heartbeat_at IS NOT NULL AND heartbeat_at < ?",
				types.JobStatusRunning, maxAttempts, now.Add(-staleRunning)).
			Order("created_at ASC").
			Find(&stale).Error
		if err != nil || len(stale) == 0 {
			return err
		}
		ids := make([]uuid.UUID, 0, len(stale))
		for _, job := range stale {
			ids = append(ids, job.ID)
		}
		err = txx.Model(&types.JobRun{}).
			Where("id IN ? AND status = ?", ids, types.JobStatusRunning).
			Updates(map[string]interface{}{
				"status":        types.JobStatusDead,
				"error":         errMsg,
				"last_error_at": now,
				"next_run_at":   nil,
				"locked_at":     nil,
				"updated_at":    now,
			}).Error
		if err != nil {
			return err
		}
		for _, job := range stale {
			job.Status = types.JobStatusDead
			job.Error = errMsg
		}
		reaped = stale
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(reaped) > 0 {
		r.log.Warn("Dead-lettered stale jobs", "count", len(reaped))
	}
	return reaped, nil
}

// MarkRunning claims a specific job for an external driver that already owns delivery.
// Returns nil when the job is missing or already finished.
func (r *jobRunRepo) MarkRunning(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	now := time.Now().UTC()
	res := dbc.DB(r.db).
		Model(&types.JobRun{}).
		Where("id = ? AND status NOT IN ?", id, []string{types.JobStatusSucceeded, types.JobStatusDead}).
		Updates(map[string]interface{}{
			"status":       types.JobStatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(dbc, id)
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRunRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error {
	if result == nil {
		result = datatypes.JSON([]byte("{}"))
	}
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":      types.JobStatusSucceeded,
		"stage":       "done",
		"error":       "",
		"result":      result,
		"locked_at":   nil,
		"next_run_at": nil,
	})
}

func (r *jobRunRepo) MarkRetry(dbc dbctx.Context, id uuid.UUID, errMsg string, nextRunAt time.Time) error {
	now := time.Now().UTC()
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"error":         errMsg,
		"last_error_at": now,
		"next_run_at":   nextRunAt.UTC(),
		"locked_at":     nil,
	})
}

func (r *jobRunRepo) MarkDead(dbc dbctx.Context, id uuid.UUID, errMsg string) error {
	now := time.Now().UTC()
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":        types.JobStatusDead,
		"error":         errMsg,
		"last_error_at": now,
		"next_run_at":   nil,
		"locked_at":     nil,
	})
}

// Release hands an interrupted delivery back to the queue without spending an attempt.
func (r *jobRunRepo) Release(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":       types.JobStatusQueued,
			"attempts":     gorm.Expr("CASE WHEN attempts > 0 THEN attempts - 1 ELSE 0 END"),
			"locked_at":    nil,
			"heartbeat_at": nil,
			"updated_at":   time.Now().UTC(),
		}).Error
}
