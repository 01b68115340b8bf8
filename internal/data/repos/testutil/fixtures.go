package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedRFP(tb testing.TB, ctx context.Context, tx *gorm.DB, name, status string) *types.RFP {
	tb.Helper()
	r := &types.RFP{
		ID:     uuid.New(),
		Name:   name,
		Status: status,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed rfp: %v", err)
	}
	return r
}

func SeedAnalysis(tb testing.TB, ctx context.Context, tx *gorm.DB, rfpID uuid.UUID, decision string, score float64, createdAt time.Time) *types.Analysis {
	tb.Helper()
	a := &types.Analysis{
		ID:         uuid.New(),
		RFPID:      rfpID,
		Parsed:     datatypes.JSON([]byte("{}")),
		Validation: datatypes.JSON([]byte("{}")),
		Score:      score,
		Decision:   decision,
		Rationale:  "seeded",
		CreatedAt:  createdAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed analysis: %v", err)
	}
	return a
}

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, job *types.JobRun) *types.JobRun {
	tb.Helper()
	if job.Payload == nil {
		job.Payload = datatypes.JSON([]byte("{}"))
	}
	if job.Result == nil {
		job.Result = datatypes.JSON([]byte("{}"))
	}
	if job.Stage == "" {
		job.Stage = job.Status
	}
	if err := tx.WithContext(ctx).Create(job).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return job
}

func PtrTime(t time.Time) *time.Time { return &t }

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
