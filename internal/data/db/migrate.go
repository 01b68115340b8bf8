package db

import (
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"gorm.io/gorm"
)

// AutoMigrateAll migrates the relational tables. rfp_clauses is not listed: its
// vector column dimension is configured at runtime, so the pgvector clause index
// creates it during bootstrap.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.RFP{},
		&types.Analysis{},
		&types.JobRun{},
	)
}
