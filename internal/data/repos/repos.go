package repos

import (
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/jobs"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/rfp"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type RFPRepo = rfp.RFPRepo
type AnalysisRepo = rfp.AnalysisRepo
type JobRunRepo = jobs.JobRunRepo

func NewRFPRepo(db *gorm.DB, baseLog *logger.Logger) RFPRepo { return rfp.NewRFPRepo(db, baseLog) }
func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return rfp.NewAnalysisRepo(db, baseLog)
}
func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
