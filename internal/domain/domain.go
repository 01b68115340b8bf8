package domain

import (
	"github.com/yungbote/rfp-analysis-backend/internal/domain/jobs"
	"github.com/yungbote/rfp-analysis-backend/internal/domain/rfp"
)

const (
	RFPStatusQueued   = rfp.StatusQueued
	RFPStatusAnalyzed = rfp.StatusAnalyzed
	RFPStatusFailed   = rfp.StatusFailed

	DecisionBid    = rfp.DecisionBid
	DecisionNoBid  = rfp.DecisionNoBid
	DecisionReview = rfp.DecisionReview

	JobStatusQueued    = jobs.JobStatusQueued
	JobStatusRunning   = jobs.JobStatusRunning
	JobStatusSucceeded = jobs.JobStatusSucceeded
	JobStatusFailed    = jobs.JobStatusFailed
	JobStatusDead      = jobs.JobStatusDead

	JobTypeRFPAnalysis = jobs.JobTypeRFPAnalysis
)

type (
	RFP      = rfp.RFP
	Analysis = rfp.Analysis
	Clause   = rfp.Clause
	JobRun   = jobs.JobRun
)
