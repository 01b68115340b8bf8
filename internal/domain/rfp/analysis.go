package rfp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DecisionBid    = "BID"
	DecisionNoBid  = "NO_BID"
	DecisionReview = "REVIEW"
)

// Analysis is an append-only result row. The latest row for an RFP (by CreatedAt)
// is its current analysis; earlier rows are history from re-deliveries or requeues.
type Analysis struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RFPID      uuid.UUID      `gorm:"type:uuid;column:rfp_id;not null;index" json:"rfpId"`
	Parsed     datatypes.JSON `gorm:"column:parsed;type:jsonb" json:"parsed"`
	Validation datatypes.JSON `gorm:"column:validation;type:jsonb" json:"validation"`
	Score      float64        `gorm:"column:score" json:"score"`
	Decision   string         `gorm:"column:decision" json:"decision"`
	Rationale  string         `gorm:"column:rationale" json:"rationale"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"createdAt"`
}

func (Analysis) TableName() string { return "rfp_analysis" }

func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
