package rfp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusQueued   = "QUEUED"
	StatusAnalyzed = "ANALYZED"
	StatusFailed   = "FAILED"
)

type RFP struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"column:name;not null" json:"name"`
	Deadline    *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	DocumentURL *string    `gorm:"column:document_url" json:"documentUrl,omitempty"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	LastError   string     `gorm:"column:last_error" json:"lastError,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (RFP) TableName() string { return "rfps" }

func (r *RFP) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusQueued
	}
	return nil
}
