package rfp

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Clause is one indexed sentence of an RFP section. The table is created by the
// pgvector index bootstrap since the column dimension is only known at runtime.
type Clause struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RFPID     uuid.UUID       `gorm:"type:uuid;column:rfp_id;not null;index" json:"rfpId"`
	Section   *string         `gorm:"column:section" json:"section,omitempty"`
	Text      string          `gorm:"column:text;not null" json:"text"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
}

func (Clause) TableName() string { return "rfp_clauses" }

func (c *Clause) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
