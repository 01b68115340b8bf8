// Package clauseindex stores clause embeddings and answers nearest-neighbour queries.
// Two engines implement Index: a pgvector table next to the relational data and an
// external Qdrant collection. Set resolves which engines receive writes and which one
// serves reads.
package clauseindex

import (
	"context"

	"github.com/google/uuid"
)

const (
	EnginePgvector = "pgvector"
	EngineQdrant   = "qdrant"
)

// EnsureOutcome reports what EnsureCollection did. Failures are returned as errors.
type EnsureOutcome string

const (
	Created       EnsureOutcome = "created"
	AlreadyExists EnsureOutcome = "already_exists"
)

type Payload struct {
	RFPID   string  `json:"rfp_id"`
	Section *string `json:"section,omitempty"`
	Text    string  `json:"text"`
}

type Point struct {
	ID      uuid.UUID
	Vector  []float64
	Payload Payload
}

type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// Filter restricts a search. A nil RFPID searches every RFP.
type Filter struct {
	RFPID *uuid.UUID
}

type Index interface {
	Engine() string
	EnsureCollection(ctx context.Context, dim int) (EnsureOutcome, error)
	Upsert(ctx context.Context, points []Point) error
	// Search returns up to topK matches, nearest first.
	Search(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error)
}
