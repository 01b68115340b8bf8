package clauseindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/embedding"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type pgvectorStore struct {
	db  *gorm.DB
	log *logger.Logger
	dim int
}

// NewPgvectorStore keeps clause embeddings in the rfp_clauses table.
func NewPgvectorStore(db *gorm.DB, baseLog *logger.Logger, dim int) Index {
	if dim <= 0 {
		dim = embedding.DefaultDim
	}
	return &pgvectorStore{
		db:  db,
		log: baseLog.With("service", "PgvectorClauseStore"),
		dim: dim,
	}
}

func (s *pgvectorStore) Engine() string { return EnginePgvector }

func (s *pgvectorStore) EnsureCollection(ctx context.Context, dim int) (EnsureOutcome, error) {
	if dim <= 0 {
		dim = s.dim
	}
	db := s.db.WithContext(ctx)
	existed := db.Migrator().HasTable(types.Clause{}.TableName())

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rfp_clauses (
      id uuid PRIMARY KEY,
      rfp_id uuid NOT NULL,
      section text,
      text text NOT NULL,
      embedding vector(%d) NOT NULL,
      created_at timestamptz NOT NULL DEFAULT now()
    )`, dim),
		`CREATE INDEX IF NOT EXISTS idx_rfp_clauses_rfp_id ON rfp_clauses (rfp_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rfp_clauses_embedding ON rfp_clauses USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return "", fmt.Errorf("ensure rfp_clauses: %w", err)
		}
	}
	if !existed {
		s.log.Info("pgvector clause table created", "vector_dim", dim)
		return Created, nil
	}

	// pgvector stores the declared dimension as the column typmod.
	var current int
	err := db.Raw(`
    SELECT atttypmod FROM pg_attribute
    WHERE attrelid = 'rfp_clauses'::regclass AND attname = 'embedding'
  `).Scan(&current).Error
	if err != nil {
		return "", fmt.Errorf("inspect rfp_clauses.embedding: %w", err)
	}
	if current > 0 && current != dim {
		return "", fmt.Errorf("rfp_clauses.embedding dimension mismatch: expected=%d actual=%d", dim, current)
	}
	return AlreadyExists, nil
}

func (s *pgvectorStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([]types.Clause, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != s.dim {
			return fmt.Errorf("clause %s dimension mismatch: expected=%d got=%d", p.ID, s.dim, len(p.Vector))
		}
		rfpID, err := uuid.Parse(p.Payload.RFPID)
		if err != nil {
			return fmt.Errorf("clause %s: invalid rfp id %q: %w", p.ID, p.Payload.RFPID, err)
		}
		rows = append(rows, types.Clause{
			ID:        p.ID,
			RFPID:     rfpID,
			Section:   p.Payload.Section,
			Text:      p.Payload.Text,
			Embedding: pgvector.NewVector(embedding.Float32(p.Vector)),
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rfp_id", "section", "text", "embedding"}),
		}).
		Create(&rows).Error
}

type clauseMatchRow struct {
	ID      uuid.UUID
	RFPID   uuid.UUID
	Section *string
	Text    string
	Score   float64
}

func (s *pgvectorStore) Search(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected=%d got=%d", s.dim, len(vector))
	}
	var rows []clauseMatchRow
	if err := searchQuery(s.db.WithContext(ctx), vector, topK, filter).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(rows))
	for _, r := range rows {
		out = append(out, Match{
			ID:    r.ID.String(),
			Score: r.Score,
			Payload: Payload{
				RFPID:   r.RFPID.String(),
				Section: r.Section,
				Text:    r.Text,
			},
		})
	}
	return out, nil
}

// searchQuery ranks by cosine distance; score is cosine similarity.
func searchQuery(db *gorm.DB, vector []float64, topK int, filter Filter) *gorm.DB {
	if topK <= 0 {
		topK = 5
	}
	lit := embedding.VectorLiteral(vector)
	if filter.RFPID != nil {
		return db.Raw(`
    SELECT id, rfp_id, section, text, 1 - (embedding <=> ?::vector) AS score
    FROM rfp_clauses
    WHERE rfp_id = ?
    ORDER BY embedding <=> ?::vector
    LIMIT ?
  `, lit, *filter.RFPID, lit, topK)
	}
	return db.Raw(`
    SELECT id, rfp_id, section, text, 1 - (embedding <=> ?::vector) AS score
    FROM rfp_clauses
    ORDER BY embedding <=> ?::vector
    LIMIT ?
  `, lit, lit, topK)
}
