package clauseindex

import (
	"context"
	"fmt"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

// Set is the Index the rest of the service talks to. Every write goes to the relational
// store and, when configured, to the external store as well; reads are served by the
// external store when present, otherwise by the relational one.
type Set struct {
	log      *logger.Logger
	writers  []Index
	searcher Index
}

// NewSet resolves the write and read engines once. external may be nil.
func NewSet(log *logger.Logger, relational Index, external Index) (*Set, error) {
	if relational == nil {
		return nil, fmt.Errorf("clause index: relational store required")
	}
	s := &Set{
		log:      log.With("service", "ClauseIndexSet"),
		writers:  []Index{relational},
		searcher: relational,
	}
	if external != nil {
		s.writers = append(s.writers, external)
		s.searcher = external
	}
	return s, nil
}

// Engine names the engine that answers searches.
func (s *Set) Engine() string { return s.searcher.Engine() }

func (s *Set) WriterEngines() []string {
	out := make([]string, 0, len(s.writers))
	for _, w := range s.writers {
		out = append(out, w.Engine())
	}
	return out
}

// EnsureCollection ensures every writer; it reports Created when any engine created
// its collection.
func (s *Set) EnsureCollection(ctx context.Context, dim int) (EnsureOutcome, error) {
	outcome := AlreadyExists
	for _, w := range s.writers {
		got, err := w.EnsureCollection(ctx, dim)
		if err != nil {
			return "", fmt.Errorf("ensure %s collection: %w", w.Engine(), err)
		}
		s.log.Info("clause collection ready", "engine", w.Engine(), "outcome", string(got), "vector_dim", dim)
		if got == Created {
			outcome = Created
		}
	}
	return outcome, nil
}

func (s *Set) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	for _, w := range s.writers {
		if err := w.Upsert(ctx, points); err != nil {
			return fmt.Errorf("upsert clauses to %s: %w", w.Engine(), err)
		}
	}
	return nil
}

func (s *Set) Search(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	matches, err := s.searcher.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search clauses in %s: %w", s.searcher.Engine(), err)
	}
	return matches, nil
}
