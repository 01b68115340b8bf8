package clauses

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/embedding"
	apperr "github.com/yungbote/rfp-analysis-backend/internal/pkg/errors"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

const (
	DefaultTopK = 5
	MaxTopK     = 100
)

var clauseIDNamespace = uuid.MustParse("6c1f3d0e-9a52-4b8e-8f0a-52b7c3c1e4d9")

// Service is the single write and read path for clauses. The HTTP handlers and the
// analysis pipeline both call it directly.
type Service struct {
	log   *logger.Logger
	index clauseindex.Index
	dim   int
}

func NewService(log *logger.Logger, index clauseindex.Index, dim int) *Service {
	if dim <= 0 {
		dim = embedding.DefaultDim
	}
	return &Service{
		log:   log.With("service", "ClauseService"),
		index: index,
		dim:   dim,
	}
}

// Engine names the engine that serves searches.
func (s *Service) Engine() string { return s.index.Engine() }

// ClauseID is derived from the clause content so a redelivered job overwrites the
// rows it wrote before instead of duplicating them.
func ClauseID(rfpID uuid.UUID, section *string, text string) uuid.UUID {
	sec := ""
	if section != nil {
		sec = *section
	}
	return uuid.NewSHA1(clauseIDNamespace, []byte(rfpID.String()+"|"+sec+"|"+text))
}

// Index embeds each clause and upserts it to every configured engine.
func (s *Service) Index(ctx context.Context, rfpID uuid.UUID, candidates []Candidate) (int, error) {
	if rfpID == uuid.Nil {
		return 0, apperr.InvalidArgument("rfpId is required")
	}
	points := make([]clauseindex.Point, 0, len(candidates))
	for i, c := range candidates {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			return 0, apperr.InvalidArgument("clauses[%d].text is required", i)
		}
		points = append(points, clauseindex.Point{
			ID:     ClauseID(rfpID, c.Section, text),
			Vector: embedding.Embed(text, s.dim),
			Payload: clauseindex.Payload{
				RFPID:   rfpID.String(),
				Section: c.Section,
				Text:    text,
			},
		})
	}
	if len(points) == 0 {
		return 0, nil
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return 0, err
	}
	s.log.Debug("clauses indexed", "rfp_id", rfpID, "count", len(points), "engine", s.index.Engine())
	return len(points), nil
}

// Search embeds query and returns the nearest clauses, optionally within one RFP.
func (s *Service) Search(ctx context.Context, query string, rfpID *uuid.UUID, topK int) ([]clauseindex.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.InvalidArgument("query is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	matches, err := s.index.Search(ctx, embedding.Embed(query, s.dim), topK, clauseindex.Filter{RFPID: rfpID})
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []clauseindex.Match{}
	}
	return matches, nil
}
