package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/platform/qdrant"
	"github.com/yungbote/rfp-analysis-backend/internal/stages"
)

type stubIndex struct {
	engine    string
	ensureErr error
	ensured   []int
}

func (s *stubIndex) Engine() string { return s.engine }

func (s *stubIndex) EnsureCollection(ctx context.Context, dim int) (clauseindex.EnsureOutcome, error) {
	s.ensured = append(s.ensured, dim)
	if s.ensureErr != nil {
		return "", s.ensureErr
	}
	return clauseindex.Created, nil
}

func (s *stubIndex) Upsert(ctx context.Context, points []clauseindex.Point) error { return nil }

func (s *stubIndex) Search(ctx context.Context, vector []float64, topK int, filter clauseindex.Filter) ([]clauseindex.Match, error) {
	return nil, nil
}

func stubQdrant(t *testing.T, store clauseindex.Index) *qdrant.Config {
	t.Helper()
	orig := newQdrantClauseStore
	t.Cleanup(func() { newQdrantClauseStore = orig })
	var captured qdrant.Config
	newQdrantClauseStore = func(_ *logger.Logger, cfg qdrant.Config, _ *http.Client) (clauseindex.Index, error) {
		captured = cfg
		return store, nil
	}
	return &captured
}

func TestBootstrapClauseIndexRelationalOnly(t *testing.T) {
	rel := &stubIndex{engine: clauseindex.EnginePgvector}
	set, err := bootstrapClauseIndex(context.Background(), logger.Nop(), rel, Config{EmbeddingDim: 64})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if set.Engine() != clauseindex.EnginePgvector {
		t.Fatalf("engine: want=%q got=%q", clauseindex.EnginePgvector, set.Engine())
	}
	if len(rel.ensured) != 1 || rel.ensured[0] != 64 {
		t.Fatalf("ensure calls: %v", rel.ensured)
	}
}

func TestBootstrapClauseIndexWithQdrant(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	rel := &stubIndex{engine: clauseindex.EnginePgvector}
	ext := &stubIndex{engine: clauseindex.EngineQdrant}
	captured := stubQdrant(t, ext)

	set, err := bootstrapClauseIndex(context.Background(), logger.Nop(), rel, Config{EmbeddingDim: 64, UseQdrant: true})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if set.Engine() != clauseindex.EngineQdrant {
		t.Fatalf("engine: want=%q got=%q", clauseindex.EngineQdrant, set.Engine())
	}
	if captured.URL != "http://qdrant:6333" || captured.Collection != qdrant.DefaultCollection || captured.VectorDim != 64 {
		t.Fatalf("qdrant config: %+v", *captured)
	}
	if len(rel.ensured) != 1 || len(ext.ensured) != 1 {
		t.Fatalf("ensure calls: rel=%v ext=%v", rel.ensured, ext.ensured)
	}
}

func TestBootstrapClauseIndexErrorCodes(t *testing.T) {
	cases := []struct {
		name      string
		qdrantURL string
		ensureErr error
		want      ClauseIndexBootstrapErrorCode
	}{
		{"invalid_url", "qdrant:6333", nil, ClauseIndexBootstrapErrorInvalidQdrantURL},
		{"connect", "http://qdrant:6333", &qdrant.OperationError{Code: qdrant.OperationErrorTransportFailed}, ClauseIndexBootstrapErrorConnectFailed},
		{"dimension", "http://qdrant:6333", &qdrant.OperationError{Code: qdrant.OperationErrorValidation}, ClauseIndexBootstrapErrorDimensionMismatch},
		{"other", "http://qdrant:6333", errors.New("boom"), ClauseIndexBootstrapErrorEnsureFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.qdrantURL)
			stubQdrant(t, &stubIndex{engine: clauseindex.EngineQdrant, ensureErr: tc.ensureErr})
			rel := &stubIndex{engine: clauseindex.EnginePgvector}

			_, err := bootstrapClauseIndex(context.Background(), logger.Nop(), rel, Config{EmbeddingDim: 64, UseQdrant: true})
			var bootErr *ClauseIndexBootstrapError
			if !errors.As(err, &bootErr) {
				t.Fatalf("want ClauseIndexBootstrapError got=%v", err)
			}
			if bootErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, bootErr.Code)
			}
		})
	}
}

func TestResolveStageClientLocal(t *testing.T) {
	c, err := resolveStageClient(logger.Nop(), Config{StagesMode: StagesModeLocal})
	if err != nil {
		t.Fatalf("resolveStageClient: %v", err)
	}
	got, err := c.Decide(context.Background(), stages.DecideRequest{Total: 0.9})
	if err != nil || got.Decision != stages.DecisionBid {
		t.Fatalf("local decide: got=%+v err=%v", got, err)
	}
}
