package clauses

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/testutil"
	apperr "github.com/yungbote/rfp-analysis-backend/internal/pkg/errors"
)

type fakeIndex struct {
	points    []clauseindex.Point
	lastTopK  int
	lastQuery []float64
}

func (f *fakeIndex) Engine() string { return clauseindex.EnginePgvector }

func (f *fakeIndex) EnsureCollection(ctx context.Context, dim int) (clauseindex.EnsureOutcome, error) {
	return clauseindex.Created, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, points []clauseindex.Point) error {
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, vector []float64, topK int, filter clauseindex.Filter) ([]clauseindex.Match, error) {
	f.lastTopK = topK
	f.lastQuery = vector
	var out []clauseindex.Match
	for _, p := range f.points {
		if filter.RFPID != nil && p.Payload.RFPID != filter.RFPID.String() {
			continue
		}
		out = append(out, clauseindex.Match{ID: p.ID.String(), Score: dot(vector, p.Vector), Payload: p.Payload})
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestServiceIndexAndFilteredSearch(t *testing.T) {
	idx := &fakeIndex{}
	svc := NewService(testutil.Logger(t), idx, 64)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	scope := "Scope"
	n, err := svc.Index(ctx, a, []Candidate{{Section: &scope, Text: "We require 24/7 support."}, {Text: " Pricing must be fixed. "}})
	if err != nil || n != 2 {
		t.Fatalf("Index a: n=%d err=%v", n, err)
	}
	if _, err := svc.Index(ctx, b, []Candidate{{Text: "Unrelated clause for another RFP."}}); err != nil {
		t.Fatalf("Index b: %v", err)
	}
	if len(idx.points[0].Vector) != 64 {
		t.Fatalf("vector dim: want=64 got=%d", len(idx.points[0].Vector))
	}
	if idx.points[1].Payload.Text != "Pricing must be fixed." {
		t.Fatalf("text trimmed: got=%q", idx.points[1].Payload.Text)
	}

	matches, err := svc.Search(ctx, "support", &a, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if idx.lastTopK != DefaultTopK {
		t.Fatalf("topK: want=%d got=%d", DefaultTopK, idx.lastTopK)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: want=2 got=%d", len(matches))
	}
	for _, m := range matches {
		if m.Payload.RFPID != a.String() {
			t.Fatalf("filter leak: %+v", m)
		}
	}
}

func TestServiceClauseIDsAreStable(t *testing.T) {
	rfpID := uuid.New()
	scope := "Scope"
	other := "Pricing"
	if ClauseID(rfpID, &scope, "x y z w") != ClauseID(rfpID, &scope, "x y z w") {
		t.Fatalf("ClauseID not deterministic")
	}
	if ClauseID(rfpID, &scope, "x y z w") == ClauseID(rfpID, &other, "x y z w") {
		t.Fatalf("ClauseID ignores section")
	}
}

func TestServiceValidation(t *testing.T) {
	svc := NewService(testutil.Logger(t), &fakeIndex{}, 8)
	ctx := context.Background()
	if _, err := svc.Index(ctx, uuid.Nil, nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("nil rfp: got=%v", err)
	}
	if _, err := svc.Index(ctx, uuid.New(), []Candidate{{Text: "  "}}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("empty text: got=%v", err)
	}
	if _, err := svc.Search(ctx, "   ", nil, 5); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("empty query: got=%v", err)
	}
	if n, err := svc.Index(ctx, uuid.New(), nil); err != nil || n != 0 {
		t.Fatalf("no clauses: n=%d err=%v", n, err)
	}
}
