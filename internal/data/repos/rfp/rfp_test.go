package rfp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/rfp-analysis-backend/internal/data/repos/testutil"
	types "github.com/yungbote/rfp-analysis-backend/internal/domain"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
)

func TestRFPRepoStatusTransitions(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewRFPRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	created, err := repo.Create(dbc, &types.RFP{Name: "Road Resurfacing"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != types.RFPStatusQueued {
		t.Fatalf("initial status: want=%q got=%q", types.RFPStatusQueued, created.Status)
	}

	ok, err := repo.MarkFailed(dbc, created.ID, "scorer unavailable")
	if err != nil || !ok {
		t.Fatalf("MarkFailed: ok=%v err=%v", ok, err)
	}
	got, _ := repo.GetByID(dbc, created.ID)
	if got.Status != types.RFPStatusFailed || got.LastError != "scorer unavailable" {
		t.Fatalf("after fail: %+v", got)
	}

	// FAILED -> FAILED is not a transition; the row is untouched.
	if ok, err := repo.MarkFailed(dbc, created.ID, "other"); err != nil || ok {
		t.Fatalf("MarkFailed twice: ok=%v err=%v", ok, err)
	}

	if ok, err := repo.MarkAnalyzed(dbc, created.ID); err != nil || !ok {
		t.Fatalf("MarkAnalyzed from FAILED: ok=%v err=%v", ok, err)
	}
	got, _ = repo.GetByID(dbc, created.ID)
	if got.Status != types.RFPStatusAnalyzed || got.LastError != "" {
		t.Fatalf("after analyze: %+v", got)
	}

	if ok, err := repo.MarkFailed(dbc, created.ID, "late failure"); err != nil || ok {
		t.Fatalf("MarkFailed on ANALYZED: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.MarkAnalyzed(dbc, created.ID); err != nil || !ok {
		t.Fatalf("MarkAnalyzed twice: ok=%v err=%v", ok, err)
	}
}

func TestRFPRepoGetByIDMissing(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRFPRepo(db, testutil.Logger(t))
	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID: want nil got=%+v", got)
	}
}

func TestAnalysisRepoLatestAndDashboard(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewAnalysisRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	base := time.Now().UTC().Add(-time.Hour)
	a := testutil.SeedRFP(t, ctx, db, "A", types.RFPStatusAnalyzed)
	b := testutil.SeedRFP(t, ctx, db, "B", types.RFPStatusAnalyzed)
	c := testutil.SeedRFP(t, ctx, db, "C", types.RFPStatusAnalyzed)
	d := testutil.SeedRFP(t, ctx, db, "D", types.RFPStatusAnalyzed)

	testutil.SeedAnalysis(t, ctx, db, a.ID, types.DecisionNoBid, 0.4, base)
	latestA := testutil.SeedAnalysis(t, ctx, db, a.ID, types.DecisionBid, 0.8, base.Add(time.Minute))
	testutil.SeedAnalysis(t, ctx, db, b.ID, types.DecisionBid, 0.75, base)
	testutil.SeedAnalysis(t, ctx, db, c.ID, types.DecisionNoBid, 0.2, base)
	testutil.SeedAnalysis(t, ctx, db, d.ID, "", 0.6, base)

	got, err := repo.GetLatestByRFP(dbc, a.ID)
	if err != nil {
		t.Fatalf("GetLatestByRFP: %v", err)
	}
	if got == nil || got.ID != latestA.ID {
		t.Fatalf("GetLatestByRFP: want=%s got=%v", latestA.ID, got)
	}
	all, err := repo.ListByRFP(dbc, a.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByRFP: err=%v len=%d", err, len(all))
	}

	counts, err := repo.CountLatestByDecision(dbc)
	if err != nil {
		t.Fatalf("CountLatestByDecision: %v", err)
	}
	want := map[string]int64{types.DecisionBid: 2, types.DecisionNoBid: 1, UnknownDecision: 1}
	if len(counts) != len(want) {
		t.Fatalf("counts: want=%v got=%v", want, counts)
	}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("counts[%s]: want=%d got=%d", k, v, counts[k])
		}
	}

	none, err := repo.GetLatestByRFP(dbc, uuid.New())
	if err != nil || none != nil {
		t.Fatalf("GetLatestByRFP missing: err=%v got=%v", err, none)
	}
}
