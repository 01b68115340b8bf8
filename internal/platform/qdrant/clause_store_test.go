package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

func TestEnsureCollectionCreated(t *testing.T) {
	var captured map[string]any
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/rfp_clauses" {
			t.Fatalf("path: want=%q got=%q", "/collections/rfp_clauses", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, true), nil
	})

	outcome, err := s.EnsureCollection(context.Background(), 3)
	if err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if outcome != clauseindex.Created {
		t.Fatalf("outcome: want=%q got=%q", clauseindex.Created, outcome)
	}
	vectors, ok := captured["vectors"].(map[string]any)
	if !ok {
		t.Fatalf("vectors type: got=%T", captured["vectors"])
	}
	if vectors["size"] != float64(3) || vectors["distance"] != "Cosine" {
		t.Fatalf("vectors: got=%v", vectors)
	}
}

func TestEnsureCollectionAlreadyExists(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"conflict", http.StatusConflict, `{"status":{"error":"Collection rfp_clauses exists"}}`},
		{"bad_request", http.StatusBadRequest, `{"status":{"error":"Wrong input: Collection ` + "`rfp_clauses`" + ` already exists!"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
				if r.Method == http.MethodGet {
					return okResponse(t, map[string]any{
						"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 3, "distance": "Cosine"}}},
					}), nil
				}
				return rawResponse(tc.status, tc.body), nil
			})
			outcome, err := s.EnsureCollection(context.Background(), 3)
			if err != nil {
				t.Fatalf("EnsureCollection: %v", err)
			}
			if outcome != clauseindex.AlreadyExists {
				t.Fatalf("outcome: want=%q got=%q", clauseindex.AlreadyExists, outcome)
			}
		})
	}
}

func TestEnsureCollectionPropagatesOtherFailures(t *testing.T) {
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		return rawResponse(http.StatusInternalServerError, `{"status":{"error":"disk full"}}`), nil
	})
	_, err := s.EnsureCollection(context.Background(), 3)
	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OperationError, got=%T (%v)", err, err)
	}
	if oe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, oe.StatusCode)
	}
	if !oe.Retryable() {
		t.Fatalf("500 should be retryable")
	}
}

func TestEnsureCollectionDimensionMismatch(t *testing.T) {
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet {
			return okResponse(t, map[string]any{
				"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 768}}},
			}), nil
		}
		return rawResponse(http.StatusConflict, `{"status":{"error":"exists"}}`), nil
	})
	_, err := s.EnsureCollection(context.Background(), 3)
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorValidation {
		t.Fatalf("expected validation OperationError, got=%v", err)
	}
}

func TestUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/rfp_clauses/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/rfp_clauses/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "completed"}), nil
	})

	rfpID := uuid.New()
	pointID := uuid.New()
	section := "Scope"
	err := s.Upsert(context.Background(), []clauseindex.Point{{
		ID:      pointID,
		Vector:  []float64{1, 0, 0},
		Payload: clauseindex.Payload{RFPID: rfpID.String(), Section: &section, Text: "We require 24/7 support."},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("points: got=%v", captured["points"])
	}
	first := points[0].(map[string]any)
	if first["id"] != pointID.String() {
		t.Fatalf("point id: want=%s got=%v", pointID, first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload["rfp_id"] != rfpID.String() || payload["section"] != "Scope" || payload["text"] != "We require 24/7 support." {
		t.Fatalf("payload: got=%v", payload)
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request %s", r.URL.Path)
		return nil, nil
	})
	err := s.Upsert(context.Background(), []clauseindex.Point{{ID: uuid.New(), Vector: []float64{1, 0}}})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got=%v", err)
	}
}

func TestSearchFilterAndServiceOrder(t *testing.T) {
	var captured map[string]any
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/rfp_clauses/points/search" {
			t.Fatalf("path: want=%q got=%q", "/collections/rfp_clauses/points/search", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "b", "score": 0.91, "payload": map[string]any{"rfp_id": "r1", "text": "second", "section": "Scope"}},
			{"id": "a", "score": 0.95, "payload": map[string]any{"rfp_id": "r1", "text": "first"}},
		}), nil
	})

	rfpID := uuid.New()
	matches, err := s.Search(context.Background(), []float64{0, 1, 0}, 2, clauseindex.Filter{RFPID: &rfpID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "b" || matches[1].ID != "a" {
		t.Fatalf("matches order: got=%+v", matches)
	}
	if matches[0].Payload.Section == nil || *matches[0].Payload.Section != "Scope" {
		t.Fatalf("section: got=%v", matches[0].Payload.Section)
	}
	if matches[1].Payload.Section != nil {
		t.Fatalf("section: want nil got=%v", *matches[1].Payload.Section)
	}

	if captured["limit"] != float64(2) || captured["with_payload"] != true {
		t.Fatalf("search body: got=%v", captured)
	}
	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	if cond["key"] != "rfp_id" {
		t.Fatalf("filter key: got=%v", cond["key"])
	}
	if cond["match"].(map[string]any)["value"] != rfpID.String() {
		t.Fatalf("filter value: got=%v", cond["match"])
	}
}

func TestSearchWithoutFilterOmitsFilter(t *testing.T) {
	var captured map[string]any
	s := newTestClauseStore(t, func(r *http.Request) (*http.Response, error) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, []map[string]any{}), nil
	})
	if _, err := s.Search(context.Background(), []float64{0, 0, 1}, 0, clauseindex.Filter{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := captured["filter"]; ok {
		t.Fatalf("filter should be omitted: got=%v", captured["filter"])
	}
	if captured["limit"] != float64(5) {
		t.Fatalf("default limit: want=5 got=%v", captured["limit"])
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom"))
	var oe *OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if oe.Code != OperationErrorTransportFailed || !oe.Retryable() {
		t.Fatalf("code: want=%q retryable got=%q/%v", OperationErrorTransportFailed, oe.Code, oe.Retryable())
	}
}

func TestParseEnvelopeStatus(t *testing.T) {
	if got := parseEnvelopeStatus(json.RawMessage(`"ok"`)); got != "" {
		t.Fatalf("ok status: got=%q", got)
	}
	if got := parseEnvelopeStatus(json.RawMessage(`{"error":"bad vector"}`)); got != "bad vector" {
		t.Fatalf("error status: got=%q", got)
	}
}

func newTestClauseStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *clauseStore {
	t.Helper()
	return &clauseStore{
		log:     newTestLogger(t),
		cfg:     Config{URL: "http://qdrant.local", Collection: "rfp_clauses", VectorDim: 3},
		baseURL: "http://qdrant.local",
		http:    &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	payload := map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return rawResponse(http.StatusOK, string(raw))
}

func rawResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
