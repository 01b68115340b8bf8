package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRequeueCallsAPI(t *testing.T) {
	const id = "5b0f3b5e-8c1a-4f1e-9a57-1c1f0a1d2e3f"
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		_, _ = w.Write([]byte(`{"job":{"id":"j1","status":"queued"}}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "--api", srv.URL, "requeue", id)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/rfps/"+id+"/requeue" {
		t.Fatalf("request: method=%s path=%s", gotMethod, gotPath)
	}
	if !strings.Contains(out, `"status": "queued"`) {
		t.Fatalf("output: %s", out)
	}
}

func TestRequeueRejectsBadID(t *testing.T) {
	if _, err := runCLI(t, "--api", "http://127.0.0.1:1", "requeue", "nope"); err == nil {
		t.Fatalf("want error for invalid id")
	}
}

func TestSearchSendsFilters(t *testing.T) {
	const rfp = "5b0f3b5e-8c1a-4f1e-9a57-1c1f0a1d2e3f"
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search/clauses" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"engine":"pgvector","results":[]}`))
	}))
	defer srv.Close()

	if _, err := runCLI(t, "--api", srv.URL, "search", "24/7 support", "--rfp", rfp, "--top-k", "3"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if body["query"] != "24/7 support" || body["rfpId"] != rfp || body["topK"] != float64(3) {
		t.Fatalf("request body: %v", body)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"rfp not found","code":"not_found"}}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "--api", srv.URL, "requeue", "5b0f3b5e-8c1a-4f1e-9a57-1c1f0a1d2e3f")
	if err == nil || !strings.Contains(err.Error(), "not_found") {
		t.Fatalf("want not_found error got=%v", err)
	}
}

func TestEmbedPrintsVector(t *testing.T) {
	out, err := runCLI(t, "embed", "We require 24/7 support.", "--dim", "8")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var got struct {
		Dim    int       `json:"dim"`
		Vector []float64 `json:"vector"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Dim != 8 || len(got.Vector) != 8 {
		t.Fatalf("embed output: dim=%d len=%d", got.Dim, len(got.Vector))
	}
}
