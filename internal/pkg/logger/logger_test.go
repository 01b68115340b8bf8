package logger

import "testing"

func TestRedactKVs(t *testing.T) {
	got := redactKVs([]interface{}{
		"qdrant_api_key", "abc",
		"postgres_dsn", "postgres://rfp:hunter2@db:5432/rfp",
		"parser_url", "http://localhost:8101",
		"rfp_id", "123",
		"dangling",
	})
	want := []interface{}{
		"qdrant_api_key", "[REDACTED]",
		"postgres_dsn", "postgres://[REDACTED]@db:5432/rfp",
		"parser_url", "http://localhost:8101",
		"rfp_id", "123",
		"dangling",
	}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("kv[%d]: want=%v got=%v", i, want[i], got[i])
		}
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "development", "test"} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		log.With("component", "test").Debug("hello", "k", "v")
	}
}
