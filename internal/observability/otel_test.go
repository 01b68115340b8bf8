package observability

import "testing"

func TestOtelConfigWithEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, bad, =nokey,tenant=rfp")
	t.Setenv("OTEL_SAMPLER_RATIO", "2.5")

	cfg := OtelConfig{}.withEnv()
	if !cfg.enabled || cfg.endpoint != "collector:4318" {
		t.Fatalf("enabled/endpoint: got=%v %q", cfg.enabled, cfg.endpoint)
	}
	if cfg.ServiceName != defaultServiceName {
		t.Fatalf("service name: want=%q got=%q", defaultServiceName, cfg.ServiceName)
	}
	if len(cfg.headers) != 2 || cfg.headers["x-api-key"] != "abc" || cfg.headers["tenant"] != "rfp" {
		t.Fatalf("headers: got=%v", cfg.headers)
	}
	if cfg.sampleRatio != 1 {
		t.Fatalf("ratio should clamp to 1: got=%v", cfg.sampleRatio)
	}
}

func TestParseRatioFallsBack(t *testing.T) {
	for raw, want := range map[string]float64{"": defaultSampleRatio, "abc": defaultSampleRatio, "-1": 0, "0.25": 0.25} {
		if got := parseRatio(raw); got != want {
			t.Fatalf("parseRatio(%q): want=%v got=%v", raw, want, got)
		}
	}
}
