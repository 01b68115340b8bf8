package app

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"STAGES_MODE", "QUEUE_DRIVER", "EMBEDDING_DIM", "JOB_MAX_ATTEMPTS", "JOB_RETRY_BASE_SECONDS", "JOB_RETRY_MAX_SECONDS", "PORT", "USE_QDRANT"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.EmbeddingDim != 384 || cfg.UseQdrant {
		t.Fatalf("defaults: port=%q dim=%d qdrant=%v", cfg.Port, cfg.EmbeddingDim, cfg.UseQdrant)
	}
	if cfg.StagesMode != StagesModeHTTP || cfg.QueueDriver != QueueDriverPostgres {
		t.Fatalf("modes: stages=%q queue=%q", cfg.StagesMode, cfg.QueueDriver)
	}
	p := cfg.RetryPolicy
	if p.MaxAttempts != 5 || p.BaseDelay != 5*time.Second || p.MaxDelay != 5*time.Minute {
		t.Fatalf("retry policy: %+v", p)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STAGES_MODE", "LOCAL")
	t.Setenv("QUEUE_DRIVER", "temporal")
	t.Setenv("JOB_MAX_ATTEMPTS", "3")
	t.Setenv("JOB_RETRY_BASE_SECONDS", "2")
	t.Setenv("JOB_RETRY_MAX_SECONDS", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StagesMode != StagesModeLocal || cfg.QueueDriver != QueueDriverTemporal {
		t.Fatalf("modes: stages=%q queue=%q", cfg.StagesMode, cfg.QueueDriver)
	}
	if p := cfg.RetryPolicy; p.MaxAttempts != 3 || p.BaseDelay != 2*time.Second || p.MaxDelay != time.Minute {
		t.Fatalf("retry policy: %+v", p)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigRejectsUnknownModes(t *testing.T) {
	cases := map[string]string{
		"STAGES_MODE":      "grpc",
		"QUEUE_DRIVER":     "sqs",
		"EMBEDDING_DIM":    "-4",
		"JOB_MAX_ATTEMPTS": "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := LoadConfig()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Key != key {
				t.Fatalf("want ConfigError for %s got=%v", key, err)
			}
		})
	}
}
