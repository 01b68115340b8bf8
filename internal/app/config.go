package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/rfp-analysis-backend/internal/embedding"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/queue"
	"github.com/yungbote/rfp-analysis-backend/internal/jobs/runtime"
	"github.com/yungbote/rfp-analysis-backend/internal/platform/envutil"
)

const (
	StagesModeHTTP  = "http"
	StagesModeLocal = "local"

	QueueDriverPostgres = "postgres"
	QueueDriverTemporal = "temporal"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string
	CORSOrigins []string
	MetricsAddr string

	EmbeddingDim int
	UseQdrant    bool

	StagesMode   string
	StageTimeout time.Duration

	QueueDriver        string
	RedisAddr          string
	RedisChannel       string
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	StaleRunning       time.Duration
	RetryPolicy        runtime.RetryPolicy
}

type ConfigError struct {
	Key   string
	Value string
	Want  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s=%q; expected %s", e.Key, e.Value, e.Want)
}

func LoadConfig() (Config, error) {
	def := runtime.DefaultRetryPolicy()
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "rfp-analysis"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
		Port:        envutil.String("PORT", "8080"),
		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),

		EmbeddingDim: envutil.Int("EMBEDDING_DIM", embedding.DefaultDim),
		UseQdrant:    envutil.Bool("USE_QDRANT", false),

		StagesMode:   strings.ToLower(envutil.String("STAGES_MODE", StagesModeHTTP)),
		StageTimeout: envutil.Seconds("STAGE_TIMEOUT_SECONDS", 30*time.Second),

		QueueDriver:        strings.ToLower(envutil.String("QUEUE_DRIVER", QueueDriverPostgres)),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisChannel:       envutil.String("REDIS_JOB_CHANNEL", queue.DefaultRedisChannel),
		WorkerEnabled:      envutil.Bool("WORKER_ENABLED", true),
		WorkerConcurrency:  envutil.Int("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: envutil.Seconds("WORKER_POLL_SECONDS", 2*time.Second),
		StaleRunning:       envutil.Seconds("JOB_STALE_RUNNING_SECONDS", 30*time.Minute),
		RetryPolicy: runtime.RetryPolicy{
			MaxAttempts: envutil.Int("JOB_MAX_ATTEMPTS", def.MaxAttempts),
			BaseDelay:   envutil.Seconds("JOB_RETRY_BASE_SECONDS", def.BaseDelay),
			MaxDelay:    envutil.Seconds("JOB_RETRY_MAX_SECONDS", def.MaxDelay),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StagesMode {
	case StagesModeHTTP, StagesModeLocal:
	default:
		return &ConfigError{Key: "STAGES_MODE", Value: c.StagesMode, Want: "http or local"}
	}
	switch c.QueueDriver {
	case QueueDriverPostgres, QueueDriverTemporal:
	default:
		return &ConfigError{Key: "QUEUE_DRIVER", Value: c.QueueDriver, Want: "postgres or temporal"}
	}
	if c.EmbeddingDim <= 0 {
		return &ConfigError{Key: "EMBEDDING_DIM", Value: fmt.Sprint(c.EmbeddingDim), Want: "a positive integer"}
	}
	if c.RetryPolicy.MaxAttempts < 1 {
		return &ConfigError{Key: "JOB_MAX_ATTEMPTS", Value: fmt.Sprint(c.RetryPolicy.MaxAttempts), Want: "at least 1"}
	}
	return nil
}
