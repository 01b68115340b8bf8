package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/yungbote/rfp-analysis-backend/internal/platform/envutil"
)

const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "rfp_clauses"
)

// Config addresses one clause collection. VectorDim is the embedding dimension the
// collection is created with and checked against.
type Config struct {
	URL        string
	Collection string
	APIKey     string
	VectorDim  int
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL        ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL        ConfigErrorCode = "invalid_url"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

var configErrorText = map[ConfigErrorCode]string{
	ConfigErrorMissingURL:        "QDRANT_URL is required",
	ConfigErrorInvalidURL:        "invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333",
	ConfigErrorMissingCollection: "QDRANT_COLLECTION is required",
	ConfigErrorInvalidVectorDim:  "invalid EMBEDDING_DIM=%q for qdrant collection; expected positive integer",
}

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	text, ok := configErrorText[e.Code]
	if !ok {
		return "invalid qdrant config"
	}
	if strings.Contains(text, "%q") {
		return fmt.Sprintf(text, e.Value)
	}
	return text
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveConfigFromEnv reads QDRANT_URL, QDRANT_COLLECTION and QDRANT_API_KEY,
// applying defaults for the first two.
func ResolveConfigFromEnv(vectorDim int) (Config, error) {
	cfg := Config{
		URL:        envutil.String("QDRANT_URL", DefaultURL),
		Collection: envutil.String("QDRANT_COLLECTION", DefaultCollection),
		APIKey:     envutil.String("QDRANT_API_KEY", ""),
		VectorDim:  vectorDim,
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: cfg.URL, Cause: err}
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: strconv.Itoa(cfg.VectorDim)}
	}
	return nil
}
