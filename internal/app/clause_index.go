package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"

	"github.com/yungbote/rfp-analysis-backend/internal/clauseindex"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
	"github.com/yungbote/rfp-analysis-backend/internal/platform/qdrant"
)

var (
	newQdrantClauseStore = qdrant.NewClauseStore
	resolveQdrantConfig  = qdrant.ResolveConfigFromEnv
)

type ClauseIndexBootstrapErrorCode string

const (
	ClauseIndexBootstrapErrorMissingQdrantURL  ClauseIndexBootstrapErrorCode = "missing_qdrant_url"
	ClauseIndexBootstrapErrorInvalidQdrantURL  ClauseIndexBootstrapErrorCode = "invalid_qdrant_url"
	ClauseIndexBootstrapErrorMissingQdrantColl ClauseIndexBootstrapErrorCode = "missing_qdrant_collection"
	ClauseIndexBootstrapErrorInvalidVectorDim  ClauseIndexBootstrapErrorCode = "invalid_vector_dim"
	ClauseIndexBootstrapErrorDimensionMismatch ClauseIndexBootstrapErrorCode = "dimension_mismatch"
	ClauseIndexBootstrapErrorConnectFailed     ClauseIndexBootstrapErrorCode = "connect_failed"
	ClauseIndexBootstrapErrorEnsureFailed      ClauseIndexBootstrapErrorCode = "ensure_failed"
)

type ClauseIndexBootstrapError struct {
	Code   ClauseIndexBootstrapErrorCode
	Engine string
	Cause  error
}

func (e *ClauseIndexBootstrapError) Error() string {
	if e == nil {
		return "clause index bootstrap failed"
	}
	return fmt.Sprintf("clause index bootstrap failed (code=%s engine=%q): %v", e.Code, e.Engine, e.Cause)
}

func (e *ClauseIndexBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// bootstrapClauseIndex builds the index set and makes sure every engine's collection
// exists with the configured dimension. The relational store always receives writes;
// Qdrant is added and serves reads when USE_QDRANT is on.
func bootstrapClauseIndex(ctx context.Context, log *logger.Logger, relational clauseindex.Index, cfg Config) (*clauseindex.Set, error) {
	var external clauseindex.Index
	if cfg.UseQdrant {
		qcfg, err := resolveQdrantConfig(cfg.EmbeddingDim)
		if err != nil {
			return nil, classifyClauseIndexBootstrapError(clauseindex.EngineQdrant, err)
		}
		log.Info("Selecting clause index engine", "engine", clauseindex.EngineQdrant, "qdrant_url", qcfg.URL, "qdrant_collection", qcfg.Collection, "vector_dim", qcfg.VectorDim)
		external, err = newQdrantClauseStore(log, qcfg, nil)
		if err != nil {
			return nil, classifyClauseIndexBootstrapError(clauseindex.EngineQdrant, err)
		}
	}

	set, err := clauseindex.NewSet(log, relational, external)
	if err != nil {
		return nil, err
	}
	if _, err := set.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		classified := classifyClauseIndexBootstrapError(set.Engine(), err)
		log.Error("Clause index bootstrap failed", "engines", set.WriterEngines(), "error", classified)
		return nil, classified
	}
	log.Info("Clause index ready", "search_engine", set.Engine(), "write_engines", set.WriterEngines())
	return set, nil
}

func classifyClauseIndexBootstrapError(engine string, err error) error {
	wrap := func(code ClauseIndexBootstrapErrorCode) error {
		return &ClauseIndexBootstrapError{Code: code, Engine: engine, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(ClauseIndexBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(ClauseIndexBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(ClauseIndexBootstrapErrorMissingQdrantColl)
		default:
			return wrap(ClauseIndexBootstrapErrorInvalidVectorDim)
		}
	}

	var opErr *qdrant.OperationError
	if errors.As(err, &opErr) {
		switch opErr.Code {
		case qdrant.OperationErrorTransportFailed, qdrant.OperationErrorTimeout:
			return wrap(ClauseIndexBootstrapErrorConnectFailed)
		case qdrant.OperationErrorValidation:
			return wrap(ClauseIndexBootstrapErrorDimensionMismatch)
		}
	}

	var urlErr *neturl.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return wrap(ClauseIndexBootstrapErrorConnectFailed)
	}
	return wrap(ClauseIndexBootstrapErrorEnsureFailed)
}
