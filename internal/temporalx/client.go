package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

const (
	retryBase       = 250 * time.Millisecond
	retryCap        = 5 * time.Second
	ensureTimeout   = 10 * time.Second
	defaultRetainDs = 7
)

// NewClient dials the job namespace. Dial failures are retried until DialMaxWait
// elapses; with AutoRegisterNamespace the namespace is created first when missing.
func NewClient(log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("temporal: TEMPORAL_ADDRESS is required when QUEUE_DRIVER=temporal")
	}
	opts, err := clientOptions(log, cfg, true)
	if err != nil {
		return nil, err
	}
	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(context.Background(), log, cfg); err != nil {
			return nil, err
		}
	}

	var c temporalsdkclient.Client
	dialCtx, cancel := context.WithTimeout(context.Background(), cfg.DialMaxWait)
	defer cancel()
	err = retryUntil(dialCtx, log, "temporal dial", func() (bool, error) {
		attemptCtx, attemptCancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		defer attemptCancel()
		var dialErr error
		c, dialErr = temporalsdkclient.DialContext(attemptCtx, opts)
		return true, dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}
	log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	return c, nil
}

// EnsureNamespace registers cfg.Namespace when Describe reports it missing.
// Intended for self-hosted clusters.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" || cfg.Address == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, ensureTimeout)
	defer cancel()

	// The namespace client must not carry a namespace header.
	opts, err := clientOptions(log, cfg, false)
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer nsClient.Close()

	retention := cfg.RetentionDays
	if retention < 1 || retention > 365 {
		retention = defaultRetainDs
	}
	req := &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		Description:                      "rfp analysis job runs",
		WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(retention) * 24 * time.Hour),
	}

	return retryUntil(ctx, log, "temporal namespace ensure", func() (bool, error) {
		_, err := nsClient.Describe(ctx, namespace)
		var missing *serviceerror.NamespaceNotFound
		if err == nil || !errors.As(err, &missing) {
			return isRetryableRPC(err), err
		}
		err = nsClient.Register(ctx, req)
		var exists *serviceerror.NamespaceAlreadyExists
		if err == nil || errors.As(err, &exists) {
			log.Info("Temporal namespace ready", "namespace", namespace, "retention_days", retention)
			return false, nil
		}
		return isRetryableRPC(err), err
	})
}

// retryUntil runs fn with capped backoff until it succeeds, reports a terminal
// error, or ctx ends.
func retryUntil(ctx context.Context, log *logger.Logger, op string, fn func() (retry bool, err error)) error {
	for attempt := 1; ; attempt++ {
		retry, err := fn()
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		wait := httpx.Backoff(retryBase, retryCap, attempt)
		log.Warn("Temporal call failed; retrying", "op", op, "attempt", attempt, "wait_ms", wait.Milliseconds(), "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: gave up after %d attempts: %w", op, attempt, err)
		case <-time.After(wait):
		}
	}
}

func clientOptions(log *logger.Logger, cfg Config, withNamespace bool) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if withNamespace {
		opts.Namespace = cfg.Namespace
	}
	if !cfg.usesTLS() {
		return opts, nil
	}
	tlsCfg, err := loadTLSConfig(cfg)
	if err != nil {
		return opts, err
	}
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case cfg.ClientCertPath != "" && cfg.ClientKeyPath != "":
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("temporal tls: load client keypair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	case cfg.ClientCertPath != "" || cfg.ClientKeyPath != "":
		return nil, fmt.Errorf("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH must be set together")
	}
	if cfg.ClientCAPath != "" {
		pem, err := os.ReadFile(cfg.ClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("temporal tls: read CA: %w", err)
		}
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("temporal tls: no certificates in %s", cfg.ClientCAPath)
		}
		tlsCfg.RootCAs = roots
	}
	return tlsCfg, nil
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}
