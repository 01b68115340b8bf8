package runtime

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
)

type retryableError interface {
	Retryable() bool
}

// Postgres codes that describe contention rather than bad input.
var retryablePgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
	"53300": true, // too_many_connections
}

// IsRetryable reports whether a handler error is worth another delivery.
// Errors that classify themselves through a Retryable() method win. Deadlines,
// lost database connections and transient Postgres codes are retryable.
// Everything else is terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *terminalError
	if errors.As(err, &te) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var r retryableError
	if errors.As(err, &r) {
		return r.Retryable()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection_exception.
		return retryablePgCodes[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08")
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if httpx.IsRetryableError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") || strings.Contains(msg, "connection refused")
}

type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal marks err as not retryable regardless of what it wraps.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}
