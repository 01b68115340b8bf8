package stages

import (
	"fmt"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
)

type ErrorKind string

const (
	ErrorTimeout   ErrorKind = "timeout"
	ErrorTransport ErrorKind = "transport"
	ErrorStatus    ErrorKind = "status"
	ErrorDecode    ErrorKind = "decode"
	ErrorContract  ErrorKind = "contract"
)

// Error is a failed stage call. Timeouts, transport failures and 408/429/5xx responses
// are retryable; other statuses, undecodable bodies and contract violations are not.
type Error struct {
	Stage      string
	Kind       ErrorKind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "stage call failed"
	}
	msg := fmt.Sprintf("stage %s failed (kind=%s", e.Stage, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	msg += ")"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ErrorTimeout, ErrorTransport:
		return true
	case ErrorStatus:
		return httpx.IsRetryableHTTPStatus(e.StatusCode)
	default:
		return false
	}
}

func (e *Error) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
