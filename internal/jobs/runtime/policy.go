package runtime

import (
	"time"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
)

// RetryPolicy bounds redelivery of a failed job. Attempt n waits
// min(BaseDelay*2^(n-1), MaxDelay) before the next delivery.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   5 * time.Second,
		MaxDelay:    5 * time.Minute,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay is the wait before redelivering after the given (1-based) attempt failed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	return httpx.Backoff(p.BaseDelay, p.MaxDelay, attempt)
}

// ShouldRetry is true when err is retryable and attempts are left.
func (p RetryPolicy) ShouldRetry(attempts int, err error) bool {
	p = p.normalized()
	return attempts < p.MaxAttempts && IsRetryable(err)
}
