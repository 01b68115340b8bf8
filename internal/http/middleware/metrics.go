package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rfp-analysis-backend/internal/observability"
)

// Metrics records request counts and latency by route template. It is a no-op when
// metrics are disabled.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		m := observability.Current()
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.APIInflight(1)
		defer m.APIInflight(-1)
		c.Next()
		m.ObserveAPI(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
