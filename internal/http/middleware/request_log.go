package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rfp-analysis-backend/internal/pkg/ctxutil"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

// quietRoutes are probed constantly and only logged at debug.
var quietRoutes = map[string]bool{
	"/healthcheck": true,
}

// RequestLogger writes one line per request once the handler chain finishes.
// 5xx logs at error, 4xx at warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id := c.Param("id"); id != "" {
			kv = append(kv, "rfp_id", id)
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "errors", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("http request", kv...)
		case status >= 400:
			log.Warn("http request", kv...)
		case quietRoutes[route]:
			log.Debug("http request", kv...)
		default:
			log.Info("http request", kv...)
		}
	}
}
