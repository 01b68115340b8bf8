package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/rfp-analysis-backend/internal/http/handlers"
	httpMW "github.com/yungbote/rfp-analysis-backend/internal/http/middleware"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	RFPHandler    *httpH.RFPHandler
	ClauseHandler *httpH.ClauseHandler
	JobHandler    *httpH.JobHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(httpMW.Tracing(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics())
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// RFPs
		if cfg.RFPHandler != nil {
			api.POST("/rfps/upload", cfg.RFPHandler.Upload)
			api.GET("/rfps/dashboard/summary", cfg.RFPHandler.DashboardSummary)
			api.GET("/rfps/:id", cfg.RFPHandler.Get)
			api.GET("/rfps/:id/analysis", cfg.RFPHandler.LatestAnalysis)
			api.POST("/rfps/:id/requeue", cfg.RFPHandler.Requeue)
		}

		// Clauses
		if cfg.ClauseHandler != nil {
			api.POST("/clauses/index", cfg.ClauseHandler.Index)
			api.POST("/search/clauses", cfg.ClauseHandler.Search)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs/dead-letters", cfg.JobHandler.DeadLetters)
		}
	}

	return r
}
