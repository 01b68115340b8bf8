package stages

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rfp-analysis-backend/internal/http/middleware"
	"github.com/yungbote/rfp-analysis-backend/internal/http/response"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/httpx"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/logger"
)

// Reference bundles what the reference stage services need.
type Reference struct {
	Log     *logger.Logger
	Fetcher DocumentFetcher
	Factors Factors
}

// NewStageEngine serves one reference stage at ep.Path plus /healthcheck.
func NewStageEngine(ref *Reference, ep Endpoint) (*gin.Engine, error) {
	h, ok := ref.handler(ep.Name)
	if !ok {
		return nil, errors.New("unknown stage: " + ep.Name)
	}
	log := ref.Log.With("stage", ep.Name)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing("rfp-stage-" + ep.Name))
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.RequestLogger(log))
	r.GET("/healthcheck", func(c *gin.Context) {
		response.RespondOK(c, gin.H{"status": "ok", "stage": ep.Name})
	})
	r.POST(ep.Path, h)
	return r, nil
}

func (ref *Reference) handler(stage string) (gin.HandlerFunc, bool) {
	switch stage {
	case StageParse:
		return ref.parse, true
	case StageValidate:
		return ref.validate, true
	case StageScore:
		return ref.score, true
	case StageDecide:
		return ref.decide, true
	}
	return nil, false
}

func (ref *Reference) parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	parsed, err := Parse(c.Request.Context(), ref.Fetcher, req)
	if err != nil {
		// Upstream document failures are surfaced as 502 when transient so the caller retries.
		status := http.StatusUnprocessableEntity
		if httpx.IsRetryableError(err) {
			status = http.StatusBadGateway
		}
		response.RespondError(c, status, "parse_failed", err)
		return
	}
	response.RespondOK(c, parsed)
}

func (ref *Reference) validate(c *gin.Context) {
	var req ParsedRFP
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	response.RespondOK(c, Validate(req))
}

func (ref *Reference) score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	response.RespondOK(c, Score(req.EvaluationCriteria, ref.Factors))
}

func (ref *Reference) decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	response.RespondOK(c, Decide(req.Total))
}
