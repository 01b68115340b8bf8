package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rfp-analysis-backend/internal/http/response"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/services"
)

type JobHandler struct {
	rfps services.RFPService
}

func NewJobHandler(rfps services.RFPService) *JobHandler {
	return &JobHandler{rfps: rfps}
}

// GET /api/jobs/dead-letters?limit=N
func (h *JobHandler) DeadLetters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.rfps.DeadLetters(dbctx.Context{Ctx: c.Request.Context()}, limit)
	if err != nil {
		response.RespondServiceError(c, "dead_letters_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}
