package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/http/response"
	"github.com/yungbote/rfp-analysis-backend/internal/pkg/dbctx"
	"github.com/yungbote/rfp-analysis-backend/internal/services"
)

type RFPHandler struct {
	rfps services.RFPService
}

func NewRFPHandler(rfps services.RFPService) *RFPHandler {
	return &RFPHandler{rfps: rfps}
}

// POST /api/rfps/upload
func (h *RFPHandler) Upload(c *gin.Context) {
	var in services.UploadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rfp, err := h.rfps.Upload(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		response.RespondServiceError(c, "upload_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"id": rfp.ID, "status": rfp.Status})
}

// GET /api/rfps/:id
func (h *RFPHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rfp, err := h.rfps.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondServiceError(c, "get_rfp_failed", err)
		return
	}
	response.RespondOK(c, rfp)
}

// GET /api/rfps/:id/analysis
func (h *RFPHandler) LatestAnalysis(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.rfps.LatestAnalysis(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondServiceError(c, "get_analysis_failed", err)
		return
	}
	if view.Analysis != nil {
		response.RespondOK(c, view.Analysis)
		return
	}
	body := gin.H{"status": view.Status}
	if view.Error != "" {
		body["error"] = view.Error
	}
	response.RespondOK(c, body)
}

// GET /api/rfps/dashboard/summary
func (h *RFPHandler) DashboardSummary(c *gin.Context) {
	sum, err := h.rfps.DashboardSummary(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondServiceError(c, "dashboard_failed", err)
		return
	}
	response.RespondOK(c, sum)
}

// POST /api/rfps/:id/requeue
func (h *RFPHandler) Requeue(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	job, err := h.rfps.Requeue(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondServiceError(c, "requeue_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}
