package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/rfp-analysis-backend/internal/clauses"
	"github.com/yungbote/rfp-analysis-backend/internal/http/response"
)

type ClauseHandler struct {
	clauses *clauses.Service
}

func NewClauseHandler(svc *clauses.Service) *ClauseHandler {
	return &ClauseHandler{clauses: svc}
}

type indexClausesRequest struct {
	RFPID   string              `json:"rfpId"`
	Clauses []clauses.Candidate `json:"clauses"`
}

// POST /api/clauses/index
func (h *ClauseHandler) Index(c *gin.Context) {
	var req indexClausesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rfpID, err := uuid.Parse(strings.TrimSpace(req.RFPID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_rfp_id", err)
		return
	}
	n, err := h.clauses.Index(c.Request.Context(), rfpID, req.Clauses)
	if err != nil {
		response.RespondServiceError(c, "index_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"indexed": n, "engine": h.clauses.Engine()})
}

type searchClausesRequest struct {
	Query string  `json:"query"`
	RFPID *string `json:"rfpId,omitempty"`
	TopK  int     `json:"topK,omitempty"`
}

// POST /api/search/clauses
func (h *ClauseHandler) Search(c *gin.Context) {
	var req searchClausesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var rfpID *uuid.UUID
	if req.RFPID != nil && strings.TrimSpace(*req.RFPID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.RFPID))
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_rfp_id", err)
			return
		}
		rfpID = &id
	}
	results, err := h.clauses.Search(c.Request.Context(), req.Query, rfpID, req.TopK)
	if err != nil {
		response.RespondServiceError(c, "search_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"engine": h.clauses.Engine(), "results": results})
}
