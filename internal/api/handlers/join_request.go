package handlers

import (
	"net/http"

	"team-match-backend/internal/auth"
	"team-match-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JoinRequestHandler handles HTTP requests for the join request lifecycle
type JoinRequestHandler struct {
	requests *service.JoinRequestService
}

// NewJoinRequestHandler creates a new join request handler
func NewJoinRequestHandler(requests *service.JoinRequestService) *JoinRequestHandler {
	return &JoinRequestHandler{requests: requests}
}

// Apply handles POST /requests/apply
func (h *JoinRequestHandler) Apply(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req service.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.requests.Apply(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// Invite handles POST /requests/invite
func (h *JoinRequestHandler) Invite(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req service.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.requests.Invite(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// Approve handles POST /requests/:id/approve
func (h *JoinRequestHandler) Approve(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return
	}

	request, err := h.requests.Approve(c.Request.Context(), id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// rejectRequest carries the optional rejection reason
type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /requests/:id/reject
func (h *JoinRequestHandler) Reject(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return
	}

	var req rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	request, err := h.requests.Reject(c.Request.Context(), id, actorID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// Cancel handles POST /requests/:id/cancel
func (h *JoinRequestHandler) Cancel(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return
	}

	request, err := h.requests.Cancel(c.Request.Context(), id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// Get handles GET /requests/:id
func (h *JoinRequestHandler) Get(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return
	}

	request, err := h.requests.Get(c.Request.Context(), id, actorID, auth.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// ListByTeam handles GET /teams/:id/requests
func (h *JoinRequestHandler) ListByTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	limit, offset := pagination(c)
	requests, total, err := h.requests.ListByTeam(c.Request.Context(), teamID, actorID, c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total})
}

// ListMine handles GET /requests/mine
func (h *JoinRequestHandler) ListMine(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit, offset := pagination(c)
	requests, total, err := h.requests.ListMine(c.Request.Context(), actorID, c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total})
}
