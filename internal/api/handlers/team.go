package handlers

import (
	"net/http"
	"strconv"

	"team-match-backend/internal/auth"
	"team-match-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TeamHandler handles HTTP requests for team operations
type TeamHandler struct {
	teams     *service.TeamService
	query     *service.QueryService
	recommend *service.RecommendService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teams *service.TeamService, query *service.QueryService, recommend *service.RecommendService) *TeamHandler {
	return &TeamHandler{
		teams:     teams,
		query:     query,
		recommend: recommend,
	}
}

// CreateTeam handles POST /teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teams.Create(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// GetTeam handles GET /teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	team, err := h.query.GetTeam(c.Request.Context(), id, actorID, auth.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// GetTeamBasic handles GET /teams/:id/basic
func (h *TeamHandler) GetTeamBasic(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	team, err := h.query.GetTeamBasic(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// GetMembershipRole handles GET /teams/:id/role. Anonymous callers are
// reported as outsiders rather than rejected.
func (h *TeamHandler) GetMembershipRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	// The nil ID is never on a roster, so unauthenticated callers get
	// the none role through the same lookup.
	actorID, _ := auth.CurrentUserID(c)
	role, err := h.query.GetMembershipRole(c.Request.Context(), id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

// ListTeams handles GET /teams
func (h *TeamHandler) ListTeams(c *gin.Context) {
	limit, offset := pagination(c)
	teams, total, err := h.query.ListTeams(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams, "total": total})
}

// ListMyTeams handles GET /teams/mine
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	teams, err := h.query.ListTeamsByUser(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// SearchTeams handles GET /teams/search
func (h *TeamHandler) SearchTeams(c *gin.Context) {
	limit, offset := pagination(c)
	teams, total, err := h.query.SearchTeams(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams, "total": total})
}

// HotTeams handles GET /teams/hot
func (h *TeamHandler) HotTeams(c *gin.Context) {
	limit, _ := pagination(c)
	teams, err := h.recommend.HotTeams(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// NewTeams handles GET /teams/new
func (h *TeamHandler) NewTeams(c *gin.Context) {
	limit, _ := pagination(c)
	teams, err := h.recommend.NewTeams(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// RecommendTeams handles GET /teams/recommend
func (h *TeamHandler) RecommendTeams(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit, _ := pagination(c)
	teams, err := h.recommend.RecommendTeams(c.Request.Context(), actorID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// UpdateTeam handles PATCH /teams/:id
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	var req service.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teams.Update(c.Request.Context(), id, actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// joinTeamRequest carries the optional password for encrypted teams
type joinTeamRequest struct {
	Password string `json:"password"`
}

// JoinTeam handles POST /teams/:id/join
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	var req joinTeamRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.teams.Join(c.Request.Context(), id, actorID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// QuitTeam handles POST /teams/:id/quit
func (h *TeamHandler) QuitTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	if err := h.teams.Quit(c.Request.Context(), id, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "quit"})
}

// KickMember handles POST /teams/:id/kick/:userId
func (h *TeamHandler) KickMember(c *gin.Context) {
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
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	if err := h.teams.Kick(c.Request.Context(), teamID, actorID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "kicked"})
}

// TransferLeadership handles POST /teams/:id/transfer/:userId
func (h *TeamHandler) TransferLeadership(c *gin.Context) {
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
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	if err := h.teams.TransferLeadership(c.Request.Context(), teamID, actorID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "leadership transferred"})
}

// DisbandTeam handles DELETE /teams/:id
func (h *TeamHandler) DisbandTeam(c *gin.Context) {
	actorID, ok := auth.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID"})
		return
	}

	if err := h.teams.Disband(c.Request.Context(), id, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "team disbanded"})
}

// pinRequest carries the teams to pin for a user
type pinRequest struct {
	TeamIDs []string `json:"team_ids" binding:"required"`
}

// PinRecommendation handles PUT /admin/users/:id/pinned (admin only)
func (h *TeamHandler) PinRecommendation(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	teamIDs := make([]uuid.UUID, 0, len(req.TeamIDs))
	for _, raw := range req.TeamIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid team ID: " + strconv.Quote(raw)})
			return
		}
		teamIDs = append(teamIDs, id)
	}

	if err := h.recommend.PinRecommendation(c.Request.Context(), userID, teamIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recommendation pinned"})
}

// UnpinRecommendation handles DELETE /admin/users/:id/pinned (admin only)
func (h *TeamHandler) UnpinRecommendation(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	h.recommend.UnpinRecommendation(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "recommendation unpinned"})
}
