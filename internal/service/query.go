package service

import (
	"context"
	"errors"
	"time"

	"team-match-backend/internal/cache"
	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/logger"
	"team-match-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles reported by GetMembershipRole
const (
	RoleLeader = "leader"
	RoleMember = "member"
	RoleNone   = "none"
)

// TeamView is the externally visible shape of a team. The password digest
// never leaves the service; callers only learn whether one is set.
type TeamView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Announcement string            `json:"announcement"`
	AvatarURL    string            `json:"avatar_url"`
	Tags         models.TagSet     `json:"tags"`
	LeaderID     string            `json:"leader_id"`
	MemberCount  int               `json:"member_count"`
	MaxMembers   int               `json:"max_members"`
	Visibility   string            `json:"visibility"`
	HasPassword  bool              `json:"has_password"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	Leader       *models.SafeUser  `json:"leader,omitempty"`
	Members      []models.SafeUser `json:"members,omitempty"`
}

// teamListing is the cached shape of a paged team listing: the page itself
// plus the store-wide total the page was cut from.
type teamListing struct {
	Teams []TeamView `json:"teams"`
	Total int64      `json:"total"`
}

// QueryService serves all read paths for teams and users. Listings for the
// precomputed page sizes are cache-backed; the database remains the source
// of truth and every cache failure falls through to it.
type QueryService struct {
	teamRepo repository.TeamRepositoryInterface
	userRepo repository.UserRepositoryInterface
	store    cache.Store
	cacheTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewQueryService creates a new query service
func NewQueryService(teamRepo repository.TeamRepositoryInterface, userRepo repository.UserRepositoryInterface, store cache.Store, cacheTTL time.Duration) *QueryService {
	return &QueryService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		store:    store,
		cacheTTL: cacheTTL,
		log:      logger.New().WithField("component", "query"),
		now:      time.Now,
	}
}

// GetTeam returns a team with its hydrated member list. The full roster is
// reserved for admins and the team's own members; everyone else uses the
// basic projection. Deleted teams are reported as a conflict, not as
// absence: the ID was valid once.
func (s *QueryService) GetTeam(ctx context.Context, teamID, callerID uuid.UUID, isAdmin bool) (*TeamView, error) {
	team, err := s.getTeam(teamID)
	if err != nil {
		return nil, err
	}
	if team.Deleted {
		return nil, apperrors.ErrTeamDeleted
	}
	if !isAdmin && !team.HasMember(callerID) {
		return nil, apperrors.ErrNotTeamMember
	}

	view := teamToView(team)

	key := cache.TeamMembersKey(teamID)
	var members []models.SafeUser
	if !s.store.GetJSON(ctx, key, &members) {
		users, err := s.userRepo.GetByIDs(team.MemberIDs)
		if err != nil {
			return nil, apperrors.NewInternalError("load members", err)
		}
		members = make([]models.SafeUser, 0, len(users))
		for i := range users {
			members = append(members, users[i].Safe())
		}
		s.store.SetJSON(ctx, key, members, s.cacheTTL)
	}
	view.Members = members
	return view, nil
}

// GetTeamBasic returns a team's profile with the leader's public profile
// attached but without the member list. Safe for anonymous callers.
func (s *QueryService) GetTeamBasic(ctx context.Context, teamID uuid.UUID) (*TeamView, error) {
	key := cache.TeamBasicKey(teamID)
	var cached TeamView
	if s.store.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	team, err := s.getTeam(teamID)
	if err != nil {
		return nil, err
	}
	if team.Deleted {
		return nil, apperrors.ErrTeamDeleted
	}

	view := teamToView(team)
	leader, err := s.getUser(team.LeaderID)
	if err != nil {
		return nil, err
	}
	safe := leader.Safe()
	view.Leader = &safe

	s.store.SetJSON(ctx, key, view, s.cacheTTL)
	return view, nil
}

// GetMembershipRole reports the user's standing on a team
func (s *QueryService) GetMembershipRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	team, err := s.getTeam(teamID)
	if err != nil {
		return "", err
	}
	if team.Deleted {
		return "", apperrors.ErrTeamDeleted
	}
	switch {
	case team.LeaderID == userID:
		return RoleLeader, nil
	case team.HasMember(userID):
		return RoleMember, nil
	default:
		return RoleNone, nil
	}
}

// ListTeams returns active teams newest first with hydrated profiles. The
// first page of the precomputed sizes is cache-backed; the page and the
// store-wide total are cached together so a hit reports the real count.
func (s *QueryService) ListTeams(ctx context.Context, limit, offset int) ([]TeamView, int64, error) {
	useCache := offset == 0 && cache.IsCachedLimit(limit)
	if useCache {
		var cached teamListing
		if s.store.GetJSON(ctx, cache.TeamsKey(limit), &cached) {
			return cached.Teams, cached.Total, nil
		}
	}

	teams, total, err := s.teamRepo.ListActive(limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("list teams", err)
	}
	views, err := s.hydrateViews(teams)
	if err != nil {
		return nil, 0, err
	}

	if useCache {
		s.store.SetJSON(ctx, cache.TeamsKey(limit), teamListing{Teams: views, Total: total}, s.cacheTTL)
	}
	return views, total, nil
}

// ListTeamsByUser returns the active teams the user belongs to
func (s *QueryService) ListTeamsByUser(ctx context.Context, userID uuid.UUID) ([]TeamView, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.GetByIDs(user.TeamIDs)
	if err != nil {
		return nil, apperrors.NewInternalError("load teams", err)
	}

	alive := make([]models.Team, 0, len(teams))
	for i := range teams {
		if teams[i].Deleted {
			continue
		}
		alive = append(alive, teams[i])
	}
	return s.hydrateViews(alive)
}

// SearchTeams returns active teams matching a free-text query
func (s *QueryService) SearchTeams(ctx context.Context, query string, limit, offset int) ([]TeamView, int64, error) {
	if query == "" {
		return nil, 0, apperrors.NewInvalidInputError("query", "search query is required")
	}
	teams, total, err := s.teamRepo.Search(query, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("search teams", err)
	}
	views, err := s.hydrateViews(teams)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// GetUser returns a user's safe projection
func (s *QueryService) GetUser(ctx context.Context, userID uuid.UUID) (*models.SafeUser, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}
	safe := user.Safe()
	return &safe, nil
}

// ListUsers returns users newest first
func (s *QueryService) ListUsers(ctx context.Context, limit, offset int) ([]models.SafeUser, int64, error) {
	users, total, err := s.userRepo.GetAll(limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("list users", err)
	}
	return safeUsers(users), total, nil
}

// SearchUsersByTags returns users carrying every one of the given tags
func (s *QueryService) SearchUsersByTags(ctx context.Context, tags []string, limit, offset int) ([]models.SafeUser, int64, error) {
	normalized := models.NormalizeTags(tags)
	if len(normalized) == 0 {
		return nil, 0, apperrors.NewInvalidInputError("tags", "at least one tag is required")
	}
	users, total, err := s.userRepo.SearchByTags(normalized, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("search users by tags", err)
	}
	return safeUsers(users), total, nil
}

// SearchUsers returns users matching a free-text query
func (s *QueryService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.SafeUser, int64, error) {
	if query == "" {
		return nil, 0, apperrors.NewInvalidInputError("query", "search query is required")
	}
	users, total, err := s.userRepo.Search(query, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("search users", err)
	}
	return safeUsers(users), total, nil
}

func (s *QueryService) getTeam(teamID uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTeamNotFound
		}
		return nil, apperrors.NewInternalError("load team", err)
	}
	return team, nil
}

func (s *QueryService) getUser(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.NewInternalError("load user", err)
	}
	return user, nil
}

// teamToView projects a team into its external shape. Shared with the
// recommendation listings.
func teamToView(team *models.Team) *TeamView {
	return &TeamView{
		ID:           team.ID.String(),
		Name:         team.Name,
		Description:  team.Description,
		Announcement: team.Announcement,
		AvatarURL:    team.AvatarURL,
		Tags:         team.Tags,
		LeaderID:     team.LeaderID.String(),
		MemberCount:  len(team.MemberIDs),
		MaxMembers:   team.MaxMembers,
		Visibility:   team.Visibility,
		HasPassword:  team.PasswordHash != "",
		ExpiresAt:    team.ExpiresAt,
		CreatedAt:    team.CreatedAt,
	}
}

// hydrateViews projects a page of teams and attaches member and leader
// profiles. All referenced users across the page are resolved in one batch
// load, never one query per team.
func (s *QueryService) hydrateViews(teams []models.Team) ([]TeamView, error) {
	ids := make([]uuid.UUID, 0, len(teams)*2)
	seen := make(map[uuid.UUID]struct{}, len(teams)*2)
	for i := range teams {
		for _, memberID := range teams[i].MemberIDs {
			if _, ok := seen[memberID]; ok {
				continue
			}
			seen[memberID] = struct{}{}
			ids = append(ids, memberID)
		}
	}

	users, err := s.userRepo.GetByIDs(ids)
	if err != nil {
		return nil, apperrors.NewInternalError("load member profiles", err)
	}
	byID := make(map[uuid.UUID]models.SafeUser, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Safe()
	}

	views := make([]TeamView, 0, len(teams))
	for i := range teams {
		team := &teams[i]
		view := teamToView(team)
		members := make([]models.SafeUser, 0, len(team.MemberIDs))
		for _, memberID := range team.MemberIDs {
			if safe, ok := byID[memberID]; ok {
				members = append(members, safe)
			}
		}
		view.Members = members
		if safe, ok := byID[team.LeaderID]; ok {
			leader := safe
			view.Leader = &leader
		}
		views = append(views, *view)
	}
	return views, nil
}

func safeUsers(users []models.User) []models.SafeUser {
	out := make([]models.SafeUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Safe())
	}
	return out
}
