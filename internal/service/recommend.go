package service

import (
	"context"
	"sort"
	"time"

	"team-match-backend/internal/cache"
	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/logger"
	"team-match-backend/internal/repository"

	"github.com/google/uuid"
)

// Scoring weights. Personalized scores lean on tag overlap; hot scores
// blend roster fill with recency so a new full team outranks an old one.
const (
	tagWeight        = 0.6
	fillWeightMatch  = 0.2
	ageWeightMatch   = 0.2
	fillWeightHot    = 0.6
	ageWeightHot     = 0.4
	fillDenominator  = 6
	recencyWindow    = 30 * 24 * time.Hour
	candidatePool    = 200
	userCandidatePool = 500
)

// PinnedRecommendation is an operator override: while it lives in the
// cache, the named teams lead the user's recommendation list.
type PinnedRecommendation struct {
	TeamIDs []uuid.UUID `json:"team_ids"`
}

// RecommendService ranks teams and users. All scoring is pure and
// deterministic for a fixed clock; only candidate loading and caching
// touch the outside world.
type RecommendService struct {
	teamRepo  repository.TeamRepositoryInterface
	userRepo  repository.UserRepositoryInterface
	store     cache.Store
	cacheTTL  time.Duration
	pinnedTTL time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// NewRecommendService creates a new recommendation service
func NewRecommendService(teamRepo repository.TeamRepositoryInterface, userRepo repository.UserRepositoryInterface, store cache.Store, cacheTTL, pinnedTTL time.Duration) *RecommendService {
	return &RecommendService{
		teamRepo:  teamRepo,
		userRepo:  userRepo,
		store:     store,
		cacheTTL:  cacheTTL,
		pinnedTTL: pinnedTTL,
		log:       logger.New().WithField("component", "recommend"),
		now:       time.Now,
	}
}

// recencyScore maps a creation time to [0,1]: 1 for brand new, falling
// linearly to 0 at the window edge.
func recencyScore(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	if age >= recencyWindow {
		return 0
	}
	return 1 - float64(age)/float64(recencyWindow)
}

// fillScore maps roster size to [0,1] against the fixed six-seat scale, so
// teams of different capacities compare on the same axis
func fillScore(memberCount int) float64 {
	f := float64(memberCount) / float64(fillDenominator)
	if f > 1 {
		return 1
	}
	return f
}

// hotScore ranks a team for the anonymous hot listing
func hotScore(team *models.Team, now time.Time) float64 {
	return fillWeightHot*fillScore(len(team.MemberIDs)) +
		ageWeightHot*recencyScore(team.CreatedAt, now)
}

// matchScore ranks a team for a user with the given tags. The tag component
// is the fraction of the user's tags found among the pooled tags of the
// team's current members.
func matchScore(userTags models.TagSet, team *models.Team, memberTags models.TagSet, now time.Time) float64 {
	tagScore := 0.0
	if len(userTags) > 0 {
		tagScore = float64(userTags.Intersection(memberTags)) / float64(len(userTags))
	}
	return tagWeight*tagScore +
		fillWeightMatch*fillScore(len(team.MemberIDs)) +
		ageWeightMatch*recencyScore(team.CreatedAt, now)
}

// HotTeams returns active teams ranked by roster fill and recency
func (s *RecommendService) HotTeams(ctx context.Context, limit int) ([]TeamView, error) {
	useCache := cache.IsCachedLimit(limit)
	if useCache {
		var cached []TeamView
		if s.store.GetJSON(ctx, cache.HotTeamsKey(limit), &cached) {
			return cached, nil
		}
	}

	teams, _, err := s.teamRepo.ListActive(candidatePool, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("load candidate teams", err)
	}

	now := s.now()
	ranked := rankTeams(teams, func(t *models.Team) float64 { return hotScore(t, now) }, limit, false)

	if useCache {
		s.store.SetJSON(ctx, cache.HotTeamsKey(limit), ranked, s.cacheTTL)
	}
	return ranked, nil
}

// NewTeams returns the newest active teams
func (s *RecommendService) NewTeams(ctx context.Context, limit int) ([]TeamView, error) {
	useCache := cache.IsCachedLimit(limit)
	if useCache {
		var cached []TeamView
		if s.store.GetJSON(ctx, cache.NewTeamsKey(limit), &cached) {
			return cached, nil
		}
	}

	teams, err := s.teamRepo.ListActiveByCreatedDesc(limit)
	if err != nil {
		return nil, apperrors.NewInternalError("load newest teams", err)
	}
	views := make([]TeamView, 0, len(teams))
	for i := range teams {
		views = append(views, *teamToView(&teams[i]))
	}

	if useCache {
		s.store.SetJSON(ctx, cache.NewTeamsKey(limit), views, s.cacheTTL)
	}
	return views, nil
}

// RecommendTeams returns teams ranked for the user. Teams the user already
// belongs to and full teams are excluded; a user with no tags gets the hot
// listing instead. Pinned teams, while their override lives, lead the list.
func (s *RecommendService) RecommendTeams(ctx context.Context, userID uuid.UUID, limit int) ([]TeamView, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	pinned := s.pinnedTeams(ctx, userID)

	if len(user.Tags) == 0 && len(pinned) == 0 {
		return s.HotTeams(ctx, limit)
	}

	useCache := cache.IsCachedLimit(limit) && len(pinned) == 0
	if useCache {
		var cached []TeamView
		if s.store.GetJSON(ctx, cache.RecommendTeamsKey(userID, limit), &cached) {
			return cached, nil
		}
	}

	teams, _, err := s.teamRepo.ListActive(candidatePool, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("load candidate teams", err)
	}

	now := s.now()
	candidates := make([]models.Team, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		if t.HasMember(userID) || t.IsFull() || t.IsExpired(now) {
			continue
		}
		candidates = append(candidates, *t)
	}

	memberTags, err := s.memberTagUnion(candidates)
	if err != nil {
		return nil, err
	}

	ranked := rankTeams(candidates, func(t *models.Team) float64 {
		return matchScore(user.Tags, t, memberTags[t.ID], now)
	}, limit, true)

	ranked = prependPinned(pinned, ranked, limit)

	if useCache {
		s.store.SetJSON(ctx, cache.RecommendTeamsKey(userID, limit), ranked, s.cacheTTL)
	}
	return ranked, nil
}

// MatchUsers returns other users ranked by shared tag count with the given
// user. Users sharing no tags are left out.
func (s *RecommendService) MatchUsers(ctx context.Context, userID uuid.UUID, limit int) ([]models.SafeUser, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	useCache := cache.IsCachedLimit(limit)
	if useCache {
		var cached []models.SafeUser
		if s.store.GetJSON(ctx, cache.RecommendUsersKey(userID, limit), &cached) {
			return cached, nil
		}
	}

	candidates, _, err := s.userRepo.GetAll(userCandidatePool, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("load candidate users", err)
	}

	type scored struct {
		user  models.SafeUser
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == userID {
			continue
		}
		overlap := user.Tags.Intersection(c.Tags)
		if overlap == 0 {
			continue
		}
		ranked = append(ranked, scored{user: c.Safe(), score: overlap})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].user.ID < ranked[j].user.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]models.SafeUser, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.user)
	}

	if useCache {
		s.store.SetJSON(ctx, cache.RecommendUsersKey(userID, limit), out, s.cacheTTL)
	}
	return out, nil
}

// DropListings removes the hot and newest listings of one page size so the
// next read recomputes them
func (s *RecommendService) DropListings(ctx context.Context, limit int) {
	s.store.Delete(ctx, cache.HotTeamsKey(limit), cache.NewTeamsKey(limit))
}

// PinRecommendation sets an operator override for a user's team listing
func (s *RecommendService) PinRecommendation(ctx context.Context, userID uuid.UUID, teamIDs []uuid.UUID) error {
	if len(teamIDs) == 0 {
		return apperrors.NewInvalidInputError("team_ids", "at least one team is required")
	}
	s.store.SetJSON(ctx, cache.PinnedRecommendationKey(userID), &PinnedRecommendation{TeamIDs: teamIDs}, s.pinnedTTL)
	s.log.WithField("user_id", userID).Info("recommendation pinned")
	return nil
}

// UnpinRecommendation clears a user's override
func (s *RecommendService) UnpinRecommendation(ctx context.Context, userID uuid.UUID) {
	s.store.Delete(ctx, cache.PinnedRecommendationKey(userID))
}

// pinnedTeams loads the user's override and hydrates the surviving teams
func (s *RecommendService) pinnedTeams(ctx context.Context, userID uuid.UUID) []TeamView {
	var pinned PinnedRecommendation
	if !s.store.GetJSON(ctx, cache.PinnedRecommendationKey(userID), &pinned) {
		return nil
	}
	teams, err := s.teamRepo.GetByIDs(pinned.TeamIDs)
	if err != nil {
		s.log.WithField("user_id", userID).Warnf("load pinned teams failed: %v", err)
		return nil
	}
	now := s.now()
	views := make([]TeamView, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		if t.Deleted || t.IsExpired(now) {
			continue
		}
		views = append(views, *teamToView(t))
	}
	return views
}

// prependPinned puts pinned teams first, dropping duplicates, and trims
func prependPinned(pinned, ranked []TeamView, limit int) []TeamView {
	if len(pinned) == 0 {
		return ranked
	}
	seen := make(map[string]struct{}, len(pinned))
	out := make([]TeamView, 0, len(pinned)+len(ranked))
	for _, v := range pinned {
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	for _, v := range ranked {
		if _, ok := seen[v.ID]; ok {
			continue
		}
		out = append(out, v)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// memberTagUnion pools the tags of every member of every given team with a
// single batch user load. The result maps team ID to the pooled set.
func (s *RecommendService) memberTagUnion(teams []models.Team) (map[uuid.UUID]models.TagSet, error) {
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

	members, err := s.userRepo.GetByIDs(ids)
	if err != nil {
		return nil, apperrors.NewInternalError("load team members", err)
	}
	tagsByUser := make(map[uuid.UUID]models.TagSet, len(members))
	for i := range members {
		tagsByUser[members[i].ID] = members[i].Tags
	}

	out := make(map[uuid.UUID]models.TagSet, len(teams))
	for i := range teams {
		pooled := make([]string, 0)
		for _, memberID := range teams[i].MemberIDs {
			pooled = append(pooled, tagsByUser[memberID]...)
		}
		out[teams[i].ID] = models.NormalizeTags(pooled)
	}
	return out, nil
}

// rankTeams scores, sorts descending and trims. Ties break on ID so the
// ordering is stable across runs. With dropZero set, teams that score
// nothing are left out entirely.
func rankTeams(teams []models.Team, score func(*models.Team) float64, limit int, dropZero bool) []TeamView {
	type scored struct {
		view  TeamView
		score float64
	}
	ranked := make([]scored, 0, len(teams))
	for i := range teams {
		value := score(&teams[i])
		if dropZero && value == 0 {
			continue
		}
		ranked = append(ranked, scored{view: *teamToView(&teams[i]), score: value})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].view.ID < ranked[j].view.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]TeamView, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.view)
	}
	return out
}
