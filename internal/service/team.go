package service

import (
	"context"
	"fmt"
	"time"

	"team-match-backend/internal/auth"
	"team-match-backend/internal/cache"
	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/logger"
	"team-match-backend/internal/lock"
	"team-match-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TeamService handles team creation, profile updates and the direct join
// paths. Roster mutations go through the RosterService.
type TeamService struct {
	teamRepo   repository.TeamRepositoryInterface
	userRepo   repository.UserRepositoryInterface
	roster     *RosterService
	locks      lock.Service
	store      cache.Store
	validator  *validator.Validate
	salt       string
	maxMembers int
	log        *logger.Logger
	now        func() time.Time
}

// NewTeamService creates a new team service. maxMembers caps the capacity a
// team may be created or resized to.
func NewTeamService(teamRepo repository.TeamRepositoryInterface, userRepo repository.UserRepositoryInterface, roster *RosterService, locks lock.Service, store cache.Store, validate *validator.Validate, salt string, maxMembers int) *TeamService {
	return &TeamService{
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		roster:     roster,
		locks:      locks,
		store:      store,
		validator:  validate,
		salt:       salt,
		maxMembers: maxMembers,
		log:        logger.New().WithField("component", "team"),
		now:        time.Now,
	}
}

// CreateTeamRequest represents the request to create a team
type CreateTeamRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=256"`
	Description  string     `json:"description" validate:"max=1024"`
	Announcement string     `json:"announcement" validate:"max=512"`
	AvatarURL    string     `json:"avatar_url" validate:"omitempty,url,max=512"`
	Tags         []string   `json:"tags" validate:"max=10,dive,min=1,max=32"`
	MaxMembers   int        `json:"max_members" validate:"required,min=1"`
	Visibility   string     `json:"visibility" validate:"required,oneof=public private encrypted"`
	Password     string     `json:"password" validate:"max=64"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// UpdateTeamRequest represents the request to update a team's profile.
// Nil fields are left unchanged.
type UpdateTeamRequest struct {
	Name         *string    `json:"name" validate:"omitempty,min=1,max=256"`
	Description  *string    `json:"description" validate:"omitempty,max=1024"`
	Announcement *string    `json:"announcement" validate:"omitempty,max=512"`
	AvatarURL    *string    `json:"avatar_url" validate:"omitempty,url,max=512"`
	Tags         []string   `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
	MaxMembers   *int       `json:"max_members" validate:"omitempty,min=1"`
	Visibility   *string    `json:"visibility" validate:"omitempty,oneof=public private encrypted"`
	Password     *string    `json:"password" validate:"omitempty,max=64"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Create creates a team with the creator as leader and sole member
func (s *TeamService) Create(ctx context.Context, creatorID uuid.UUID, req *CreateTeamRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}
	if req.MaxMembers > s.maxMembers {
		return nil, apperrors.NewInvalidInputError("max_members", fmt.Sprintf("capacity cannot exceed %d", s.maxMembers))
	}
	if req.Visibility == models.TeamVisibilityEncrypted && req.Password == "" {
		return nil, apperrors.NewInvalidInputError("password", "encrypted teams require a password")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, apperrors.NewInvalidInputError("expires_at", "deadline is already in the past")
	}

	// One creation at a time per user, so a double-submit cannot produce
	// two teams.
	lease, err := s.locks.TryAcquire(ctx, cache.LeaseKey("create:"+creatorID.String()))
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	creator, err := s.roster.getUser(creatorID)
	if err != nil {
		return nil, err
	}

	team := &models.Team{
		Name:         req.Name,
		Description:  req.Description,
		Announcement: req.Announcement,
		AvatarURL:    req.AvatarURL,
		Tags:         models.NormalizeTags(req.Tags),
		LeaderID:     creatorID,
		MemberIDs:    models.IDSet{creatorID},
		MaxMembers:   req.MaxMembers,
		Visibility:   req.Visibility,
		ExpiresAt:    req.ExpiresAt,
	}
	if req.Password != "" {
		team.PasswordHash = auth.HashPassword(req.Password, s.salt)
	}

	if err := s.teamRepo.Create(team); err != nil {
		return nil, apperrors.NewInternalError("create team", err)
	}

	creator.TeamIDs = creator.TeamIDs.Add(team.ID)
	if err := s.userRepo.Update(creator); err != nil {
		team.Deleted = true
		if uerr := s.teamRepo.Update(team); uerr != nil {
			s.log.WithField("team_id", team.ID).Errorf("create compensation failed: %v", uerr)
		}
		return nil, apperrors.NewInternalError("update creator memberships", err)
	}

	s.store.Delete(ctx, cache.MutationKeys(team.ID)...)
	s.log.WithFields(map[string]interface{}{"team_id": team.ID, "leader_id": creatorID}).Info("team created")
	return team, nil
}

// Update changes a team's profile. Leader only. Runs under the team lease
// so a concurrent roster change is never clobbered by the full-row save.
func (s *TeamService) Update(ctx context.Context, teamID, actorID uuid.UUID, req *UpdateTeamRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}
	if req.MaxMembers != nil && *req.MaxMembers > s.maxMembers {
		return nil, apperrors.NewInvalidInputError("max_members", fmt.Sprintf("capacity cannot exceed %d", s.maxMembers))
	}

	lease, err := s.locks.TryAcquire(ctx, teamLease(teamID))
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	team, err := s.roster.getActiveTeam(teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderID != actorID {
		return nil, apperrors.ErrNotLeader
	}

	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.Announcement != nil {
		team.Announcement = *req.Announcement
	}
	if req.AvatarURL != nil {
		team.AvatarURL = *req.AvatarURL
	}
	if req.Tags != nil {
		team.Tags = models.NormalizeTags(req.Tags)
	}
	if req.MaxMembers != nil {
		if *req.MaxMembers < len(team.MemberIDs) {
			return nil, apperrors.NewConflictError("max members cannot drop below current roster size")
		}
		team.MaxMembers = *req.MaxMembers
	}
	if req.Visibility != nil {
		team.Visibility = *req.Visibility
	}
	if req.Password != nil {
		if *req.Password == "" {
			team.PasswordHash = ""
		} else {
			team.PasswordHash = auth.HashPassword(*req.Password, s.salt)
		}
	}
	if req.ExpiresAt != nil {
		team.ExpiresAt = req.ExpiresAt
	}
	if team.Visibility == models.TeamVisibilityEncrypted && team.PasswordHash == "" {
		return nil, apperrors.NewInvalidInputError("password", "encrypted teams require a password")
	}

	if err := s.teamRepo.Update(team); err != nil {
		return nil, apperrors.NewInternalError("update team", err)
	}

	s.store.Delete(ctx, cache.MutationKeys(teamID)...)
	return team, nil
}

// Join puts the caller on a team directly. Public teams admit anyone with a
// free seat; encrypted teams require the password; private teams only admit
// through an approved application.
func (s *TeamService) Join(ctx context.Context, teamID, userID uuid.UUID, password string) error {
	team, err := s.roster.getActiveTeam(teamID)
	if err != nil {
		return err
	}

	switch team.Visibility {
	case models.TeamVisibilityPrivate:
		return apperrors.NewConflictError("private teams can only be joined through an application")
	case models.TeamVisibilityEncrypted:
		if auth.HashPassword(password, s.salt) != team.PasswordHash {
			return apperrors.ErrWrongPassword
		}
	}

	return s.roster.AddMember(ctx, teamID, userID)
}

// Quit takes the caller off a team's roster
func (s *TeamService) Quit(ctx context.Context, teamID, userID uuid.UUID) error {
	return s.roster.RemoveMember(ctx, teamID, userID)
}

// Kick removes a member on the leader's behalf
func (s *TeamService) Kick(ctx context.Context, teamID, actorID, targetID uuid.UUID) error {
	return s.roster.KickMember(ctx, teamID, actorID, targetID)
}

// TransferLeadership hands the leader role to another member
func (s *TeamService) TransferLeadership(ctx context.Context, teamID, actorID, targetID uuid.UUID) error {
	return s.roster.TransferLeadership(ctx, teamID, actorID, targetID)
}

// Disband deletes the team. Leader only.
func (s *TeamService) Disband(ctx context.Context, teamID, actorID uuid.UUID) error {
	return s.roster.Disband(ctx, teamID, actorID)
}
