package service

import (
	"context"
	"errors"
	"time"

	"team-match-backend/internal/cache"
	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/logger"
	"team-match-backend/internal/lock"
	"team-match-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RosterService owns every membership mutation. All writes happen under the
// team's lease, against state re-read after the lease was granted, and keep
// both sides of the membership relation in step: Team.MemberIDs and
// User.TeamIDs change together or are rolled back together.
type RosterService struct {
	teamRepo repository.TeamRepositoryInterface
	userRepo repository.UserRepositoryInterface
	locks    lock.Service
	store    cache.Store
	log      *logger.Logger
	now      func() time.Time
}

// NewRosterService creates a new roster service
func NewRosterService(teamRepo repository.TeamRepositoryInterface, userRepo repository.UserRepositoryInterface, locks lock.Service, store cache.Store) *RosterService {
	return &RosterService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		locks:    locks,
		store:    store,
		log:      logger.New().WithField("component", "roster"),
		now:      time.Now,
	}
}

// teamLease names the lease guarding all mutations of one team's roster
func teamLease(teamID uuid.UUID) string {
	return cache.LeaseKey("team:" + teamID.String())
}

// AddMember puts a user on a team's roster. Fails with TooFrequent when the
// team is being mutated by someone else right now.
func (s *RosterService) AddMember(ctx context.Context, teamID, userID uuid.UUID) error {
	lease, err := s.locks.TryAcquire(ctx, teamLease(teamID))
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	return s.addMemberLocked(ctx, teamID, userID)
}

// addMemberLocked is the core of AddMember; the caller must hold the team
// lease. All checks run against state read after the lease was granted.
func (s *RosterService) addMemberLocked(ctx context.Context, teamID, userID uuid.UUID) error {
	team, err := s.getActiveTeam(teamID)
	if err != nil {
		return err
	}
	if team.IsFull() {
		return apperrors.ErrTeamFull
	}
	if team.HasMember(userID) {
		return apperrors.ErrAlreadyMember
	}

	user, err := s.getUser(userID)
	if err != nil {
		return err
	}

	team.MemberIDs = team.MemberIDs.Add(userID)
	if err := s.teamRepo.Update(team); err != nil {
		return apperrors.NewInternalError("update team roster", err)
	}

	user.TeamIDs = user.TeamIDs.Add(teamID)
	if err := s.userRepo.Update(user); err != nil {
		s.compensateTeam(team, func(t *models.Team) {
			t.MemberIDs = t.MemberIDs.Remove(userID)
		})
		return apperrors.NewInternalError("update user memberships", err)
	}

	s.invalidate(ctx, teamID)
	s.log.WithFields(map[string]interface{}{"team_id": teamID, "user_id": userID}).Info("member added")
	return nil
}

// RemoveMember takes the acting user off the roster (a quit). When the
// leader quits a team with other members, leadership passes to the member
// with the lowest ID; when the leader is the sole member, the team is
// deleted.
func (s *RosterService) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	lease, err := s.locks.TryAcquire(ctx, teamLease(teamID))
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	return s.removeMemberLocked(ctx, teamID, userID)
}

func (s *RosterService) removeMemberLocked(ctx context.Context, teamID, userID uuid.UUID) error {
	team, err := s.getActiveTeam(teamID)
	if err != nil {
		return err
	}
	if !team.HasMember(userID) {
		return apperrors.ErrNotMember
	}

	user, err := s.getUser(userID)
	if err != nil {
		return err
	}

	prevLeader := team.LeaderID
	prevDeleted := team.Deleted

	team.MemberIDs = team.MemberIDs.Remove(userID)
	if team.LeaderID == userID {
		if successor, ok := team.MemberIDs.Lowest(); ok {
			team.LeaderID = successor
		} else {
			team.Deleted = true
		}
	}
	if err := s.teamRepo.Update(team); err != nil {
		return apperrors.NewInternalError("update team roster", err)
	}

	user.TeamIDs = user.TeamIDs.Remove(teamID)
	if err := s.userRepo.Update(user); err != nil {
		s.compensateTeam(team, func(t *models.Team) {
			t.MemberIDs = t.MemberIDs.Add(userID)
			t.LeaderID = prevLeader
			t.Deleted = prevDeleted
		})
		return apperrors.NewInternalError("update user memberships", err)
	}

	s.invalidate(ctx, teamID)
	entry := s.log.WithFields(map[string]interface{}{"team_id": teamID, "user_id": userID})
	switch {
	case team.Deleted:
		entry.Info("sole member quit, team deleted")
	case prevLeader == userID:
		entry.WithField("new_leader", team.LeaderID).Info("leader quit, leadership transferred")
	default:
		entry.Info("member quit")
	}
	return nil
}

// KickMember removes a member on the leader's behalf. The leader cannot
// kick themselves; they quit or disband instead.
func (s *RosterService) KickMember(ctx context.Context, teamID, actorID, targetID uuid.UUID) error {
	lease, err := s.locks.TryAcquire(ctx, teamLease(teamID))
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	team, err := s.getActiveTeam(teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != actorID {
		return apperrors.ErrNotLeader
	}
	if targetID == actorID {
		return apperrors.NewConflictError("leader cannot kick themselves")
	}
	if !team.HasMember(targetID) {
		return apperrors.ErrNotMember
	}

	user, err := s.getUser(targetID)
	if err != nil {
		return err
	}

	team.MemberIDs = team.MemberIDs.Remove(targetID)
	if err := s.teamRepo.Update(team); err != nil {
		return apperrors.NewInternalError("update team roster", err)
	}

	user.TeamIDs = user.TeamIDs.Remove(teamID)
	if err := s.userRepo.Update(user); err != nil {
		s.compensateTeam(team, func(t *models.Team) {
			t.MemberIDs = t.MemberIDs.Add(targetID)
		})
		return apperrors.NewInternalError("update user memberships", err)
	}

	s.invalidate(ctx, teamID)
	s.log.WithFields(map[string]interface{}{"team_id": teamID, "actor_id": actorID, "target_id": targetID}).Info("member kicked")
	return nil
}

// TransferLeadership hands the leader role to another current member
func (s *RosterService) TransferLeadership(ctx context.Context, teamID, actorID, targetID uuid.UUID) error {
	lease, err := s.locks.TryAcquire(ctx, teamLease(teamID))
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	team, err := s.getActiveTeam(teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != actorID {
		return apperrors.ErrNotLeader
	}
	if targetID == actorID {
		return apperrors.NewConflictError("user is already the leader")
	}
	if !team.HasMember(targetID) {
		return apperrors.ErrNotMember
	}

	team.LeaderID = targetID
	if err := s.teamRepo.Update(team); err != nil {
		return apperrors.NewInternalError("update team leadership", err)
	}

	s.invalidate(ctx, teamID)
	s.log.WithFields(map[string]interface{}{"team_id": teamID, "actor_id": actorID, "target_id": targetID}).Info("leadership transferred")
	return nil
}

// Disband deletes a team. Leader only. Every member's TeamIDs entry is
// removed; the roster itself is kept for history.
func (s *RosterService) Disband(ctx context.Context, teamID, actorID uuid.UUID) error {
	lease, err := s.locks.TryAcquire(ctx, teamLease(teamID))
	if err != nil {
		return err
	}
	defer lease.Release(ctx)

	team, err := s.getActiveTeam(teamID)
	if err != nil {
		return err
	}
	if team.LeaderID != actorID {
		return apperrors.ErrNotLeader
	}

	team.Deleted = true
	if err := s.teamRepo.Update(team); err != nil {
		return apperrors.NewInternalError("update team", err)
	}

	for _, memberID := range team.MemberIDs {
		user, err := s.userRepo.GetByID(memberID)
		if err != nil {
			s.log.WithFields(map[string]interface{}{"team_id": teamID, "user_id": memberID}).Warnf("disband: load member failed: %v", err)
			continue
		}
		user.TeamIDs = user.TeamIDs.Remove(teamID)
		if err := s.userRepo.Update(user); err != nil {
			s.log.WithFields(map[string]interface{}{"team_id": teamID, "user_id": memberID}).Warnf("disband: detach member failed: %v", err)
		}
	}

	s.invalidate(ctx, teamID)
	s.log.WithFields(map[string]interface{}{"team_id": teamID, "actor_id": actorID}).Info("team disbanded")
	return nil
}

// getActiveTeam loads a team and rejects deleted or expired ones
func (s *RosterService) getActiveTeam(teamID uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTeamNotFound
		}
		return nil, apperrors.NewInternalError("load team", err)
	}
	if team.Deleted {
		return nil, apperrors.ErrTeamDeleted
	}
	if team.IsExpired(s.now()) {
		return nil, apperrors.ErrTeamExpired
	}
	return team, nil
}

func (s *RosterService) getUser(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.NewInternalError("load user", err)
	}
	return user, nil
}

// compensateTeam undoes a team write after the paired user write failed.
// A failed compensation is logged; the sweep reconciles it later.
func (s *RosterService) compensateTeam(team *models.Team, undo func(*models.Team)) {
	undo(team)
	if err := s.teamRepo.Update(team); err != nil {
		s.log.WithField("team_id", team.ID).Errorf("roster compensation failed, state inconsistent: %v", err)
	}
}

// invalidate drops every listing cache a mutation can make stale
func (s *RosterService) invalidate(ctx context.Context, teamID uuid.UUID) {
	s.store.Delete(ctx, cache.MutationKeys(teamID)...)
}
