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

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JoinRequestService drives the request lifecycle: pending requests are
// created under a per-pair lease, decided under the team lease, and expire
// passively after their TTL.
type JoinRequestService struct {
	requestRepo repository.JoinRequestRepositoryInterface
	teamRepo    repository.TeamRepositoryInterface
	roster      *RosterService
	locks       lock.Service
	validator   *validator.Validate
	requestTTL  time.Duration
	cooldown    time.Duration
	log         *logger.Logger
	now         func() time.Time
}

// NewJoinRequestService creates a new join request service
func NewJoinRequestService(requestRepo repository.JoinRequestRepositoryInterface, teamRepo repository.TeamRepositoryInterface, roster *RosterService, locks lock.Service, validate *validator.Validate, requestTTL, cooldown time.Duration) *JoinRequestService {
	return &JoinRequestService{
		requestRepo: requestRepo,
		teamRepo:    teamRepo,
		roster:      roster,
		locks:       locks,
		validator:   validate,
		requestTTL:  requestTTL,
		cooldown:    cooldown,
		log:         logger.New().WithField("component", "join_request"),
		now:         time.Now,
	}
}

// requestLease names the lease guarding request creation for one
// (team, user) pair
func requestLease(teamID, userID uuid.UUID) string {
	return cache.LeaseKey("request:" + teamID.String() + ":" + userID.String())
}

// CreateApplicationRequest represents a user's request to join a team
type CreateApplicationRequest struct {
	TeamID  uuid.UUID `json:"team_id" validate:"required"`
	Message string    `json:"message" validate:"max=512"`
}

// CreateInviteRequest represents a member's request to invite a user
type CreateInviteRequest struct {
	TeamID  uuid.UUID `json:"team_id" validate:"required"`
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	Message string    `json:"message" validate:"max=512"`
}

// Apply creates a pending application from actor to the team
func (s *JoinRequestService) Apply(ctx context.Context, actorID uuid.UUID, req *CreateApplicationRequest) (*models.JoinRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}
	return s.create(ctx, req.TeamID, actorID, nil, models.RequestKindApplication, req.Message)
}

// Invite creates a pending invite from an existing team member to a user
func (s *JoinRequestService) Invite(ctx context.Context, actorID uuid.UUID, req *CreateInviteRequest) (*models.JoinRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}

	team, err := s.roster.getActiveTeam(req.TeamID)
	if err != nil {
		return nil, err
	}
	if !team.HasMember(actorID) {
		return nil, apperrors.ErrNotTeamMember
	}
	return s.create(ctx, req.TeamID, req.UserID, &actorID, models.RequestKindInvite, req.Message)
}

// create runs the shared creation path. Cheap failures (full team, existing
// membership, wrong visibility) are detected before the lease; the
// duplicate-pending check runs under the lease, which is what actually
// enforces at-most-one-pending per pair regardless of kind.
func (s *JoinRequestService) create(ctx context.Context, teamID, subjectID uuid.UUID, counterpartyID *uuid.UUID, kind, message string) (*models.JoinRequest, error) {
	now := s.now()

	team, err := s.roster.getActiveTeam(teamID)
	if err != nil {
		return nil, err
	}
	if kind == models.RequestKindApplication && team.Visibility != models.TeamVisibilityPrivate {
		return nil, apperrors.ErrTeamNotPrivate
	}
	if team.IsFull() {
		return nil, apperrors.ErrTeamFull
	}
	if team.HasMember(subjectID) {
		return nil, apperrors.ErrAlreadyMember
	}
	if _, err := s.roster.getUser(subjectID); err != nil {
		return nil, err
	}

	lease, err := s.locks.TryAcquire(ctx, requestLease(teamID, subjectID))
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	// The duplicate error follows the kind of the request already on file.
	// A fresh application against a pending one inside the cooldown window
	// reports the remaining wait instead of a flat conflict.
	if existing, err := s.requestRepo.GetPendingByPair(teamID, subjectID, now); err == nil {
		if existing.Kind == models.RequestKindInvite {
			return nil, apperrors.ErrPendingInvite
		}
		if kind == models.RequestKindApplication {
			if wait := s.cooldown - now.Sub(existing.CreatedAt); wait > 0 {
				return nil, apperrors.NewTooFrequentError("application created too recently", wait)
			}
		}
		return nil, apperrors.ErrPendingApplication
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInternalError("load pending request", err)
	}

	request := &models.JoinRequest{
		TeamID:         teamID,
		SubjectUserID:  subjectID,
		CounterpartyID: counterpartyID,
		Kind:           kind,
		Message:        message,
		Status:         models.RequestStatusPending,
		ExpiresAt:      now.Add(s.requestTTL),
	}
	if err := s.requestRepo.Create(request); err != nil {
		return nil, apperrors.NewInternalError("create request", err)
	}

	s.log.WithFields(map[string]interface{}{
		"request_id": request.ID,
		"team_id":    teamID,
		"subject_id": subjectID,
		"kind":       kind,
	}).Info("join request created")
	return request, nil
}

// Approve decides a pending request positively and puts the subject on the
// roster. Applications are approved by the team leader; invites are
// accepted by the invited user. The roster change and the status flip
// happen under the team lease; a roster that filled up or already gained the
// subject in the meantime rejects the request with a recorded reason.
func (s *JoinRequestService) Approve(ctx context.Context, requestID, actorID uuid.UUID) (*models.JoinRequest, error) {
	request, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}

	if err := s.checkDecider(request, actorID); err != nil {
		return nil, err
	}

	lease, err := s.locks.TryAcquire(ctx, teamLease(request.TeamID))
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	// Re-read under the lease; a parallel decision may have landed.
	request, err = s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if request.Status != models.RequestStatusPending {
		return nil, apperrors.ErrRequestNotPending
	}
	if request.IsExpired(now) {
		return nil, apperrors.ErrRequestExpired
	}

	if err := s.roster.addMemberLocked(ctx, request.TeamID, request.SubjectUserID); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrTeamFull):
			s.failClosed(request, models.RejectReasonTeamFull, now)
		case errors.Is(err, apperrors.ErrAlreadyMember):
			s.failClosed(request, models.RejectReasonAlreadyMember, now)
		}
		return nil, err
	}

	request.Status = models.RequestStatusApproved
	request.DecidedAt = &now
	if err := s.requestRepo.Update(request); err != nil {
		// Membership is already granted; the request stays pending and a
		// retry will surface AlreadyMember.
		return nil, apperrors.NewInternalError("record approval", err)
	}

	s.log.WithFields(map[string]interface{}{"request_id": requestID, "actor_id": actorID}).Info("join request approved")
	return request, nil
}

// Reject decides a pending request negatively. Applications are rejected by
// the team leader; invites are declined by the invited user. The status flip
// happens under the same team lease approvals use, so a rejection cannot
// overwrite a decision that landed in parallel.
func (s *JoinRequestService) Reject(ctx context.Context, requestID, actorID uuid.UUID, reason string) (*models.JoinRequest, error) {
	request, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDecider(request, actorID); err != nil {
		return nil, err
	}

	lease, err := s.locks.TryAcquire(ctx, teamLease(request.TeamID))
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	// Re-read under the lease; a parallel decision may have landed.
	request, err = s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if request.Status != models.RequestStatusPending {
		return nil, apperrors.ErrRequestNotPending
	}
	if request.IsExpired(now) {
		return nil, apperrors.ErrRequestExpired
	}

	request.Status = models.RequestStatusRejected
	request.RejectReason = reason
	request.DecidedAt = &now
	if err := s.requestRepo.Update(request); err != nil {
		return nil, apperrors.NewInternalError("record rejection", err)
	}

	s.log.WithFields(map[string]interface{}{"request_id": requestID, "actor_id": actorID}).Info("join request rejected")
	return request, nil
}

// Cancel withdraws a pending request. Only the initiator may cancel: the
// applicant for applications, the inviting member for invites.
func (s *JoinRequestService) Cancel(ctx context.Context, requestID, actorID uuid.UUID) (*models.JoinRequest, error) {
	request, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}

	initiator := request.SubjectUserID
	if request.Kind == models.RequestKindInvite {
		if request.CounterpartyID == nil {
			return nil, apperrors.NewInternalError("invite without counterparty", nil)
		}
		initiator = *request.CounterpartyID
	}
	if actorID != initiator {
		return nil, apperrors.ErrNotRequestParty
	}

	now := s.now()
	if request.Status != models.RequestStatusPending {
		return nil, apperrors.ErrRequestNotPending
	}
	if request.IsExpired(now) {
		return nil, apperrors.ErrRequestExpired
	}

	request.Status = models.RequestStatusCancelled
	request.DecidedAt = &now
	if err := s.requestRepo.Update(request); err != nil {
		return nil, apperrors.NewInternalError("record cancellation", err)
	}

	s.log.WithFields(map[string]interface{}{"request_id": requestID, "actor_id": actorID}).Info("join request cancelled")
	return request, nil
}

// Get returns a request to one of its parties: the subject, the
// counterparty, the team's current leader, or an admin.
func (s *JoinRequestService) Get(ctx context.Context, requestID, actorID uuid.UUID, isAdmin bool) (*models.JoinRequest, error) {
	request, err := s.getRequest(requestID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !s.isParty(request, actorID) {
		return nil, apperrors.ErrNotRequestParty
	}
	return s.withReadExpiry(request), nil
}

// ListByTeam returns a team's requests. Leader only.
func (s *JoinRequestService) ListByTeam(ctx context.Context, teamID, actorID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error) {
	team, err := s.roster.getActiveTeam(teamID)
	if err != nil {
		return nil, 0, err
	}
	if team.LeaderID != actorID {
		return nil, 0, apperrors.ErrNotLeader
	}

	requests, total, err := s.requestRepo.ListByTeam(teamID, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("list team requests", err)
	}
	return s.withReadExpiryAll(requests), total, nil
}

// ListMine returns the requests concerning the acting user
func (s *JoinRequestService) ListMine(ctx context.Context, actorID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error) {
	requests, total, err := s.requestRepo.ListBySubject(actorID, status, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("list user requests", err)
	}
	return s.withReadExpiryAll(requests), total, nil
}

// SweepExpired flips pending requests past their deadline to rejected with
// the expiry reason recorded. Called by the background sweep; expiry is
// also enforced at read and decision time, so the sweep only tidies rows.
func (s *JoinRequestService) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	now := s.now()
	expired, err := s.requestRepo.ListExpiredPending(now, batchSize)
	if err != nil {
		return 0, apperrors.NewInternalError("list expired requests", err)
	}

	swept := 0
	for i := range expired {
		request := &expired[i]
		request.Status = models.RequestStatusRejected
		request.RejectReason = "request expired"
		request.DecidedAt = &now
		if err := s.requestRepo.Update(request); err != nil {
			s.log.WithField("request_id", request.ID).Warnf("sweep update failed: %v", err)
			continue
		}
		swept++
	}
	return swept, nil
}

// failClosed flips a pending request to rejected after its approval failed
// against the fresh roster, so it cannot linger pending forever.
func (s *JoinRequestService) failClosed(request *models.JoinRequest, reason string, now time.Time) {
	request.Status = models.RequestStatusRejected
	request.RejectReason = reason
	request.DecidedAt = &now
	if err := s.requestRepo.Update(request); err != nil {
		s.log.WithField("request_id", request.ID).Warnf("record fail-closed rejection failed: %v", err)
	}
}

// checkDecider verifies that actor is entitled to decide the request: the
// team's current leader for applications, the invited user for invites.
func (s *JoinRequestService) checkDecider(request *models.JoinRequest, actorID uuid.UUID) error {
	if request.Kind == models.RequestKindInvite {
		if actorID != request.SubjectUserID {
			return apperrors.ErrNotInvitee
		}
		return nil
	}

	team, err := s.roster.getActiveTeam(request.TeamID)
	if err != nil {
		return err
	}
	if team.LeaderID != actorID {
		return apperrors.ErrNotLeader
	}
	return nil
}

func (s *JoinRequestService) isParty(request *models.JoinRequest, actorID uuid.UUID) bool {
	if actorID == request.SubjectUserID {
		return true
	}
	if request.CounterpartyID != nil && actorID == *request.CounterpartyID {
		return true
	}
	team, err := s.teamRepo.GetByID(request.TeamID)
	if err != nil {
		return false
	}
	return team.LeaderID == actorID
}

func (s *JoinRequestService) getRequest(requestID uuid.UUID) (*models.JoinRequest, error) {
	request, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, apperrors.NewInternalError("load request", err)
	}
	return request, nil
}

// withReadExpiry presents a pending-but-expired request as rejected without
// writing anything; the sweep persists the flip eventually.
func (s *JoinRequestService) withReadExpiry(request *models.JoinRequest) *models.JoinRequest {
	if request.IsExpired(s.now()) {
		shown := *request
		shown.Status = models.RequestStatusRejected
		shown.RejectReason = "request expired"
		return &shown
	}
	return request
}

func (s *JoinRequestService) withReadExpiryAll(requests []models.JoinRequest) []models.JoinRequest {
	now := s.now()
	for i := range requests {
		if requests[i].IsExpired(now) {
			requests[i].Status = models.RequestStatusRejected
			requests[i].RejectReason = "request expired"
		}
	}
	return requests
}
