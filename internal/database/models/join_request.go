package models

import (
	"time"

	"github.com/google/uuid"
)

// Join request kinds
const (
	RequestKindApplication = "application" // user asks to join a private team
	RequestKindInvite      = "invite"      // an existing member asks a user to join
)

// Join request statuses. Pending is the only status that can transition;
// the other three are terminal.
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusCancelled = "cancelled"
)

// Reasons recorded when an approval fails closed against the fresh roster.
const (
	RejectReasonTeamFull      = "team became full before the request was approved"
	RejectReasonAlreadyMember = "user joined the team before the request was approved"
)

// JoinRequest represents a pending or decided membership request.
// SubjectUserID is the user whose membership is at stake; CounterpartyID is
// whoever initiated the other side (the inviting member, or nil for
// self-applications).
type JoinRequest struct {
	BaseModel
	TeamID         uuid.UUID  `json:"team_id" gorm:"type:uuid;not null;index" validate:"required"`
	SubjectUserID  uuid.UUID  `json:"subject_user_id" gorm:"type:uuid;not null;index" validate:"required"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty" gorm:"type:uuid"`
	Kind           string     `json:"kind" gorm:"not null;size:16" validate:"oneof=application invite"`
	Status         string     `json:"status" gorm:"not null;size:16;default:pending;index"`
	Message        string     `json:"message" gorm:"size:512" validate:"max=512"`
	RejectReason   string     `json:"reject_reason" gorm:"size:512"`
	ExpiresAt      time.Time  `json:"expires_at" gorm:"not null;index"`
	DecidedAt      *time.Time `json:"decided_at"`
}

// TableName returns the table name for JoinRequest
func (JoinRequest) TableName() string {
	return "join_requests"
}

// IsPending reports whether the request is still open at the given time,
// accounting for expiry
func (r *JoinRequest) IsPending(now time.Time) bool {
	return r.Status == RequestStatusPending && r.ExpiresAt.After(now)
}

// IsExpired reports whether a still-pending request has passed its deadline
func (r *JoinRequest) IsExpired(now time.Time) bool {
	return r.Status == RequestStatusPending && !r.ExpiresAt.After(now)
}
