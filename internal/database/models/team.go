package models

import (
	"time"

	"github.com/google/uuid"
)

// Team visibility levels
const (
	TeamVisibilityPublic    = "public"
	TeamVisibilityPrivate   = "private"
	TeamVisibilityEncrypted = "encrypted"
)

// Team represents a team roster. MemberIDs always contains LeaderID; every
// member ID here also carries this team's ID in its User.TeamIDs.
type Team struct {
	BaseModel
	Name         string     `json:"name" gorm:"not null;size:256" validate:"required,min=1,max=256"`
	Description  string     `json:"description" gorm:"size:1024" validate:"max=1024"`
	Announcement string     `json:"announcement" gorm:"size:512" validate:"max=512"`
	AvatarURL    string     `json:"avatar_url" gorm:"size:512" validate:"omitempty,url,max=512"`
	Tags         TagSet     `json:"tags" gorm:"type:jsonb;not null;default:'[]'"`
	LeaderID     uuid.UUID  `json:"leader_id" gorm:"type:uuid;not null;index" validate:"required"`
	MemberIDs    IDSet      `json:"member_ids" gorm:"type:jsonb;not null;default:'[]'"`
	MaxMembers   int        `json:"max_members" gorm:"not null;default:6" validate:"required,min=1"`
	Visibility   string     `json:"visibility" gorm:"not null;size:16;default:public" validate:"oneof=public private encrypted"`
	PasswordHash string     `json:"-" gorm:"size:128"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Deleted      bool       `json:"deleted" gorm:"not null;default:false;index"`
}

// TableName returns the table name for Team
func (Team) TableName() string {
	return "teams"
}

// IsExpired reports whether the team's deadline has passed at the given time
func (t *Team) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// IsFull reports whether the roster has no free seats
func (t *Team) IsFull() bool {
	return len(t.MemberIDs) >= t.MaxMembers
}

// HasMember reports whether userID is on the roster
func (t *Team) HasMember(userID uuid.UUID) bool {
	return t.MemberIDs.Contains(userID)
}
