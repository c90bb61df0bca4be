package models

// User roles
const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// User represents a registered user. TeamIDs mirrors Team.MemberIDs: a user
// carries a team ID here exactly when the team carries the user's ID.
type User struct {
	BaseModel
	Account      string `json:"account" gorm:"uniqueIndex;not null;size:64" validate:"required,min=4,max=64"`
	Username     string `json:"username" gorm:"size:64" validate:"max=64"`
	AvatarURL    string `json:"avatar_url" gorm:"size:512" validate:"omitempty,url,max=512"`
	Bio          string `json:"bio" gorm:"size:512" validate:"max=512"`
	Tags         TagSet `json:"tags" gorm:"type:jsonb;not null;default:'[]'"`
	TeamIDs      IDSet  `json:"team_ids" gorm:"type:jsonb;not null;default:'[]'"`
	PasswordHash string `json:"-" gorm:"not null;size:128"`
	Role         string `json:"role" gorm:"not null;size:16;default:user" validate:"oneof=admin user"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// SafeUser is the projection of User exposed to other users: no password
// digest, no account identifier.
type SafeUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Tags      TagSet `json:"tags"`
	TeamCount int    `json:"team_count"`
}

// Safe returns the externally visible projection of the user
func (u *User) Safe() SafeUser {
	return SafeUser{
		ID:        u.ID.String(),
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Tags:      u.Tags,
		TeamCount: len(u.TeamIDs),
	}
}
