package repository

import (
	"time"

	"team-match-backend/internal/database/models"

	"github.com/google/uuid"
)

// TeamRepositoryInterface defines the interface for team repository operations
type TeamRepositoryInterface interface {
	Create(team *models.Team) error
	GetByID(id uuid.UUID) (*models.Team, error)
	GetByIDs(ids []uuid.UUID) ([]models.Team, error)
	ListActive(limit, offset int) ([]models.Team, int64, error)
	ListActiveByCreatedDesc(limit int) ([]models.Team, error)
	Search(query string, limit, offset int) ([]models.Team, int64, error)
	Update(team *models.Team) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByIDs(ids []uuid.UUID) ([]models.User, error)
	GetByAccount(account string) (*models.User, error)
	GetAll(limit, offset int) ([]models.User, int64, error)
	Search(query string, limit, offset int) ([]models.User, int64, error)
	SearchByTags(tags models.TagSet, limit, offset int) ([]models.User, int64, error)
	Update(user *models.User) error
}

// JoinRequestRepositoryInterface defines the interface for join request repository operations
type JoinRequestRepositoryInterface interface {
	Create(request *models.JoinRequest) error
	GetByID(id uuid.UUID) (*models.JoinRequest, error)
	GetPendingByPair(teamID, subjectUserID uuid.UUID, now time.Time) (*models.JoinRequest, error)
	ListByTeam(teamID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error)
	ListBySubject(subjectUserID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error)
	ListExpiredPending(now time.Time, limit int) ([]models.JoinRequest, error)
	Update(request *models.JoinRequest) error
}
