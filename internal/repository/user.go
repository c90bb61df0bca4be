package repository

import (
	"team-match-backend/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves users by ID in one query. Missing IDs are skipped.
func (r *UserRepository) GetByIDs(ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetByAccount retrieves a user by account
func (r *UserRepository) GetByAccount(account string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "account = ?", account).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAll retrieves users with pagination
func (r *UserRepository) GetAll(limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Search retrieves users whose username or bio matches the query. When the
// query parses as a UUID the exact user is matched too.
func (r *UserRepository) Search(query string, limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	pattern := "%" + query + "%"
	q := r.db.Model(&models.User{})
	if id, err := uuid.Parse(query); err == nil {
		q = q.Where("username ILIKE ? OR bio ILIKE ? OR id = ?", pattern, pattern, id)
	} else {
		q = q.Where("username ILIKE ? OR bio ILIKE ?", pattern, pattern)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// SearchByTags retrieves users carrying every one of the given tags. Tags
// must already be normalized; the containment check runs on the JSONB column.
func (r *UserRepository) SearchByTags(tags models.TagSet, limit, offset int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	encoded, err := tags.Value()
	if err != nil {
		return nil, 0, err
	}
	q := r.db.Model(&models.User{}).Where("tags @> ?", encoded)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err = q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update updates a user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}
