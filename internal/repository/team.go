package repository

import (
	"time"

	"team-match-backend/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamRepository handles database operations for teams
type TeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create creates a new team
func (r *TeamRepository) Create(team *models.Team) error {
	return r.db.Create(team).Error
}

// GetByID retrieves a team by ID, deleted teams included. Callers decide how
// to surface the deleted state.
func (r *TeamRepository) GetByID(id uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := r.db.First(&team, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetByIDs retrieves teams by ID in one query. Missing IDs are skipped.
func (r *TeamRepository) GetByIDs(ids []uuid.UUID) ([]models.Team, error) {
	if len(ids) == 0 {
		return []models.Team{}, nil
	}
	var teams []models.Team
	err := r.db.Where("id IN ?", ids).Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// ListActive retrieves non-deleted, non-expired teams with pagination
func (r *TeamRepository) ListActive(limit, offset int) ([]models.Team, int64, error) {
	var teams []models.Team
	var total int64

	query := r.db.Model(&models.Team{}).
		Where("deleted = ?", false).
		Where("expires_at IS NULL OR expires_at > ?", time.Now())
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&teams).Error
	if err != nil {
		return nil, 0, err
	}

	return teams, total, nil
}

// ListActiveByCreatedDesc retrieves the newest non-deleted, non-expired teams
func (r *TeamRepository) ListActiveByCreatedDesc(limit int) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.Where("deleted = ?", false).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at DESC").
		Limit(limit).
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// Search retrieves non-deleted, non-expired teams whose name or description
// matches the query. When the query parses as a UUID the exact team is
// matched too.
func (r *TeamRepository) Search(query string, limit, offset int) ([]models.Team, int64, error) {
	var teams []models.Team
	var total int64

	pattern := "%" + query + "%"
	q := r.db.Model(&models.Team{}).
		Where("deleted = ?", false).
		Where("expires_at IS NULL OR expires_at > ?", time.Now())
	if id, err := uuid.Parse(query); err == nil {
		q = q.Where("name ILIKE ? OR description ILIKE ? OR id = ?", pattern, pattern, id)
	} else {
		q = q.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&teams).Error
	if err != nil {
		return nil, 0, err
	}

	return teams, total, nil
}

// Update updates a team
func (r *TeamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}
