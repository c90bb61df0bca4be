package repository

import (
	"time"

	"team-match-backend/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JoinRequestRepository handles database operations for join requests
type JoinRequestRepository struct {
	db *gorm.DB
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *gorm.DB) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

// Create creates a new join request
func (r *JoinRequestRepository) Create(request *models.JoinRequest) error {
	return r.db.Create(request).Error
}

// GetByID retrieves a join request by ID
func (r *JoinRequestRepository) GetByID(id uuid.UUID) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := r.db.First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetPendingByPair retrieves the open request for a (team, user) pair, any
// kind. Requests already past their deadline do not count.
func (r *JoinRequestRepository) GetPendingByPair(teamID, subjectUserID uuid.UUID, now time.Time) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := r.db.First(&request,
		"team_id = ? AND subject_user_id = ? AND status = ? AND expires_at > ?",
		teamID, subjectUserID, models.RequestStatusPending, now).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListByTeam retrieves requests for a team, optionally filtered by status
func (r *JoinRequestRepository) ListByTeam(teamID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error) {
	var requests []models.JoinRequest
	var total int64

	query := r.db.Model(&models.JoinRequest{}).Where("team_id = ?", teamID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListBySubject retrieves requests concerning a user, optionally filtered by status
func (r *JoinRequestRepository) ListBySubject(subjectUserID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error) {
	var requests []models.JoinRequest
	var total int64

	query := r.db.Model(&models.JoinRequest{}).Where("subject_user_id = ?", subjectUserID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListExpiredPending retrieves still-pending requests whose deadline has
// passed, oldest first, for the background sweep.
func (r *JoinRequestRepository) ListExpiredPending(now time.Time, limit int) ([]models.JoinRequest, error) {
	var requests []models.JoinRequest
	err := r.db.Where("status = ? AND expires_at <= ?", models.RequestStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// Update updates a join request
func (r *JoinRequestRepository) Update(request *models.JoinRequest) error {
	return r.db.Save(request).Error
}
