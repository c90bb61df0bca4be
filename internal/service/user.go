package service

import (
	"context"
	"errors"

	"team-match-backend/internal/auth"
	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/logger"
	"team-match-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService handles registration, login and profile updates
type UserService struct {
	repo      repository.UserRepositoryInterface
	auth      *auth.AuthService
	validator *validator.Validate
	salt      string
	log       *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(repo repository.UserRepositoryInterface, authService *auth.AuthService, validate *validator.Validate, salt string) *UserService {
	return &UserService{
		repo:      repo,
		auth:      authService,
		validator: validate,
		salt:      salt,
		log:       logger.New().WithField("component", "user"),
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Account  string `json:"account" validate:"required,min=4,max=64,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=64"`
	Username string `json:"username" validate:"max=64"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Account  string `json:"account" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token and the caller's own profile
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UpdateProfileRequest represents a profile update. Nil fields are left
// unchanged.
type UpdateProfileRequest struct {
	Username  *string  `json:"username" validate:"omitempty,max=64"`
	AvatarURL *string  `json:"avatar_url" validate:"omitempty,url,max=512"`
	Bio       *string  `json:"bio" validate:"omitempty,max=512"`
	Tags      []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

// Register creates a user account
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}

	if _, err := s.repo.GetByAccount(req.Account); err == nil {
		return nil, apperrors.NewConflictError("account already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInternalError("check account", err)
	}

	username := req.Username
	if username == "" {
		username = req.Account
	}

	user := &models.User{
		Account:      req.Account,
		Username:     username,
		PasswordHash: auth.HashPassword(req.Password, s.salt),
		Role:         models.UserRoleUser,
		Tags:         models.TagSet{},
		TeamIDs:      models.IDSet{},
	}
	if err := s.repo.Create(user); err != nil {
		return nil, apperrors.NewInternalError("create user", err)
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login verifies credentials and issues a session token. Bad account and
// bad password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}

	user, err := s.repo.GetByAccount(req.Account)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotAuthorizedError("invalid account or password")
		}
		return nil, apperrors.NewInternalError("load user", err)
	}
	if auth.HashPassword(req.Password, s.salt) != user.PasswordHash {
		return nil, apperrors.NewNotAuthorizedError("invalid account or password")
	}

	token, err := s.auth.GenerateJWT(user.ID, user.Account, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("issue token", err)
	}

	return &LoginResponse{Token: token, User: user}, nil
}

// GetSelf returns the caller's own full profile
func (s *UserService) GetSelf(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.NewInternalError("load user", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, apperrors.NewInvalidInputError("", err.Error())
	}

	user, err := s.GetSelf(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Tags != nil {
		user.Tags = models.NormalizeTags(req.Tags)
	}

	if err := s.repo.Update(user); err != nil {
		return nil, apperrors.NewInternalError("update user", err)
	}
	return user, nil
}
