package service

import (
	"context"
	"testing"
	"time"

	"team-match-backend/internal/auth"
	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(repo *fakeUserRepo) *UserService {
	authService := auth.NewAuthService("test-secret", time.Hour)
	return NewUserService(repo, authService, validator.New(), "test-salt")
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		Account:  "gopher42",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "gopher42", user.Account)
	// Username defaults to the account name.
	assert.Equal(t, "gopher42", user.Username)
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	resp, err := svc.Login(ctx, &LoginRequest{Account: "gopher42", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	svc := newUserService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"account too short", RegisterRequest{Account: "abc", Password: "longenough"}},
		{"account not alphanumeric", RegisterRequest{Account: "not ok!", Password: "longenough"}},
		{"password too short", RegisterRequest{Account: "gopher42", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, &tc.req)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
}

func TestRegisterAccountTaken(t *testing.T) {
	svc := newUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Account: "gopher42", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Account: "gopher42", Password: "other password"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Account: "gopher42", Password: "correct horse"})
	require.NoError(t, err)

	_, badPassword := svc.Login(ctx, &LoginRequest{Account: "gopher42", Password: "wrong"})
	_, badAccount := svc.Login(ctx, &LoginRequest{Account: "nobody99", Password: "wrong"})

	require.True(t, apperrors.IsNotAuthorized(badPassword))
	require.True(t, apperrors.IsNotAuthorized(badAccount))
	assert.Equal(t, badPassword.Error(), badAccount.Error())
}

func TestUpdateProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newUserService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{Account: "gopher42", Password: "correct horse"})
	require.NoError(t, err)

	bio := "likes channels"
	updated, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{
		Bio:  &bio,
		Tags: []string{"go", "GO", "redis"},
	})
	require.NoError(t, err)
	assert.Equal(t, "likes channels", updated.Bio)
	// Tags are normalized and deduplicated.
	assert.Equal(t, models.TagSet{"Go", "Redis"}, updated.Tags)
	// Untouched fields survive.
	assert.Equal(t, "gopher42", updated.Username)
}
