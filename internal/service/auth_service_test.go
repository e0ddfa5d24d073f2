package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/pkg/config"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type userRepoStub struct {
	users map[string]*models.User
}

func (s *userRepoStub) byUsername(username string) *models.User {
	for _, u := range s.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if u := s.byUsername(username); u != nil {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if u, ok := s.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (s *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if u, ok := s.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (s *userRepoStub) IncrementFailedLogins(ctx context.Context, id string) (int, error) {
	u, ok := s.users[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	u.FailedLogins++
	return u.FailedLogins, nil
}

func (s *userRepoStub) ResetFailedLogins(ctx context.Context, id string) error {
	if u, ok := s.users[id]; ok {
		u.FailedLogins = 0
	}
	return nil
}

func (s *userRepoStub) SetLocked(ctx context.Context, id string, locked bool) error {
	if u, ok := s.users[id]; ok {
		u.Locked = locked
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *userRepoStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "student1", PasswordHash: string(hash), Role: models.RoleStudent},
	}}
	jwtCfg := config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "univ-erp-api"}
	authCfg := config.AuthConfig{MaxFailedLogins: 5, MinPasswordLen: 6}
	return NewAuthService(repo, jwtCfg, authCfg, nil, nil), repo
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	svc, repo := newAuthFixture(t)

	res, err := svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.NotNil(t, repo.users["user-1"].LastLogin)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPasswordCountsFailure(t *testing.T) {
	svc, repo := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, repo.users["user-1"].FailedLogins)
	assert.False(t, repo.users["user-1"].Locked)
}

func TestLoginLocksAfterMaxFailures(t *testing.T) {
	svc, repo := newAuthFixture(t)

	for i := 0; i < 4; i++ {
		_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "wrong"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	}

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.users["user-1"].Locked)

	// Even the right password is rejected once locked.
	_, err = svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.users["user-1"].FailedLogins = 3

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.users["user-1"].FailedLogins)
}

func TestLoginUnknownUserSameError(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &models.LoginRequest{Username: "nobody", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), &models.LoginRequest{Username: "student1", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordVerifiesOld(t *testing.T) {
	svc, repo := newAuthFixture(t)
	principal := &models.Principal{UserID: "user-1", Role: models.RoleStudent}

	err := svc.ChangePassword(context.Background(), principal, &models.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "newsecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), principal, &models.ChangePasswordRequest{
		OldPassword: "secret123", NewPassword: "newsecret",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["user-1"].PasswordHash), []byte("newsecret")))
}

func TestChangePasswordEnforcesMinLength(t *testing.T) {
	svc, _ := newAuthFixture(t)
	principal := &models.Principal{UserID: "user-1", Role: models.RoleStudent}

	err := svc.ChangePassword(context.Background(), principal, &models.ChangePasswordRequest{
		OldPassword: "secret123", NewPassword: "abc",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
