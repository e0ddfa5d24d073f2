package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/pkg/config"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type authUserRepo interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	IncrementFailedLogins(ctx context.Context, id string) (int, error)
	ResetFailedLogins(ctx context.Context, id string) error
	SetLocked(ctx context.Context, id string, locked bool) error
}

// AuthService issues and validates access tokens. Five consecutive failed
// logins lock the account until an administrator unlocks it.
type AuthService struct {
	users     authUserRepo
	jwtCfg    config.JWTConfig
	authCfg   config.AuthConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(users authUserRepo, jwtCfg config.JWTConfig, authCfg config.AuthConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if authCfg.MaxFailedLogins <= 0 {
		authCfg.MaxFailedLogins = 5
	}
	if authCfg.MinPasswordLen <= 0 {
		authCfg.MinPasswordLen = 6
	}
	return &AuthService{
		users:     users,
		jwtCfg:    jwtCfg,
		authCfg:   authCfg,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies credentials and returns a signed token. A wrong password
// bumps the failure counter; reaching the limit locks the account. A bad
// username and a bad password produce the same error message.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load user")
	}
	if user.Locked {
		return nil, appErrors.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		failures, incErr := s.users.IncrementFailedLogins(ctx, user.ID)
		if incErr != nil {
			s.logger.Error("failed to record login failure", zap.String("user_id", user.ID), zap.Error(incErr))
			return nil, appErrors.ErrInvalidCredentials
		}
		if failures >= s.authCfg.MaxFailedLogins {
			if lockErr := s.users.SetLocked(ctx, user.ID, true); lockErr != nil {
				s.logger.Error("failed to lock account", zap.String("user_id", user.ID), zap.Error(lockErr))
			} else {
				s.logger.Warn("account locked after repeated failures",
					zap.String("user_id", user.ID), zap.Int("failures", failures))
				return nil, appErrors.ErrAccountLocked
			}
		}
		return nil, appErrors.ErrInvalidCredentials
	}

	if err := s.users.ResetFailedLogins(ctx, user.ID); err != nil {
		s.logger.Warn("failed to reset login failures", zap.String("user_id", user.ID), zap.Error(err))
	}
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	token, err := s.issueToken(user, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtCfg.Expiration.Seconds()),
		IssuedAt:    now,
		User:        models.UserInfo{ID: user.ID, Username: user.Username, Role: user.Role},
	}, nil
}

// ValidateToken parses and verifies a signed token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// ChangePassword verifies the old password and stores a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, principal *models.Principal, req *models.ChangePasswordRequest) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("new password must be at least %d characters", s.authCfg.MinPasswordLen))
	}
	if len(req.NewPassword) < s.authCfg.MinPasswordLen {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("new password must be at least %d characters", s.authCfg.MinPasswordLen))
	}

	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.ErrUnauthorized
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "old password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update password")
	}

	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// Me returns the profile info for the authenticated user.
func (s *AuthService) Me(ctx context.Context, principal *models.Principal) (*models.UserInfo, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load user")
	}
	return &models.UserInfo{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *AuthService) issueToken(user *models.User, now time.Time) (string, error) {
	claims := models.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.Secret))
}
