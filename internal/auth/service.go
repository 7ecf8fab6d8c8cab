package auth

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/construplaza/construplaza-backend/pkg/auth"
	"github.com/construplaza/construplaza-backend/pkg/auth/session"
	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/security"
)

// SessionManager issues and rotates redis-backed refresh sessions. Satisfied
// by pkg/auth/session.Manager.
type SessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// SupplierResolver maps a user to their supplier profile. Satisfied by the
// suppliers repository.
type SupplierResolver interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Supplier, error)
}

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	Repo      Repository
	Sessions  SessionManager
	Suppliers SupplierResolver
	JWT       config.JWTConfig
	Password  config.PasswordConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

// Service handles buyer registration, login, and token lifecycle.
type Service struct {
	repo      Repository
	sessions  SessionManager
	suppliers SupplierResolver
	jwt       config.JWTConfig
	password  config.PasswordConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewService builds an auth service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("repo is required")
	}
	if params.Sessions == nil {
		return nil, stdErrors.New("session manager is required")
	}
	if params.Suppliers == nil {
		return nil, stdErrors.New("supplier resolver is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("logger is required")
	}
	if params.JWT.Secret == "" {
		return nil, stdErrors.New("jwt config is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      params.Repo,
		sessions:  params.Sessions,
		suppliers: params.Suppliers,
		jwt:       params.JWT,
		password:  params.Password,
		logger:    params.Logger,
		now:       now,
	}, nil
}

// RegisterBuyerInput carries a buyer account registration.
type RegisterBuyerInput struct {
	Email    string
	Password string
	FullName string
}

// RegisterBuyer creates a buyer account. Supplier accounts go through the
// supplier registration flow instead.
func (s *Service) RegisterBuyer(ctx context.Context, input RegisterBuyerInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, errors.New(errors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, errors.New(errors.CodeValidation, "full name is required")
	}
	if len(input.Password) < s.minPasswordLength() {
		return nil, errors.New(errors.CodeValidation, "password is too short")
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.CodeConflict, "email is already registered")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         enums.UserRoleBuyer,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithUserID(ctx, user.ID.String()), "buyer registered")
	return user, nil
}

// TokenPair is the credential set returned on login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// Login verifies credentials and issues a fresh access/refresh pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, errors.New(errors.CodeUnauthorized, "invalid credentials")
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates the refresh session and mints a new access token. The
// presented access token may be expired; only its identity is used.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, errors.New(errors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if stdErrors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, errors.New(errors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.CodeUnauthorized, "account no longer exists")
	}

	accessToken, err = auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID:     user.ID,
		SupplierID: claims.SupplierID,
		Role:       user.Role,
		JTI:        newAccessID,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "mint access token")
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken, User: user}, nil
}

// Logout revokes the refresh session tied to the access token's jti.
func (s *Service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New(errors.CodeValidation, "access id is required")
	}
	return s.sessions.Revoke(ctx, accessID)
}

func (s *Service) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	var supplierID *uuid.UUID
	if user.Role == enums.UserRoleSupplier {
		supplier, err := s.suppliers.FindByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if supplier != nil {
			supplierID = &supplier.ID
		}
	}

	accessID := session.NewAccessID()
	accessToken, err := auth.MintAccessToken(s.jwt, s.now(), auth.AccessTokenPayload{
		UserID:     user.ID,
		SupplierID: supplierID,
		Role:       user.Role,
		JTI:        accessID,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "mint access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

func (s *Service) minPasswordLength() int {
	if s.password.MinPasswordLength <= 0 {
		return 8
	}
	return s.password.MinPasswordLength
}
