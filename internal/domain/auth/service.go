package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/buddyspace/buddyspace-api/internal/domain/user"
	"github.com/buddyspace/buddyspace-api/internal/pkg/jwt"
	"github.com/buddyspace/buddyspace-api/internal/pkg/password"
)

// UserRepository is the slice of the user repository auth depends on
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service handles registration and token issuance
type Service struct {
	users UserRepository
	jwt   *jwt.Service
}

// NewService creates auth service
func NewService(users UserRepository, jwtService *jwt.Service) *Service {
	return &Service{users: users, jwt: jwtService}
}

// Register creates an account and returns a token pair
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    sql.NullString{String: req.FirstName, Valid: req.FirstName != ""},
		LastName:     sql.NullString{String: req.LastName, Valid: req.LastName != ""},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	return s.issueTokens(u)
}

// Login verifies credentials and returns a token pair
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(u)
}

// Refresh exchanges a valid refresh token for a new pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	return s.issueTokens(u)
}

func (s *Service) issueTokens(u *user.User) (*TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(u.ID, u.Username)
	if err != nil {
		return nil, err
	}

	refresh, _, err := s.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwt.GetAccessTTL().Seconds()),
		User:         user.InfoFromEntity(u),
	}, nil
}
