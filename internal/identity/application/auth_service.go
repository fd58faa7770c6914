package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/keygate/keygate/internal/identity/domain"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthService authenticates admins and manages their session tokens.
type AuthService struct {
	admins domain.Repository
	tokens *TokenService
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(admins domain.Repository, tokens *TokenService, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{admins: admins, tokens: tokens, logger: logger}
}

// Login verifies the credentials and issues a token pair. A missing account
// and a wrong password report the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !admin.CheckPassword(password) {
		return nil, domain.ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, domain.ErrAccountInactive
	}

	if err := s.admins.RecordLogin(ctx, admin.ID); err != nil {
		s.logger.Warn("failed to record admin login", "error", err)
	}

	return s.issuePair(admin.Email)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	email, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	// The account must still exist and be active.
	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, domain.ErrAccountInactive
	}
	return s.issuePair(admin.Email)
}

// VerifyAccess validates an access token and returns the admin it belongs to.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (*domain.Admin, error) {
	email, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, domain.ErrAccountInactive
	}
	return admin, nil
}

func (s *AuthService) issuePair(subject string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(subject)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}
