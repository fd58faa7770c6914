// Package application implements admin authentication: password login and
// HS256 JWT access/refresh tokens for the management API.
package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken indicates a token that is malformed, expired, wrongly
// signed, or of the wrong type for the operation.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenConfig tunes JWT issuance.
type TokenConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// DefaultTokenConfig returns the token defaults: 15-minute access tokens,
// 7-day refresh tokens.
func DefaultTokenConfig(secret string) TokenConfig {
	return TokenConfig{
		Secret:        secret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	}
}

type adminClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies admin session tokens.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// IssueAccessToken creates a short-lived access token for the subject.
func (s *TokenService) IssueAccessToken(subject string) (string, error) {
	return s.issue(subject, tokenTypeAccess, s.cfg.AccessExpiry)
}

// IssueRefreshToken creates a long-lived refresh token for the subject.
func (s *TokenService) IssueRefreshToken(subject string) (string, error) {
	return s.issue(subject, tokenTypeRefresh, s.cfg.RefreshExpiry)
}

func (s *TokenService) issue(subject, tokenType string, expiry time.Duration) (string, error) {
	now := s.now()
	claims := adminClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates an access token and returns its subject.
func (s *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	return s.verify(tokenString, tokenTypeAccess)
}

// VerifyRefreshToken validates a refresh token and returns its subject.
func (s *TokenService) VerifyRefreshToken(tokenString string) (string, error) {
	return s.verify(tokenString, tokenTypeRefresh)
}

func (s *TokenService) verify(tokenString, wantType string) (string, error) {
	var claims adminClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
