package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(DefaultTokenConfig("test-secret-at-least-32-characters"))

	access, err := svc.IssueAccessToken("admin@example.com")
	require.NoError(t, err)
	refresh, err := svc.IssueRefreshToken("admin@example.com")
	require.NoError(t, err)

	subject, err := svc.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", subject)

	subject, err = svc.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", subject)
}

func TestTokenServiceRejectsWrongType(t *testing.T) {
	svc := NewTokenService(DefaultTokenConfig("test-secret-at-least-32-characters"))

	access, err := svc.IssueAccessToken("admin@example.com")
	require.NoError(t, err)
	refresh, err := svc.IssueRefreshToken("admin@example.com")
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService(DefaultTokenConfig("issuer-secret-at-least-32-chars!"))
	verifier := NewTokenService(DefaultTokenConfig("other-secret-at-least-32-chars!!"))

	token, err := issuer.IssueAccessToken("admin@example.com")
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService(DefaultTokenConfig("test-secret-at-least-32-characters"))
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := svc.IssueAccessToken("admin@example.com")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	svc := NewTokenService(DefaultTokenConfig("test-secret-at-least-32-characters"))

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.VerifyAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
