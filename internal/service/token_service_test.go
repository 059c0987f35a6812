package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret", "unforgotten")

	token, expiresAt, err := svc.Issue("u1", "ann@example.com", "acct", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "acct", claims.AccountID)
	assert.Equal(t, "ann@example.com", claims.Email)
}

func TestTokenServiceRejectsWrongSecretAndIssuer(t *testing.T) {
	token, _, err := NewTokenService("secret", "unforgotten").Issue("u1", "", "", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService("other", "unforgotten").ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = NewTokenService("secret", "someone-else").ValidateToken(token)
	require.Error(t, err)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", "")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Issue("u1", "", "", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenServiceFallsBackToSubject(t *testing.T) {
	claims := &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-from-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	parsed, err := NewTokenService("secret", "").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-from-sub", parsed.UserID)
}

func TestTokenSession(t *testing.T) {
	tokens := NewTokenService("secret", "")
	token, _, err := tokens.Issue("u1", "", "acct", time.Hour)
	require.NoError(t, err)

	session, err := NewTokenSession(tokens, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID())
	assert.Equal(t, "acct", session.AccountID())

	var signedOut *TokenSession
	assert.Empty(t, signedOut.UserID())

	_, err = NewTokenSession(tokens, "garbage")
	require.Error(t, err)
}
