package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Feed token validation errors.
var (
	ErrTokenFormat    = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// FeedClaims identifies whose calendar a feed token exposes.
type FeedClaims struct {
	AccountID string
	UserID    string
	ExpiresAt time.Time
}

// FeedTokenSigner creates and validates HMAC-signed calendar feed tokens so
// subscription clients can fetch a feed without bearer credentials.
type FeedTokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFeedTokenSigner constructs a signer with the provided secret and TTL.
func NewFeedTokenSigner(secret string, ttl time.Duration) *FeedTokenSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FeedTokenSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// DeriveFeedSecret expands a master secret into a key dedicated to feed
// tokens, so a leaked feed key never signs bearer tokens.
func DeriveFeedSecret(master string) (string, error) {
	if master == "" {
		return "", errors.New("master secret is empty")
	}
	key := make([]byte, 32)
	reader := hkdf.New(sha256.New, []byte(master), nil, []byte("unforgotten calendar feed"))
	if _, err := io.ReadFull(reader, key); err != nil {
		return "", fmt.Errorf("derive feed secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// WithClock overrides the signer clock.
func (s *FeedTokenSigner) WithClock(now func() time.Time) *FeedTokenSigner {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate returns a signed token for the account/user pair.
func (s *FeedTokenSigner) Generate(accountID, userID string) (string, time.Time, error) {
	if accountID == "" || userID == "" {
		return "", time.Time{}, fmt.Errorf("accountID and userID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	account := base64.RawURLEncoding.EncodeToString([]byte(accountID))
	user := base64.RawURLEncoding.EncodeToString([]byte(userID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{account, user, ts, s.sign(account, user, ts)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded claims.
func (s *FeedTokenSigner) Parse(token string) (FeedClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return FeedClaims{}, ErrTokenFormat
	}
	account, user, ts, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(account, user, ts)), []byte(signature)) {
		return FeedClaims{}, ErrTokenSignature
	}

	rawAccount, err := base64.RawURLEncoding.DecodeString(account)
	if err != nil {
		return FeedClaims{}, fmt.Errorf("decode account: %w", ErrTokenFormat)
	}
	rawUser, err := base64.RawURLEncoding.DecodeString(user)
	if err != nil {
		return FeedClaims{}, fmt.Errorf("decode user: %w", ErrTokenFormat)
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return FeedClaims{}, fmt.Errorf("invalid timestamp: %w", ErrTokenFormat)
	}

	claims := FeedClaims{
		AccountID: string(rawAccount),
		UserID:    string(rawUser),
		ExpiresAt: time.Unix(expUnix, 0),
	}
	if s.now().After(claims.ExpiresAt) {
		return FeedClaims{}, ErrTokenExpired
	}
	return claims, nil
}

func (s *FeedTokenSigner) sign(account, user, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(account + "|" + user + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
