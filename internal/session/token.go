package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/models"
)

// Claims is the session cookie payload: the server-side session ID plus
// the provider session, carried so a verified visitor survives a server
// restart (the browser-side analog keeps the provider session in local
// storage).
type Claims struct {
	SID      string            `json:"sid"`
	Provider *identity.Session `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates session cookie tokens.
type TokenManager struct {
	secret string
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager with the given signing secret
// and token lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl}
}

// Generate signs a session token for the given session ID, embedding
// the provider session when one exists.
func (tm *TokenManager) Generate(sid string, provider *identity.Session) (string, error) {
	now := time.Now()
	claims := &Claims{
		SID:      sid,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sid,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Parse validates a session token and returns its claims.
func (tm *TokenManager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SID == "" {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}
