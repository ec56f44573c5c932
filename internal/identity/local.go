package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rollcall-app/rollcall/internal/models"
	pkglogger "github.com/rollcall-app/rollcall/pkg/logger"
)

const revokedKeyPrefix = "otp:revoked:"

// LocalProviderConfig holds the self-hosted provider's settings.
type LocalProviderConfig struct {
	JWTSecret   string
	SessionTTL  time.Duration
	CodeTTL     time.Duration
	MaxAttempts int
}

// LocalProvider is a self-contained identity provider for deployments
// without a hosted auth service: it issues 6-digit codes over email,
// keeps their hashes in Redis, and signs its own session tokens.
type LocalProvider struct {
	codes  *CodeStore
	sender EmailSender
	client *redis.Client
	cfg    LocalProviderConfig
	logger *slog.Logger
}

// sessionClaims is the local provider's session token payload.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewLocalProvider creates a provider backed by Redis and the given
// email sender.
func NewLocalProvider(client *redis.Client, sender EmailSender, cfg LocalProviderConfig, logger *slog.Logger) *LocalProvider {
	return &LocalProvider{
		codes:  NewCodeStore(client, cfg.CodeTTL, cfg.MaxAttempts),
		sender: sender,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// SendOneTimeCode generates a fresh code, stores its hash, and emails
// the plain code.
func (p *LocalProvider) SendOneTimeCode(ctx context.Context, email string) error {
	code, err := GenerateCode()
	if err != nil {
		p.logger.Error("failed to generate one-time code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt, err := p.codes.Put(ctx, email, code)
	if err != nil {
		p.logger.Error("failed to store one-time code",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := p.sender.SendCode(ctx, email, code, expiresAt); err != nil {
		p.logger.Error("failed to email one-time code",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return &ProviderError{Message: "Could not send the verification email"}
	}

	return nil
}

// VerifyOneTimeCode consumes the stored code and, on a match, issues a
// signed session token.
func (p *LocalProvider) VerifyOneTimeCode(ctx context.Context, email, code string) (*Session, error) {
	if err := p.codes.Consume(ctx, email, code); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			return nil, &ProviderError{Message: "Invalid or expired code"}
		}
		p.logger.Error("code store unavailable", slog.Any("error", err))
		return nil, err
	}

	now := time.Now()
	claims := &sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{Email: email, AccessToken: token}, nil
}

// CurrentUser validates the session token and returns its email,
// rejecting revoked tokens.
func (p *LocalProvider) CurrentUser(ctx context.Context, session *Session) (string, error) {
	if session == nil || session.AccessToken == "" {
		return "", models.ErrNoSession
	}

	claims, err := p.parseToken(session.AccessToken)
	if err != nil {
		return "", models.ErrNoSession
	}

	revoked, err := p.client.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked > 0 {
		return "", models.ErrNoSession
	}

	return claims.Email, nil
}

// SignOut revokes the session token for the remainder of its lifetime.
func (p *LocalProvider) SignOut(ctx context.Context, session *Session) error {
	if session == nil || session.AccessToken == "" {
		return nil
	}

	claims, err := p.parseToken(session.AccessToken)
	if err != nil {
		// Expired or malformed tokens need no revocation.
		return nil
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	if err := p.client.Set(ctx, revokedKeyPrefix+claims.ID, "1", remaining).Err(); err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}
	return nil
}

func (p *LocalProvider) parseToken(token string) (*sessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Email == "" {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}
