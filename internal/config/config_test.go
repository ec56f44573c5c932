package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBaseEnv sets the minimum environment a hosted/postgrest deployment
// needs to load.
func setBaseEnv(t *testing.T) {
	t.Helper()

	t.Setenv("SESSION_JWT_SECRET", "dev-secret-at-least-16")
	t.Setenv("IDENTITY_BASE_URL", "https://auth.example.com/auth/v1")
	t.Setenv("IDENTITY_API_KEY", "anon-key")
	t.Setenv("STORE_BASE_URL", "https://auth.example.com/rest/v1")
	t.Setenv("STORE_API_KEY", "anon-key")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, IdentityModeHosted, cfg.Identity.Mode)
	assert.Equal(t, StoreModePostgREST, cfg.Store.Mode)
	assert.Equal(t, "approved_user_info", cfg.Store.Table)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 2*time.Second, cfg.Flow.CopyClearDelay)
	assert.Equal(t, 10*time.Minute, cfg.Identity.CodeTTL)
	assert.Equal(t, 5, cfg.Identity.MaxAttempts)
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:3000")
}

func TestLoad_MissingSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_JWT_SECRET")
}

func TestLoad_ShortSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_JWT_SECRET", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresLongerSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_JWT_SECRET", "only-20-characters!!")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SESSION_JWT_SECRET", "a-production-secret-of-32-chars!")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_AdminEmails(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_EMAILS", "admin@school.edu, second@school.edu ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@school.edu", "second@school.edu"}, cfg.Flow.AdminEmails)
}

func TestLoad_HostedModeRequiresURLAndKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("IDENTITY_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDENTITY_BASE_URL")
}

func TestLoad_LocalModeRequiresFromAddress(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("IDENTITY_MODE", "local")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SES_FROM_ADDRESS")

	t.Setenv("SES_FROM_ADDRESS", "no-reply@school.edu")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_PostgresModeRequiresPassword(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_MODE", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoad_UnknownModes(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("IDENTITY_MODE", "saml")
	_, err := Load()
	assert.Error(t, err)

	setBaseEnv(t)
	t.Setenv("IDENTITY_MODE", IdentityModeHosted)
	t.Setenv("STORE_MODE", "dynamo")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_TrimsTrailingSlashes(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("IDENTITY_BASE_URL", "https://auth.example.com/auth/v1/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/auth/v1", cfg.Identity.BaseURL)
}

func TestLoad_ProductionOriginsFromEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_JWT_SECRET", "a-production-secret-of-32-chars!")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		Name:     "rollcall",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=rollcall sslmode=require",
		cfg.DSN())
}
