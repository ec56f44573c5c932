package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Identity provider and record store backend modes.
const (
	IdentityModeHosted = "hosted"
	IdentityModeLocal  = "local"

	StoreModePostgREST = "postgrest"
	StoreModePostgres  = "postgres"
)

type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Flow     FlowConfig
	Identity IdentityConfig
	Store    StoreConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type SessionConfig struct {
	JWTSecret     string
	TTL           time.Duration
	SweepInterval time.Duration
}

type FlowConfig struct {
	CopyClearDelay time.Duration
	// AdminEmails gates admin view visibility only. Real access
	// control is the record store's row-level security.
	AdminEmails []string
}

type IdentityConfig struct {
	Mode string

	// hosted mode
	BaseURL string
	APIKey  string

	// local mode
	RedisAddr     string
	RedisPassword string
	SESRegion     string
	FromAddress   string
	CodeTTL       time.Duration
	MaxAttempts   int
	SessionTTL    time.Duration
}

type StoreConfig struct {
	Mode  string
	Table string

	// postgrest mode
	BaseURL string
	APIKey  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	RunMigrations   bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("SESSION_JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("SESSION_JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Session: SessionConfig{
			JWTSecret:     jwtSecret,
			TTL:           getEnvAsDuration("SESSION_TTL", 1*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Flow: FlowConfig{
			CopyClearDelay: getEnvAsDuration("COPY_CLEAR_DELAY", 2*time.Second),
			AdminEmails:    parseList(getEnv("ADMIN_EMAILS", "")),
		},
		Identity: IdentityConfig{
			Mode:          getEnv("IDENTITY_MODE", IdentityModeHosted),
			BaseURL:       strings.TrimRight(getEnv("IDENTITY_BASE_URL", ""), "/"),
			APIKey:        getEnv("IDENTITY_API_KEY", ""),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			SESRegion:     getEnv("SES_REGION", "us-east-1"),
			FromAddress:   getEnv("SES_FROM_ADDRESS", ""),
			CodeTTL:       getEnvAsDuration("CODE_TTL", 10*time.Minute),
			MaxAttempts:   getEnvAsInt("CODE_MAX_ATTEMPTS", 5),
			SessionTTL:    getEnvAsDuration("IDENTITY_SESSION_TTL", 24*time.Hour),
		},
		Store: StoreConfig{
			Mode:    getEnv("STORE_MODE", StoreModePostgREST),
			Table:   getEnv("STORE_TABLE", "approved_user_info"),
			BaseURL: strings.TrimRight(getEnv("STORE_BASE_URL", ""), "/"),
			APIKey:  getEnv("STORE_API_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "rollcall"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", false),
		},
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}
	if err := cfg.validateModes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateModes() error {
	switch c.Identity.Mode {
	case IdentityModeHosted:
		if c.Identity.BaseURL == "" || c.Identity.APIKey == "" {
			return fmt.Errorf("IDENTITY_BASE_URL and IDENTITY_API_KEY are required in hosted mode")
		}
	case IdentityModeLocal:
		if c.Identity.FromAddress == "" {
			return fmt.Errorf("SES_FROM_ADDRESS is required in local identity mode")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_MODE %q", c.Identity.Mode)
	}

	switch c.Store.Mode {
	case StoreModePostgREST:
		if c.Store.BaseURL == "" || c.Store.APIKey == "" {
			return fmt.Errorf("STORE_BASE_URL and STORE_API_KEY are required in postgrest mode")
		}
	case StoreModePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required in postgres store mode")
		}
	default:
		return fmt.Errorf("unknown STORE_MODE %q", c.Store.Mode)
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for the
// session cookie signing secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		return parseList(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
