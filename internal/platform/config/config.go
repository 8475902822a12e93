package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "gatekeeper/pkg/platform/strings"
)

// Server captures process level configuration. Rate limit quotas live in
// internal/ratelimit/config and are loaded from RateLimitConfigPath.
type Server struct {
	Addr                string
	Environment         string
	LogLevel            string
	JWTSigningKey       string
	TokenTTL            time.Duration
	TrustedProxies      []string
	RateLimitConfigPath string
	ShutdownTimeout     time.Duration
	Bootstrap           BootstrapConfig
	Redis               RedisConfig
	Database            DatabaseConfig
}

// RedisConfig configures the shared counter store. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BootstrapConfig names accounts created at startup when missing.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	// SeedDemoUsers is ignored in production.
	SeedDemoUsers bool
}

// DatabaseConfig configures the user store. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv loads an optional .env file and builds the Server config from the
// environment so main stays lean. Variables already set win over .env values.
func FromEnv() Server {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	return Server{
		Addr:                getEnv("GATEKEEPER_ADDR", ":8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", devSigningKey),
		TokenTTL:            getDuration("TOKEN_TTL", 30*time.Minute),
		TrustedProxies:      pstrings.SplitList(os.Getenv("TRUSTED_PROXIES")),
		RateLimitConfigPath: os.Getenv("RATE_LIMIT_CONFIG"),
		ShutdownTimeout:     getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Bootstrap: BootstrapConfig{
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			SeedDemoUsers: getBool("SEED_DEMO_USERS", false),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 20),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}
}

// IsProduction reports whether the dev signing key must be rejected.
func (s Server) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// UsesDevSigningKey reports whether no JWT_SIGNING_KEY was supplied.
func (s Server) UsesDevSigningKey() bool {
	return s.JWTSigningKey == devSigningKey
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
