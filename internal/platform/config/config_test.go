package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("GATEKEEPER_ADDR", "")
		t.Setenv("JWT_SIGNING_KEY", "")
		t.Setenv("REDIS_URL", "")
		t.Setenv("TOKEN_TTL", "")

		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Addr)
		assert.True(t, cfg.UsesDevSigningKey())
		assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
		assert.Equal(t, 5*time.Second, cfg.Redis.ReadTimeout)
		assert.Empty(t, cfg.Redis.URL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("GATEKEEPER_ADDR", ":9090")
		t.Setenv("ENVIRONMENT", "Production")
		t.Setenv("TOKEN_TTL", "1h")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, ,192.168.0.1")
		t.Setenv("REDIS_POOL_SIZE", "7")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("SEED_DEMO_USERS", "true")
		t.Setenv("ADMIN_EMAIL", "ops@example.com")

		cfg := FromEnv()
		assert.Equal(t, ":9090", cfg.Addr)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, time.Hour, cfg.TokenTTL)
		assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.1"}, cfg.TrustedProxies)
		assert.Equal(t, 7, cfg.Redis.PoolSize)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
		assert.True(t, cfg.Bootstrap.SeedDemoUsers)
		assert.Equal(t, "ops@example.com", cfg.Bootstrap.AdminEmail)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("TOKEN_TTL", "soon")
		t.Setenv("REDIS_POOL_SIZE", "-3")
		t.Setenv("SEED_DEMO_USERS", "maybe")

		cfg := FromEnv()
		assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
		assert.Equal(t, 20, cfg.Redis.PoolSize)
		assert.False(t, cfg.Bootstrap.SeedDemoUsers)
	})
}
