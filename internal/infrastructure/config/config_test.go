package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ota-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ota_app", cfg.Database.User)
		assert.Equal(t, "postgres", cfg.Database.AdminUser)
		assert.Equal(t, "ota", cfg.Database.DBName)
		assert.Equal(t, "jwt", cfg.Identity.Provider)
		assert.Equal(t, 3*time.Second, cfg.Store.CallTimeout)
		assert.Equal(t, 15*time.Minute, cfg.Storage.PresignExpiry)
		assert.Equal(t, "0 * * * *", cfg.Scheduler.SegmentCron)
		assert.Equal(t, time.Minute, cfg.HTTP.RateLimitWindow)
		assert.Zero(t, cfg.HTTP.StatsRateLimit)
	})

	t.Run("loads values from environment variables with OTA prefix", func(t *testing.T) {
		t.Setenv("OTA_APP_NAME", "test-app")
		t.Setenv("OTA_DATABASE_HOST", "testdb.local")
		t.Setenv("OTA_DATABASE_PORT", "5433")
		t.Setenv("OTA_DATABASE_USER", "reader")
		t.Setenv("OTA_DATABASE_ADMIN_USER", "service")
		t.Setenv("OTA_STORE_CALL_TIMEOUT", "750ms")
		t.Setenv("OTA_STORAGE_BUCKET", "bundles")
		t.Setenv("OTA_HTTP_STATS_RATE_LIMIT", "120")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "reader", cfg.Database.User)
		assert.Equal(t, "service", cfg.Database.AdminUser)
		assert.Equal(t, 750*time.Millisecond, cfg.Store.CallTimeout)
		assert.Equal(t, "bundles", cfg.Storage.Bucket)
		assert.Equal(t, 120, cfg.HTTP.StatsRateLimit)
	})

	t.Run("rejects negative stats rate limit", func(t *testing.T) {
		t.Setenv("OTA_HTTP_STATS_RATE_LIMIT", "-1")

		_, err := Load()
		assert.ErrorContains(t, err, "stats_rate_limit")
	})

	t.Run("rejects unknown identity provider", func(t *testing.T) {
		t.Setenv("OTA_IDENTITY_PROVIDER", "saml")

		_, err := Load()
		assert.ErrorContains(t, err, "identity.provider")
	})

	t.Run("oidc requires issuer and client id", func(t *testing.T) {
		t.Setenv("OTA_IDENTITY_PROVIDER", "oidc")
		t.Setenv("OTA_IDENTITY_ISSUER", "https://id.example.test")

		_, err := Load()
		assert.ErrorContains(t, err, "identity.client_id")
	})
}

func TestValidate_Production(t *testing.T) {
	base := func() *Config {
		cfg := &Config{App: AppConfig{Env: "production"}}
		applyDefaults(cfg)
		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		cfg.Database.Password = "reader-pass"
		cfg.Database.AdminPassword = "service-pass"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	t.Run("valid production config", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("same role for both pools is rejected", func(t *testing.T) {
		cfg := base()
		cfg.Database.AdminUser = cfg.Database.User
		assert.ErrorContains(t, cfg.validate(), "must differ")
	})

	t.Run("short jwt secret is rejected", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = "short"
		assert.ErrorContains(t, cfg.validate(), "jwt.secret")
	})

	t.Run("ssl is required", func(t *testing.T) {
		cfg := base()
		cfg.Database.SSLMode = "disable"
		assert.ErrorContains(t, cfg.validate(), "sslmode")
	})

	t.Run("stripe needs a webhook secret", func(t *testing.T) {
		cfg := base()
		cfg.Stripe.SecretKey = "sk_live_x"
		assert.ErrorContains(t, cfg.validate(), "webhook_secret")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:          "db",
		Port:          5432,
		User:          "reader",
		Password:      "p@ss/word",
		AdminUser:     "service",
		AdminPassword: "secret",
		DBName:        "ota",
		SSLMode:       "disable",
	}

	assert.Equal(t, "postgres://reader:p%40ss%2Fword@db:5432/ota?sslmode=disable", d.DSN())
	assert.Equal(t, "postgres://service:secret@db:5432/ota?sslmode=disable", d.AdminDSN())
}
