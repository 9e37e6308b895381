package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	maps   map[string]map[string]string
}

func (f *fakeSecrets) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := f.values[name]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func (f *fakeSecrets) GetSecretMap(ctx context.Context, name string) (map[string]string, error) {
	if m, ok := f.maps[name]; ok {
		return m, nil
	}
	return nil, errors.New("secret not found")
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_PASSWORD", "admin")

	cfg, err := configFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, StoreDynamo, cfg.StoreBackend)
	assert.Equal(t, "Medicines", cfg.ProductsTable)
	assert.Equal(t, "Orders", cfg.OrdersTable)
	assert.Equal(t, 30*time.Second, cfg.CatalogMaxAge)
	assert.Equal(t, time.Duration(0), cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.CommitTimeout)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.CloudWatchEnabled)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("CHECKOUT_SESSION_TTL", "15m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("CLOUDWATCH_ENABLED", "true")

	cfg, err := configFromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.CloudWatchEnabled)
}

func TestConfigFromEnv_BadValues(t *testing.T) {
	tests := map[string][2]string{
		"bad duration":      {"COMMIT_TIMEOUT", "soon"},
		"negative duration": {"CATALOG_MAX_AGE", "-1s"},
		"bad rate limit":    {"RATE_LIMIT_PER_MINUTE", "lots"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := configFromEnv()
			assert.ErrorContains(t, err, kv[0])
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{JWTSecret: "x", StoreBackend: StoreMemory, AdminPassword: "p"}
	}

	assert.NoError(t, valid().validate())

	cfg := valid()
	cfg.JWTSecret = ""
	assert.ErrorContains(t, cfg.validate(), "JWT_SECRET")

	cfg = valid()
	cfg.StoreBackend = "sqlite"
	assert.ErrorContains(t, cfg.validate(), "STORE_BACKEND")

	cfg = valid()
	cfg.AdminPassword = ""
	assert.ErrorContains(t, cfg.validate(), "ADMIN_PASSWORD")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{JWTSecret: "from-env"}
	cfg.Postgres.Host = "localhost"
	cfg.Postgres.User = "env-user"

	applySecrets(context.Background(), cfg, &fakeSecrets{
		values: map[string]string{"pharmacy/JWT_SECRET": "from-secrets"},
		maps: map[string]map[string]string{
			"pharmacy/DB_CREDENTIALS": {
				"POSTGRES_HOST":     "db.internal",
				"POSTGRES_PASSWORD": "pw",
				"POSTGRES_USER":     "",
			},
			"pharmacy/SMTP_CREDENTIALS": {"SMTP_HOST": "smtp.internal"},
		},
	})

	assert.Equal(t, "from-secrets", cfg.JWTSecret)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "pw", cfg.Postgres.Password)
	assert.Equal(t, "env-user", cfg.Postgres.User)
	assert.Equal(t, "smtp.internal", cfg.SMTP.Host)
	assert.Empty(t, cfg.AdminPasswordHash)
}
