package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "MONGO_URI", "SECRET_KEY", "TOKEN_TTL", "STORE_DRIVER", "SMTP_PORT", "AUTH_CACHE_HOST"} {
		t.Setenv(key, "")
	}

	cfg := NewConfig()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.AppEnv)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "rezerwacje", cfg.MongoDatabase)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "./rbac_model.conf", cfg.RBACModelPath)
	assert.NotEmpty(t, cfg.SecretKey)
	assert.False(t, cfg.CacheEnabled())
	assert.False(t, cfg.MailEnabled())
	require.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("STORE_DRIVER", StoreMemory)
	t.Setenv("AUTH_CACHE_HOST", "redis")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")

	cfg := NewConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.True(t, cfg.CacheEnabled())
	assert.True(t, cfg.MailEnabled())
}

func TestValidateProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("SECRET_KEY", "")
	t.Setenv("MONGO_URI", "mongodb://db:27017")

	cfg := NewConfig()
	assert.Empty(t, cfg.SecretKey)
	assert.EqualError(t, cfg.Validate(), "SECRET_KEY is required in production")

	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("MONGO_URI", "")
	assert.EqualError(t, NewConfig().Validate(), "MONGO_URI is required in production")

	t.Setenv("MONGO_URI", "mongodb://db:27017")
	assert.NoError(t, NewConfig().Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	assert.Error(t, NewConfig().Validate())
}
