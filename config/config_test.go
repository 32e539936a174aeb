package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := LoadEnv()

	assert.True(t, cfg.Server.IsProduction())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Order.CancelWindow)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxProductImage)
	assert.Equal(t, int64(2<<20), cfg.Upload.MaxAvatar)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ORDER_CANCEL_WINDOW", "45m")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 45*time.Minute, cfg.Order.CancelWindow)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
}

func TestValidateRequiresJWTSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	cfg := LoadEnv()
	cfg.JWT.SecretKey = devJWTSecret
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)

	cfg.JWT.SecretKey = "short"
	assert.ErrorIs(t, cfg.Validate(), ErrWeakJWTSecret)

	cfg.JWT.SecretKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestValidateAllowsDevSecretOutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg := LoadEnv()
	cfg.JWT.SecretKey = devJWTSecret
	assert.NoError(t, cfg.Validate())
}
