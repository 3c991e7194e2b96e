package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "lms")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "lms")
	t.Setenv("SECRET_KEY", "test-secret")
}

func TestLoadPoolDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := Load()
	assert.Equal(t, 25, cfg.DBMaxOpen)
	assert.Equal(t, 25, cfg.DBMaxIdle)
	assert.Equal(t, 30*time.Minute, cfg.DBMaxLifetime)
}

func TestLoadPoolFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_MAX_IDLE_CONNS", "10")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")

	cfg := Load()
	assert.Equal(t, 50, cfg.DBMaxOpen)
	assert.Equal(t, 10, cfg.DBMaxIdle)
	assert.Equal(t, 5*time.Minute, cfg.DBMaxLifetime)
}

func TestLoadBrokerURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RABBITMQ_URL", "amqp://user:pw@broker:5672/")

	cfg := Load()
	assert.Equal(t, "amqp://user:pw@broker:5672/", cfg.AMQPURL)
}
