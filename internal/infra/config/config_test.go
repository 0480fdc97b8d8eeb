package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "MONGO_URI", "MONGO_DB", "KAFKA_BROKERS", "REDIS_URL",
		"IDEMPOTENCY_BACKEND", "IDEMP_TTL", "OUTBOX_POLL_INTERVAL", "RETRY_BACKOFF",
		"S3_ENABLED", "S3_ENDPOINT", "S3_PUBLIC_ENDPOINT", "RATE_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.Memory())
	assert.Equal(t, BackendMemory, cfg.IdempotencyBackend)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "30-M", cfg.RateLimit)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, cfg.S3Endpoint, cfg.S3PublicEndpoint)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("IDEMP_TTL", "2h")
	t.Setenv("RETRY_BACKOFF", "2s")
	t.Setenv("S3_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Memory())
	assert.Equal(t, BackendMongo, cfg.IdempotencyBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []time.Duration{2 * time.Second}, cfg.RetryBackoff)
	assert.True(t, cfg.S3Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad ttl":            {"IDEMP_TTL": "soon"},
		"bad backoff":        {"RETRY_BACKOFF": "1s,later"},
		"redis without url":  {"IDEMPOTENCY_BACKEND": "redis"},
		"mongo without uri":  {"IDEMPOTENCY_BACKEND": "mongo"},
		"unknown backend":    {"IDEMPOTENCY_BACKEND": "etcd"},
		"zero poll interval": {"OUTBOX_POLL_INTERVAL": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
