package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaClientID      string
	RedisURL           string
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	RateLimit          string
	CORSOrigins        []string
	ListingsFixtures   string
	S3Enabled          bool
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
}

// Memory reports whether the service runs without MongoDB.
func (c Config) Memory() bool {
	return c.MongoURI == ""
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MONGO_DB", "acropolis")
	v.SetDefault("KAFKA_CLIENT_ID", "acropolis")
	v.SetDefault("IDEMP_TTL", "24h")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("RETRY_BACKOFF", "1s,5s,30s")
	v.SetDefault("RATE_LIMIT", "30-M")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("S3_ENABLED", false)
	v.SetDefault("S3_ENDPOINT", "http://localhost:9000")
	v.SetDefault("S3_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_SECRET_KEY", "minioadmin")
	v.SetDefault("S3_BUCKET", "acropolis-receipts")
	v.SetDefault("S3_USE_SSL", false)
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Env:                strings.ToLower(v.GetString("APP_ENV")),
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		MongoURI:           strings.TrimSpace(v.GetString("MONGO_URI")),
		MongoDB:            v.GetString("MONGO_DB"),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopicPrefix:   v.GetString("KAFKA_TOPIC_PREFIX"),
		KafkaClientID:      v.GetString("KAFKA_CLIENT_ID"),
		RedisURL:           strings.TrimSpace(v.GetString("REDIS_URL")),
		IdempotencyBackend: strings.ToLower(strings.TrimSpace(v.GetString("IDEMPOTENCY_BACKEND"))),
		RateLimit:          strings.TrimSpace(v.GetString("RATE_LIMIT")),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		ListingsFixtures:   v.GetString("LISTINGS_FIXTURES"),
		S3Enabled:          v.GetBool("S3_ENABLED"),
		S3Endpoint:         v.GetString("S3_ENDPOINT"),
		S3PublicEndpoint:   v.GetString("S3_PUBLIC_ENDPOINT"),
		S3AccessKey:        v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:        v.GetString("S3_SECRET_KEY"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3UseSSL:           v.GetBool("S3_USE_SSL"),
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDuration(v, "IDEMP_TTL"); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDuration(v, "OUTBOX_POLL_INTERVAL"); err != nil {
		return Config{}, err
	}
	for _, raw := range splitList(v.GetString("RETRY_BACKOFF")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	if cfg.IdempotencyBackend == "" {
		cfg.IdempotencyBackend = BackendMemory
		if !cfg.Memory() {
			cfg.IdempotencyBackend = BackendMongo
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.IdempotencyBackend {
	case BackendMemory:
	case BackendMongo:
		if c.Memory() {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=mongo requires MONGO_URI")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.IdempotencyBackend)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
