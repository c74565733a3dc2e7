package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean.
type Config struct {
	Addr string

	// DatabaseURL enables the postgres stores; empty runs fully in-memory.
	DatabaseURL string

	// RedisURL enables the shared token revocation list; empty falls back to
	// the in-memory list (single-instance only).
	RedisURL string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration

	// KafkaBrokers enables the audit outbox publisher; empty disables it and
	// audit events stay queryable from postgres only.
	KafkaBrokers    []string
	AuditTopic      string
	OutboxInterval  time.Duration
	OutboxBatchSize int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("CREDITDESK_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       getEnv("JWT_ISSUER", "creditdesk"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "creditdesk-api"),
		TokenTTL:        getDuration("TOKEN_TTL", time.Hour),
		AuditTopic:      getEnv("AUDIT_TOPIC", "creditdesk.audit"),
		OutboxInterval:  getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize: 100,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
