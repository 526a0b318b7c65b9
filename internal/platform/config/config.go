// Package config reads process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL enables the PostgreSQL stores; empty runs in-memory.
	DatabaseURL string
	// AuditDatabaseURL defaults to DatabaseURL when unset.
	AuditDatabaseURL string

	Redis RedisConfig

	// KafkaBrokers enables the audit Kafka sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	CacheTTL time.Duration
}

// RedisConfig holds Redis connection settings. An empty URL disables the
// upcoming-events cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("COMMUNITYLINK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	databaseURL := os.Getenv("DATABASE_URL")
	auditDatabaseURL := os.Getenv("AUDIT_DATABASE_URL")
	if auditDatabaseURL == "" {
		auditDatabaseURL = databaseURL
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	cacheTTL := 30 * time.Second
	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cacheTTL = parsed
		}
	}

	return Server{
		Addr:             addr,
		JWTSigningKey:    jwtSigningKey,
		DatabaseURL:      databaseURL,
		AuditDatabaseURL: auditDatabaseURL,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaBrokers: brokers,
		KafkaTopic:   os.Getenv("KAFKA_AUDIT_TOPIC"),
		CacheTTL:     cacheTTL,
	}
}
