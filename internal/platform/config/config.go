package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all runtime configuration so main stays lean.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	S3       S3
}

// Server captures HTTP server level configuration and lifecycle policy.
type Server struct {
	Addr          string
	JWTSigningKey string
	// RequireModeration makes new postings start in pending_admin instead of
	// active, so an administrator reviews them before they go live.
	RequireModeration bool
}

// Postgres holds the connection string for the primary store. Empty means the
// in-memory stores are used (dev mode).
type Postgres struct {
	DSN string
}

// Redis configures the evidence verification cache. Empty URL disables it.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the notification sink transport. Empty brokers means
// notifications are delivered in-process only.
type Kafka struct {
	Brokers            []string
	NotificationsTopic string
}

// S3 configures the evidence blob store the verifier checks refs against.
type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// EvidenceCacheTTL bounds how long a positive evidence-ref verification is
// trusted before re-checking the blob store.
var EvidenceCacheTTL = 5 * time.Minute

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:              envOr("LOFO_ADDR", ":8080"),
			JWTSigningKey:     envOr("LOFO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			RequireModeration: os.Getenv("LOFO_REQUIRE_MODERATION") == "true",
		},
		Postgres: Postgres{
			DSN: os.Getenv("LOFO_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("LOFO_REDIS_URL"),
			PoolSize:     envIntOr("LOFO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("LOFO_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Brokers:            splitNonEmpty(os.Getenv("LOFO_KAFKA_BROKERS")),
			NotificationsTopic: envOr("LOFO_KAFKA_NOTIFICATIONS_TOPIC", "lofo.notifications"),
		},
		S3: S3{
			Endpoint:  os.Getenv("LOFO_S3_ENDPOINT"),
			Region:    envOr("LOFO_S3_REGION", "us-east-1"),
			Bucket:    envOr("LOFO_S3_BUCKET", "lofo-evidence"),
			AccessKey: os.Getenv("LOFO_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("LOFO_S3_SECRET_KEY"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
