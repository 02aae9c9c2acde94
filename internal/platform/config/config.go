package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything main needs to wire the service, read once from
// the environment so the rest of the codebase never touches os.Getenv.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	JWT   JWT
	Store Store
	Redis Redis

	AuditWriteTimeout time.Duration
}

// JWT holds token validation settings.
type JWT struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// Store selects the durable audit store backend.
type Store struct {
	// PostgresURL, when set, selects the Postgres store; otherwise the
	// in-memory store is used (development only).
	PostgresURL string
}

// Redis holds settings for the best-effort audit stream sink.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	signingKey := os.Getenv("TYCHE_JWT_SIGNING_KEY")
	if signingKey == "" {
		// Development default, must be overridden in production.
		signingKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:            envOr("TYCHE_ADDR", ":8080"),
		ShutdownTimeout: envDuration("TYCHE_SHUTDOWN_TIMEOUT", 10*time.Second),
		JWT: JWT{
			SigningKey: signingKey,
			Issuer:     envOr("TYCHE_JWT_ISSUER", "tyche-finance"),
			Audience:   envOr("TYCHE_JWT_AUDIENCE", "tyche-api"),
		},
		Store: Store{
			PostgresURL: os.Getenv("TYCHE_POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("TYCHE_REDIS_URL"),
			PoolSize:     envInt("TYCHE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TYCHE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("TYCHE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TYCHE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TYCHE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		AuditWriteTimeout: envDuration("TYCHE_AUDIT_WRITE_TIMEOUT", 5*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
