package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/streampulse/notify/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
// ASSET_BASE_URL is deliberately optional: without it the enrichment worker
// still delivers notifications, just with asset URLs omitted (degraded mode).
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Pending-event store
	RedisURL string

	// Pub/sub bus
	NATSURL string

	// Asset resolution for enrichment
	AssetBaseURL string

	// Enrichment worker
	QueueCapacity     int
	WorkerCount       int
	PollInterval      time.Duration
	MonitorInterval   time.Duration
	MaxEnrichAttempts int
	GlobalKinds       []domain.EventKind

	// Realtime gateway
	SendBufferSize int
	SubscribeRate  int // topic control frames per second per connection
	PingInterval   time.Duration
	WriteDeadline  time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:  getEnv("NATS_URL", "nats://localhost:4222"),

		AssetBaseURL: os.Getenv("ASSET_BASE_URL"),

		QueueCapacity:     getInt("QUEUE_CAPACITY", 1024),
		WorkerCount:       getInt("WORKER_COUNT", 4),
		PollInterval:      getDuration("POLL_INTERVAL", 2*time.Second),
		MonitorInterval:   getDuration("MONITOR_INTERVAL", 15*time.Second),
		MaxEnrichAttempts: getInt("MAX_ENRICH_ATTEMPTS", 5),
		GlobalKinds:       getKinds("GLOBAL_KINDS", []domain.EventKind{domain.KindTipped, domain.KindRaided}),

		SendBufferSize: getInt("SEND_BUFFER_SIZE", 64),
		SubscribeRate:  getInt("SUBSCRIBE_RATE", 5),
		PingInterval:   getDuration("PING_INTERVAL", 30*time.Second),
		WriteDeadline:  getDuration("WRITE_DEADLINE", 10*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getKinds parses a comma-separated list of event kinds, dropping entries
// that are not valid kinds.
func getKinds(key string, defaultVal []domain.EventKind) []domain.EventKind {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var kinds []domain.EventKind
	for _, part := range strings.Split(v, ",") {
		k := domain.EventKind(strings.ToUpper(strings.TrimSpace(part)))
		if k.IsValid() {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return defaultVal
	}
	return kinds
}
