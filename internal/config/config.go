package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Engine   EngineConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// EngineConfig holds the tunable parameters of the allocation engine.
// These are configuration values, not constants: the imbalance threshold,
// rebalance interval, and overflow policy are institution-specific.
type EngineConfig struct {
	ImbalanceThreshold       int
	RebalanceIntervalSeconds int
	DefaultQueueCapacity     int
	OverflowQueueIDs         []string
	ConflictRetryAttempts    int
	ConflictRetryBackoffMs   int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	BoardChannel string
	PositionTTL  int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for the staff API.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "queue-allocation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Engine: EngineConfig{
			ImbalanceThreshold:       getEnvAsInt("ENGINE_IMBALANCE_THRESHOLD", 2),
			RebalanceIntervalSeconds: getEnvAsInt("ENGINE_REBALANCE_INTERVAL_SECONDS", 30),
			DefaultQueueCapacity:     getEnvAsInt("ENGINE_DEFAULT_QUEUE_CAPACITY", 50),
			OverflowQueueIDs:         getEnvAsList("ENGINE_OVERFLOW_QUEUE_IDS"),
			ConflictRetryAttempts:    getEnvAsInt("ENGINE_CONFLICT_RETRY_ATTEMPTS", 3),
			ConflictRetryBackoffMs:   getEnvAsInt("ENGINE_CONFLICT_RETRY_BACKOFF_MS", 25),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			BoardChannel: getEnv("REDIS_BOARD_CHANNEL", "queue-board"),
			PositionTTL:  getEnvAsInt("REDIS_POSITION_TTL_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
	}

	if cfg.Engine.ImbalanceThreshold < 1 {
		return nil, fmt.Errorf("ENGINE_IMBALANCE_THRESHOLD must be >= 1, got %d", cfg.Engine.ImbalanceThreshold)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RebalanceInterval returns the periodic rebalance cadence.
func (e EngineConfig) RebalanceInterval() time.Duration {
	if e.RebalanceIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.RebalanceIntervalSeconds) * time.Second
}

// ConflictRetryBackoff returns the base backoff between conflict retries.
func (e EngineConfig) ConflictRetryBackoff() time.Duration {
	if e.ConflictRetryBackoffMs <= 0 {
		return 25 * time.Millisecond
	}
	return time.Duration(e.ConflictRetryBackoffMs) * time.Millisecond
}

// IsOverflowQueue reports whether the queue may exceed its capacity hint.
func (e EngineConfig) IsOverflowQueue(queueID string) bool {
	for _, id := range e.OverflowQueueIDs {
		if id == queueID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
