package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Classifier ClassifierConfig
	Pipeline   PipelineConfig
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin authentication parameters for the mapping
// management endpoints.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminUsername         string
	AdminPasswordHash     string
}

// ClassifierConfig configures the language-model classification boundary.
type ClassifierConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// PipelineConfig enumerates every knob the triage pipeline consumes. It is
// passed explicitly to the orchestrator at construction; nothing in the
// pipeline reads the environment mid-flight.
type PipelineConfig struct {
	ConfidenceThreshold    float64
	FallbackDepartment     string
	ClassifyAttempts       int
	DispatchAttempts       int
	BackoffBaseMillis      int
	BackoffCapMillis       int
	DispatchTimeoutSeconds int
	DispatchDeadlineSec    int
	DuplicateWaitSeconds   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("PIPELINE_CONFIDENCE_THRESHOLD", "0.7"), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("invalid PIPELINE_CONFIDENCE_THRESHOLD: %q", os.Getenv("PIPELINE_CONFIDENCE_THRESHOLD"))
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-triage-agent"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
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
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminUsername:         getEnv("AUTH_ADMIN_USERNAME", "admin"),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
		},
		Classifier: ClassifierConfig{
			Provider:       getEnv("CLASSIFIER_PROVIDER", "gemini"),
			APIKey:         os.Getenv("CLASSIFIER_API_KEY"),
			BaseURL:        getEnv("CLASSIFIER_BASE_URL", ""),
			Model:          getEnv("CLASSIFIER_MODEL", "gemini-1.5-pro"),
			TimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 5),
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold:    threshold,
			FallbackDepartment:     getEnv("PIPELINE_FALLBACK_DEPARTMENT", "GENERAL"),
			ClassifyAttempts:       getEnvAsInt("PIPELINE_CLASSIFY_ATTEMPTS", 3),
			DispatchAttempts:       getEnvAsInt("PIPELINE_DISPATCH_ATTEMPTS", 3),
			BackoffBaseMillis:      getEnvAsInt("PIPELINE_BACKOFF_BASE_MS", 250),
			BackoffCapMillis:       getEnvAsInt("PIPELINE_BACKOFF_CAP_MS", 5000),
			DispatchTimeoutSeconds: getEnvAsInt("PIPELINE_DISPATCH_TIMEOUT_SECONDS", 10),
			DispatchDeadlineSec:    getEnvAsInt("PIPELINE_DISPATCH_DEADLINE_SECONDS", 45),
			DuplicateWaitSeconds:   getEnvAsInt("PIPELINE_DUPLICATE_WAIT_SECONDS", 30),
		},
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

// Timeout returns the per-attempt classification timeout.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffBase returns the base delay for retry backoff.
func (p PipelineConfig) BackoffBase() time.Duration {
	return time.Duration(p.BackoffBaseMillis) * time.Millisecond
}

// BackoffCap returns the ceiling for retry backoff.
func (p PipelineConfig) BackoffCap() time.Duration {
	return time.Duration(p.BackoffCapMillis) * time.Millisecond
}

// DispatchTimeout returns the per-attempt dispatch timeout.
func (p PipelineConfig) DispatchTimeout() time.Duration {
	return time.Duration(p.DispatchTimeoutSeconds) * time.Second
}

// DispatchDeadline returns the pipeline-level routing budget.
func (p PipelineConfig) DispatchDeadline() time.Duration {
	return time.Duration(p.DispatchDeadlineSec) * time.Second
}

// DuplicateWait returns how long a duplicate submission blocks for the
// original run to reach a terminal state.
func (p PipelineConfig) DuplicateWait() time.Duration {
	return time.Duration(p.DuplicateWaitSeconds) * time.Second
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
