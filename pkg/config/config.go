package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Pipeline
	Features FeatureConfig
	Model    ModelConfig
	Schedule ScheduleConfig

	// API
	RateLimit RateLimitConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	ModelTTL time.Duration // 적합 모델 스냅샷 캐시 TTL
}

// FeatureConfig holds feature derivation parameters
type FeatureConfig struct {
	VolWindow     int // 실현 변동성 trailing window (기본: 20)
	VolMinPeriods int // 변동성 계산 최소 수익률 개수 (기본: 5)
}

// ModelConfig holds return model fitting/sampling parameters
type ModelConfig struct {
	Kind             string // gaussian, bootstrap
	ReturnField      string // log_return_1d, realized_vol_20d
	MinObservations  int    // 공분산 추정 최소 공통 관측일 (기본: 2)
	Seed             uint64 // 샘플링 시드 (0=랜덤)
	DefaultSteps     int
	DefaultScenarios int
}

// ScheduleConfig holds cron expressions (seconds field included)
type ScheduleConfig struct {
	FeatureBuild string
	ModelRefit   string
}

// RateLimitConfig limits the sampling endpoint
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			ModelTTL: getEnvAsDuration("REDIS_MODEL_TTL", "12h"),
		},

		Features: FeatureConfig{
			VolWindow:     getEnvAsInt("FEATURE_VOL_WINDOW", 20),
			VolMinPeriods: getEnvAsInt("FEATURE_VOL_MIN_PERIODS", 5),
		},

		Model: ModelConfig{
			Kind:             getEnv("MODEL_KIND", "gaussian"),
			ReturnField:      getEnv("MODEL_RETURN_FIELD", "log_return_1d"),
			MinObservations:  getEnvAsInt("MODEL_MIN_OBSERVATIONS", 2),
			Seed:             getEnvAsUint64("SAMPLE_SEED", 0),
			DefaultSteps:     getEnvAsInt("SAMPLE_DEFAULT_STEPS", 60),
			DefaultScenarios: getEnvAsInt("SAMPLE_DEFAULT_SCENARIOS", 1000),
		},

		Schedule: ScheduleConfig{
			FeatureBuild: getEnv("SCHEDULE_FEATURE_BUILD", "0 30 22 * * 1-5"),
			ModelRefit:   getEnv("SCHEDULE_MODEL_REFIT", "0 0 23 * * 1-5"),
		},

		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 10),
			Burst: getEnvAsInt("API_RATE_LIMIT_BURST", 20),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Features.VolWindow < 2 {
		return fmt.Errorf("FEATURE_VOL_WINDOW must be >= 2")
	}
	if c.Features.VolMinPeriods < 2 || c.Features.VolMinPeriods > c.Features.VolWindow {
		return fmt.Errorf("FEATURE_VOL_MIN_PERIODS must be between 2 and FEATURE_VOL_WINDOW")
	}

	if c.Model.Kind != "gaussian" && c.Model.Kind != "bootstrap" {
		return fmt.Errorf("MODEL_KIND must be one of: gaussian, bootstrap")
	}
	if c.Model.MinObservations < 2 {
		return fmt.Errorf("MODEL_MIN_OBSERVATIONS must be >= 2")
	}

	return nil
}

// RequireDatabase checks that DATABASE_URL is set
// DB가 필요한 명령어(build, fit, api, scheduler)에서만 호출
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
