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

	// Data source: postgres | snapshot
	DataSource   string
	SnapshotPath string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Screening run
	Screening ScreeningConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ScreeningConfig holds runtime knobs for the screening pipeline.
// 전략 파라미터(가중치/임계값)는 strategyconfig YAML에서 관리
type ScreeningConfig struct {
	StrategyPath  string // YAML 전략 파일 (비어있으면 기본값)
	UniversePath  string // top_stocks.txt 형식 (비어있으면 DB 시총 상위)
	UniverseSize  int
	TopK          int // 0이면 YAML 값 사용
	Workers       int // 0이면 YAML 값 사용
	CacheSize     int    // 0이면 YAML 값 사용
	Schedule      string // cron (seconds field 포함)
	Timezone      string // 비어있으면 YAML meta.timezone
	RetentionDays int
	RunRateLimit  time.Duration // API 수동 실행 최소 간격
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		DataSource:   getEnv("DATA_SOURCE", "postgres"),
		SnapshotPath: getEnv("SNAPSHOT_PATH", ""),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "fingear"),
			User:            getEnv("DB_USER", "fingear"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
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
		},

		Screening: ScreeningConfig{
			StrategyPath:  getEnv("STRATEGY_CONFIG", ""),
			UniversePath:  getEnv("UNIVERSE_FILE", ""),
			UniverseSize:  getEnvAsInt("UNIVERSE_SIZE", 100),
			TopK:          getEnvAsInt("SCREEN_TOP_K", 0),
			Workers:       getEnvAsInt("SCREEN_WORKERS", 0),
			CacheSize:     getEnvAsInt("SCREEN_CACHE_SIZE", 0),
			Schedule:      getEnv("SCREEN_SCHEDULE", "0 0 16 * * 1-5"),
			Timezone:      getEnv("SCREEN_TIMEZONE", ""),
			RetentionDays: getEnvAsInt("SCREEN_RETENTION_DAYS", 30),
			RunRateLimit:  getEnvAsDuration("RUN_RATE_LIMIT", "1m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.DataSource {
	case "postgres":
		// Database URL is required
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case "snapshot":
		if c.SnapshotPath == "" {
			return fmt.Errorf("SNAPSHOT_PATH is required when DATA_SOURCE=snapshot")
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be one of: postgres, snapshot")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Screening.TopK < 0 {
		return fmt.Errorf("SCREEN_TOP_K must be >= 0")
	}
	if c.Screening.Workers < 0 {
		return fmt.Errorf("SCREEN_WORKERS must be >= 0")
	}
	if c.Screening.CacheSize < 0 {
		return fmt.Errorf("SCREEN_CACHE_SIZE must be >= 0")
	}
	if c.Screening.Timezone != "" {
		if _, err := time.LoadLocation(c.Screening.Timezone); err != nil {
			return fmt.Errorf("SCREEN_TIMEZONE invalid: %w", err)
		}
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
