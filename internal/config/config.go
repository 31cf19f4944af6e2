// Package config loads watchtrack settings.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file named by CONFIG_FILE, a .env file in the working directory, and
// the process environment.
//
// Environment Variables:
//   - WATCHTRACK_ADDR: listen address (default :8080)
//   - DATA_DIR: directory for on-disk stores (default ./data)
//   - STORE_BACKEND: sqlite, redis, badger, postgres, file or memory (default sqlite)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: redis backend connection
//   - POSTGRES_URL: postgres backend connection string
//   - CATALOG_FILE: YAML video manifest (optional)
//   - MEDIA_ROOT: directory scanned for video files (optional)
//   - FFPROBE_PATH: ffprobe binary used for durations (default ffprobe)
//   - SAMPLE_INTERVAL: playback sampler period (default 1s)
//   - POSITION_SAVE_INTERVAL: minimum gap between position saves per video (default 5s)
//   - MAINTENANCE_CRON: maintenance schedule (default @daily)
//   - API_KEY_HASH: bcrypt hash guarding mutating routes (optional)
//   - CORS_ORIGINS: comma separated allowed origins (default *)
//   - RATE_LIMIT_RPM: requests per minute per IP (default 600)
//   - OTEL_ENABLED: wrap the HTTP handler with OpenTelemetry instrumentation
//   - LOG_LEVEL: zerolog level (default info)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/treefix50/watchtrack/internal/log"
)

// Supported store backends.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Config holds all runtime settings.
type Config struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"dataDir"`

	Store StoreConfig `yaml:"store"`

	CatalogFile string `yaml:"catalogFile"`
	MediaRoot   string `yaml:"mediaRoot"`
	FFprobePath string `yaml:"ffprobePath"`

	SampleInterval       time.Duration `yaml:"sampleInterval"`
	PositionSaveInterval time.Duration `yaml:"positionSaveInterval"`
	MaintenanceCron      string        `yaml:"maintenanceCron"`

	APIKeyHash   string   `yaml:"apiKeyHash"`
	CORSOrigins  []string `yaml:"corsOrigins"`
	RateLimitRPM int      `yaml:"rateLimitRPM"`
	OTelEnabled  bool     `yaml:"otelEnabled"`

	LogLevel string `yaml:"logLevel"`
}

// StoreConfig selects and parameterizes the key-value backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	PostgresURL   string `yaml:"postgresURL"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:    ":8080",
		DataDir: "./data",
		Store: StoreConfig{
			Backend:   BackendSQLite,
			RedisAddr: "localhost:6379",
		},
		FFprobePath:          "ffprobe",
		SampleInterval:       time.Second,
		PositionSaveInterval: 5 * time.Second,
		MaintenanceCron:      "@daily",
		CORSOrigins:          []string{"*"},
		RateLimitRPM:         600,
		LogLevel:             "info",
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	logger := log.WithComponent("config")

	cfg.Addr = getEnvString(logger, "WATCHTRACK_ADDR", cfg.Addr)
	cfg.DataDir = getEnvString(logger, "DATA_DIR", cfg.DataDir)
	cfg.Store.Backend = strings.ToLower(getEnvString(logger, "STORE_BACKEND", cfg.Store.Backend))
	cfg.Store.RedisAddr = getEnvString(logger, "REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = getEnvString(logger, "REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = getEnvInt(logger, "REDIS_DB", cfg.Store.RedisDB)
	cfg.Store.PostgresURL = getEnvString(logger, "POSTGRES_URL", cfg.Store.PostgresURL)
	cfg.CatalogFile = getEnvString(logger, "CATALOG_FILE", cfg.CatalogFile)
	cfg.MediaRoot = getEnvString(logger, "MEDIA_ROOT", cfg.MediaRoot)
	cfg.FFprobePath = getEnvString(logger, "FFPROBE_PATH", cfg.FFprobePath)
	cfg.SampleInterval = getEnvDuration(logger, "SAMPLE_INTERVAL", cfg.SampleInterval)
	cfg.PositionSaveInterval = getEnvDuration(logger, "POSITION_SAVE_INTERVAL", cfg.PositionSaveInterval)
	cfg.MaintenanceCron = getEnvString(logger, "MAINTENANCE_CRON", cfg.MaintenanceCron)
	cfg.APIKeyHash = getEnvString(logger, "API_KEY_HASH", cfg.APIKeyHash)
	if origins := getEnvString(logger, "CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	cfg.RateLimitRPM = getEnvInt(logger, "RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.OTelEnabled = getEnvBool(logger, "OTEL_ENABLED", cfg.OTelEnabled)
	cfg.LogLevel = getEnvString(logger, "LOG_LEVEL", cfg.LogLevel)
}

func (c Config) validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendSQLite, BackendBadger, BackendFile, BackendMemory:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("SAMPLE_INTERVAL must be positive, got %s", c.SampleInterval))
	}
	if c.PositionSaveInterval < 0 {
		errs = append(errs, fmt.Errorf("POSITION_SAVE_INTERVAL must not be negative, got %s", c.PositionSaveInterval))
	}
	if c.RateLimitRPM < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPM must not be negative, got %d", c.RateLimitRPM))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// AuthEnabled reports whether mutating routes require an API key.
func (c Config) AuthEnabled() bool {
	return c.APIKeyHash != ""
}

func getEnvString(logger zerolog.Logger, key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "hash") || strings.Contains(lower, "url") {
		logger.Debug().Str("key", key).Bool("sensitive", true).Msg("using environment variable")
	} else {
		logger.Debug().Str("key", key).Str("value", value).Msg("using environment variable")
	}
	return value
}

func getEnvInt(logger zerolog.Logger, key string, defaultValue int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", value).Int("default", defaultValue).Msg("invalid integer, using default")
		return defaultValue
	}
	return i
}

func getEnvDuration(logger zerolog.Logger, key string, defaultValue time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", value).Dur("default", defaultValue).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}

func getEnvBool(logger zerolog.Logger, key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", value).Bool("default", defaultValue).Msg("invalid boolean, using default")
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
