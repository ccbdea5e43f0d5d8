/**
 * @description
 * Configuration loader for the LicitaBot backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (DATABASE_URL) are missing.
 * - REDIS_URL is optional: an empty value disables the cache and rate limiter.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Upstream  UpstreamConfig
	Scraper   ScraperConfig
	Importer  ImporterConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Analytics AnalyticsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds the database settings.
// An empty URL or a path-like URL selects the embedded SQLite backend.
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings. Empty URL = cache disabled.
type RedisConfig struct {
	URL string
}

// UpstreamConfig holds the procurement catalog API settings
type UpstreamConfig struct {
	BaseURL        string
	AttachmentsURL string
	APIKey         string
	Timeout        time.Duration
}

// ScraperConfig tunes the listing and detail scrapers
type ScraperConfig struct {
	ListingInterval time.Duration
	DetailInterval  time.Duration
	WindowDays      int
	DetailBatchSize int
	PagePacing      time.Duration
	DetailPacing    time.Duration
}

// ImporterConfig holds the monthly archive settings
type ImporterConfig struct {
	ArchiveURLTemplate string // %s is replaced with YYYY-MM
	MonthlyEnabled     bool
}

// BreakerConfig tunes the circuit breakers
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// RateLimitConfig holds per-bucket limits
type RateLimitConfig struct {
	GlobalMax    int
	GlobalWindow time.Duration
	MLMax        int
	MLWindow     time.Duration
	SearchMax    int
	SearchWindow time.Duration
}

// AnalyticsConfig tunes the price engine
type AnalyticsConfig struct {
	RecommendedPercentile float64 // historically 42; no documented derivation, kept tunable
	RecencyYears          int
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("UPSTREAM_BASE_URL", "https://buscador.mercadopublico.cl/compra-agil"),
			AttachmentsURL: getEnv("UPSTREAM_ATTACHMENTS_URL", "https://buscador.mercadopublico.cl/adjunto-compra-agil/v1/adjuntos-compra-agil/listar"),
			APIKey:         sanitizeCredential(getEnv("UPSTREAM_API_KEY", "")),
			Timeout:        time.Duration(getEnvAsInt("UPSTREAM_TIMEOUT_SECONDS", 20)) * time.Second,
		},
		Scraper: ScraperConfig{
			ListingInterval: time.Duration(getEnvAsInt("LISTING_INTERVAL_MIN", 60)) * time.Minute,
			DetailInterval:  time.Duration(getEnvAsInt("DETAIL_INTERVAL_MIN", 120)) * time.Minute,
			WindowDays:      getEnvAsInt("LISTING_WINDOW_DAYS", 30),
			DetailBatchSize: getEnvAsInt("DETAIL_BATCH_SIZE", 50),
			PagePacing:      time.Duration(getEnvAsInt("LISTING_PACING_MS", 500)) * time.Millisecond,
			DetailPacing:    time.Duration(getEnvAsInt("DETAIL_PACING_MS", 300)) * time.Millisecond,
		},
		Importer: ImporterConfig{
			ArchiveURLTemplate: getEnv("ARCHIVE_URL_TEMPLATE", "https://transparenciachc.blob.core.windows.net/trnspchc/COT_%s.zip"),
			MonthlyEnabled:     getEnvAsBool("MONTHLY_IMPORT_ENABLED", false),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:  time.Duration(getEnvAsInt("CB_RECOVERY_SECONDS", 60)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			GlobalMax:    getEnvAsInt("RL_GLOBAL_MAX", 1000),
			GlobalWindow: time.Duration(getEnvAsInt("RL_GLOBAL_WINDOW_SECONDS", 60)) * time.Second,
			MLMax:        getEnvAsInt("RL_ML_MAX", 50),
			MLWindow:     time.Duration(getEnvAsInt("RL_ML_WINDOW_SECONDS", 60)) * time.Second,
			SearchMax:    getEnvAsInt("RL_SEARCH_MAX", 200),
			SearchWindow: time.Duration(getEnvAsInt("RL_SEARCH_WINDOW_SECONDS", 60)) * time.Second,
		},
		Analytics: AnalyticsConfig{
			RecommendedPercentile: getEnvAsFloat("PRICE_PERCENTILE", 42),
			RecencyYears:          getEnvAsInt("MATCH_RECENCY_YEARS", 3),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Upstream.APIKey == "" && cfg.Server.Env != "test" {
		fmt.Println("Warning: UPSTREAM_API_KEY is missing. Upstream calls will be rejected.")
	}
	if cfg.Analytics.RecommendedPercentile <= 0 || cfg.Analytics.RecommendedPercentile >= 100 {
		return fmt.Errorf("PRICE_PERCENTILE must be in (0, 100), got %v", cfg.Analytics.RecommendedPercentile)
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
