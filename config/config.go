package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

// Fetch modes
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
)

// Config represents the run parameters of one pipeline execution
type Config struct {
	// Environment
	Environment string

	// Paths
	CriteriaPath string
	OutputPath   string

	// Search site
	SearchBaseURL string

	// Fetching
	FetchMode       string
	PageLoadTimeout time.Duration
	RenderWait      time.Duration
	PageDelay       time.Duration

	// Browser session
	Headless         bool
	ChromeBin        string
	ChromeControlURL string

	// Memcache page cache, disabled when MemcacheAddr is empty
	MemcacheAddr string
	PageCacheTTL time.Duration

	// Redis progress stream, disabled when RedisAddr is empty
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// SQLite run archive, disabled when ArchivePath is empty
	ArchivePath string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Environment:          getEnv("APP_ENVIRONMENT", "development"),
		CriteriaPath:         getEnv("SCRAPE_CONFIG_PATH", "scrape_config.json"),
		OutputPath:           getEnv("OUTPUT_PATH", "vehicle-price-analytics-app/public/vehicle_data.json"),
		SearchBaseURL:        strings.TrimRight(getEnv("SEARCH_BASE_URL", "https://riyasewana.com/search"), "/"),
		FetchMode:            strings.ToLower(getEnv("FETCH_MODE", FetchModeBrowser)),
		PageLoadTimeout:      getSeconds("PAGE_LOAD_TIMEOUT_SECONDS", 60),
		RenderWait:           getSeconds("RENDER_WAIT_SECONDS", 4),
		PageDelay:            getSeconds("PAGE_DELAY_SECONDS", 1),
		Headless:             getBool("HEADLESS", true),
		ChromeBin:            getEnv("CHROME_BIN", ""),
		ChromeControlURL:     getEnv("CHROME_CONTROL_URL", ""),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		PageCacheTTL:         getSeconds("PAGE_CACHE_TTL_SECONDS", 600),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "vehicle:progress"),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),
		ArchivePath:          getEnv("ARCHIVE_PATH", ""),
	}
}

// Validate checks the run parameters
func (c *Config) Validate() error {
	if c.OutputPath == "" {
		return crawlerrors.NewValidation("OUTPUT_PATH", "output path must not be empty")
	}
	if c.SearchBaseURL == "" {
		return crawlerrors.NewValidation("SEARCH_BASE_URL", "search base URL must not be empty")
	}
	if c.FetchMode != FetchModeBrowser && c.FetchMode != FetchModeHTTP {
		return crawlerrors.NewValidation("FETCH_MODE", fmt.Sprintf("unknown fetch mode %q", c.FetchMode))
	}
	if c.PageLoadTimeout <= 0 {
		return crawlerrors.NewValidation("PAGE_LOAD_TIMEOUT_SECONDS", "page load timeout must be positive")
	}
	if c.RenderWait < 0 || c.PageDelay < 0 {
		return crawlerrors.NewValidation("PAGE_DELAY_SECONDS", "delays must not be negative")
	}
	if c.RedisAddr != "" && c.RedisStream == "" {
		return crawlerrors.NewValidation("REDIS_STREAM", "stream name is required when REDIS_ADDR is set")
	}
	return nil
}

// IsProduction reports whether the worker runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getInt(key, defaultSeconds)) * time.Second
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
