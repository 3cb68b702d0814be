// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/security"
)

// Default values and bounds.
const (
	DefaultStartURL        = "https://marketplace.secondlife.com/products/search?search%5Bpage%5D=1&search%5Bper_page%5D=12&search%5Blayout%5D=list"
	DefaultPollInterval    = 500 * time.Millisecond
	DefaultScrollThreshold = 500
	DefaultMaxBodyBytes    = 8 << 20
	DefaultLogFile         = "marketplace-scroll.log"

	minPollInterval    = 50 * time.Millisecond
	maxPollInterval    = 10 * time.Second
	maxScrollThreshold = 100000
	minMaxBodyBytes    = 64 << 10
	maxMaxBodyBytes    = 256 << 20
	maxFetchTimeout    = 5 * time.Minute
)

// Config holds all application configuration.
// Configuration is loaded from environment variables at startup.
type Config struct {
	// Page to open
	StartURL string

	// Browser settings
	Headless         bool
	BrowserPath      string
	IgnoreCertErrors bool

	// Scroll monitor
	PollInterval    time.Duration
	ScrollThreshold int
	AutoScroll      bool

	// Page loader
	FetchTimeout time.Duration // zero means no timeout
	MaxBodyBytes int64

	// Status server
	Host              string
	Port              int
	StatusEnabled     bool
	PrometheusEnabled bool

	// Logging
	LogLevel string
	LogFile  string

	// Terminal dashboard
	TUIEnabled bool

	// Selectors settings
	SelectorsPath      string // Path to external selectors.yaml override file
	SelectorsHotReload bool   // Enable file watching for hot-reload of selectors
}

// Load loads configuration from environment variables.
// Returns a Config with values from environment or sensible defaults.
func Load() *Config {
	return &Config{
		StartURL: getEnvString("START_URL", DefaultStartURL),

		Headless:         getEnvBool("HEADLESS", false),
		BrowserPath:      getEnvString("BROWSER_PATH", ""),
		IgnoreCertErrors: getEnvBool("IGNORE_CERT_ERRORS", false),

		PollInterval:    getEnvDuration("POLL_INTERVAL", DefaultPollInterval),
		ScrollThreshold: getEnvInt("SCROLL_THRESHOLD", DefaultScrollThreshold),
		AutoScroll:      getEnvBool("AUTO_SCROLL", false),

		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 0),
		MaxBodyBytes: getEnvInt64("MAX_BODY_BYTES", DefaultMaxBodyBytes),

		// Status server defaults to localhost; set HOST=0.0.0.0 to expose it
		Host:              getEnvString("HOST", "127.0.0.1"),
		Port:              getEnvInt("PORT", 8192),
		StatusEnabled:     getEnvBool("STATUS_ENABLED", true),
		PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", false),

		LogLevel: getEnvString("LOG_LEVEL", "info"),
		LogFile:  getEnvString("LOG_FILE", ""),

		TUIEnabled: getEnvBool("TUI_ENABLED", false),

		SelectorsPath:      getEnvString("SELECTORS_PATH", ""),
		SelectorsHotReload: getEnvBool("SELECTORS_HOT_RELOAD", false),
	}
}

// Validate checks configuration values and logs warnings for invalid values.
// Invalid values are corrected to sensible defaults.
func (c *Config) Validate() {
	if err := security.ValidateURL(c.StartURL); err != nil {
		log.Warn().
			Err(err).
			Str("url", security.RedactURL(c.StartURL)).
			Msg("Invalid START_URL, using default")
		c.StartURL = DefaultStartURL
	}

	// Port validation - allow 0 for system-assigned ports
	if c.Port < 0 || c.Port > 65535 {
		log.Warn().Int("port", c.Port).Msg("Invalid port, using default 8192")
		c.Port = 8192
	}

	c.BrowserPath = validatePath("BROWSER_PATH", c.BrowserPath)

	if c.PollInterval < minPollInterval {
		log.Warn().
			Dur("interval", c.PollInterval).
			Dur("min", minPollInterval).
			Msg("Poll interval too short, using minimum")
		c.PollInterval = minPollInterval
	} else if c.PollInterval > maxPollInterval {
		log.Warn().
			Dur("interval", c.PollInterval).
			Dur("max", maxPollInterval).
			Msg("Poll interval too long, using maximum")
		c.PollInterval = maxPollInterval
	}

	if c.ScrollThreshold < 0 {
		log.Warn().Int("threshold", c.ScrollThreshold).Msg("Negative scroll threshold, using default 500")
		c.ScrollThreshold = DefaultScrollThreshold
	} else if c.ScrollThreshold > maxScrollThreshold {
		log.Warn().
			Int("threshold", c.ScrollThreshold).
			Int("max", maxScrollThreshold).
			Msg("Scroll threshold too large, capping to maximum")
		c.ScrollThreshold = maxScrollThreshold
	}

	if c.FetchTimeout > maxFetchTimeout {
		log.Warn().
			Dur("timeout", c.FetchTimeout).
			Dur("max", maxFetchTimeout).
			Msg("Fetch timeout too long, capping to maximum")
		c.FetchTimeout = maxFetchTimeout
	}

	if c.MaxBodyBytes < minMaxBodyBytes {
		log.Warn().Int64("bytes", c.MaxBodyBytes).Msg("Body limit too low, using minimum")
		c.MaxBodyBytes = minMaxBodyBytes
	} else if c.MaxBodyBytes > maxMaxBodyBytes {
		log.Warn().
			Int64("bytes", c.MaxBodyBytes).
			Int64("max", maxMaxBodyBytes).
			Msg("Body limit too high, capping to maximum")
		c.MaxBodyBytes = maxMaxBodyBytes
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("level", c.LogLevel).Msg("Invalid log level, using 'info'")
		c.LogLevel = "info"
	}

	// The dashboard owns the terminal, so logs need somewhere else to go
	if c.TUIEnabled && c.LogFile == "" {
		log.Info().Str("path", DefaultLogFile).Msg("TUI enabled without LOG_FILE, logging to default file")
		c.LogFile = DefaultLogFile
	}
	c.LogFile = validatePath("LOG_FILE", c.LogFile)

	if c.PrometheusEnabled && !c.StatusEnabled {
		log.Warn().Msg("PROMETHEUS_ENABLED requires STATUS_ENABLED - metrics endpoint disabled")
		c.PrometheusEnabled = false
	}

	c.SelectorsPath = validatePath("SELECTORS_PATH", c.SelectorsPath)
	if c.SelectorsHotReload && c.SelectorsPath != "" {
		if _, err := os.Stat(c.SelectorsPath); os.IsNotExist(err) {
			log.Warn().
				Str("path", c.SelectorsPath).
				Msg("SelectorsPath does not exist - hot-reload will watch for file creation")
		}
	}
	if c.SelectorsHotReload && c.SelectorsPath == "" {
		log.Warn().Msg("SELECTORS_HOT_RELOAD enabled but SELECTORS_PATH not set - hot-reload disabled")
		c.SelectorsHotReload = false
	}

	if c.IgnoreCertErrors {
		log.Warn().Msg("WARNING: IGNORE_CERT_ERRORS enabled - this exposes you to MITM attacks")
	}
}

// Addr returns the status server listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// validatePath rejects paths with traversal sequences and warns on relative ones.
func validatePath(key, path string) string {
	if path == "" {
		return ""
	}
	if strings.Contains(path, "..") {
		log.Error().
			Str("key", key).
			Str("path", path).
			Msg("Path contains traversal sequence (..), ignoring")
		return ""
	}
	if !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "C:") && !strings.HasPrefix(path, "c:") {
		log.Debug().
			Str("key", key).
			Str("path", path).
			Msg("Path is relative to the working directory")
	}
	return path
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return int(intValue)
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Int64("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Bool("default", defaultValue).
			Msg("Invalid boolean in environment variable, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			if duration > 0 {
				return duration
			}
			log.Warn().
				Str("key", key).
				Str("value", value).
				Dur("default", defaultValue).
				Msg("Duration must be positive, using default")
			return defaultValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Dur("default", defaultValue).
			Msg("Invalid duration in environment variable, using default")
	}
	return defaultValue
}
