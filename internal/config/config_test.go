package config

import (
	"testing"
	"time"
)

var envVars = []string{
	"START_URL", "HEADLESS", "BROWSER_PATH", "IGNORE_CERT_ERRORS",
	"POLL_INTERVAL", "SCROLL_THRESHOLD", "AUTO_SCROLL",
	"FETCH_TIMEOUT", "MAX_BODY_BYTES",
	"HOST", "PORT", "STATUS_ENABLED", "PROMETHEUS_ENABLED",
	"LOG_LEVEL", "LOG_FILE", "TUI_ENABLED",
	"SELECTORS_PATH", "SELECTORS_HOT_RELOAD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.StartURL != DefaultStartURL {
		t.Errorf("Expected default start URL, got %q", cfg.StartURL)
	}
	if cfg.Headless {
		t.Error("Expected Headless to be false by default")
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("Expected default poll interval 500ms, got %v", cfg.PollInterval)
	}
	if cfg.ScrollThreshold != 500 {
		t.Errorf("Expected default scroll threshold 500, got %d", cfg.ScrollThreshold)
	}
	if cfg.FetchTimeout != 0 {
		t.Errorf("Expected no fetch timeout by default, got %v", cfg.FetchTimeout)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("Expected default body limit %d, got %d", DefaultMaxBodyBytes, cfg.MaxBodyBytes)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host '127.0.0.1', got %q", cfg.Host)
	}
	if cfg.Port != 8192 {
		t.Errorf("Expected default port 8192, got %d", cfg.Port)
	}
	if !cfg.StatusEnabled {
		t.Error("Expected StatusEnabled to be true by default")
	}
	if cfg.PrometheusEnabled {
		t.Error("Expected PrometheusEnabled to be false by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.LogLevel)
	}
	if cfg.TUIEnabled || cfg.AutoScroll || cfg.SelectorsHotReload {
		t.Error("Expected optional features to be disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("START_URL", "https://marketplace.secondlife.com/products/search?search%5Bpage%5D=3")
	t.Setenv("HEADLESS", "true")
	t.Setenv("BROWSER_PATH", "/usr/bin/chromium")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("SCROLL_THRESHOLD", "800")
	t.Setenv("AUTO_SCROLL", "true")
	t.Setenv("FETCH_TIMEOUT", "20s")
	t.Setenv("MAX_BODY_BYTES", "1048576")
	t.Setenv("PORT", "9999")
	t.Setenv("PROMETHEUS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TUI_ENABLED", "true")

	cfg := Load()

	if cfg.StartURL != "https://marketplace.secondlife.com/products/search?search%5Bpage%5D=3" {
		t.Errorf("Unexpected start URL %q", cfg.StartURL)
	}
	if !cfg.Headless {
		t.Error("Expected Headless to be true")
	}
	if cfg.BrowserPath != "/usr/bin/chromium" {
		t.Errorf("Expected BrowserPath '/usr/bin/chromium', got %q", cfg.BrowserPath)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("Expected poll interval 250ms, got %v", cfg.PollInterval)
	}
	if cfg.ScrollThreshold != 800 {
		t.Errorf("Expected threshold 800, got %d", cfg.ScrollThreshold)
	}
	if !cfg.AutoScroll {
		t.Error("Expected AutoScroll to be true")
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Errorf("Expected fetch timeout 20s, got %v", cfg.FetchTimeout)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("Expected body limit 1MiB, got %d", cfg.MaxBodyBytes)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.Port)
	}
	if !cfg.PrometheusEnabled {
		t.Error("Expected PrometheusEnabled to be true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.LogLevel)
	}
	if !cfg.TUIEnabled {
		t.Error("Expected TUIEnabled to be true")
	}
}

func TestInvalidEnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not_a_number")
	t.Setenv("HEADLESS", "not_a_bool")
	t.Setenv("POLL_INTERVAL", "not_a_duration")
	t.Setenv("FETCH_TIMEOUT", "-5s")
	t.Setenv("MAX_BODY_BYTES", "lots")

	cfg := Load()

	if cfg.Port != 8192 {
		t.Errorf("Expected default port 8192 for invalid value, got %d", cfg.Port)
	}
	if cfg.Headless {
		t.Error("Expected default Headless (false) for invalid value")
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("Expected default poll interval for invalid value, got %v", cfg.PollInterval)
	}
	if cfg.FetchTimeout != 0 {
		t.Errorf("Expected no fetch timeout for negative value, got %v", cfg.FetchTimeout)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("Expected default body limit for invalid value, got %d", cfg.MaxBodyBytes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		check func(t *testing.T, c *Config)
	}{
		{
			name: "invalid start URL falls back to default",
			cfg:  Config{StartURL: "file:///etc/passwd"},
			check: func(t *testing.T, c *Config) {
				if c.StartURL != DefaultStartURL {
					t.Errorf("StartURL = %q, want default", c.StartURL)
				}
			},
		},
		{
			name: "poll interval clamped",
			cfg:  Config{PollInterval: time.Millisecond},
			check: func(t *testing.T, c *Config) {
				if c.PollInterval != minPollInterval {
					t.Errorf("PollInterval = %v, want %v", c.PollInterval, minPollInterval)
				}
			},
		},
		{
			name: "negative threshold reset",
			cfg:  Config{ScrollThreshold: -1},
			check: func(t *testing.T, c *Config) {
				if c.ScrollThreshold != DefaultScrollThreshold {
					t.Errorf("ScrollThreshold = %d, want %d", c.ScrollThreshold, DefaultScrollThreshold)
				}
			},
		},
		{
			name: "fetch timeout capped",
			cfg:  Config{FetchTimeout: time.Hour},
			check: func(t *testing.T, c *Config) {
				if c.FetchTimeout != maxFetchTimeout {
					t.Errorf("FetchTimeout = %v, want %v", c.FetchTimeout, maxFetchTimeout)
				}
			},
		},
		{
			name: "body limit raised to minimum",
			cfg:  Config{MaxBodyBytes: 10},
			check: func(t *testing.T, c *Config) {
				if c.MaxBodyBytes != minMaxBodyBytes {
					t.Errorf("MaxBodyBytes = %d, want %d", c.MaxBodyBytes, minMaxBodyBytes)
				}
			},
		},
		{
			name: "invalid port reset",
			cfg:  Config{Port: 70000},
			check: func(t *testing.T, c *Config) {
				if c.Port != 8192 {
					t.Errorf("Port = %d, want 8192", c.Port)
				}
			},
		},
		{
			name: "invalid log level reset",
			cfg:  Config{LogLevel: "verbose"},
			check: func(t *testing.T, c *Config) {
				if c.LogLevel != "info" {
					t.Errorf("LogLevel = %q, want info", c.LogLevel)
				}
			},
		},
		{
			name: "tui gets a log file",
			cfg:  Config{TUIEnabled: true},
			check: func(t *testing.T, c *Config) {
				if c.LogFile != DefaultLogFile {
					t.Errorf("LogFile = %q, want %q", c.LogFile, DefaultLogFile)
				}
			},
		},
		{
			name: "prometheus needs status server",
			cfg:  Config{PrometheusEnabled: true, StatusEnabled: false},
			check: func(t *testing.T, c *Config) {
				if c.PrometheusEnabled {
					t.Error("PrometheusEnabled should be disabled without the status server")
				}
			},
		},
		{
			name: "hot reload without path disabled",
			cfg:  Config{SelectorsHotReload: true},
			check: func(t *testing.T, c *Config) {
				if c.SelectorsHotReload {
					t.Error("SelectorsHotReload should be disabled without a path")
				}
			},
		},
		{
			name: "path traversal rejected",
			cfg:  Config{SelectorsPath: "/etc/../secret.yaml", BrowserPath: "../chrome"},
			check: func(t *testing.T, c *Config) {
				if c.SelectorsPath != "" || c.BrowserPath != "" {
					t.Errorf("paths = %q, %q; want both cleared", c.SelectorsPath, c.BrowserPath)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.StartURL == "" {
				cfg.StartURL = DefaultStartURL
			}
			if cfg.PollInterval == 0 {
				cfg.PollInterval = DefaultPollInterval
			}
			if cfg.MaxBodyBytes == 0 {
				cfg.MaxBodyBytes = DefaultMaxBodyBytes
			}
			if cfg.LogLevel == "" {
				cfg.LogLevel = "info"
			}
			cfg.Validate()
			tt.check(t, &cfg)
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 8192}
	if got := cfg.Addr(); got != "127.0.0.1:8192" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8192", got)
	}
}
