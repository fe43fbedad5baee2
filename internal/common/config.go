package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Browser     BrowserConfig  `toml:"browser"`
	Scraper     ScraperConfig  `toml:"scraper"`
	Sessions    SessionsConfig `toml:"sessions"`
	Storage     StorageConfig  `toml:"storage"`
	Export      ExportConfig   `toml:"export"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// BrowserConfig controls how each job's headless browser is launched
type BrowserConfig struct {
	Headless       bool    `toml:"headless"`
	NoSandbox      bool    `toml:"no_sandbox"`
	DisableGPU     bool    `toml:"disable_gpu"`
	UserAgent      string  `toml:"user_agent"`      // Empty keeps Chrome's own user agent
	DefaultTimeout string  `toml:"default_timeout"` // Upper bound for any single browser operation (e.g., "30s")
	LaunchRate     float64 `toml:"launch_rate"`     // Browser launches admitted per second
	LaunchBurst    int     `toml:"launch_burst"`    // Launches admitted back-to-back before rate applies
}

// ScraperConfig holds traversal tuning. Selector and timing constants live in the engine.
type ScraperConfig struct {
	DefaultMaxItems        int    `toml:"default_max_items"`        // Used when a request omits maxItems
	MaxConsecutiveFailures int    `toml:"max_consecutive_failures"` // Missing/failed entries in a row before the loop stops
	MaxDuplicates          int    `toml:"max_duplicates"`           // Already-seen detail URLs in a row before the loop stops
	SidebarTimeout         string `toml:"sidebar_timeout"`          // Wait for the list container after navigation
	KeyboardFallback       bool   `toml:"keyboard_fallback"`        // Retry an unchanged click with Home/ArrowDown + Enter
}

// SessionsConfig controls eviction of finished sessions
type SessionsConfig struct {
	TTL           string `toml:"ttl"`            // Terminal sessions older than this are evicted (e.g., "1h")
	SweepSchedule string `toml:"sweep_schedule"` // Cron expression for the eviction sweep
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`          // Persist terminal sessions
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ExportConfig controls the timestamped results document
type ExportConfig struct {
	Dir        string `toml:"dir"`
	OnComplete bool   `toml:"on_complete"` // Also export jobs submitted over HTTP
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 3000,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Browser: BrowserConfig{
			Headless:       true,
			NoSandbox:      true,
			DisableGPU:     true,
			DefaultTimeout: "30s",
			LaunchRate:     1,
			LaunchBurst:    2,
		},
		Scraper: ScraperConfig{
			DefaultMaxItems:        200,
			MaxConsecutiveFailures: 3,
			MaxDuplicates:          5,
			SidebarTimeout:         "15s",
			KeyboardFallback:       false,
		},
		Sessions: SessionsConfig{
			TTL:           "1h",
			SweepSchedule: "@every 5m",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: true,
				Path:    "./data",
			},
		},
		Export: ExportConfig{
			Dir:        "./exports",
			OnComplete: false,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MAPLIST_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MAPLIST_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MAPLIST_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("MAPLIST_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MAPLIST_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Browser configuration
	if headless := os.Getenv("MAPLIST_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if userAgent := os.Getenv("MAPLIST_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if timeout := os.Getenv("MAPLIST_BROWSER_DEFAULT_TIMEOUT"); timeout != "" {
		config.Browser.DefaultTimeout = timeout
	}

	// Scraper configuration
	if maxItems := os.Getenv("MAPLIST_SCRAPER_DEFAULT_MAX_ITEMS"); maxItems != "" {
		if m, err := strconv.Atoi(maxItems); err == nil {
			config.Scraper.DefaultMaxItems = m
		}
	}
	if fallback := os.Getenv("MAPLIST_SCRAPER_KEYBOARD_FALLBACK"); fallback != "" {
		if f, err := strconv.ParseBool(fallback); err == nil {
			config.Scraper.KeyboardFallback = f
		}
	}

	// Sessions configuration
	if ttl := os.Getenv("MAPLIST_SESSIONS_TTL"); ttl != "" {
		config.Sessions.TTL = ttl
	}

	// Storage configuration
	if badgerPath := os.Getenv("MAPLIST_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if enabled := os.Getenv("MAPLIST_BADGER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Storage.Badger.Enabled = e
		}
	}

	// Export configuration
	if dir := os.Getenv("MAPLIST_EXPORT_DIR"); dir != "" {
		config.Export.Dir = dir
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ParseDurationOr parses a duration string, returning fallback when it is empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
