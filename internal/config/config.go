package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	RemoteModeHTTP     = "http"
	RemoteModeEmbedded = "embedded"

	CacheBackendBolt   = "bolt"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all configuration options for fretlog
type Config struct {
	Remote      RemoteConfig      `mapstructure:"remote"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Timer       TimerConfig       `mapstructure:"timer"`
	Stats       StatsConfig       `mapstructure:"stats"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Application ApplicationConfig `mapstructure:"application"`
	Display     DisplayConfig     `mapstructure:"display"`
}

// RemoteConfig selects and tunes the authoritative store.
// Mode "http" talks to a FretLog server at BaseURL; "embedded" keeps the
// authoritative copy in a local SQLite file at DatabasePath.
type RemoteConfig struct {
	Mode         string        `mapstructure:"mode"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	UserAgent    string        `mapstructure:"user_agent"`
	DatabasePath string        `mapstructure:"database_path"`
}

// CacheConfig holds local snapshot cache configuration
type CacheConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig is used when the snapshot cache backend is redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TimerConfig holds session timer configuration
type TimerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// StatsConfig holds statistics defaults
type StatsConfig struct {
	MemoSize    int `mapstructure:"memo_size"`
	TopLimit    int `mapstructure:"top_limit"`
	RecentLimit int `mapstructure:"recent_limit"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ApplicationConfig holds application-level configuration
type ApplicationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Verbose bool          `mapstructure:"verbose"`
}

// DisplayConfig holds display formatting configuration
type DisplayConfig struct {
	DateFormat   string `mapstructure:"date_format"`
	SummaryWidth int    `mapstructure:"summary_width"`
}

// DataDir returns the default directory for local fretlog files.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".fretlog"
	}
	return filepath.Join(homeDir, ".fretlog")
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	dir := DataDir()

	return &Config{
		Remote: RemoteConfig{
			Mode:         RemoteModeEmbedded,
			BaseURL:      "http://localhost:5000",
			Timeout:      10 * time.Second,
			RateLimit:    10,
			RateBurst:    5,
			UserAgent:    "fretlog-cli",
			DatabasePath: filepath.Join(dir, "fretlog.db"),
		},
		Cache: CacheConfig{
			Backend: CacheBackendBolt,
			Path:    filepath.Join(dir, "snapshot.bolt"),
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Timer: TimerConfig{
			TickInterval: time.Second,
		},
		Stats: StatsConfig{
			MemoSize:    64,
			TopLimit:    5,
			RecentLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Application: ApplicationConfig{
			Timeout: 60 * time.Second,
		},
		Display: DisplayConfig{
			DateFormat:   "Mon Jan 2 2006",
			SummaryWidth: 60,
		},
	}
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	switch c.Remote.Mode {
	case RemoteModeHTTP:
		if c.Remote.BaseURL == "" {
			return &ConfigError{Field: "remote.base_url", Message: "base URL is required in http mode"}
		}
	case RemoteModeEmbedded:
		if c.Remote.DatabasePath == "" {
			return &ConfigError{Field: "remote.database_path", Message: "database path is required in embedded mode"}
		}
	default:
		return &ConfigError{Field: "remote.mode", Message: "must be one of http, embedded"}
	}
	if c.Remote.Timeout <= 0 {
		return &ConfigError{Field: "remote.timeout", Message: "timeout must be positive"}
	}
	if c.Remote.RateLimit < 0 {
		return &ConfigError{Field: "remote.rate_limit", Message: "rate limit cannot be negative"}
	}

	switch c.Cache.Backend {
	case CacheBackendBolt:
		if c.Cache.Path == "" {
			return &ConfigError{Field: "cache.path", Message: "cache path is required for the bolt backend"}
		}
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			return &ConfigError{Field: "cache.redis.addr", Message: "redis address is required for the redis backend"}
		}
	case CacheBackendMemory:
	default:
		return &ConfigError{Field: "cache.backend", Message: "must be one of bolt, redis, memory"}
	}

	if c.Timer.TickInterval < 10*time.Millisecond {
		return &ConfigError{Field: "timer.tick_interval", Message: "tick interval must be at least 10ms"}
	}

	if c.Stats.MemoSize < 1 {
		return &ConfigError{Field: "stats.memo_size", Message: "memo size must be at least 1"}
	}
	if c.Stats.TopLimit < 1 || c.Stats.RecentLimit < 1 {
		return &ConfigError{Field: "stats", Message: "limits must be at least 1"}
	}

	if c.Application.Timeout <= 0 {
		return &ConfigError{Field: "application.timeout", Message: "application timeout must be positive"}
	}
	if c.Display.SummaryWidth < 20 {
		return &ConfigError{Field: "display.summary_width", Message: "summary width must be at least 20"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
