package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FRETLOG_REMOTE_MODE.
const EnvPrefix = "FRETLOG"

// Loader handles loading configuration from multiple sources
type Loader struct {
	path string
}

// NewLoader creates a loader. An empty path skips the config file.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load applies the cascade: defaults, config file, FRETLOG_* environment.
// Command line flags are applied afterwards by LoadWithOverrides.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, NewConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.path != "" {
		v.SetConfigFile(l.path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadWithOverrides loads configuration and applies command line overrides
func (l *Loader) LoadWithOverrides(overrides *ConfigOverrides) (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		overrides.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("remote.mode", d.Remote.Mode)
	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("remote.rate_limit", d.Remote.RateLimit)
	v.SetDefault("remote.rate_burst", d.Remote.RateBurst)
	v.SetDefault("remote.user_agent", d.Remote.UserAgent)
	v.SetDefault("remote.database_path", d.Remote.DatabasePath)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)

	v.SetDefault("timer.tick_interval", d.Timer.TickInterval)

	v.SetDefault("stats.memo_size", d.Stats.MemoSize)
	v.SetDefault("stats.top_limit", d.Stats.TopLimit)
	v.SetDefault("stats.recent_limit", d.Stats.RecentLimit)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("application.timeout", d.Application.Timeout)
	v.SetDefault("application.verbose", d.Application.Verbose)

	v.SetDefault("display.date_format", d.Display.DateFormat)
	v.SetDefault("display.summary_width", d.Display.SummaryWidth)
}

// ConfigOverrides holds command line flag overrides. Nil fields are left alone.
type ConfigOverrides struct {
	RemoteMode   *string
	BaseURL      *string
	DatabasePath *string
	CacheBackend *string
	CachePath    *string
	LogLevel     *string
	Timeout      *time.Duration
	Verbose      *bool
}

func (o *ConfigOverrides) apply(cfg *Config) {
	if o.RemoteMode != nil {
		cfg.Remote.Mode = *o.RemoteMode
	}
	if o.BaseURL != nil {
		cfg.Remote.BaseURL = *o.BaseURL
		if o.RemoteMode == nil {
			cfg.Remote.Mode = RemoteModeHTTP
		}
	}
	if o.DatabasePath != nil {
		cfg.Remote.DatabasePath = *o.DatabasePath
	}
	if o.CacheBackend != nil {
		cfg.Cache.Backend = *o.CacheBackend
	}
	if o.CachePath != nil {
		cfg.Cache.Path = *o.CachePath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.Timeout != nil {
		cfg.Application.Timeout = *o.Timeout
	}
	if o.Verbose != nil {
		cfg.Application.Verbose = *o.Verbose
		if *o.Verbose && o.LogLevel == nil {
			cfg.Logging.Level = "debug"
		}
	}
}
