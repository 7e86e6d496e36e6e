// Package config loads the streaky configuration file and initializes
// logging. Configuration lives at ~/.streaky/config.yaml; every key has a
// default, and a handful of environment variables override the cache
// section for scripting.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umq7573/streaky-shooter/internal/cache"
)

// Environment variable overrides for the cache section.
const (
	EnvCacheEnabled   = "STREAKY_CACHE_ENABLED"
	EnvCacheDir       = "STREAKY_CACHE_DIR"
	EnvCacheMaxSizeMB = "STREAKY_CACHE_MAX_SIZE_MB"
)

// Duration is a time.Duration that YAML-round-trips in time.ParseDuration
// syntax ("24h", "600ms").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// CacheConfig is the cache section of the config file.
type CacheConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Directory          string   `yaml:"directory"`
	DefaultTTL         Duration `yaml:"default_ttl"`
	CurrentSeasonTTL   Duration `yaml:"current_season_ttl"`
	CompletedSeasonTTL Duration `yaml:"completed_season_ttl"`
	MaxSizeMB          int      `yaml:"max_size_mb"`
	Compression        bool     `yaml:"compression"`
}

// LoggingConfig is the logging section.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console|json
}

// APIConfig is the remote stats API section. An empty BaseURL means the
// production stats endpoint.
type APIConfig struct {
	BaseURL    string   `yaml:"base_url"`
	Delay      Duration `yaml:"delay"`
	MaxRetries int      `yaml:"max_retries"`
	Timeout    Duration `yaml:"timeout"`
}

// Config is the full configuration.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	API     APIConfig     `yaml:"api"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled:            true,
			Directory:          filepath.Join(homeDir(), ".streaky", "cache"),
			DefaultTTL:         Duration(cache.DefaultTTL),
			CurrentSeasonTTL:   Duration(cache.CurrentSeasonTTL),
			CompletedSeasonTTL: Duration(cache.CompletedSeasonTTL),
			MaxSizeMB:          cache.DefaultMaxSizeMB,
			Compression:        false,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		API: APIConfig{
			Delay:      Duration(600 * time.Millisecond),
			MaxRetries: 3,
			Timeout:    Duration(60 * time.Second),
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".streaky", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads the config file at path (or the default location when path is
// empty), overlaying it on the defaults and then applying environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file, defaults apply.
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv applies environment variable overrides: the environment beats
// the file, CLI flags beat both.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvCacheEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.Cache.Directory = v
	}
	if v := os.Getenv(EnvCacheMaxSizeMB); v != "" {
		if mb, err := strconv.Atoi(v); err == nil && mb >= 0 {
			cfg.Cache.MaxSizeMB = mb
		}
	}
}

// ManagerConfig converts the cache section into the cache package's
// configuration value.
func (c CacheConfig) ManagerConfig() cache.Config {
	return cache.Config{
		Enabled:   c.Enabled,
		Directory: c.Directory,
		TTL: cache.TTLPolicy{
			Default:   c.DefaultTTL.Std(),
			Current:   c.CurrentSeasonTTL.Std(),
			Completed: c.CompletedSeasonTTL.Std(),
		},
		MaxSizeBytes: int64(c.MaxSizeMB) << 20,
		Compression:  c.Compression,
		Orphans:      cache.AdoptOrphans,
	}
}
