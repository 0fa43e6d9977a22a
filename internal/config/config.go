// Package config loads cache-engine configuration from file, environment
// and defaults, following viper's layered precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DateTimeKind forces the time.Time.Location a deserialized value is
// given, so values round-trip with a consistent kind regardless of the
// backend's own default.
type DateTimeKind string

const (
	// KindUnset leaves deserialized timestamps with whatever location
	// they were encoded with.
	KindUnset DateTimeKind = ""
	// KindUTC forces UTC on deserialization.
	KindUTC DateTimeKind = "utc"
	// KindLocal forces the local zone on deserialization.
	KindLocal DateTimeKind = "local"
)

// Location returns the time.Location this kind forces, or nil if unset.
func (k DateTimeKind) Location() *time.Location {
	switch k {
	case KindUTC:
		return time.UTC
	case KindLocal:
		return time.Local
	default:
		return nil
	}
}

// Config holds cache-engine configuration.
type Config struct {
	// ApplicationName namespaces default cache file paths and the
	// encrypted cache's keyring service name.
	ApplicationName string `mapstructure:"application_name"`

	// ForcedDateTimeKind coerces deserialized DateTime.Kind.
	ForcedDateTimeKind DateTimeKind `mapstructure:"forced_date_time_kind"`

	// MaxBatchSize bounds how many operations the queue worker drains
	// into a single batch.
	MaxBatchSize int `mapstructure:"max_batch_size"`

	// FlushOnWriteCount is loaded from configuration (0 by default), but
	// no cache in this module reads it: no automatic Flush is enqueued.
	FlushOnWriteCount int `mapstructure:"flush_on_write_count"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ApplicationName:    "akavache",
		ForcedDateTimeKind: KindUnset,
		MaxBatchSize:       64,
		FlushOnWriteCount:  0,
	}
}

// Load reads configuration from file and environment, checking
// directories in order: current directory, then $XDG_CONFIG_HOME,
// then $HOME.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("akavache")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "akavache"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "akavache"))
	}

	setDefaults(v)

	v.SetEnvPrefix("AKAVACHE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("application_name", d.ApplicationName)
	v.SetDefault("forced_date_time_kind", string(d.ForcedDateTimeKind))
	v.SetDefault("max_batch_size", d.MaxBatchSize)
	v.SetDefault("flush_on_write_count", d.FlushOnWriteCount)
}

// BaseDir returns the directory cache files default to, rooted under
// $XDG_DATA_HOME (or ~/.local/share when it is unset) and namespaced by
// ApplicationName.
func (c *Config) BaseDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, c.ApplicationName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", c.ApplicationName), nil
}

// EnsureBaseDir creates BaseDir if it doesn't exist and returns it.
func (c *Config) EnsureBaseDir() (string, error) {
	dir, err := c.BaseDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create cache directory: %w", err)
	}
	return dir, nil
}
