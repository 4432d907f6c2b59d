// Package config loads runtime settings from titanroof.toml and TITANROOF_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file base name searched for when no path is given.
const FileName = "titanroof"

// Config holds every tunable setting.
type Config struct {
	Autosave AutosaveConfig `mapstructure:"autosave"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	View     ViewConfig     `mapstructure:"view"`
	PDF      PDFConfig      `mapstructure:"pdf"`
}

type AutosaveConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type StorageConfig struct {
	Dir      string `mapstructure:"dir"`
	Database string `mapstructure:"database"`
}

// ServerConfig configures the read-only export surface. An empty Addr
// disables it.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type ViewConfig struct {
	ResizeDebounce time.Duration `mapstructure:"resize_debounce"`
}

type PDFConfig struct {
	Pdftoppm string `mapstructure:"pdftoppm"`
	DPI      int    `mapstructure:"dpi"`
}

// DatabasePath returns the autosave database location.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Storage.Database) {
		return c.Storage.Database
	}
	return filepath.Join(c.Storage.Dir, c.Storage.Database)
}

// Validate rejects settings the editor cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Autosave.Interval <= 0:
		return fmt.Errorf("autosave.interval must be positive, got %s", c.Autosave.Interval)
	case c.View.ResizeDebounce < 0:
		return fmt.Errorf("view.resize_debounce must not be negative")
	case c.PDF.DPI <= 0:
		return fmt.Errorf("pdf.dpi must be positive, got %d", c.PDF.DPI)
	case c.Storage.Database == "":
		return fmt.Errorf("storage.database is required")
	}
	return nil
}

// DefaultStorageDir is the per-user data directory.
func DefaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".titanroof"
	}
	return filepath.Join(dir, "titanroof")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("autosave.enabled", true)
	v.SetDefault("autosave.interval", 5*time.Minute)
	v.SetDefault("storage.dir", DefaultStorageDir())
	v.SetDefault("storage.database", "autosave.db")
	v.SetDefault("server.addr", "")
	v.SetDefault("view.resize_debounce", 100*time.Millisecond)
	v.SetDefault("pdf.pdftoppm", "pdftoppm")
	v.SetDefault("pdf.dpi", 144)
}

// Load reads path, or titanroof.toml from the working directory and the
// storage directory when path is empty. A missing search-path file is not an
// error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TITANROOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultStorageDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
