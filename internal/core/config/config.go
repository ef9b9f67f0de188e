// Package config handles configuration loading and validation for wardnotify.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/stores"
)

// Config holds the application configuration.
type Config struct {
	Storage       StorageConfig         `yaml:"storage"`
	Cleanup       CleanupConfig         `yaml:"cleanup"`
	Notifications NotificationsConfig   `yaml:"notifications"`
	Settings      notify.SettingsUpdate `yaml:"settings"`
	DataDir       string                `yaml:"-"` // set by caller, not from config file
}

// StorageConfig selects where persisted settings live.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"` // empty = derived from the data directory
}

// CleanupConfig controls the recurring sweep.
type CleanupConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// NotificationsConfig tunes the lifecycle manager.
type NotificationsConfig struct {
	RemovalDelay    time.Duration `yaml:"removal_delay"`
	DedupWindow     time.Duration `yaml:"dedup_window"`
	DedupMaxEntries int           `yaml:"dedup_max_entries"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: stores.BackendSQLite,
		},
		Cleanup: CleanupConfig{
			Enabled: true,
			MaxAge:  24 * time.Hour,
		},
		Notifications: NotificationsConfig{
			DedupMaxEntries: 256,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.Path == "" && c.DataDir != "" {
		switch c.Storage.Backend {
		case stores.BackendSQLite:
			c.Storage.Path = filepath.Join(c.DataDir, "wardnotify.db")
		case stores.BackendFile:
			c.Storage.Path = filepath.Join(c.DataDir, "settings.json")
		}
	}
	if c.Cleanup.MaxAge == 0 {
		c.Cleanup.MaxAge = defaults.Cleanup.MaxAge
	}
	if c.Notifications.DedupMaxEntries == 0 {
		c.Notifications.DedupMaxEntries = defaults.Notifications.DedupMaxEntries
	}
}

// StoragePath returns the resolved storage location, or "" for the memory backend.
func (c *Config) StoragePath() string {
	if c.Storage.Backend == stores.BackendMemory {
		return ""
	}
	return c.Storage.Path
}
