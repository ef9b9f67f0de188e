package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/stores"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.applyDefaults()
	return &cfg
}

func TestValidate(t *testing.T) {
	volume := 1.5
	maxVisible := 0

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "redis" },
			field:  "storage.backend",
		},
		{
			name:   "missing path for sqlite",
			mutate: func(c *Config) { c.Storage.Path = "" },
			field:  "storage.path",
		},
		{
			name:   "zero max age",
			mutate: func(c *Config) { c.Cleanup.MaxAge = 0 },
			field:  "cleanup.max_age",
		},
		{
			name:   "negative removal delay",
			mutate: func(c *Config) { c.Notifications.RemovalDelay = -time.Second },
			field:  "notifications.removal_delay",
		},
		{
			name:   "negative dedup window",
			mutate: func(c *Config) { c.Notifications.DedupWindow = -time.Second },
			field:  "notifications.dedup_window",
		},
		{
			name:   "zero dedup entries",
			mutate: func(c *Config) { c.Notifications.DedupMaxEntries = 0 },
			field:  "notifications.dedup_max_entries",
		},
		{
			name:   "invalid sound volume",
			mutate: func(c *Config) { c.Settings.SoundVolume = &volume },
			field:  "settings.soundVolume",
		},
		{
			name:   "invalid max visible",
			mutate: func(c *Config) { c.Settings.MaxVisible = &maxVisible },
			field:  "settings.maxVisible",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}
}

func TestValidate_memory_backend_needs_no_path(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage = StorageConfig{Backend: stores.BackendMemory}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_valid_settings(t *testing.T) {
	cfg := validConfig(t)
	pos := notify.PositionBottomRight
	cfg.Settings.Position = &pos
	assert.NoError(t, cfg.Validate())
}

func TestValidateDeep(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig(t)
		assert.NoError(t, cfg.ValidateDeep(filepath.Join(cfg.DataDir, "missing.yaml")))
	})

	t.Run("config path is a directory", func(t *testing.T) {
		cfg := validConfig(t)

		err := cfg.ValidateDeep(cfg.DataDir)

		var fieldErrs criterio.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Equal(t, "config_file", fieldErrs[0].Field)
	})

	t.Run("storage path is a directory", func(t *testing.T) {
		cfg := validConfig(t)
		require.NoError(t, os.MkdirAll(cfg.Storage.Path, 0o755))

		err := cfg.ValidateDeep("")

		var fieldErrs criterio.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Equal(t, "storage.path", fieldErrs[0].Field)
	})

	t.Run("data dir is a file", func(t *testing.T) {
		cfg := validConfig(t)
		file := filepath.Join(cfg.DataDir, "file")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		cfg.DataDir = file

		err := cfg.ValidateDeep("")

		var fieldErrs criterio.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Equal(t, "data_dir", fieldErrs[0].Field)
	})

	t.Run("structural errors first", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Storage.Backend = "redis"
		assert.Error(t, cfg.ValidateDeep(""))
	})
}
