package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/stores"
)

// Validate checks that the configuration is structurally valid. Errors are
// criterio.FieldErrors keyed by the YAML path of the offending field.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if err := positiveDuration(c.Cleanup.MaxAge); err != nil {
		errs = errs.Append("cleanup.max_age", err)
	}
	if err := nonNegativeDuration(c.Notifications.RemovalDelay); err != nil {
		errs = errs.Append("notifications.removal_delay", err)
	}
	if err := nonNegativeDuration(c.Notifications.DedupWindow); err != nil {
		errs = errs.Append("notifications.dedup_window", err)
	}
	if err := positiveInt(c.Notifications.DedupMaxEntries); err != nil {
		errs = errs.Append("notifications.dedup_max_entries", err)
	}

	return criterio.ValidateStruct(
		criterio.Run("storage.backend", c.Storage.Backend, knownBackend),
		c.validateStoragePath(),
		errs.ToError(),
		c.validateSettings(),
	)
}

// ValidateDeep runs Validate and then checks the config file and storage
// location on disk.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("storage.path", c.StoragePath(), isFileOrNotExist),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func (c *Config) validateStoragePath() error {
	if c.Storage.Backend == stores.BackendMemory || c.Storage.Path != "" {
		return nil
	}
	return criterio.NewFieldErrors("storage.path", fmt.Errorf("required for the %s backend", c.Storage.Backend))
}

// validateSettings re-keys the settings field errors under "settings.".
func (c *Config) validateSettings() error {
	err := notify.ValidateUpdate(c.Settings)
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return criterio.NewFieldErrors("settings", err)
	}

	var errs criterio.FieldErrorsBuilder
	for _, fe := range fieldErrs {
		errs = errs.Append("settings."+fe.Field, fe.Err)
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func knownBackend(b string) error {
	if !slices.Contains(stores.Backends, b) {
		return fmt.Errorf("unknown backend %q (want one of %v)", b, stores.Backends)
	}
	return nil
}

func positiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

func nonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("must not be negative, got %s", d)
	}
	return nil
}

func positiveInt(n int) error {
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func isFileOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}

func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
