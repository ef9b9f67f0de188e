package commands

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/config"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/logging"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/stores"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

// engine is a notification service together with the storage it owns.
type engine struct {
	svc     *toast.Service
	storage stores.Storage
}

// openEngine wires storage, state store and service from cfg, then applies
// the config's settings section.
func openEngine(cfg *config.Config, c clock.Clock, logger zerolog.Logger) (*engine, error) {
	storage, err := stores.Open(cfg.Storage.Backend, cfg.StoragePath(), logging.Sub(logger, "storage"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := state.New(storage, logging.Sub(logger, "state"), toast.Slots()...)
	svc := toast.New(store, c, toast.Config{
		RemovalDelay:    cfg.Notifications.RemovalDelay,
		DedupWindow:     cfg.Notifications.DedupWindow,
		DedupMaxEntries: cfg.Notifications.DedupMaxEntries,
		CleanupMaxAge:   cfg.Cleanup.MaxAge,
	}, logger)

	applyConfigSettings(svc, cfg, logger)

	return &engine{svc: svc, storage: storage}, nil
}

func applyConfigSettings(svc *toast.Service, cfg *config.Config, logger zerolog.Logger) {
	if cfg.Settings.IsEmpty() {
		return
	}
	if !svc.UpdateSettings(cfg.Settings) {
		logger.Warn().Msg("settings from config rejected")
	}
}

func (e *engine) Close() error {
	e.svc.Close()
	return e.storage.Close()
}
