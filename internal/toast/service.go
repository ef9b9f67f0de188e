package toast

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/logging"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast/sweep"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast/timers"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/cache"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

// DefaultCleanupMaxAge is the age past which auto-cleanup removes
// notifications when Config.CleanupMaxAge is unset.
const DefaultCleanupMaxAge = 24 * time.Hour

// Config tunes a Service beyond the user-facing settings.
type Config struct {
	// RemovalDelay keeps an expired notification out of the visible list
	// for this long before it is removed from the store.
	RemovalDelay time.Duration
	// DedupWindow, when positive, returns the existing id for an identical
	// type and message shown again within the window.
	DedupWindow     time.Duration
	DedupMaxEntries int
	// CleanupMaxAge is the age limit used by auto-cleanup sweeps.
	CleanupMaxAge time.Duration
}

// Service is the public notification API. It wires a Manager to its timer
// engine and cleanup scheduler over one shared Store.
type Service struct {
	*Manager

	sweeper *sweep.Scheduler
	maxAge  time.Duration
	unwatch func()
}

// New builds a Service on store, which must have been created with Slots().
func New(store *state.Store, c clock.Clock, cfg Config, logger zerolog.Logger) *Service {
	m := &Manager{
		store:        store,
		clock:        c,
		log:          logging.Sub(logger, "toast"),
		newID:        newID,
		removalDelay: cfg.RemovalDelay,
		exits:        make(map[string]clock.Timer),
	}
	m.timers = timers.New(c, m.expire, logging.Sub(logger, "timers"))

	if cfg.DedupWindow > 0 {
		limit := cfg.DedupMaxEntries
		if limit <= 0 {
			limit = 256
		}
		m.dedup = cache.New[string, string](limit, cfg.DedupWindow, c.Now)
	}

	maxAge := cfg.CleanupMaxAge
	if maxAge <= 0 {
		maxAge = DefaultCleanupMaxAge
	}

	s := &Service{
		Manager: m,
		sweeper: sweep.New(sweepSource{m}, m.timers, c, logging.Sub(logger, "sweep")),
		maxAge:  maxAge,
	}
	s.unwatch = store.Subscribe([]state.Key{SettingsKey}, s.onSettings)
	return s
}

// PauseAutoCloseTimer freezes the countdown of id.
func (s *Service) PauseAutoCloseTimer(id string) {
	s.timers.Pause(id)
}

// ResumeAutoCloseTimer continues the countdown of id.
func (s *Service) ResumeAutoCloseTimer(id string) {
	s.timers.Resume(id)
}

// GetTimerState reports the countdown of id, or false if it has no timer.
func (s *Service) GetTimerState(id string) (timers.State, bool) {
	return s.timers.State(id)
}

// CleanupOldNotifications runs one sweep and returns the number of
// notifications removed.
func (s *Service) CleanupOldNotifications(maxAge time.Duration) int {
	return s.sweeper.Sweep(maxAge)
}

// StartAutoCleanup sweeps every interval, replacing any running schedule.
func (s *Service) StartAutoCleanup(interval time.Duration) error {
	return s.sweeper.Start(interval, s.maxAge)
}

// StartAutoCleanupFromSettings starts auto-cleanup with the interval in the
// current settings.
func (s *Service) StartAutoCleanupFromSettings() error {
	return s.StartAutoCleanup(msDuration(s.Settings().AutoCleanupInterval))
}

// StopAutoCleanup stops the recurring sweep.
func (s *Service) StopAutoCleanup() {
	s.sweeper.Stop()
}

// AutoCleanupRunning reports whether the recurring sweep is active.
func (s *Service) AutoCleanupRunning() bool {
	return s.sweeper.Running()
}

// Close stops auto-cleanup and cancels every pending timer.
func (s *Service) Close() {
	s.unwatch()
	s.sweeper.Stop()
	s.timers.CancelAll()

	s.mu.Lock()
	for id, t := range s.exits {
		t.Stop()
		delete(s.exits, id)
	}
	s.mu.Unlock()
}

// onSettings restarts a running auto-cleanup when its interval changes.
func (s *Service) onSettings(c state.Change) {
	settings, ok := settingsSlot.From(c)
	if !ok || !s.sweeper.Running() {
		return
	}

	interval := msDuration(settings.AutoCleanupInterval)
	if interval == s.sweeper.Interval() {
		return
	}
	if err := s.sweeper.Start(interval, s.maxAge); err != nil {
		s.log.Warn().Err(err).Msg("failed to restart auto cleanup")
	}
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// sweepSource adapts a Manager to sweep.Source.
type sweepSource struct{ m *Manager }

func (s sweepSource) Notifications() ([]notify.Notification, error) {
	return s.m.List(), nil
}

func (s sweepSource) Settings() (notify.Settings, error) {
	return s.m.Settings(), nil
}

func (s sweepSource) RemoveNotifications(ids ...string) (int, error) {
	return s.m.RemoveNotifications(ids...)
}
