// Package sweep runs the periodic cleanup pass over stored notifications.
package sweep

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

// Source is the notification store a sweep operates on.
type Source interface {
	Notifications() ([]notify.Notification, error)
	Settings() (notify.Settings, error)
	RemoveNotifications(ids ...string) (int, error)
}

// Timers is the timer state reconciled by a sweep.
type Timers interface {
	IDs() []string
	Cancel(id string)
}

// Scheduler removes aged notifications on a recurring schedule and discards
// timers whose notification no longer exists.
type Scheduler struct {
	source Source
	timers Timers
	clock  clock.Clock
	log    zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	running  bool
	interval time.Duration
	maxAge   time.Duration
	handle   clock.Timer
}

// New creates a Scheduler. It does nothing until Start is called.
func New(source Source, timers Timers, c clock.Clock, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		source: source,
		timers: timers,
		clock:  c,
		log:    logger,
	}
}

// Start sweeps with maxAge every interval. A running schedule is replaced.
func (s *Scheduler) Start(interval, maxAge time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	s.running = true
	s.interval = interval
	s.maxAge = maxAge
	s.scheduleLocked(s.gen)

	s.log.Debug().Dur("interval", interval).Dur("max_age", maxAge).Msg("auto cleanup started")
	return nil
}

// Stop cancels the recurring sweep. It is safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Debug().Msg("auto cleanup stopped")
	}
	s.stopLocked()
}

// Running reports whether a recurring sweep is scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the interval of the running schedule, or zero.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.interval
}

// Sweep removes every unprotected notification older than maxAge, enforces
// the stored cap and cancels orphaned timers. It returns the number of
// notifications removed. Failures are logged and reported as zero.
func (s *Scheduler) Sweep(maxAge time.Duration) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("cleanup sweep failed")
			removed = 0
		}
	}()

	removed, err := s.sweep(maxAge)
	if err != nil {
		s.log.Error().Err(err).Msg("cleanup sweep failed")
		return 0
	}
	if removed > 0 {
		s.log.Debug().Int("removed", removed).Msg("cleanup sweep")
	}
	return removed
}

func (s *Scheduler) sweep(maxAge time.Duration) (int, error) {
	list, err := s.source.Notifications()
	if err != nil {
		return 0, fmt.Errorf("list notifications: %w", err)
	}
	settings, err := s.source.Settings()
	if err != nil {
		return 0, fmt.Errorf("read settings: %w", err)
	}

	expired := notify.Expired(list, s.clock.Now(), maxAge, settings.PersistentTypes)

	gone := make(map[string]bool, len(expired))
	for _, id := range expired {
		gone[id] = true
	}
	kept := make([]notify.Notification, 0, len(list))
	for _, n := range list {
		if !gone[n.ID] {
			kept = append(kept, n)
		}
	}
	ids := append(expired, notify.Evict(kept, settings.MaxStoredNotifications, settings.PersistentTypes)...)

	removed := 0
	if len(ids) > 0 {
		removed, err = s.source.RemoveNotifications(ids...)
		if err != nil {
			return 0, fmt.Errorf("remove notifications: %w", err)
		}
	}

	if err := s.reconcile(); err != nil {
		return 0, err
	}
	return removed, nil
}

// reconcile cancels timers whose notification is no longer stored.
func (s *Scheduler) reconcile() error {
	if s.timers == nil {
		return nil
	}

	// Timers start only after their notification is stored, so reading the
	// ids first never flags a notification that is being shown.
	ids := s.timers.IDs()
	list, err := s.source.Notifications()
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	live := make(map[string]bool, len(list))
	for _, n := range list {
		live[n.ID] = true
	}
	for _, id := range ids {
		if !live[id] {
			s.log.Debug().Str("id", id).Msg("cancelling orphaned timer")
			s.timers.Cancel(id)
		}
	}
	return nil
}

func (s *Scheduler) scheduleLocked(gen uint64) {
	s.handle = s.clock.AfterFunc(s.interval, func() { s.tick(gen) })
}

func (s *Scheduler) stopLocked() {
	s.running = false
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
}

// tick runs one scheduled sweep and schedules the next, unless the schedule
// it belongs to was stopped or replaced.
func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return
	}
	maxAge := s.maxAge
	s.mu.Unlock()

	s.Sweep(maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.gen == gen {
		s.scheduleLocked(gen)
	}
}
