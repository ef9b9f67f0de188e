// Package toast implements the notification lifecycle: creation with
// resolved durations, eviction, auto-close timers, settings, statistics and
// periodic cleanup.
package toast

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast/timers"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/cache"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

var (
	notificationsSlot = state.NewSlot(state.Key("notifications"),
		func() []notify.Notification { return nil },
		state.CloneWith(slices.Clone[[]notify.Notification]))

	settingsSlot = state.NewSlot(state.Key("settings"),
		notify.DefaultSettings,
		state.Persist[notify.Settings](),
		state.CloneWith(notify.Settings.Clone),
		state.ValidateWith(func(s notify.Settings) error {
			return notify.ValidateUpdate(notify.UpdateFrom(s))
		}))

	removingSlot = state.NewSlot(state.Key("removing"),
		func() map[string]bool { return map[string]bool{} },
		state.CloneWith(maps.Clone[map[string]bool]))
)

// Slots returns the store slots the lifecycle manager needs. Pass them to
// state.New.
func Slots() []state.Definition {
	return []state.Definition{notificationsSlot, settingsSlot, removingSlot}
}

// SettingsKey is the store key of the persisted settings.
var SettingsKey = settingsSlot.Key()

// Manager creates, stores and removes notifications.
type Manager struct {
	store        *state.Store
	clock        clock.Clock
	timers       *timers.Engine
	log          zerolog.Logger
	newID        func() string
	removalDelay time.Duration
	dedup        *cache.Cache[string, string]

	mu    sync.Mutex
	exits map[string]clock.Timer
}

// Show validates t, resolves the effective duration and persistence of the
// new notification, stores it and starts its auto-close timer. It returns
// the notification id. An unknown type yields an *notify.InvalidTypeError.
func (m *Manager) Show(t notify.Type, message string, opts notify.ShowOptions) (string, error) {
	if !t.Valid() {
		return "", &notify.InvalidTypeError{Type: t}
	}

	key := string(t) + "\x00" + message
	if m.dedup != nil {
		if id, ok := m.dedup.Get(key); ok && m.live(id) {
			m.log.Debug().Str("id", id).Str("type", string(t)).Msg("duplicate notification suppressed")
			return id, nil
		}
	}

	settings := settingsSlot.Get(m.store)
	duration := settings.DurationFor(t, opts.Duration)
	persistent := opts.Persistent || duration <= 0 || settings.IsPersistentType(t)
	if persistent {
		duration = 0
	}

	closable := true
	if opts.Closable != nil {
		closable = *opts.Closable
	}
	position := opts.Position
	if !position.Valid() {
		position = settings.Position
	}

	n := notify.Notification{
		ID:        m.newID(),
		Type:      t,
		Message:   message,
		Timestamp: m.clock.Now(),
		Options: notify.Options{
			Duration:   duration,
			Persistent: persistent,
			Closable:   closable,
			Position:   position,
			Priority:   opts.Priority,
		},
	}

	var evicted []string
	err := notificationsSlot.Update(m.store, func(list []notify.Notification) []notify.Notification {
		list = append(list, n)
		evicted = notify.Evict(list, settings.MaxStoredNotifications, settings.PersistentTypes)
		return without(list, evicted)
	})
	if err != nil {
		return "", fmt.Errorf("store notification: %w", err)
	}

	if len(evicted) > 0 {
		m.log.Debug().Strs("ids", evicted).Msg("evicted notifications over cap")
		m.forget(evicted)
	}

	// The timer starts only once the notification is stored, so a sweep
	// never sees it as orphaned. A subscriber or eviction may already have
	// removed it.
	if !persistent {
		m.timers.Start(n.ID, msDuration(duration))
		if _, ok := m.Get(n.ID); !ok {
			m.timers.Cancel(n.ID)
		}
	}

	if m.dedup != nil {
		m.dedup.Set(key, n.ID)
	}

	m.log.Debug().
		Str("id", n.ID).
		Str("type", string(t)).
		Int("duration_ms", duration).
		Bool("persistent", persistent).
		Msg("notification shown")

	return n.ID, nil
}

// Success shows a success notification.
func (m *Manager) Success(message string, opts notify.ShowOptions) string {
	return m.mustShow(notify.TypeSuccess, message, opts)
}

// Error shows an error notification.
func (m *Manager) Error(message string, opts notify.ShowOptions) string {
	return m.mustShow(notify.TypeError, message, opts)
}

// Warning shows a warning notification.
func (m *Manager) Warning(message string, opts notify.ShowOptions) string {
	return m.mustShow(notify.TypeWarning, message, opts)
}

// Info shows an info notification.
func (m *Manager) Info(message string, opts notify.ShowOptions) string {
	return m.mustShow(notify.TypeInfo, message, opts)
}

func (m *Manager) mustShow(t notify.Type, message string, opts notify.ShowOptions) string {
	id, err := m.Show(t, message, opts)
	if err != nil {
		m.log.Error().Err(err).Str("type", string(t)).Msg("failed to show notification")
	}
	return id
}

// RemoveNotification removes id and cancels its timer. Unknown ids are
// ignored.
func (m *Manager) RemoveNotification(id string) {
	if _, err := m.RemoveNotifications(id); err != nil {
		m.log.Warn().Err(err).Str("id", id).Msg("failed to remove notification")
	}
}

// RemoveNotifications removes every listed id and cancels their timers. It
// returns how many notifications were removed.
func (m *Manager) RemoveNotifications(ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	removed := 0
	err := notificationsSlot.Update(m.store, func(list []notify.Notification) []notify.Notification {
		before := len(list)
		list = without(list, ids)
		removed = before - len(list)
		return list
	})
	m.forget(ids)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes every notification.
func (m *Manager) Clear() {
	m.removeWhere(func(notify.Notification) bool { return true })
}

// ClearByType removes every notification of type t.
func (m *Manager) ClearByType(t notify.Type) {
	m.removeWhere(func(n notify.Notification) bool { return n.Type == t })
}

func (m *Manager) removeWhere(match func(notify.Notification) bool) {
	var ids []string
	for _, n := range notificationsSlot.Get(m.store) {
		if match(n) {
			ids = append(ids, n.ID)
		}
	}
	if _, err := m.RemoveNotifications(ids...); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear notifications")
	}
}

// expire handles a fired auto-close timer. With a removal delay the
// notification is first marked as removing, then removed once the delay
// has passed.
func (m *Manager) expire(id string) {
	if m.removalDelay <= 0 || !m.live(id) {
		m.RemoveNotification(id)
		return
	}

	err := removingSlot.Update(m.store, func(ids map[string]bool) map[string]bool {
		if ids == nil {
			ids = make(map[string]bool)
		}
		ids[id] = true
		return ids
	})
	if err != nil {
		m.log.Warn().Err(err).Str("id", id).Msg("failed to mark notification as removing")
		m.RemoveNotification(id)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.exits[id]; ok {
		old.Stop()
	}
	m.exits[id] = m.clock.AfterFunc(m.removalDelay, func() { m.finishExit(id) })
}

func (m *Manager) finishExit(id string) {
	m.mu.Lock()
	if _, ok := m.exits[id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.exits, id)
	m.mu.Unlock()

	m.RemoveNotification(id)
}

// forget drops every piece of transient state kept for ids.
func (m *Manager) forget(ids []string) {
	for _, id := range ids {
		m.timers.Cancel(id)
	}

	m.mu.Lock()
	for _, id := range ids {
		if t, ok := m.exits[id]; ok {
			t.Stop()
			delete(m.exits, id)
		}
	}
	m.mu.Unlock()

	removing := removingSlot.Get(m.store)
	if !slices.ContainsFunc(ids, func(id string) bool { return removing[id] }) {
		return
	}
	err := removingSlot.Update(m.store, func(r map[string]bool) map[string]bool {
		for _, id := range ids {
			delete(r, id)
		}
		return r
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to clear removing state")
	}
}

func (m *Manager) live(id string) bool {
	_, ok := m.Get(id)
	return ok && !removingSlot.Get(m.store)[id]
}

// Get returns the stored notification with the given id.
func (m *Manager) Get(id string) (notify.Notification, bool) {
	for _, n := range notificationsSlot.Get(m.store) {
		if n.ID == id {
			return n, true
		}
	}
	return notify.Notification{}, false
}

// List returns every stored notification in insertion order.
func (m *Manager) List() []notify.Notification {
	return notificationsSlot.Get(m.store)
}

// Count returns the number of stored notifications.
func (m *Manager) Count() int {
	return len(notificationsSlot.Get(m.store))
}

// Visible returns the newest MaxVisible notifications that are not being
// removed, in insertion order.
func (m *Manager) Visible() []notify.Notification {
	settings := settingsSlot.Get(m.store)
	removing := removingSlot.Get(m.store)

	var out []notify.Notification
	for _, n := range notificationsSlot.Get(m.store) {
		if !removing[n.ID] {
			out = append(out, n)
		}
	}
	if len(out) > settings.MaxVisible {
		out = out[len(out)-settings.MaxVisible:]
	}
	return out
}

// OnChange calls fn with the visible notifications whenever the stored
// notifications, their removal state or the settings change. The returned
// function unsubscribes.
func (m *Manager) OnChange(fn func(visible []notify.Notification)) func() {
	keys := []state.Key{notificationsSlot.Key(), removingSlot.Key(), settingsSlot.Key()}
	return m.store.Subscribe(keys, func(state.Change) { fn(m.Visible()) })
}

// Settings returns the current settings.
func (m *Manager) Settings() notify.Settings {
	return settingsSlot.Get(m.store)
}

// UpdateSettings validates every field of u and merges them into the
// current settings. If any field is invalid nothing changes and it returns
// false.
func (m *Manager) UpdateSettings(u notify.SettingsUpdate) bool {
	if err := notify.ValidateUpdate(u); err != nil {
		m.log.Debug().Err(err).Msg("settings update rejected")
		return false
	}

	err := settingsSlot.Update(m.store, func(s notify.Settings) notify.Settings {
		return s.Apply(u)
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to store settings")
		return false
	}
	return true
}

// ResetSettings restores the default settings.
func (m *Manager) ResetSettings() {
	if err := settingsSlot.Set(m.store, notify.DefaultSettings()); err != nil {
		m.log.Warn().Err(err).Msg("failed to reset settings")
	}
}

// ExportSettings returns a versioned snapshot of the current settings.
func (m *Manager) ExportSettings() notify.Snapshot {
	u := notify.UpdateFrom(m.Settings())
	return notify.Snapshot{
		Settings:  &u,
		Timestamp: m.clock.Now(),
		Version:   notify.SnapshotVersion,
	}
}

// ImportSettings applies the fields present in a snapshot through the same
// validation as UpdateSettings. A snapshot without settings is rejected. A
// version mismatch is logged and the import proceeds.
func (m *Manager) ImportSettings(snap *notify.Snapshot) bool {
	if snap == nil || snap.Settings == nil || snap.Settings.IsEmpty() {
		m.log.Warn().Msg("settings import rejected: snapshot has no settings")
		return false
	}
	if snap.Version != notify.SnapshotVersion {
		m.log.Warn().
			Str("version", snap.Version).
			Str("expected", notify.SnapshotVersion).
			Msg("importing settings snapshot with mismatched version")
	}
	return m.UpdateSettings(*snap.Settings)
}

// GetStats summarizes the stored notifications. If the statistics cannot be
// computed it returns zeroed counts with Error set.
func (m *Manager) GetStats() (stats notify.Stats) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("failed to compute notification stats")
			stats = notify.Stats{Error: fmt.Sprint(r)}
		}
	}()

	list := notificationsSlot.Get(m.store)
	removing := removingSlot.Get(m.store)

	stats.Total = len(list)
	stats.ByType = make(map[notify.Type]int, len(notify.Types))
	for _, t := range notify.Types {
		stats.ByType[t] = 0
	}
	for _, n := range list {
		stats.ByType[n.Type]++
		if n.Options.Persistent {
			stats.Persistent++
		}
		if !removing[n.ID] {
			stats.Visible++
		}
	}
	stats.ActiveTimers = m.timers.Len()

	if len(list) > 0 {
		oldest, newest := list[0].Timestamp, list[len(list)-1].Timestamp
		stats.Oldest, stats.Newest = &oldest, &newest
	}
	return stats
}

func without(list []notify.Notification, ids []string) []notify.Notification {
	if len(ids) == 0 {
		return list
	}
	return slices.DeleteFunc(list, func(n notify.Notification) bool {
		return slices.Contains(ids, n.ID)
	})
}

func newID() string {
	return uuid.NewString()
}
