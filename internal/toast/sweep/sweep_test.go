package sweep

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

type fakeSource struct {
	list     []notify.Notification
	settings notify.Settings
	listErr  error
	panicMsg string
	calls    int

	// afterList runs once the list has been read, before it is returned.
	afterList func()
}

func (f *fakeSource) Notifications() ([]notify.Notification, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	list := slices.Clone(f.list)
	if f.afterList != nil {
		f.afterList()
	}
	return list, nil
}

func (f *fakeSource) Settings() (notify.Settings, error) {
	return f.settings, nil
}

func (f *fakeSource) RemoveNotifications(ids ...string) (int, error) {
	before := len(f.list)
	f.list = slices.DeleteFunc(f.list, func(n notify.Notification) bool {
		return slices.Contains(ids, n.ID)
	})
	return before - len(f.list), nil
}

type fakeTimers struct {
	ids       []string
	cancelled []string
}

func (f *fakeTimers) IDs() []string { return slices.Clone(f.ids) }

func (f *fakeTimers) Cancel(id string) {
	f.cancelled = append(f.cancelled, id)
	f.ids = slices.DeleteFunc(f.ids, func(x string) bool { return x == id })
}

var epoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func notification(id string, typ notify.Type, age time.Duration) notify.Notification {
	return notify.Notification{ID: id, Type: typ, Timestamp: epoch.Add(-age)}
}

func newTestScheduler(src *fakeSource, tm *fakeTimers) (*Scheduler, *clock.Fake) {
	c := clock.NewFake(epoch)
	if src.settings.MaxStoredNotifications == 0 {
		src.settings = notify.DefaultSettings()
	}
	return New(src, tm, c, zerolog.Nop()), c
}

func TestSweep_removes_aged_unprotected(t *testing.T) {
	src := &fakeSource{list: []notify.Notification{
		notification("old-info", notify.TypeInfo, 2*time.Hour),
		notification("old-error", notify.TypeError, 2*time.Hour),
		notification("new-info", notify.TypeInfo, time.Minute),
	}}
	pinned := notification("old-pinned", notify.TypeWarning, 3*time.Hour)
	pinned.Options.Persistent = true
	src.list = append(src.list, pinned)

	s, _ := newTestScheduler(src, &fakeTimers{})

	removed := s.Sweep(time.Hour)

	assert.Equal(t, 1, removed)
	var ids []string
	for _, n := range src.list {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"old-error", "new-info", "old-pinned"}, ids)
}

func TestSweep_enforces_cap(t *testing.T) {
	src := &fakeSource{settings: notify.DefaultSettings()}
	src.settings.MaxStoredNotifications = 10
	src.list = append(src.list, notification("err", notify.TypeError, 20*time.Minute))
	for i := range 11 {
		src.list = append(src.list, notification(string(rune('a'+i)), notify.TypeInfo, time.Duration(11-i)*time.Minute))
	}

	s, _ := newTestScheduler(src, &fakeTimers{})

	removed := s.Sweep(time.Hour)

	assert.Equal(t, 2, removed)
	require.Len(t, src.list, 10)
	assert.Equal(t, "err", src.list[0].ID)
	assert.Equal(t, "c", src.list[1].ID)
}

func TestSweep_cancels_orphaned_timers(t *testing.T) {
	src := &fakeSource{list: []notify.Notification{
		notification("live", notify.TypeInfo, time.Second),
		notification("aged", notify.TypeInfo, 2*time.Hour),
	}}
	tm := &fakeTimers{ids: []string{"aged", "ghost", "live"}}

	s, _ := newTestScheduler(src, tm)
	s.Sweep(time.Hour)

	assert.ElementsMatch(t, []string{"aged", "ghost"}, tm.cancelled)
	assert.Equal(t, []string{"live"}, tm.ids)
}

func TestSweep_keeps_timer_of_notification_shown_mid_sweep(t *testing.T) {
	src := &fakeSource{}
	tm := &fakeTimers{}
	s, _ := newTestScheduler(src, tm)

	src.afterList = func() {
		if src.calls == 2 {
			src.list = append(src.list, notification("new", notify.TypeInfo, 0))
			tm.ids = append(tm.ids, "new")
		}
	}

	s.Sweep(time.Hour)

	assert.Empty(t, tm.cancelled)
	assert.Equal(t, []string{"new"}, tm.IDs())
}

func TestSweep_failures_return_zero(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		src := &fakeSource{listErr: errors.New("store unavailable")}
		s, _ := newTestScheduler(src, &fakeTimers{})
		assert.Equal(t, 0, s.Sweep(time.Hour))
	})

	t.Run("panic", func(t *testing.T) {
		src := &fakeSource{panicMsg: "store exploded"}
		s, _ := newTestScheduler(src, &fakeTimers{})
		assert.NotPanics(t, func() {
			assert.Equal(t, 0, s.Sweep(time.Hour))
		})
	})
}

func TestScheduler_Start_runs_recurring_sweeps(t *testing.T) {
	src := &fakeSource{}
	s, c := newTestScheduler(src, &fakeTimers{})

	require.NoError(t, s.Start(time.Minute, time.Hour))
	assert.True(t, s.Running())
	assert.Equal(t, time.Minute, s.Interval())

	c.Advance(3 * time.Minute)
	assert.Equal(t, 6, src.calls, "two listings per sweep")
}

func TestScheduler_Start_replaces_schedule(t *testing.T) {
	src := &fakeSource{}
	s, c := newTestScheduler(src, &fakeTimers{})

	require.NoError(t, s.Start(time.Minute, time.Hour))
	require.NoError(t, s.Start(time.Minute, time.Hour))
	require.NoError(t, s.Start(2*time.Minute, time.Hour))

	assert.Equal(t, 1, c.Pending())

	c.Advance(4 * time.Minute)
	assert.Equal(t, 4, src.calls, "one sweep per two minutes")
}

func TestScheduler_survives_failing_sweeps(t *testing.T) {
	src := &fakeSource{panicMsg: "boom"}
	s, c := newTestScheduler(src, &fakeTimers{})

	require.NoError(t, s.Start(time.Minute, time.Hour))
	c.Advance(time.Minute)

	assert.True(t, s.Running())
	assert.Equal(t, 1, c.Pending())

	src.panicMsg = ""
	src.list = []notify.Notification{notification("aged", notify.TypeInfo, 2*time.Hour)}
	c.Advance(time.Minute)

	assert.Empty(t, src.list)
}

func TestScheduler_Stop(t *testing.T) {
	src := &fakeSource{}
	s, c := newTestScheduler(src, &fakeTimers{})

	s.Stop()
	require.NoError(t, s.Start(time.Minute, time.Hour))
	s.Stop()
	s.Stop()

	c.Advance(time.Hour)

	assert.False(t, s.Running())
	assert.Zero(t, s.Interval())
	assert.Equal(t, 0, src.calls)
	assert.Equal(t, 0, c.Pending())
}

func TestScheduler_Start_rejects_non_positive_interval(t *testing.T) {
	s, _ := newTestScheduler(&fakeSource{}, &fakeTimers{})

	assert.Error(t, s.Start(0, time.Hour))
	assert.False(t, s.Running())
}
