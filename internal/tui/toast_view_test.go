package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast/timers"
)

type fakeSource struct {
	visible []notify.Notification
	timers  map[string]timers.State
}

func (f *fakeSource) Visible() []notify.Notification { return f.visible }

func (f *fakeSource) GetTimerState(id string) (timers.State, bool) {
	st, ok := f.timers[id]
	return st, ok
}

func toastAt(id string, t notify.Type, msg string, pos notify.Position) notify.Notification {
	return notify.Notification{ID: id, Type: t, Message: msg, Options: notify.Options{Position: pos}}
}

func TestToastView_View_empty(t *testing.T) {
	v := NewToastView(&fakeSource{}, 80)
	assert.Empty(t, v.View())
}

func TestToastView_View_renders_each_type(t *testing.T) {
	tests := []struct {
		typ  notify.Type
		icon string
	}{
		{notify.TypeSuccess, IconSuccess},
		{notify.TypeError, IconError},
		{notify.TypeWarning, IconWarning},
		{notify.TypeInfo, IconInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			src := &fakeSource{visible: []notify.Notification{toastAt("n1", tt.typ, "test msg", notify.PositionTopRight)}}

			out := NewToastView(src, 0).View()
			require.NotEmpty(t, out)
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "test msg")
			assert.Contains(t, out, "n1")
		})
	}
}

func TestToastView_View_order_by_corner(t *testing.T) {
	src := &fakeSource{visible: []notify.Notification{
		toastAt("n1", notify.TypeInfo, "top-old", notify.PositionTopRight),
		toastAt("n2", notify.TypeInfo, "bottom-old", notify.PositionBottomLeft),
		toastAt("n3", notify.TypeInfo, "top-new", notify.PositionTopRight),
		toastAt("n4", notify.TypeInfo, "bottom-new", notify.PositionBottomLeft),
	}}

	out := NewToastView(src, 0).View()

	idx := func(s string) int {
		i := strings.Index(out, s)
		require.NotEqual(t, -1, i, s)
		return i
	}
	assert.Less(t, idx("top-new"), idx("top-old"), "newest first at the top")
	assert.Less(t, idx("bottom-old"), idx("bottom-new"), "newest last at the bottom")
	assert.Less(t, idx("top-old"), idx("bottom-old"), "top corners render before bottom corners")
}

func TestToastView_View_aligns_right(t *testing.T) {
	src := &fakeSource{visible: []notify.Notification{toastAt("n1", notify.TypeInfo, "right", notify.PositionTopRight)}}

	out := NewToastView(src, 120).View()

	first := strings.Split(out, "\n")[0]
	assert.Equal(t, 120, lipgloss.Width(first))
	assert.True(t, strings.HasPrefix(first, "    "), "padded on the left")
}

func TestToastView_View_aligns_left(t *testing.T) {
	src := &fakeSource{visible: []notify.Notification{toastAt("n1", notify.TypeInfo, "left", notify.PositionBottomLeft)}}

	out := NewToastView(src, 120).View()

	first := strings.Split(out, "\n")[0]
	assert.False(t, strings.HasPrefix(first, " "))
}

func TestToastView_View_timer_status(t *testing.T) {
	src := &fakeSource{
		visible: []notify.Notification{
			toastAt("run", notify.TypeInfo, "running", notify.PositionTopRight),
			toastAt("pause", notify.TypeInfo, "paused", notify.PositionTopRight),
			toastAt("pin", notify.TypeError, "pinned", notify.PositionTopRight),
		},
		timers: map[string]timers.State{
			"run":   {Remaining: 2500 * time.Millisecond, Original: 5 * time.Second},
			"pause": {Remaining: time.Second, Original: 4 * time.Second, Paused: true},
		},
	}

	out := NewToastView(src, 0).View()

	assert.Contains(t, out, ProgressBar(2500*time.Millisecond, 5*time.Second, progressWidth)+" 2.5s")
	assert.Contains(t, out, IconPaused+" paused")
	assert.Contains(t, out, IconPinned+" pinned")
}

func TestToastView_View_pending_timer_shows_full_bar(t *testing.T) {
	n := toastAt("new", notify.TypeSuccess, "saved", notify.PositionTopRight)
	n.Options.Duration = 4000
	src := &fakeSource{visible: []notify.Notification{n}}

	out := NewToastView(src, 0).View()

	assert.Contains(t, out, ProgressBar(4*time.Second, 4*time.Second, progressWidth)+" 4.0s")
	assert.NotContains(t, out, "pinned")
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		total     time.Duration
		width     int
		want      string
	}{
		{"full", 4 * time.Second, 4 * time.Second, 4, "████"},
		{"half", 2 * time.Second, 4 * time.Second, 4, "██░░"},
		{"empty", 0, 4 * time.Second, 4, "░░░░"},
		{"zero total", time.Second, 0, 3, "░░░"},
		{"over", 8 * time.Second, 4 * time.Second, 2, "██"},
		{"no width", time.Second, time.Second, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressBar(tt.remaining, tt.total, tt.width))
		})
	}
}

func TestRenderStats(t *testing.T) {
	oldest := time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC)
	out := RenderStats(notify.Stats{
		Total:        3,
		Visible:      2,
		ByType:       map[notify.Type]int{notify.TypeError: 1, notify.TypeInfo: 2},
		Persistent:   1,
		ActiveTimers: 2,
		Oldest:       &oldest,
	})

	assert.Contains(t, out, "total")
	assert.Contains(t, out, "2026-04-01T07:30:00Z")
	assert.NotContains(t, out, "newest")
	assert.Len(t, strings.Split(out, "\n"), 9)
}

func TestRenderStats_error(t *testing.T) {
	out := RenderStats(notify.Stats{Error: "boom"})
	assert.Contains(t, out, "stats unavailable: boom")
}
