package timers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

type fired struct {
	ids []string
	at  []time.Time
}

func newTestEngine(t *testing.T) (*Engine, *clock.Fake, *fired) {
	t.Helper()
	c := clock.NewFake(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	f := &fired{}
	e := New(c, func(id string) {
		f.ids = append(f.ids, id)
		f.at = append(f.at, c.Now())
	}, zerolog.Nop())
	return e, c, f
}

func TestEngine_Start_fires_after_duration(t *testing.T) {
	e, c, f := newTestEngine(t)

	e.Start("a", 4*time.Second)

	st, ok := e.State("a")
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, st.Original)
	assert.Equal(t, 4*time.Second, st.Remaining)
	assert.False(t, st.Paused)

	c.Advance(3999 * time.Millisecond)
	assert.Empty(t, f.ids)

	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"a"}, f.ids)
	assert.Equal(t, 0, e.Len())
}

func TestEngine_Start_ignores_non_positive_duration(t *testing.T) {
	e, c, _ := newTestEngine(t)

	e.Start("zero", 0)
	e.Start("negative", -time.Second)

	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 0, c.Pending())
}

func TestEngine_Start_replaces_existing_timer(t *testing.T) {
	e, c, f := newTestEngine(t)

	e.Start("a", time.Second)
	c.Advance(500 * time.Millisecond)
	e.Start("a", 3*time.Second)

	assert.Equal(t, 1, c.Pending(), "old callback is unscheduled")

	c.Advance(time.Second)
	assert.Empty(t, f.ids)

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a"}, f.ids)
}

func TestEngine_pause_resume_arithmetic(t *testing.T) {
	e, c, f := newTestEngine(t)
	start := c.Now()

	e.Start("a", 4*time.Second)
	c.Advance(2 * time.Second)
	e.Pause("a")

	st, ok := e.State("a")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, st.Remaining)
	assert.True(t, st.Paused)

	pause := 10 * time.Second
	c.Advance(pause)
	assert.Empty(t, f.ids, "paused timers do not count down")

	st, _ = e.State("a")
	assert.Equal(t, 2*time.Second, st.Remaining)

	e.Resume("a")
	c.Advance(2 * time.Second)

	require.Equal(t, []string{"a"}, f.ids)
	assert.Equal(t, 2*time.Second+pause+2*time.Second, f.at[0].Sub(start))
}

func TestEngine_Pause_is_idempotent(t *testing.T) {
	e, c, _ := newTestEngine(t)

	e.Start("a", 4*time.Second)
	c.Advance(time.Second)
	e.Pause("a")
	once, _ := e.State("a")

	c.Advance(time.Second)
	e.Pause("a")
	twice, _ := e.State("a")

	assert.Equal(t, once.Remaining, twice.Remaining)
	assert.Equal(t, 3*time.Second, twice.Remaining)
}

func TestEngine_multiple_pause_cycles(t *testing.T) {
	e, c, f := newTestEngine(t)

	e.Start("a", 5*time.Second)
	for range 4 {
		c.Advance(time.Second)
		e.Pause("a")
		c.Advance(time.Minute)
		e.Resume("a")
	}

	st, _ := e.State("a")
	assert.Equal(t, time.Second, st.Remaining)

	c.Advance(time.Second)
	assert.Equal(t, []string{"a"}, f.ids)
}

func TestEngine_Resume_running_timer_is_noop(t *testing.T) {
	e, c, f := newTestEngine(t)

	e.Start("a", 2*time.Second)
	c.Advance(time.Second)
	e.Resume("a")

	assert.Equal(t, 1, c.Pending())
	c.Advance(time.Second)
	assert.Equal(t, []string{"a"}, f.ids)
}

func TestEngine_unknown_ids_are_noops(t *testing.T) {
	e, _, _ := newTestEngine(t)

	assert.NotPanics(t, func() {
		e.Pause("missing")
		e.Resume("missing")
		e.Cancel("missing")
	})

	_, ok := e.State("missing")
	assert.False(t, ok)
}

func TestEngine_Cancel_prevents_fire(t *testing.T) {
	e, c, f := newTestEngine(t)

	e.Start("a", time.Second)
	e.Start("b", time.Second)
	e.Cancel("a")

	c.Advance(time.Second)

	assert.Equal(t, []string{"b"}, f.ids)
}

func TestEngine_stale_callback_is_noop(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	var handles []func()
	capture := &capturingClock{Fake: c, captured: &handles}

	var fired []string
	e := New(capture, func(id string) { fired = append(fired, id) }, zerolog.Nop())

	e.Start("a", time.Second)
	e.Cancel("a")
	e.Start("b", time.Second)
	e.Pause("b")

	// Callbacks that escaped cancellation run anyway.
	for _, fn := range handles {
		fn()
	}

	assert.Empty(t, fired)
	st, ok := e.State("b")
	require.True(t, ok)
	assert.True(t, st.Paused)
}

func TestEngine_callback_from_before_pause_is_stale_after_resume(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	var handles []func()
	capture := &capturingClock{Fake: c, captured: &handles}

	var fired []string
	e := New(capture, func(id string) { fired = append(fired, id) }, zerolog.Nop())

	e.Start("n1", 4*time.Second)
	c.Advance(2 * time.Second)
	e.Pause("n1")
	e.Resume("n1")
	require.Len(t, handles, 2)

	// The first schedule's callback was already in flight when Pause ran.
	handles[0]()
	assert.Empty(t, fired)

	st, ok := e.State("n1")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, st.Remaining)

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"n1"}, fired)
}

func TestState_MarshalJSON_uses_milliseconds(t *testing.T) {
	data, err := json.Marshal(State{Remaining: 1500 * time.Millisecond, Original: 4 * time.Second, Paused: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"remaining":1500,"originalDuration":4000,"isPaused":true}`, string(data))
}

func TestEngine_onFire_may_reenter(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	var e *Engine
	var fired []string
	e = New(c, func(id string) {
		fired = append(fired, id)
		if id == "a" {
			e.Start("a2", time.Second)
		}
	}, zerolog.Nop())

	e.Start("a", time.Second)
	c.Advance(2 * time.Second)

	assert.Equal(t, []string{"a", "a2"}, fired)
}

func TestEngine_IDs_and_CancelAll(t *testing.T) {
	e, c, f := newTestEngine(t)

	e.Start("b", time.Second)
	e.Start("a", time.Second)
	assert.Equal(t, []string{"a", "b"}, e.IDs())

	e.CancelAll()
	c.Advance(time.Second)

	assert.Empty(t, e.IDs())
	assert.Empty(t, f.ids)
}

// capturingClock records every scheduled callback so a test can run them
// after they were stopped.
type capturingClock struct {
	*clock.Fake
	captured *[]func()
}

func (c *capturingClock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	*c.captured = append(*c.captured, fn)
	return c.Fake.AfterFunc(d, fn)
}
