// Package timers owns the auto-close timer of every non-persistent
// notification. Each id has at most one timer, which can be paused and
// resumed with exact remaining-time bookkeeping.
package timers

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

// State is a snapshot of one timer, as reported to renderers for progress
// indication. Its JSON form carries durations in milliseconds.
type State struct {
	Remaining time.Duration
	Original  time.Duration
	Paused    bool
}

// MarshalJSON encodes s with millisecond durations.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RemainingMs int64 `json:"remaining"`
		OriginalMs  int64 `json:"originalDuration"`
		Paused      bool  `json:"isPaused"`
	}{
		RemainingMs: s.Remaining.Milliseconds(),
		OriginalMs:  s.Original.Milliseconds(),
		Paused:      s.Paused,
	})
}

type timer struct {
	id        string
	original  time.Duration
	remaining time.Duration
	paused    bool
	startedAt time.Time
	handle    clock.Timer
	// seq is bumped on every schedule; a callback carrying an older seq is
	// stale.
	seq uint64
}

// Engine schedules timers on a Clock and calls onFire with the id when a
// timer runs out. onFire runs without the engine lock held, so it may call
// back into the engine.
type Engine struct {
	clock  clock.Clock
	onFire func(id string)
	log    zerolog.Logger

	mu     sync.Mutex
	timers map[string]*timer
}

// New creates an Engine.
func New(c clock.Clock, onFire func(id string), logger zerolog.Logger) *Engine {
	return &Engine{
		clock:  c,
		onFire: onFire,
		log:    logger,
		timers: make(map[string]*timer),
	}
}

// Start schedules a timer for id. A non-positive d is a no-op. An existing
// timer for id is cancelled and replaced.
func (e *Engine) Start(id string, d time.Duration) {
	if d <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.timers[id]; ok {
		e.stopLocked(old)
	}

	t := &timer{
		id:        id,
		original:  d,
		remaining: d,
		startedAt: e.clock.Now(),
	}
	e.timers[id] = t
	e.scheduleLocked(t)
}

// Pause freezes the countdown for id. Unknown or already paused ids are
// ignored.
func (e *Engine) Pause(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.timers[id]
	if !ok || t.paused {
		return
	}

	t.remaining = e.remainingLocked(t)
	t.paused = true
	e.stopLocked(t)

	e.log.Debug().Str("id", id).Dur("remaining", t.remaining).Msg("timer paused")
}

// Resume restarts the countdown for a paused id with its remaining time.
// Unknown or running ids are ignored.
func (e *Engine) Resume(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.timers[id]
	if !ok || !t.paused {
		return
	}

	t.paused = false
	t.startedAt = e.clock.Now()
	e.scheduleLocked(t)
}

// Cancel discards the timer for id. Unknown ids are ignored.
func (e *Engine) Cancel(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[id]; ok {
		e.stopLocked(t)
		delete(e.timers, id)
	}
}

// CancelAll discards every timer.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, t := range e.timers {
		e.stopLocked(t)
		delete(e.timers, id)
	}
}

// State reports the timer for id, or false if there is none.
func (e *Engine) State(id string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.timers[id]
	if !ok {
		return State{}, false
	}
	return State{
		Remaining: e.remainingLocked(t),
		Original:  t.original,
		Paused:    t.paused,
	}, true
}

// IDs returns the ids with a timer, sorted.
func (e *Engine) IDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.timers))
	for id := range e.timers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of timers.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

func (e *Engine) remainingLocked(t *timer) time.Duration {
	if t.paused {
		return t.remaining
	}
	left := t.remaining - e.clock.Now().Sub(t.startedAt)
	return max(left, 0)
}

func (e *Engine) scheduleLocked(t *timer) {
	t.seq++
	seq := t.seq
	t.handle = e.clock.AfterFunc(t.remaining, func() { e.fire(t, seq) })
}

func (e *Engine) stopLocked(t *timer) {
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
}

// fire runs when t's scheduled callback executes. A callback for a timer
// that was replaced, cancelled, paused or rescheduled in the meantime does
// nothing.
func (e *Engine) fire(t *timer, seq uint64) {
	e.mu.Lock()
	if e.timers[t.id] != t || t.paused || t.seq != seq {
		e.mu.Unlock()
		e.log.Debug().Str("id", t.id).Msg("ignoring stale timer")
		return
	}
	delete(e.timers, t.id)
	e.mu.Unlock()

	if e.onFire != nil {
		e.onFire(t.id)
	}
}
