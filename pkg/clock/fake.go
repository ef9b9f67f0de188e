package clock

import (
	"sync"
	"time"
)

// Fake is a virtual Clock. Time only moves when Advance is called, and due
// callbacks run inline on the caller's goroutine in due order. Callbacks may
// schedule or stop other timers, including ones that fall due within the
// same Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*fakeTimer
}

var _ Clock = (*Fake)(nil)

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

type fakeTimer struct {
	clock *Fake
	due   time.Time
	seq   uint64
	fn    func()
}

// Stop removes the timer from the pending set.
func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.pending {
		if p == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Now returns the virtual time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn to run once the virtual time reaches now+d.
func (c *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, due: c.now.Add(d), seq: c.seq, fn: fn}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves the virtual time forward by d, running every callback that
// falls due. Before each callback the clock is set to that callback's due
// time, so Now() inside a callback reports when it was scheduled to fire.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.due.After(c.now) {
			c.now = next.due
		}
		c.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled callbacks that have not run.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// nextDueLocked pops the earliest timer due at or before target.
func (c *Fake) nextDueLocked(target time.Time) *fakeTimer {
	idx := -1
	for i, t := range c.pending {
		if t.due.After(target) {
			continue
		}
		if idx == -1 || t.due.Before(c.pending[idx].due) ||
			(t.due.Equal(c.pending[idx].due) && t.seq < c.pending[idx].seq) {
			idx = i
		}
	}
	if idx == -1 {
		return nil
	}

	t := c.pending[idx]
	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
	return t
}
