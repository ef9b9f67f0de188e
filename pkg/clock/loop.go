package clock

import (
	"sync"
	"time"
)

// Loop is a Clock that queues callbacks instead of running them on the
// goroutine of the inner clock. A single owner receives from C and runs each
// callback to completion before taking the next, so timer callbacks never
// interleave with each other or with the owner's own work.
//
// A callback whose Timer was stopped after it fired may already be queued;
// callers guard against stale callbacks the same way they would with
// time.AfterFunc.
type Loop struct {
	inner Clock
	ch    chan func()
	done  chan struct{}
	once  sync.Once
}

var _ Clock = (*Loop)(nil)

// NewLoop wraps inner.
func NewLoop(inner Clock) *Loop {
	return &Loop{
		inner: inner,
		ch:    make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Now returns the inner clock's time.
func (l *Loop) Now() time.Time { return l.inner.Now() }

// AfterFunc schedules fn on the inner clock and queues it when due.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return l.inner.AfterFunc(d, func() { l.Post(fn) })
}

// Post queues fn. It blocks while the queue is full and returns without
// queueing once the loop is closed. It must not be called from the goroutine
// draining C.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}

	select {
	case l.ch <- fn:
	case <-l.done:
	}
}

// C delivers queued callbacks.
func (l *Loop) C() <-chan func() { return l.ch }

// Close stops accepting callbacks. Pending Post calls return.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}
