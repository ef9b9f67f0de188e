// Package notify defines the notification domain: entities, display options,
// process-wide settings and their validation rules.
package notify

import (
	"slices"
	"time"
)

// Type is the category of a notification.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Types lists every valid Type in display order.
var Types = []Type{TypeSuccess, TypeError, TypeWarning, TypeInfo}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	return slices.Contains(Types, t)
}

// Position is the screen corner a notification is anchored to.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// Positions lists every valid Position.
var Positions = []Position{PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight}

// Valid reports whether p is one of the known positions.
func (p Position) Valid() bool {
	return slices.Contains(Positions, p)
}

// Top reports whether the position is anchored to the top edge.
func (p Position) Top() bool {
	return p == PositionTopLeft || p == PositionTopRight
}

// Options are the resolved display options of a stored notification.
// Duration is in milliseconds; zero means the notification is persistent.
type Options struct {
	Duration   int      `json:"duration"`
	Persistent bool     `json:"persistent"`
	Closable   bool     `json:"closable"`
	Position   Position `json:"position"`
	Priority   int      `json:"priority"`
}

// Notification is a single user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Options   Options   `json:"options"`
}

// Age returns how long ago the notification was created.
func (n Notification) Age(now time.Time) time.Duration {
	return now.Sub(n.Timestamp)
}

// Protected reports whether n must never be removed by eviction or sweeps:
// it is persistent, or its type is one of persistentTypes.
func (n Notification) Protected(persistentTypes []Type) bool {
	return n.Options.Persistent || slices.Contains(persistentTypes, n.Type)
}

// ShowOptions are the caller-supplied options for a new notification.
// Unset fields fall back to settings.
type ShowOptions struct {
	// Duration in milliseconds. Nil resolves through Settings.CustomDurations
	// and then Settings.DefaultDuration.
	Duration *int
	// Persistent forces a zero duration.
	Persistent bool
	// Closable defaults to true.
	Closable *bool
	// Position defaults to Settings.Position.
	Position Position
	Priority int
}

// Duration is a helper for building ShowOptions literals.
func Duration(ms int) *int { return &ms }

// Closable is a helper for building ShowOptions literals.
func Closable(v bool) *bool { return &v }
