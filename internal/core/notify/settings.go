package notify

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/hay-kot/criterio"
)

// Settings is the process-wide notification configuration. Durations are in
// milliseconds.
type Settings struct {
	MaxVisible             int          `json:"maxVisible"`
	DefaultDuration        int          `json:"defaultDuration"`
	Position               Position     `json:"position"`
	EnableSounds           bool         `json:"enableSounds"`
	EnableAnimations       bool         `json:"enableAnimations"`
	AutoCleanupInterval    int          `json:"autoCleanupInterval"`
	MaxStoredNotifications int          `json:"maxStoredNotifications"`
	PersistentTypes        []Type       `json:"persistentTypes"`
	SoundVolume            float64      `json:"soundVolume"`
	CustomDurations        map[Type]int `json:"customDurations"`
}

// DefaultSettings returns the settings used when nothing has been persisted.
func DefaultSettings() Settings {
	return Settings{
		MaxVisible:             5,
		DefaultDuration:        5000,
		Position:               PositionTopRight,
		EnableSounds:           false,
		EnableAnimations:       true,
		AutoCleanupInterval:    300000,
		MaxStoredNotifications: 50,
		PersistentTypes:        []Type{TypeError},
		SoundVolume:            0.5,
		CustomDurations: map[Type]int{
			TypeSuccess: 4000,
			TypeInfo:    5000,
			TypeWarning: 6000,
			TypeError:   0,
		},
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.PersistentTypes = slices.Clone(s.PersistentTypes)
	s.CustomDurations = maps.Clone(s.CustomDurations)
	return s
}

// IsPersistentType reports whether notifications of type t are always persistent.
func (s Settings) IsPersistentType(t Type) bool {
	return slices.Contains(s.PersistentTypes, t)
}

// DurationFor resolves the effective duration in milliseconds for a new
// notification: explicit override, then the per-type custom duration, then
// the default.
func (s Settings) DurationFor(t Type, override *int) int {
	if override != nil {
		return *override
	}
	if d, ok := s.CustomDurations[t]; ok {
		return d
	}
	return s.DefaultDuration
}

// SettingsUpdate is a partial Settings. Nil fields are left unchanged.
type SettingsUpdate struct {
	MaxVisible             *int          `json:"maxVisible,omitempty" yaml:"max_visible"`
	DefaultDuration        *int          `json:"defaultDuration,omitempty" yaml:"default_duration"`
	Position               *Position     `json:"position,omitempty" yaml:"position"`
	EnableSounds           *bool         `json:"enableSounds,omitempty" yaml:"enable_sounds"`
	EnableAnimations       *bool         `json:"enableAnimations,omitempty" yaml:"enable_animations"`
	AutoCleanupInterval    *int          `json:"autoCleanupInterval,omitempty" yaml:"auto_cleanup_interval"`
	MaxStoredNotifications *int          `json:"maxStoredNotifications,omitempty" yaml:"max_stored_notifications"`
	PersistentTypes        *[]Type       `json:"persistentTypes,omitempty" yaml:"persistent_types"`
	SoundVolume            *float64      `json:"soundVolume,omitempty" yaml:"sound_volume"`
	CustomDurations        *map[Type]int `json:"customDurations,omitempty" yaml:"custom_durations"`
}

// IsEmpty reports whether the update carries no fields.
func (u SettingsUpdate) IsEmpty() bool {
	return u == SettingsUpdate{}
}

// UpdateFrom returns an update that sets every field to the value in s.
func UpdateFrom(s Settings) SettingsUpdate {
	s = s.Clone()
	return SettingsUpdate{
		MaxVisible:             &s.MaxVisible,
		DefaultDuration:        &s.DefaultDuration,
		Position:               &s.Position,
		EnableSounds:           &s.EnableSounds,
		EnableAnimations:       &s.EnableAnimations,
		AutoCleanupInterval:    &s.AutoCleanupInterval,
		MaxStoredNotifications: &s.MaxStoredNotifications,
		PersistentTypes:        &s.PersistentTypes,
		SoundVolume:            &s.SoundVolume,
		CustomDurations:        &s.CustomDurations,
	}
}

// settingsRule validates one field of a SettingsUpdate. check returns nil when
// the field is absent.
type settingsRule struct {
	field string
	check func(u SettingsUpdate) error
}

var settingsRules = []settingsRule{
	{"maxVisible", func(u SettingsUpdate) error { return optional(u.MaxVisible, intBetween(1, 20)) }},
	{"defaultDuration", func(u SettingsUpdate) error { return optional(u.DefaultDuration, intAtLeast(0)) }},
	{"position", func(u SettingsUpdate) error { return optional(u.Position, validPosition) }},
	{"autoCleanupInterval", func(u SettingsUpdate) error { return optional(u.AutoCleanupInterval, intAtLeast(60000)) }},
	{"maxStoredNotifications", func(u SettingsUpdate) error { return optional(u.MaxStoredNotifications, intAtLeast(10)) }},
	{"persistentTypes", func(u SettingsUpdate) error { return optional(u.PersistentTypes, validTypes) }},
	{"soundVolume", func(u SettingsUpdate) error { return optional(u.SoundVolume, unitInterval) }},
	{"customDurations", func(u SettingsUpdate) error { return optional(u.CustomDurations, validDurations) }},
}

// ValidateUpdate checks every supplied field of u. It returns
// criterio.FieldErrors listing each invalid field, or nil.
func ValidateUpdate(u SettingsUpdate) error {
	var errs criterio.FieldErrorsBuilder
	for _, rule := range settingsRules {
		if err := rule.check(u); err != nil {
			errs = errs.Append(rule.field, err)
		}
	}
	return errs.ToError()
}

// Apply returns a copy of s with the fields of u merged in. It does not
// validate; call ValidateUpdate first.
func (s Settings) Apply(u SettingsUpdate) Settings {
	out := s.Clone()
	if u.MaxVisible != nil {
		out.MaxVisible = *u.MaxVisible
	}
	if u.DefaultDuration != nil {
		out.DefaultDuration = *u.DefaultDuration
	}
	if u.Position != nil {
		out.Position = *u.Position
	}
	if u.EnableSounds != nil {
		out.EnableSounds = *u.EnableSounds
	}
	if u.EnableAnimations != nil {
		out.EnableAnimations = *u.EnableAnimations
	}
	if u.AutoCleanupInterval != nil {
		out.AutoCleanupInterval = *u.AutoCleanupInterval
	}
	if u.MaxStoredNotifications != nil {
		out.MaxStoredNotifications = *u.MaxStoredNotifications
	}
	if u.PersistentTypes != nil {
		out.PersistentTypes = slices.Clone(*u.PersistentTypes)
	}
	if u.SoundVolume != nil {
		out.SoundVolume = *u.SoundVolume
	}
	if u.CustomDurations != nil {
		out.CustomDurations = maps.Clone(*u.CustomDurations)
	}
	return out
}

func optional[T any](v *T, fn func(T) error) error {
	if v == nil {
		return nil
	}
	return fn(*v)
}

func intBetween(lo, hi int) func(int) error {
	return func(v int) error {
		if v < lo || v > hi {
			return fmt.Errorf("must be between %d and %d, got %d", lo, hi, v)
		}
		return nil
	}
}

func intAtLeast(lo int) func(int) error {
	return func(v int) error {
		if v < lo {
			return fmt.Errorf("must be at least %d, got %d", lo, v)
		}
		return nil
	}
}

func validPosition(p Position) error {
	if !p.Valid() {
		return fmt.Errorf("unknown position %q", p)
	}
	return nil
}

func validTypes(types []Type) error {
	for _, t := range types {
		if !t.Valid() {
			return fmt.Errorf("unknown type %q", t)
		}
	}
	return nil
}

func unitInterval(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("must be between 0.0 and 1.0, got %v", v)
	}
	return nil
}

func validDurations(durations map[Type]int) error {
	for t, d := range durations {
		if !t.Valid() {
			return fmt.Errorf("unknown type %q", t)
		}
		if d < 0 {
			return fmt.Errorf("duration for %s must be at least 0, got %d", t, d)
		}
	}
	return nil
}
