package state

import (
	"encoding/json"
	"fmt"
)

// Key names a slot in the Store.
type Key string

// Definition describes a slot to the Store. It is implemented by Slot[T].
type Definition interface {
	Key() Key
	meta() slotMeta
}

// slotMeta is the type-erased form of a Slot used by the Store.
type slotMeta struct {
	initial func() any
	clone   func(any) any
	decode  func([]byte) (any, error)
	accepts func(any) bool
	persist bool
}

// Slot is a typed handle to one named value in a Store.
type Slot[T any] struct {
	key      Key
	initial  func() T
	clone    func(T) T
	validate func(T) error
	persist  bool
}

// SlotOption configures a Slot.
type SlotOption[T any] func(*Slot[T])

// Persist marks the slot as backed by durable storage.
func Persist[T any]() SlotOption[T] {
	return func(s *Slot[T]) { s.persist = true }
}

// CloneWith sets the function used to copy values in and out of the Store.
// Slots holding slices, maps or pointers need one so callers never share
// memory with the Store. Without it values are copied by assignment.
func CloneWith[T any](fn func(T) T) SlotOption[T] {
	return func(s *Slot[T]) { s.clone = fn }
}

// ValidateWith rejects persisted values that fail fn when they are loaded.
func ValidateWith[T any](fn func(T) error) SlotOption[T] {
	return func(s *Slot[T]) { s.validate = fn }
}

// NewSlot declares a slot. initial produces the default value used at
// startup and after Clear.
func NewSlot[T any](key Key, initial func() T, opts ...SlotOption[T]) Slot[T] {
	s := Slot[T]{
		key:     key,
		initial: initial,
		clone:   func(v T) T { return v },
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Key returns the slot name.
func (s Slot[T]) Key() Key { return s.key }

// Get returns a copy of the slot's current value. It panics if the slot was
// not registered with the Store.
func (s Slot[T]) Get(st *Store) T {
	v, ok := st.Get(s.key)
	if !ok {
		panic(fmt.Sprintf("state: slot %q is not registered", s.key))
	}
	return v.(T)
}

// Set replaces the slot's value.
func (s Slot[T]) Set(st *Store, v T) error {
	return st.Set(Patch{s.key: v})
}

// Update atomically replaces the slot's value with fn(current). fn receives
// a copy it may modify and runs with the Store locked, so it must not call
// back into the Store.
func (s Slot[T]) Update(st *Store, fn func(T) T) error {
	return st.Update(s.key, func(v any) any { return fn(v.(T)) })
}

// From extracts the slot's value from a change notification.
func (s Slot[T]) From(c Change) (T, bool) {
	v, ok := c.Value(s.key)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

func (s Slot[T]) meta() slotMeta {
	return slotMeta{
		initial: func() any { return s.initial() },
		clone:   func(v any) any { return s.clone(v.(T)) },
		decode: func(data []byte) (any, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			if s.validate != nil {
				if err := s.validate(v); err != nil {
					return nil, err
				}
			}
			return v, nil
		},
		accepts: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
		persist: s.persist,
	}
}
