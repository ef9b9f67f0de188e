// Package state provides a reactive key/value store. Values live in named
// slots; a configured subset is persisted to durable storage, and
// subscribers are notified synchronously when slots they watch change.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// KeyPrefix namespaces persisted slots in durable storage.
const KeyPrefix = "wardnotify:"

// ErrNotFound is returned by Storage.Get for a missing key.
var ErrNotFound = errors.New("state: key not found")

// Storage is the durable key/value backing for persisted slots. Values are
// JSON text.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Patch maps slot keys to new values for Set.
type Patch map[Key]any

// Change is delivered to subscribers after a Set, Update or Clear. It holds
// copies of the current values of the changed keys the subscriber watches.
type Change struct {
	Keys   []Key
	values map[Key]any
}

// Has reports whether key changed.
func (c Change) Has(key Key) bool {
	return slices.Contains(c.Keys, key)
}

// Value returns the value of a changed key.
func (c Change) Value(key Key) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Subscriber is called after watched slots change.
type Subscriber func(Change)

type subscription struct {
	id   uint64
	keys []Key
	fn   Subscriber
}

// Store holds application state. All mutation goes through Set, Update and
// Clear; readers always receive copies.
type Store struct {
	log     zerolog.Logger
	storage Storage

	mu     sync.RWMutex
	metas  map[Key]slotMeta
	values map[Key]any

	subMu  sync.Mutex
	subs   []*subscription
	nextID uint64
}

// New creates a Store with the given slots and loads persisted slots from
// storage. A nil storage keeps everything in memory. Missing or corrupt
// persisted entries fall back to the slot default.
func New(storage Storage, logger zerolog.Logger, defs ...Definition) *Store {
	s := &Store{
		log:     logger,
		storage: storage,
		metas:   make(map[Key]slotMeta, len(defs)),
		values:  make(map[Key]any, len(defs)),
	}

	for _, def := range defs {
		meta := def.meta()
		s.metas[def.Key()] = meta
		s.values[def.Key()] = meta.initial()
	}

	s.load()
	return s
}

func (s *Store) load() {
	if s.storage == nil {
		return
	}

	ctx := context.Background()
	for key, meta := range s.metas {
		if !meta.persist {
			continue
		}

		raw, err := s.storage.Get(ctx, KeyPrefix+string(key))
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				s.log.Warn().Err(err).Str("key", string(key)).Msg("failed to load persisted slot")
			}
			continue
		}

		v, err := meta.decode([]byte(raw))
		if err != nil {
			s.log.Warn().Err(err).Str("key", string(key)).Msg("ignoring corrupt persisted slot")
			continue
		}
		s.values[key] = v
	}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	return s.metas[key].clone(v), true
}

// Snapshot returns copies of every slot.
func (s *Store) Snapshot() map[Key]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Key]any, len(s.values))
	for k, v := range s.values {
		out[k] = s.metas[k].clone(v)
	}
	return out
}

// Set applies every entry of patch or none of them. Unknown keys and values
// of the wrong type are rejected with an error. Persisted slots are written
// to storage, then subscribers are notified before Set returns.
func (s *Store) Set(patch Patch) error {
	if len(patch) == 0 {
		return nil
	}

	s.mu.Lock()
	for key, v := range patch {
		meta, ok := s.metas[key]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("state: unknown key %q", key)
		}
		if !meta.accepts(v) {
			s.mu.Unlock()
			return fmt.Errorf("state: value of type %T not accepted for key %q", v, key)
		}
	}

	keys := make([]Key, 0, len(patch))
	for key, v := range patch {
		s.values[key] = s.metas[key].clone(v)
		keys = append(keys, key)
	}
	slices.Sort(keys)
	s.persistLocked(keys)
	s.mu.Unlock()

	s.notify(keys)
	return nil
}

// Update atomically replaces the value under key with fn(current). fn runs
// with the Store locked and receives a copy of the current value.
func (s *Store) Update(key Key, fn func(any) any) error {
	s.mu.Lock()
	meta, ok := s.metas[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("state: unknown key %q", key)
	}

	next := fn(meta.clone(s.values[key]))
	if !meta.accepts(next) {
		s.mu.Unlock()
		return fmt.Errorf("state: value of type %T not accepted for key %q", next, key)
	}
	s.values[key] = next
	s.persistLocked([]Key{key})
	s.mu.Unlock()

	s.notify([]Key{key})
	return nil
}

// Clear resets every slot not listed in keep to its default and removes the
// durable copy of reset persisted slots.
func (s *Store) Clear(keep ...Key) {
	s.mu.Lock()
	var keys []Key
	for key, meta := range s.metas {
		if slices.Contains(keep, key) {
			continue
		}
		s.values[key] = meta.initial()
		keys = append(keys, key)

		if meta.persist && s.storage != nil {
			if err := s.storage.Remove(context.Background(), KeyPrefix+string(key)); err != nil {
				s.log.Warn().Err(err).Str("key", string(key)).Msg("failed to remove persisted slot")
			}
		}
	}
	slices.Sort(keys)
	s.mu.Unlock()

	s.notify(keys)
}

// Subscribe registers fn for changes to any of keys. With no keys fn sees
// every change. The returned function unsubscribes and is safe to call more
// than once.
func (s *Store) Subscribe(keys []Key, fn Subscriber) func() {
	s.subMu.Lock()
	s.nextID++
	sub := &subscription{id: s.nextID, keys: slices.Clone(keys), fn: fn}
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(x *subscription) bool { return x.id == sub.id })
		})
	}
}

// persistLocked writes persisted slots among keys. Storage failures are
// logged and the Store continues in memory.
func (s *Store) persistLocked(keys []Key) {
	if s.storage == nil {
		return
	}

	for _, key := range keys {
		if !s.metas[key].persist {
			continue
		}

		data, err := json.Marshal(s.values[key])
		if err != nil {
			s.log.Warn().Err(err).Str("key", string(key)).Msg("failed to encode slot for storage")
			continue
		}
		if err := s.storage.Set(context.Background(), KeyPrefix+string(key), string(data)); err != nil {
			s.log.Warn().Err(err).Str("key", string(key)).Msg("failed to persist slot, continuing in memory")
		}
	}
}

// notify calls every subscriber interested in keys, in registration order.
// A subscriber that calls Set is fully dispatched before the next
// subscriber of the outer change runs.
func (s *Store) notify(keys []Key) {
	if len(keys) == 0 {
		return
	}

	s.subMu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		matched := keys
		if len(sub.keys) > 0 {
			matched = nil
			for _, k := range keys {
				if slices.Contains(sub.keys, k) {
					matched = append(matched, k)
				}
			}
			if len(matched) == 0 {
				continue
			}
		}

		s.dispatch(sub, s.change(matched))
	}
}

func (s *Store) change(keys []Key) Change {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[Key]any, len(keys))
	for _, k := range keys {
		values[k] = s.metas[k].clone(s.values[k])
	}
	return Change{Keys: slices.Clone(keys), values: values}
}

func (s *Store) dispatch(sub *subscription, c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Strs("keys", keyStrings(c.Keys)).
				Msg("subscriber panicked")
		}
	}()
	sub.fn(c)
}

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
