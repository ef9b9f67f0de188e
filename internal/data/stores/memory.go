package stores

import (
	"context"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/kv"
)

// MemoryStorage implements state.Storage in process memory. Nothing survives
// a restart.
type MemoryStorage struct {
	data *kv.Store[string, string]
}

var _ state.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: kv.New[string, string]()}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data.Get(key)
	if !ok {
		return "", state.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.data.Set(key, value)
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

// Keys returns every stored key in ascending order.
func (m *MemoryStorage) Keys(context.Context) ([]string, error) {
	return m.data.Keys(), nil
}

func (m *MemoryStorage) Close() error { return nil }
