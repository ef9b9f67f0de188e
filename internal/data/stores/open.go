// Package stores provides the durable key/value backends of the state store.
package stores

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Backends lists every backend name.
var Backends = []string{BackendMemory, BackendFile, BackendSQLite}

// Storage is a state.Storage that can list its keys and be closed.
type Storage interface {
	state.Storage
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*SQLiteStorage)(nil)
)

// Open creates the named backend. path is ignored by the memory backend.
func Open(backend, path string, logger zerolog.Logger) (Storage, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendFile:
		return NewFileStorage(path), nil
	case BackendSQLite:
		return OpenSQLiteStorage(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
