package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
)

// storageFile is the root JSON structure stored on disk.
type storageFile struct {
	Entries map[string]string `json:"entries"`
}

// FileStorage implements state.Storage as a single JSON file. Every write
// rewrites the file atomically.
type FileStorage struct {
	path string
	mu   sync.RWMutex
}

var _ state.Storage = (*FileStorage)(nil)

// NewFileStorage creates a storage backed by the JSON file at path. The file
// is created on first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return "", err
	}

	v, ok := file.Entries[key]
	if !ok {
		return "", state.ErrNotFound
	}
	return v, nil
}

func (s *FileStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	file.Entries[key] = value
	return s.save(file)
}

func (s *FileStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := file.Entries[key]; !ok {
		return nil
	}
	delete(file.Entries, key)
	return s.save(file)
}

// Keys returns every stored key in ascending order.
func (s *FileStorage) Keys(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(file.Entries)), nil
}

func (s *FileStorage) Close() error { return nil }

// load reads the storage file. A missing or empty file is an empty storage.
func (s *FileStorage) load() (storageFile, error) {
	empty := storageFile{Entries: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return storageFile{}, fmt.Errorf("read storage file: %w", err)
	}

	if len(data) == 0 {
		return empty, nil
	}

	var file storageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return storageFile{}, fmt.Errorf("decode storage file %s: %w", s.path, err)
	}
	if file.Entries == nil {
		file.Entries = map[string]string{}
	}

	return file, nil
}

// save writes the storage file to disk atomically.
func (s *FileStorage) save(file storageFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
