// Package kv provides the string key-value stores that back guest data.
//
// Three backends share the Store interface: MemStore for tests and mock
// mode, FileStore for a TOML document on disk and SQLStore for a SQLite
// table through bun.
package kv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a persistent string-keyed store.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Open builds the store for backend. The returned closer releases any
// underlying resources and is never nil.
func Open(ctx context.Context, backend Backend, path string) (Store, io.Closer, error) {
	switch backend {
	case BackendMemory:
		return NewMemStore(), nopCloser{}, nil
	case BackendFile, "":
		store, err := NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	case BackendSQLite:
		store, err := OpenSQLStore(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MemStore keeps values in memory.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
