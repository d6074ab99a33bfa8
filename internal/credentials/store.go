// Package credentials persists per-backend API keys and the selected
// backend. Every call is a round trip to the backing store; nothing is
// cached in memory by callers.
package credentials

import (
	"context"
	"sync"
)

const selectedBackendKey = "selectedModel"

// Credential is the result of a key lookup. APIKey is empty when absent.
type Credential struct {
	Backend string
	APIKey  string
}

func (c Credential) Present() bool { return c.APIKey != "" }

type Store interface {
	SetKey(ctx context.Context, backend, apiKey string) error
	Key(ctx context.Context, backend string) (Credential, error)
	SetSelectedBackend(ctx context.Context, backend string) error
	SelectedBackend(ctx context.Context) (string, bool, error)
}

// MemoryStore is a process-local Store, used by tests and one-off runs.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) SetKey(_ context.Context, backend, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[backend] = apiKey
	return nil
}

func (m *MemoryStore) Key(_ context.Context, backend string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Credential{Backend: backend, APIKey: m.values[backend]}, nil
}

func (m *MemoryStore) SetSelectedBackend(_ context.Context, backend string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[selectedBackendKey] = backend
	return nil
}

func (m *MemoryStore) SelectedBackend(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[selectedBackendKey]
	return v, ok && v != "", nil
}
