package credstore

import (
	"context"
	"sync"

	"docudrop-backend/pkg/models"
)

// MemoryStore keeps credentials in a mutex-guarded map. Intended for tests
// and local development only.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]models.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]models.Credential)}
}

func (m *MemoryStore) ReadCurrent(_ context.Context, appName string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[appName]
	if !ok {
		return nil, ErrNotFound
	}
	out := cred
	return &out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, appName string, cred *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds[appName] = *cred
	return nil
}
