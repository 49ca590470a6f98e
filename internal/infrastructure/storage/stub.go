// Package storage provides object storage for archived operation payloads.
package storage

import (
	"context"
	"errors"
	"sync"

	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
)

// MemoryArtifactStore keeps archived batches in memory. It backs the
// purge flow in development and tests when no S3 endpoint is configured.
// WARNING: archived payloads are lost on restart.
type MemoryArtifactStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// BaseURL is the prefix for the returned object locations
	BaseURL string
}

// NewMemoryArtifactStore creates a new MemoryArtifactStore
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{
		objects: make(map[string][]byte),
		BaseURL: "mem://archive",
	}
}

// Ensure MemoryArtifactStore implements ArtifactStore
var _ bridgeapp.ArtifactStore = (*MemoryArtifactStore)(nil)

// Upload stores the batch in memory and returns its location
func (s *MemoryArtifactStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf

	return s.BaseURL + "/" + key, nil
}

// Get returns a stored batch
func (s *MemoryArtifactStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of stored batches
func (s *MemoryArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
