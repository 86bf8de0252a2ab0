// Package store holds the snapshot stores used outside Nakama.
package store

import (
	"context"
	"sync"

	"chaosclash/internal/ports"
)

// MemoryStore implements ports.SnapshotStore with an in-memory map. Used for
// testing and development. Snapshots are lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, matchID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Store a copy to avoid external mutation.
	s.snapshots[matchID] = append([]byte(nil), snapshot...)
	return nil
}

func (s *MemoryStore) LoadSnapshot(_ context.Context, matchID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[matchID]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

var _ ports.SnapshotStore = (*MemoryStore)(nil)
