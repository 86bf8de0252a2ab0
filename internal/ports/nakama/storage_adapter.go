package nakama

import (
	"context"
	"fmt"

	"chaosclash/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NakamaSnapshotStore implements ports.SnapshotStore with system-owned storage objects.
type NakamaSnapshotStore struct {
	nk runtime.NakamaModule
}

// NewNakamaSnapshotStore creates a snapshot store backed by Nakama storage.
func NewNakamaSnapshotStore(nk runtime.NakamaModule) *NakamaSnapshotStore {
	return &NakamaSnapshotStore{nk: nk}
}

// SaveSnapshot overwrites the snapshot object for matchID.
func (s *NakamaSnapshotStore) SaveSnapshot(ctx context.Context, matchID string, snapshot []byte) error {
	_, err := s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      snapshotCollection,
		Key:             matchID,
		Value:           string(snapshot),
		PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", matchID, err)
	}
	return nil
}

// LoadSnapshot reads the snapshot object for matchID.
func (s *NakamaSnapshotStore) LoadSnapshot(ctx context.Context, matchID string) ([]byte, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: snapshotCollection,
		Key:        matchID,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", matchID, err)
	}
	if len(objects) == 0 {
		return nil, ports.ErrSnapshotNotFound
	}
	return []byte(objects[0].GetValue()), nil
}

var _ ports.SnapshotStore = (*NakamaSnapshotStore)(nil)
