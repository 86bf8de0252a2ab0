package ports

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a match.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists encoded match snapshots keyed by match id.
type SnapshotStore interface {
	// SaveSnapshot overwrites the stored snapshot for matchID.
	SaveSnapshot(ctx context.Context, matchID string, snapshot []byte) error

	// LoadSnapshot returns the latest snapshot or ErrSnapshotNotFound.
	LoadSnapshot(ctx context.Context, matchID string) ([]byte, error)
}
