package port

import (
	"context"
	"errors"

	"github.com/rl1809/stock-tracker/internal/core/domain"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists under the name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

type SnapshotRepository interface {
	// Load reads the snapshot stored under name, returns ErrSnapshotNotFound if there is none
	Load(ctx context.Context, name string) (domain.Snapshot, error)

	// Save replaces the snapshot stored under name
	Save(ctx context.Context, name string, snapshot domain.Snapshot) error
}
