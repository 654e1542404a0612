package snapshot

import (
	"context"
	"errors"
	"time"
)

// Store persists snapshots by name.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot, replacing any snapshot with the same name.
	Save(ctx context.Context, s Snapshot) error

	// Load retrieves a snapshot.
	// Returns ErrNotFound if no snapshot has that name.
	Load(ctx context.Context, name string) (Snapshot, error)

	// List returns metadata for every snapshot, ordered by name.
	// Returns an empty slice (not error) if the store is empty.
	List(ctx context.Context) ([]Info, error)

	// Delete removes a snapshot.
	// Returns nil if it doesn't exist.
	Delete(ctx context.Context, name string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading entries.
type Info struct {
	Name    string
	Taken   time.Time
	Entries int
}

// Sentinel errors for snapshot stores.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")

	// ErrNoName indicates a snapshot without a name was saved.
	ErrNoName = errors.New("snapshot name is required")
)
