package interfaces

import (
	"context"

	"price-relay/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotStore keeps the latest snapshot per token (no history).
// -----------------------------------------------------------------------------

type ISnapshotStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSnapshots upserts one row per token.
	SaveSnapshots(ctx context.Context, snapshots map[string]models.MPriceSnapshot) error

	// -----------------------------------------------------------------------------

	// LoadSnapshots returns every stored row keyed by token id.
	LoadSnapshots(ctx context.Context) (map[string]models.MPriceSnapshot, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
