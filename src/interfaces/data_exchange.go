package interfaces

import (
	"context"

	"price-relay/src/models"
)

// -----------------------------------------------------------------------------
// IBroadcaster receives the table state after every batch that changed it.
// -----------------------------------------------------------------------------

type IBroadcaster interface {
	Broadcast(state models.MPriceState)
}

// -----------------------------------------------------------------------------
// IPriceSource is the read-only view of the price table.
// -----------------------------------------------------------------------------

type IPriceSource interface {

	// SnapshotAll returns a read-consistent copy of every entry.
	SnapshotAll() map[string]models.MPriceSnapshot

	// -----------------------------------------------------------------------------

	// State returns the table and its last-change timestamp read together.
	State() models.MPriceState

	// -----------------------------------------------------------------------------

	// Get returns one entry.
	Get(id string) (models.MPriceSnapshot, bool)
}

// -----------------------------------------------------------------------------
// ISubscriber is a registered downstream push channel.
// -----------------------------------------------------------------------------

type ISubscriber interface {
	ID() string

	// -----------------------------------------------------------------------------

	// Push hands a payload to the subscriber without blocking.
	// An error means the subscriber is gone.
	Push(payload []byte) error

	// -----------------------------------------------------------------------------

	// Close releases the subscriber. Safe to call more than once.
	Close()
}

// -----------------------------------------------------------------------------
// ISink writes to one subscriber's transport (SSE, websocket, gRPC stream).
// -----------------------------------------------------------------------------

type ISink interface {
	WritePayload(payload []byte) error
	WriteKeepAlive() error
}

// -----------------------------------------------------------------------------
// IUpstream is one supervised upstream connection lifecycle.
// -----------------------------------------------------------------------------

type IUpstream interface {

	// Run connects and consumes until the connection ends; it returns the cause.
	Run(ctx context.Context) error

	// -----------------------------------------------------------------------------

	State() models.UpstreamState
}

// -----------------------------------------------------------------------------
// IPublisher mirrors pushed payloads to an external system.
// -----------------------------------------------------------------------------

type IPublisher interface {
	Name() string
	Publish(ctx context.Context, push models.MPricePush) error
	Close() error
}

// -----------------------------------------------------------------------------
// IUpstreamControl is the operator view of the supervised upstream.
// -----------------------------------------------------------------------------

type IUpstreamControl interface {
	State() models.UpstreamState

	// -----------------------------------------------------------------------------

	// Reconnect skips the remaining back-off when disconnected.
	Reconnect() bool

	// -----------------------------------------------------------------------------

	Attempts() int64
}
