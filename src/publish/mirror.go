package publish

import (
	"context"
	"sync"
	"time"

	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
)

const defaultPublishTimeout = 5 * time.Second

// Mirror copies changed batches to external systems off the feed goroutine.
// It keeps only the newest state: a slow publisher skips intermediate batches
// instead of queueing them.
type Mirror struct {
	Publishers []interfaces.IPublisher
	Timeout    time.Duration
	Logger     *logger.Logger

	mu      sync.Mutex
	pending *models.MPriceState
	wake    chan struct{}
}

// -----------------------------------------------------------------------------

func NewMirror(log *logger.Logger, publishers ...interfaces.IPublisher) *Mirror {
	return &Mirror{
		Publishers: publishers,
		Timeout:    defaultPublishTimeout,
		Logger:     log,
		wake:       make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// Broadcast never blocks.
func (m *Mirror) Broadcast(state models.MPriceState) {
	m.mu.Lock()
	m.pending = &state
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

func (m *Mirror) take() *models.MPriceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.pending
	m.pending = nil
	return s
}

// -----------------------------------------------------------------------------

// Run publishes until ctx ends, then flushes the last pending state and
// closes every publisher.
func (m *Mirror) Run(ctx context.Context) error {
	defer m.closeAll()

	for {
		select {
		case <-ctx.Done():
			if s := m.take(); s != nil {
				flushCtx, cancel := context.WithTimeout(context.Background(), m.Timeout)
				m.publish(flushCtx, *s)
				cancel()
			}
			return nil
		case <-m.wake:
			if s := m.take(); s != nil {
				pubCtx, cancel := context.WithTimeout(ctx, m.Timeout)
				m.publish(pubCtx, *s)
				cancel()
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (m *Mirror) publish(ctx context.Context, state models.MPriceState) {
	push := models.NewPricePush(state)
	for _, p := range m.Publishers {
		if err := p.Publish(ctx, push); err != nil {
			m.Logger.Warning("Mirror %s failed: %v", p.Name(), err)
		}
	}
}

func (m *Mirror) closeAll() {
	for _, p := range m.Publishers {
		if err := p.Close(); err != nil {
			m.Logger.Warning("Closing mirror %s: %v", p.Name(), err)
		}
	}
}
