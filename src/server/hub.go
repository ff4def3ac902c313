package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
)

const DefaultKeepAlive = 30 * time.Second

// -----------------------------------------------------------------------------
// Hub is the subscriber registry and the broadcaster. Registration and
// broadcast iteration share one mutex, so a subscriber never sees an older
// batch after a newer one.
// -----------------------------------------------------------------------------

type Hub struct {
	Source    interfaces.IPriceSource
	KeepAlive time.Duration
	Logger    *logger.Logger

	mu          sync.Mutex
	subscribers map[string]interfaces.ISubscriber
	closed      bool
}

// -----------------------------------------------------------------------------

func NewHub(source interfaces.IPriceSource, keepAlive time.Duration, log *logger.Logger) *Hub {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &Hub{
		Source:      source,
		KeepAlive:   keepAlive,
		Logger:      log,
		subscribers: make(map[string]interfaces.ISubscriber),
	}
}

// -----------------------------------------------------------------------------

// Register adds sub and captures its bootstrap snapshot in the same critical
// section. On a closed hub the subscriber is closed straight away.
func (h *Hub) Register(sub *Subscriber) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.Close()
		return sub
	}

	payload, err := json.Marshal(models.NewPricePush(h.Source.State()))
	if err != nil {
		h.Logger.Error("Failed to encode bootstrap snapshot: %v", err)
	} else {
		sub.bootstrap = payload
	}

	h.subscribers[sub.ID()] = sub
	h.Logger.Debug("Subscriber %s registered (%s), total %d", sub.ID(), sub.Transport(), len(h.subscribers))
	return sub
}

// -----------------------------------------------------------------------------

func (h *Hub) Unregister(sub interfaces.ISubscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub.ID()]
	delete(h.subscribers, sub.ID())
	total := len(h.subscribers)
	h.mu.Unlock()

	sub.Close()
	if ok {
		h.Logger.Debug("Subscriber %s removed, total %d", sub.ID(), total)
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// -----------------------------------------------------------------------------

// Broadcast encodes state once and hands the same bytes to every subscriber.
// Subscribers that refuse the push are dropped before the call returns.
func (h *Hub) Broadcast(state models.MPriceState) {
	payload, err := json.Marshal(models.NewPricePush(state))
	if err != nil {
		h.Logger.Error("Failed to encode broadcast: %v", err)
		return
	}

	h.mu.Lock()
	var dropped int
	for id, sub := range h.subscribers {
		if err := sub.Push(payload); err != nil {
			delete(h.subscribers, id)
			sub.Close()
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		h.Logger.Debug("Dropped %d closed subscriber(s)", dropped)
	}
}

// -----------------------------------------------------------------------------

// Serve pumps one subscriber into its transport: bootstrap first, then
// broadcasts as they arrive, and a keep-alive on every idle interval tick.
// It returns when ctx ends, the subscriber is closed, or a write fails; the
// subscriber is unregistered in every case.
func (h *Hub) Serve(ctx context.Context, sub *Subscriber, sink interfaces.ISink) error {
	defer h.Unregister(sub)

	if b := sub.Bootstrap(); b != nil {
		if err := sink.WritePayload(b); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(h.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return nil
		case payload := <-sub.Mailbox():
			if err := sink.WritePayload(payload); err != nil {
				return err
			}
		case <-ticker.C:
			if err := sink.WriteKeepAlive(); err != nil {
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------

// CloseAll closes every subscriber and refuses new ones. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]interfaces.ISubscriber)
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	if len(subs) > 0 {
		h.Logger.Info("Closed %d subscriber(s)", len(subs))
	}
}
