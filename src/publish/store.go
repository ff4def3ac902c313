package publish

import (
	"context"

	"price-relay/src/interfaces"
	"price-relay/src/models"
)

// StorePublisher upserts the latest snapshot of every token.
type StorePublisher struct {
	Store interfaces.ISnapshotStore
}

func NewStorePublisher(store interfaces.ISnapshotStore) *StorePublisher {
	return &StorePublisher{Store: store}
}

func (s *StorePublisher) Name() string { return "store" }

func (s *StorePublisher) Publish(ctx context.Context, push models.MPricePush) error {
	return s.Store.SaveSnapshots(ctx, push.Data)
}

func (s *StorePublisher) Close() error {
	return s.Store.Close()
}
