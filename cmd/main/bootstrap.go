package main

import (
	"context"
	"time"

	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
	"price-relay/src/pricetable"
)

// seedTable fills the table before the feed starts: stored snapshots first
// when warm start is on, then the fixed static prices on top.
func seedTable(
	ctx context.Context,
	table *pricetable.PriceTable,
	config *models.MConfig,
	store interfaces.ISnapshotStore,
	appLogger *logger.Logger,
) {
	seeded := 0

	if store != nil && config.Storage.WarmStart {
		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		stored, err := store.LoadSnapshots(loadCtx)
		cancel()
		if err != nil {
			appLogger.Warning("Warm start skipped: %v", err)
		}
		for id, snap := range stored {
			if table.Seed(id, snap) {
				seeded++
			}
		}
		appLogger.Info("Warm start restored %d token(s)", seeded)
	}

	for id, sp := range config.StaticPrices {
		if table.Seed(id, models.MPriceSnapshot{
			Price:                    sp.Price,
			PriceChangePercentage24h: sp.PriceChangePercentage24h,
		}) {
			seeded++
		}
	}

	if seeded > 0 {
		table.MarkUpdated(time.Now())
	}
}
