package main

import (
	"price-relay/src/config"
	"price-relay/src/feed/binance"
	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
	"price-relay/src/network"
	"price-relay/src/pricetable"
	"price-relay/src/publish"
	"price-relay/src/storage"
	"price-relay/src/symbols"
)

// -----------------------------------------------------------------------------

// setupStore opens the snapshot store, or returns nil when storage is off.
func setupStore(config *models.MConfig, appLogger *logger.Logger) (interfaces.ISnapshotStore, error) {
	if !config.Storage.Enabled {
		return nil, nil
	}

	store, err := storage.NewStore(config, logger.NewLogger(config, "Storage"))
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	appLogger.Info("Snapshot store ready (%s)", config.Storage.DBType)
	return store, nil
}

// -----------------------------------------------------------------------------

// setupMirror collects the enabled external mirrors. Nil when none are.
func setupMirror(config *models.MConfig, store interfaces.ISnapshotStore, appLogger *logger.Logger) *publish.Mirror {
	var publishers []interfaces.IPublisher

	if store != nil {
		publishers = append(publishers, publish.NewStorePublisher(store))
	}
	if config.Redis.Enabled {
		publishers = append(publishers, publish.NewRedisPublisher(config.Redis))
		appLogger.Info("Mirroring to redis %s (channel %s)", config.Redis.Addr, config.Redis.Channel)
	}
	if config.Kafka.Enabled {
		publishers = append(publishers, publish.NewKafkaPublisher(config.Kafka))
		appLogger.Info("Mirroring to kafka topic %s", config.Kafka.Topic)
	}

	if len(publishers) == 0 {
		return nil
	}
	return publish.NewMirror(logger.NewLogger(config, "Mirror"), publishers...)
}

// -----------------------------------------------------------------------------

// setupFeed wires the upstream client to the table and the broadcasters.
func setupFeed(conf *config.Config, table *pricetable.PriceTable, broadcasters ...interfaces.IBroadcaster) *binance.Client {
	feedLogger := logger.NewLogger(conf.MConfig, "Binance")
	dialer := network.NewWebsocketDialer(conf.MConfig, logger.NewLogger(conf.MConfig, "Network"))
	mapper := symbols.NewSymbolMapper(conf.Symbols)

	return binance.NewClient(conf.Upstream.URL, conf.ReadTimeout(), dialer, mapper, table, feedLogger, broadcasters...)
}
