package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"price-relay/src/config"
	"price-relay/src/feed"
	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/pricetable"
	"price-relay/src/server"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional .env file with PRICE_RELAY_* overrides")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath, config.WithEnvFile(*envFile))
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Price table, seeded before anything can read it
	table := pricetable.NewPriceTable(conf.Tokens, nil)

	store, err := setupStore(conf.MConfig, appLogger)
	if err != nil {
		appLogger.Error("Failed to init storage: %v", err)
		os.Exit(1)
	}
	seedTable(ctx, table, conf.MConfig, store, appLogger)

	// 5. Fan-out
	hub := server.NewHub(table, conf.KeepAlive(), logger.NewLogger(conf.MConfig, "Hub"))
	broadcasters := []interfaces.IBroadcaster{hub}

	mirror := setupMirror(conf.MConfig, store, appLogger)
	if mirror != nil {
		broadcasters = append(broadcasters, mirror)
	}

	// 6. Upstream
	client := setupFeed(conf, table, broadcasters...)
	supervisor := feed.NewSupervisor(client, conf.ReconnectDelay(), logger.NewLogger(conf.MConfig, "Supervisor"))

	// 7. Serve until signalled
	srv := server.NewServer(conf.MConfig, logger.NewLogger(conf.MConfig, "Server"), hub, table, supervisor)
	if err := runServices(ctx, conf, srv, hub, table, supervisor, mirror, appLogger); err != nil {
		appLogger.Error("Stopped with error: %v", err)
		appLogger.Sync()
		os.Exit(1)
	}

	appLogger.Info("Shutdown complete.")
}
