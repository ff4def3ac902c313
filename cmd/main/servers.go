package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"price-relay/src/config"
	"price-relay/src/feed"
	pb "price-relay/src/grpc_control"
	"price-relay/src/logger"
	"price-relay/src/pricetable"
	"price-relay/src/publish"
	"price-relay/src/server"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

// runServices starts every long-running component and blocks until ctx is
// cancelled or one of them fails, then shuts the rest down.
func runServices(
	ctx context.Context,
	conf *config.Config,
	srv *server.Server,
	hub *server.Hub,
	table *pricetable.PriceTable,
	supervisor *feed.Supervisor,
	mirror *publish.Mirror,
	appLogger *logger.Logger,
) error {
	// gRPC listener first, so a busy port fails before anything starts.
	var lis net.Listener
	grpcAddr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
	if conf.GrpcEnabled() {
		var err error
		if lis, err = net.Listen("tcp", grpcAddr); err != nil {
			return fmt.Errorf("listen for gRPC on %s: %w", grpcAddr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// 1. Upstream feed under the reconnection supervisor
	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	// 2. External mirrors
	if mirror != nil {
		g.Go(func() error {
			return mirror.Run(gctx)
		})
	}

	// 3. HTTP server (REST, SSE, websocket)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		appLogger.Info("Stopping HTTP server...")
		return srv.Stop(shutdownCtx)
	})

	// 4. gRPC control server
	if lis == nil {
		appLogger.Info("gRPC control server disabled (grpc_port %d)", conf.GrpcPort)
	} else {
		grpcServer := grpc.NewServer()
		controlService := pb.NewControlService(hub, table, supervisor, logger.NewLogger(conf.MConfig, "ControlService"))
		pb.RegisterPriceControlServer(grpcServer, controlService)

		g.Go(func() error {
			appLogger.Info("Starting gRPC Control Server on %s", grpcAddr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			hub.CloseAll()
			grpcServer.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}
