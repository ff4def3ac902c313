package grpc_control

import (
	"context"
	"encoding/json"
	"time"

	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
	"price-relay/src/server"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements PriceControlServer
type ControlService struct {
	Hub      *server.Hub
	Source   interfaces.IPriceSource
	Upstream interfaces.IUpstreamControl
	Logger   *logger.Logger
	started  time.Time
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	hub *server.Hub,
	source interfaces.IPriceSource,
	upstream interfaces.IUpstreamControl,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Hub:      hub,
		Source:   source,
		Upstream: upstream,
		Logger:   log,
		started:  time.Now(),
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetPrices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	b, err := json.Marshal(models.NewPricePoll(s.Source.State()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode prices: %v", err)
	}
	return toStruct(b)
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]interface{}{
		"upstream":           s.Upstream.State().String(),
		"connections":        s.Hub.Count(),
		"latest_update":      s.Source.State().Timestamp,
		"reconnect_attempts": s.Upstream.Attempts(),
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return st, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) Reconnect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	scheduled := s.Upstream.Reconnect()
	if scheduled {
		s.Logger.Info("Reconnect requested over gRPC")
	}

	st, err := structpb.NewStruct(map[string]interface{}{
		"scheduled": scheduled,
		"upstream":  s.Upstream.State().String(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return st, nil
}

// -----------------------------------------------------------------------------

// WatchPrices registers the stream as a subscriber, same as SSE and /ws.
func (s *ControlService) WatchPrices(_ *emptypb.Empty, stream WatchPricesServer) error {
	sub := s.Hub.Register(server.NewSubscriber(server.TransportGRPC))
	if err := s.Hub.Serve(stream.Context(), sub, &streamSink{stream: stream}); err != nil {
		s.Logger.Debug("gRPC subscriber %s left: %v", sub.ID(), err)
		return status.Error(codes.Unavailable, err.Error())
	}
	return nil
}

// -----------------------------------------------------------------------------

type streamSink struct {
	stream WatchPricesServer
}

func (k *streamSink) WritePayload(payload []byte) error {
	st, err := toStruct(payload)
	if err != nil {
		return err
	}
	return k.stream.Send(st)
}

func (k *streamSink) WriteKeepAlive() error {
	return k.stream.Send(&structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue("keepalive"),
	}})
}

func toStruct(b []byte) (*structpb.Struct, error) {
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, status.Errorf(codes.Internal, "decode payload: %v", err)
	}
	return st, nil
}
