package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service speaks only well-known protobuf types, so no generated stubs
// are needed on either side.
const ServiceName = "pricerelay.control.v1.PriceControl"

const (
	methodGetPrices   = "/" + ServiceName + "/GetPrices"
	methodGetStatus   = "/" + ServiceName + "/GetStatus"
	methodReconnect   = "/" + ServiceName + "/Reconnect"
	methodWatchPrices = "/" + ServiceName + "/WatchPrices"
)

// -----------------------------------------------------------------------------
// Server side
// -----------------------------------------------------------------------------

type PriceControlServer interface {
	GetPrices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reconnect(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchPrices(*emptypb.Empty, WatchPricesServer) error
}

type WatchPricesServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchPricesServer struct {
	grpc.ServerStream
}

func (x *watchPricesServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// -----------------------------------------------------------------------------

func unaryHandler(
	fullMethod string,
	call func(PriceControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PriceControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PriceControlServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchPricesHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PriceControlServer).WatchPrices(in, &watchPricesServer{stream})
}

// -----------------------------------------------------------------------------

var PriceControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PriceControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPrices", Handler: unaryHandler(methodGetPrices, PriceControlServer.GetPrices)},
		{MethodName: "GetStatus", Handler: unaryHandler(methodGetStatus, PriceControlServer.GetStatus)},
		{MethodName: "Reconnect", Handler: unaryHandler(methodReconnect, PriceControlServer.Reconnect)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchPrices", Handler: watchPricesHandler, ServerStreams: true},
	},
	Metadata: "pricerelay/control/v1/control.proto",
}

func RegisterPriceControlServer(s grpc.ServiceRegistrar, srv PriceControlServer) {
	s.RegisterService(&PriceControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Client side
// -----------------------------------------------------------------------------

type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetPrices(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetPrices, opts...)
}

func (c *Client) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetStatus, opts...)
}

func (c *Client) Reconnect(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodReconnect, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// -----------------------------------------------------------------------------

type PriceWatcher interface {
	Recv() (*structpb.Struct, error)
}

type priceWatcher struct {
	grpc.ClientStream
}

func (x *priceWatcher) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WatchPrices opens the push stream. Cancel ctx to end it.
func (c *Client) WatchPrices(ctx context.Context, opts ...grpc.CallOption) (PriceWatcher, error) {
	stream, err := c.cc.NewStream(ctx, &PriceControlServiceDesc.Streams[0], methodWatchPrices, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &priceWatcher{stream}, nil
}
