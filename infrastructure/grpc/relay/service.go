// Package relay describes the gRPC service without generated code: one
// bidirectional stream of protocol frames and a unary stats call.
package relay

import (
	"chat-relay/observability"
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "chatrelay.v1.Relay"

	ConnectMethod = "/" + ServiceName + "/Connect"
	StatsMethod   = "/" + ServiceName + "/Stats"
)

type RelayServer interface {
	Connect(stream grpc.ServerStream) error
	Stats(ctx context.Context, req *StatsRequest) (*observability.MonitoringStats, error)
}

type StatsRequest struct{}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Stats",
			Handler:    statsHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "chatrelay/v1/relay",
}

// ConnectStreamDesc is used by clients opening the stream.
var ConnectStreamDesc = &ServiceDesc.Streams[0]

func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(RelayServer).Connect(stream)
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Stats(ctx, req.(*StatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}
