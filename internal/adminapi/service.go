package adminapi

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "adminapi.Diagnostics"

// DiagnosticsServer is what a gRPC server registers; Server (server.go)
// implements it over a StatusSource such as bridge.Gateway.
type DiagnosticsServer interface {
	GetStatus(context.Context, *StatusRequest) (*StatusResponse, error)
	StreamEvents(*StreamEventsRequest, DiagnosticsStreamEventsServer) error
}

// DiagnosticsStreamEventsServer is the server-side handle for the
// StreamEvents server-streaming RPC, mirroring the shape protoc-gen-go-grpc
// would emit for a single server-streaming method.
type DiagnosticsStreamEventsServer interface {
	Send(*Event) error
	Context() context.Context
}

type diagnosticsStreamEventsServer struct {
	grpc.ServerStream
}

func (s *diagnosticsStreamEventsServer) Send(e *Event) error {
	return s.ServerStream.SendMsg(e)
}

func _Diagnostics_GetStatus_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiagnosticsServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiagnosticsServer).GetStatus(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Diagnostics_StreamEvents_Handler(srv any, stream grpc.ServerStream) error {
	in := new(StreamEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DiagnosticsServer).StreamEvents(in, &diagnosticsStreamEventsServer{stream})
}

// ServiceDesc is the hand-rolled equivalent of what protoc-gen-go-grpc
// would generate from a Diagnostics service in a .proto file.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DiagnosticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _Diagnostics_GetStatus_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEvents", Handler: _Diagnostics_StreamEvents_Handler, ServerStreams: true},
	},
	Metadata: "internal/adminapi/service.go",
}

// RegisterDiagnosticsServer registers srv on s using the JSON content-type
// codec, so callers never need a protoc toolchain to talk to it.
func RegisterDiagnosticsServer(s *grpc.Server, srv DiagnosticsServer) {
	s.RegisterService(&ServiceDesc, srv)
}
