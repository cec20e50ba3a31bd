// 文件路径: internal/grpc/handler/presence_service.go
// 模块说明: PresenceService 的服务描述。消息直接使用 well-known types（Struct、ListValue、
// Int64Value），不需要额外生成代码。
package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	PresenceServiceName     = "xboard.presence.v1.PresenceService"
	PresenceOnlineCountsRPC = "/" + PresenceServiceName + "/OnlineCounts"
	PresenceUserDevicesRPC  = "/" + PresenceServiceName + "/UserDevices"
)

// PresenceServiceServer is the server side of PresenceService.
type PresenceServiceServer interface {
	// OnlineCounts takes a list of user ids and returns {"<uid>": n}.
	OnlineCounts(context.Context, *structpb.ListValue) (*structpb.Struct, error)
	// UserDevices returns {"total_count": n, "devices": [...]} for one user.
	UserDevices(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
}

// RegisterPresenceServiceServer attaches srv to s.
func RegisterPresenceServiceServer(s grpc.ServiceRegistrar, srv PresenceServiceServer) {
	s.RegisterService(&PresenceServiceDesc, srv)
}

// PresenceServiceDesc describes PresenceService for grpc.Server.
var PresenceServiceDesc = grpc.ServiceDesc{
	ServiceName: PresenceServiceName,
	HandlerType: (*PresenceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OnlineCounts", Handler: onlineCountsHandler},
		{MethodName: "UserDevices", Handler: userDevicesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xboard/presence/v1/presence.proto",
}

func onlineCountsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.ListValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServiceServer).OnlineCounts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PresenceOnlineCountsRPC}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServiceServer).OnlineCounts(ctx, req.(*structpb.ListValue))
	}
	return interceptor(ctx, in, info, handler)
}

func userDevicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServiceServer).UserDevices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PresenceUserDevicesRPC}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServiceServer).UserDevices(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}
