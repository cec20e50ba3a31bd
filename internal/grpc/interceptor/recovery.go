package interceptor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Recovery 把 handler 中的 panic 记录下来并转成 codes.Internal，连接不受影响。
func Recovery(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.LogAttrs(ctx, slog.LevelError, "gRPC handler panic",
				slog.String("method", info.FullMethod),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			resp, err = nil, status.Error(codes.Internal, "internal error")
		}()
		return handler(ctx, req)
	}
}
