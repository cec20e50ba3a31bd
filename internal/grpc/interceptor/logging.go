package interceptor

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Logging 返回记录 gRPC 请求的拦截器。成功请求记为 DEBUG，失败记为 WARN。
func Logging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		level, msg := slog.LevelDebug, "gRPC request"
		if code != codes.OK {
			level, msg = slog.LevelWarn, "gRPC request error"
		}
		logger.LogAttrs(ctx, level, msg,
			slog.String("method", info.FullMethod),
			slog.Duration("duration", time.Since(start)),
			slog.String("code", code.String()),
		)
		return resp, err
	}
}
