package interceptor

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// BearerAuth 要求 "authorization: Bearer <token>" 元数据与 token 一致。
// 方法名以 exempt 中任一前缀开头时跳过校验。token 为空时拒绝所有非豁免请求。
func BearerAuth(token string, exempt ...string) grpc.UnaryServerInterceptor {
	want := []byte(strings.TrimSpace(token))
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		for _, prefix := range exempt {
			if strings.HasPrefix(info.FullMethod, prefix) {
				return handler(ctx, req)
			}
		}
		got, err := bearerFromMetadata(ctx)
		if err != nil {
			return nil, err
		}
		if len(want) == 0 || subtle.ConstantTimeCompare(want, []byte(got)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}

func bearerFromMetadata(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}
