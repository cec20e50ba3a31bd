// 文件路径: internal/grpc/server.go
// 模块说明: 对外提供在线数据查询的 gRPC 服务端，附带标准健康检查。
package grpc

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/creamcroissant/xboard-presence/internal/config"
	"github.com/creamcroissant/xboard-presence/internal/grpc/handler"
	"github.com/creamcroissant/xboard-presence/internal/grpc/interceptor"
)

const healthMethodPrefix = "/grpc.health.v1.Health/"

// Server 封装 gRPC 服务端。
type Server struct {
	server  *grpc.Server
	health  *health.Server
	logger  *slog.Logger
	address string
}

// NewServer 创建 gRPC 服务端并注册 PresenceService。健康检查不需要 token。
func NewServer(cfg config.GRPCConfig, presence handler.PresenceServiceServer, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			interceptor.Recovery(logger),
			interceptor.Logging(logger),
			interceptor.BearerAuth(cfg.Token, healthMethodPrefix),
		),
	}
	if cfg.TLS.Enabled {
		creds, err := serverCredentials(cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	srv := grpc.NewServer(opts...)
	handler.RegisterPresenceServiceServer(srv, presence)

	hs := health.NewServer()
	hs.SetServingStatus(handler.PresenceServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{server: srv, health: hs, logger: logger, address: cfg.Addr}, nil
}

func serverCredentials(cfg config.GRPCTLSConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}
	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// Start 监听配置的地址并阻塞直到服务停止。
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}
	return s.Serve(lis)
}

// Serve 在给定 listener 上提供服务。
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server starting", "address", lis.Addr().String())
	return s.server.Serve(lis)
}

// Stop 先把健康状态置为 NOT_SERVING，再优雅停止。
func (s *Server) Stop() {
	s.logger.Info("gRPC server stopping")
	s.health.Shutdown()
	s.server.GracefulStop()
}
