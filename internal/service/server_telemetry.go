package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

// ServerTelemetryService records what nodes report about themselves.
type ServerTelemetryService interface {
	RecordAlive(ctx context.Context, server *repository.Server, payload map[int64][]string) error
	RecordHeartbeat(ctx context.Context, server *repository.Server) error
}

type serverTelemetryService struct {
	tracker *presence.Tracker
	servers repository.ServerRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewServerTelemetryService(tracker *presence.Tracker, servers repository.ServerRepository, logger *slog.Logger) ServerTelemetryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &serverTelemetryService{tracker: tracker, servers: servers, logger: logger, now: time.Now}
}

func (s *serverTelemetryService) RecordAlive(ctx context.Context, server *repository.Server, payload map[int64][]string) error {
	if err := ensureServer(server); err != nil {
		return err
	}
	if err := s.RecordHeartbeat(ctx, server); err != nil {
		s.logger.Warn("failed to record server heartbeat", "error", err, "server_id", server.ID)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := s.tracker.Record(ctx, server.Type, server.ID, payload); err != nil {
		return fmt.Errorf("record alive for server %d: %w", server.ID, err)
	}
	return nil
}

func (s *serverTelemetryService) RecordHeartbeat(ctx context.Context, server *repository.Server) error {
	if err := ensureServer(server); err != nil {
		return err
	}
	if s.servers == nil {
		return fmt.Errorf("server repository unavailable / 节点仓库不可用")
	}
	server.LastHeartbeatAt = s.now().Unix()
	return s.servers.UpdateHeartbeat(ctx, server.ID, server.LastHeartbeatAt)
}

func ensureServer(server *repository.Server) error {
	if server == nil {
		return ErrNotFound
	}
	if server.ID <= 0 {
		return fmt.Errorf("invalid server reference / 无效的节点引用")
	}
	return nil
}
