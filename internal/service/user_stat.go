package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

// UserStatService 提供用户流量日志查询。
type UserStatService interface {
	TrafficLogs(ctx context.Context, userID string) ([]TrafficLogEntry, error)
}

// UserStatOptions tunes traffic log output.
type UserStatOptions struct {
	Location   *time.Location
	HideUserID bool
}

type userStatService struct {
	stats   repository.StatUserRepository
	servers repository.ServerRepository
	online  UserOnlineService
	opts    UserStatOptions
	logger  *slog.Logger
	now     func() time.Time
}

func NewUserStatService(stats repository.StatUserRepository, servers repository.ServerRepository, online UserOnlineService, opts UserStatOptions, logger *slog.Logger) UserStatService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &userStatService{stats: stats, servers: servers, online: online, opts: opts, logger: logger, now: time.Now}
}

// TrafficLogs returns this month's records of userID, newest first.
func (s *userStatService) TrafficLogs(ctx context.Context, userID string) ([]TrafficLogEntry, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	records, err := s.stats.ListByUserRange(ctx, repository.StatUserRange{
		UserID:  uid,
		StartAt: startOfMonth(now, s.opts.Location).Unix(),
		EndAt:   now.Unix(),
	})
	if err != nil {
		return nil, err
	}
	s.sortRecords(records)

	var devices presence.DeviceMap
	if s.online != nil {
		devices, err = s.online.DeviceMap(ctx, uid)
		if err != nil {
			return nil, err
		}
	}

	names := map[int64]string{}
	if s.servers != nil {
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			if id := recordServerID(rec); id > 0 {
				ids = append(ids, id)
			}
		}
		if ids = uniqueInt64(ids); len(ids) > 0 {
			names, err = s.servers.NamesByIDs(ctx, ids)
			if err != nil {
				s.logger.Warn("failed to resolve server names", "error", err, "user_id", uid)
				names = map[int64]string{}
			}
		}
	}

	enricher := TrafficLogEnricher{
		Devices:    devices,
		Names:      names,
		Location:   s.opts.Location,
		HideUserID: s.opts.HideUserID,
	}
	return enricher.Enrich(records), nil
}

// sortRecords 按 updated_at、created_at、record_at 倒序。文本时间戳在 SQL 里无法和
// 整数正确比较，所以这里再排一次。
func (s *userStatService) sortRecords(records []repository.StatUserRecord) {
	loc := s.opts.Location
	key := func(ts repository.Timestamp) int64 {
		v, ok := ts.Unix(loc)
		if !ok {
			return -1 << 63
		}
		return v
	}
	slices.SortStableFunc(records, func(a, b repository.StatUserRecord) int {
		if c := cmp.Compare(key(b.UpdatedAt), key(a.UpdatedAt)); c != 0 {
			return c
		}
		if c := cmp.Compare(key(b.CreatedAt), key(a.CreatedAt)); c != 0 {
			return c
		}
		return cmp.Compare(b.RecordAt, a.RecordAt)
	})
}
