// 文件路径: internal/service/user_online.go
// 模块说明: 用户在线设备查询。所有批量查询都只读一次缓存，然后按当前计数模式统计。
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

// UserDevices is the device listing of one user.
type UserDevices struct {
	TotalCount int                     `json:"total_count"`
	Devices    []presence.DeviceRecord `json:"devices"`
}

// UserOnlineService answers presence questions about users.
type UserOnlineService interface {
	Devices(ctx context.Context, userID int64) (UserDevices, error)
	DeviceMap(ctx context.Context, userID int64) (presence.DeviceMap, error)
	OnlineCount(ctx context.Context, userID int64) (int, error)
	// OnlineCounts returns a count for every requested positive id, 0 when
	// the user has no presence entry.
	OnlineCounts(ctx context.Context, userIDs []int64) (map[int64]int, error)
	// AliveList counts devices of active device-limited users, omitting zeros.
	AliveList(ctx context.Context) (map[int64]int, error)
}

type userOnlineService struct {
	store    *presence.Store
	registry *presence.Registry
	modes    presence.ModeSource
	users    repository.UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserOnlineService(store *presence.Store, registry *presence.Registry, modes presence.ModeSource, users repository.UserRepository, logger *slog.Logger) UserOnlineService {
	if registry == nil {
		registry = presence.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &userOnlineService{store: store, registry: registry, modes: modes, users: users, logger: logger, now: time.Now}
}

func (s *userOnlineService) Devices(ctx context.Context, userID int64) (UserDevices, error) {
	if userID <= 0 {
		return UserDevices{}, ErrInvalidUserID
	}
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return UserDevices{}, err
	}
	return UserDevices{
		TotalCount: p.AliveIP,
		Devices:    presence.Normalize(p, s.registry),
	}, nil
}

func (s *userOnlineService) DeviceMap(ctx context.Context, userID int64) (presence.DeviceMap, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return presence.BuildDeviceMap(presence.Normalize(p, s.registry)), nil
}

func (s *userOnlineService) OnlineCount(ctx context.Context, userID int64) (int, error) {
	counts, err := s.OnlineCounts(ctx, []int64{userID})
	if err != nil {
		return 0, err
	}
	return counts[userID], nil
}

func (s *userOnlineService) OnlineCounts(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	mode, err := s.modes.CountMode(ctx)
	if err != nil {
		return nil, err
	}
	payloads, err := s.store.GetBatch(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	counted, err := mode.CountMany(payloads)
	if err != nil {
		return nil, err
	}
	result := make(map[int64]int, len(userIDs))
	for _, id := range userIDs {
		if id <= 0 {
			continue
		}
		result[id] = counted[id]
	}
	return result, nil
}

func (s *userOnlineService) AliveList(ctx context.Context) (map[int64]int, error) {
	if s.users == nil {
		return nil, fmt.Errorf("user repository unavailable / 用户仓库不可用")
	}
	users, err := s.users.ListDeviceLimited(ctx, s.now().Unix())
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return map[int64]int{}, nil
	}
	counts, err := s.OnlineCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, n := range counts {
		if n <= 0 {
			delete(counts, id)
		}
	}
	s.logger.Debug("alive list computed", "limited_users", len(ids), "online_users", len(counts))
	return counts, nil
}
