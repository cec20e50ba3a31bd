package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/creamcroissant/xboard-presence/internal/repository"
	"github.com/creamcroissant/xboard-presence/internal/service"
)

// PresenceSnapshot is the result of one snapshot run.
type PresenceSnapshot struct {
	LimitedUsers  int
	OnlineUsers   int
	OnlineDevices int
	OverLimit     int
}

// PresenceSnapshotJob 定期统计设备限制用户的在线情况并发布为 Prometheus 指标。
type PresenceSnapshotJob struct {
	users  repository.UserRepository
	online service.UserOnlineService
	logger *slog.Logger
	now    func() time.Time

	devices   prometheus.Gauge
	onlineNum prometheus.Gauge
	overLimit prometheus.Gauge
	last      atomic.Pointer[PresenceSnapshot]
}

// NewPresenceSnapshotJob registers the gauges on reg.
func NewPresenceSnapshotJob(users repository.UserRepository, online service.UserOnlineService, reg prometheus.Registerer, namespace string, logger *slog.Logger) *PresenceSnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	if namespace == "" {
		namespace = "xboard"
	}
	factory := promauto.With(reg)
	return &PresenceSnapshotJob{
		users:  users,
		online: online,
		logger: logger,
		now:    time.Now,
		devices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "online_devices",
			Help:      "Online devices of device-limited users under the current counting mode.",
		}),
		onlineNum: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "online_users",
			Help:      "Device-limited users with at least one online device.",
		}),
		overLimit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "users_over_limit",
			Help:      "Device-limited users whose online devices exceed their limit.",
		}),
	}
}

// Name implements Runnable.
func (j *PresenceSnapshotJob) Name() string {
	return "presence.snapshot"
}

// Run implements Runnable.
func (j *PresenceSnapshotJob) Run(ctx context.Context) error {
	if j == nil || j.users == nil || j.online == nil {
		return fmt.Errorf("presence snapshot job dependencies not configured / 在线快照任务依赖未配置")
	}
	users, err := j.users.ListDeviceLimited(ctx, j.now().Unix())
	if err != nil {
		return fmt.Errorf("presence snapshot: list users: %w", err)
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	counts, err := j.online.OnlineCounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("presence snapshot: %w", err)
	}

	snap := PresenceSnapshot{LimitedUsers: len(users)}
	for _, u := range users {
		n := counts[u.ID]
		if n <= 0 {
			continue
		}
		snap.OnlineUsers++
		snap.OnlineDevices += n
		if u.DeviceLimit != nil && int64(n) > *u.DeviceLimit {
			snap.OverLimit++
		}
	}

	j.devices.Set(float64(snap.OnlineDevices))
	j.onlineNum.Set(float64(snap.OnlineUsers))
	j.overLimit.Set(float64(snap.OverLimit))
	j.last.Store(&snap)

	if snap.OverLimit > 0 {
		j.logger.Info("users over device limit", "count", snap.OverLimit, "online_users", snap.OnlineUsers)
	}
	return nil
}

// Last returns the most recent snapshot, zero before the first run.
func (j *PresenceSnapshotJob) Last() PresenceSnapshot {
	if snap := j.last.Load(); snap != nil {
		return *snap
	}
	return PresenceSnapshot{}
}
