// 文件路径: internal/job/scheduler.go
// 模块说明: 基于 robfig/cron 的后台任务调度器。每个任务带超时，运行结果写日志并计入指标。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

// Runnable 表示由调度器触发的后台任务。
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

const defaultJobTimeout = 2 * time.Minute

// Option customizes NewScheduler.
type Option func(*Scheduler)

// WithTimeout bounds each run; non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics records run counts and durations on reg.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(s *Scheduler) {
		factory := promauto.With(reg)
		s.runs = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Background job runs by result.",
		}, []string{"job", "result"})
		s.duration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Background job run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"job"})
	}
}

// Scheduler 封装 cron。上一轮未结束的任务不会重叠执行。
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu      sync.Mutex
	started bool
}

// NewScheduler 构建支持秒字段与 @every 描述的调度器。
func NewScheduler(logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:  logger,
		timeout: defaultJobTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register 绑定 cron 表达式与任务。
func (s *Scheduler) Register(spec string, runnable Runnable) (cron.EntryID, error) {
	switch {
	case runnable == nil:
		return 0, fmt.Errorf("scheduler: runnable is required / runnable 不能为空")
	case spec == "":
		return 0, fmt.Errorf("scheduler: spec for %s is required / spec 不能为空", runnable.Name())
	}
	id, err := s.cron.AddJob(spec, cron.FuncJob(func() { s.runOnce(runnable) }))
	if err != nil {
		return 0, fmt.Errorf("scheduler: register %s: %w", runnable.Name(), err)
	}
	s.logger.Info("job registered", "job", runnable.Name(), "spec", spec)
	return id, nil
}

// Entries 返回已注册任务的数量。
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start is idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop 停止调度，返回的 context 在执行中的任务结束后关闭。
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.started = false
	return s.cron.Stop()
}

func (s *Scheduler) runOnce(runnable Runnable) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	name := runnable.Name()
	start := time.Now()
	err := runnable.Run(ctx)
	elapsed := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
		s.logger.Error("job failed", "job", name, "error", err, "elapsed", elapsed)
	} else {
		s.logger.Debug("job completed", "job", name, "elapsed", elapsed)
	}
	if s.runs != nil {
		s.runs.WithLabelValues(name, result).Inc()
		s.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
}
