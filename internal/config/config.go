package config

import (
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config 汇总应用的全部配置。
type Config struct {
	HTTP           HTTPConfig           `mapstructure:"http"`
	GRPC           GRPCConfig           `mapstructure:"grpc"`
	Log            LogConfig            `mapstructure:"log"`
	DB             DBConfig             `mapstructure:"database"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	App            AppConfig            `mapstructure:"app"`
	Presence       PresenceConfig       `mapstructure:"presence"`
	Security       SecurityConfig       `mapstructure:"security"`
	HiddenFeatures HiddenFeaturesConfig `mapstructure:"hidden_features"`
}

// GRPCConfig 定义在线数据查询的 gRPC 服务配置。
type GRPCConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	Token   string        `mapstructure:"token"`
	TLS     GRPCTLSConfig `mapstructure:"tls"`
}

// GRPCTLSConfig 定义 gRPC 服务的 TLS 配置。
type GRPCTLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// MetricsConfig 定义 Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// HTTPConfig 定义 HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig 定义日志配置。
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig 定义数据库配置。
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// AuthConfig 定义认证配置。
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

// AppConfig 定义与业务相关的通用配置。
type AppConfig struct {
	// Timezone decides where "start of the current month" falls.
	Timezone string `mapstructure:"timezone"`
}

// PresenceConfig 定义在线设备统计相关配置。
type PresenceConfig struct {
	CachePrefix string `mapstructure:"cache_prefix"`
	// DeviceLimitMode is used when the settings table has no device_limit_mode.
	DeviceLimitMode int           `mapstructure:"device_limit_mode"`
	NodeTypes       []string      `mapstructure:"node_types"`
	AliveTTL        time.Duration `mapstructure:"alive_ttl"`
	AliveExpiry     time.Duration `mapstructure:"alive_expiry"`
	SnapshotSpec    string        `mapstructure:"snapshot_spec"`
}

// SecurityConfig 定义用户接口限流。UserRateLimit 为 0 时关闭。
type SecurityConfig struct {
	UserRateLimit  int           `mapstructure:"user_rate_limit"`
	UserRateWindow time.Duration `mapstructure:"user_rate_window"`
}

// HiddenFeaturesConfig 收纳灰度开关。
type HiddenFeaturesConfig struct {
	// EnableExposedUserCountFix hides user_id from traffic log entries.
	EnableExposedUserCountFix bool `mapstructure:"enable_exposed_user_count_fix"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
