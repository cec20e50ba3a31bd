package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads config.yaml from the working directory or /etc/xboard/.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given file, or searches the default locations when path
// is empty. Environment variables prefixed with XBOARD_ override file values.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/xboard/")
	}

	v.SetEnvPrefix("XBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range explicitEnv {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 兼容旧版 .env
	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// explicitEnv 绑定 AutomaticEnv 无法推导的嵌套键。
var explicitEnv = map[string][]string{
	"grpc.enabled":                                  {"XBOARD_GRPC_ENABLED"},
	"grpc.addr":                                     {"XBOARD_GRPC_ADDR"},
	"grpc.token":                                    {"XBOARD_GRPC_TOKEN"},
	"presence.device_limit_mode":                    {"XBOARD_PRESENCE_DEVICE_LIMIT_MODE", "DEVICE_LIMIT_MODE"},
	"hidden_features.enable_exposed_user_count_fix": {"XBOARD_HIDDEN_FEATURES_ENABLE_EXPOSED_USER_COUNT_FIX"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.addr", "127.0.0.1:9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/xboard.db")

	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "xboard")
	v.SetDefault("auth.audience", "xboard-client")
	v.SetDefault("auth.leeway", "30s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "xboard")

	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("presence.cache_prefix", "ALIVE_IP_USER_")
	v.SetDefault("presence.device_limit_mode", 0)
	v.SetDefault("presence.node_types", []string{
		"hysteria", "vless", "shadowsocks", "vmess", "trojan",
		"tuic", "socks", "anytls", "naive", "http", "mieru",
	})
	v.SetDefault("presence.alive_ttl", "120s")
	v.SetDefault("presence.alive_expiry", "100s")
	v.SetDefault("presence.snapshot_spec", "@every 1m")

	v.SetDefault("security.user_rate_limit", 120)
	v.SetDefault("security.user_rate_window", "1m")

	v.SetDefault("hidden_features.enable_exposed_user_count_fix", false)
}

func loadDotEnv(v *viper.Viper) error {
	for _, dir := range []string{".", "..", "../.."} {
		file := filepath.Clean(filepath.Join(dir, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}
		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv maps old flat .env keys onto the hierarchical config.
// Real environment variables still win because AutomaticEnv is consulted on Get.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":         "http.addr",
		"SHUTDOWN_TIMEOUT":  "http.shutdown_timeout",
		"LOG_LEVEL":         "log.level",
		"LOG_FORMAT":        "log.format",
		"APP_ENV":           "log.environment",
		"APP_TIMEZONE":      "app.timezone",
		"DB_PATH":           "database.path",
		"APP_KEY":           "auth.signing_key",
		"AUTH_SIGNING_KEY":  "auth.signing_key",
		"DEVICE_LIMIT_MODE": "presence.device_limit_mode",
	}
	for oldKey, newKey := range mappings {
		if val := source.GetString(oldKey); val != "" {
			target.Set(newKey, val)
		}
	}
}
