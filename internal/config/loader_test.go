package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: 127.0.0.1:9999
app:
  timezone: Asia/Shanghai
presence:
  device_limit_mode: 1
  node_types: [vmess, ss]
hidden_features:
  enable_exposed_user_count_fix: true
`), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
	assert.Equal(t, 1, cfg.Presence.DeviceLimitMode)
	assert.Equal(t, []string{"vmess", "ss"}, cfg.Presence.NodeTypes)
	assert.True(t, cfg.HiddenFeatures.EnableExposedUserCountFix)
	assert.Equal(t, "Asia/Shanghai", cfg.App.Location().String())

	assert.Equal(t, "ALIVE_IP_USER_", cfg.Presence.CachePrefix)
	assert.Equal(t, 120*time.Second, cfg.Presence.AliveTTL)
	assert.Equal(t, 100*time.Second, cfg.Presence.AliveExpiry)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoadFromEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("presence:\n  device_limit_mode: 0\n"), 0o600))
	t.Setenv("XBOARD_PRESENCE_DEVICE_LIMIT_MODE", "1")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Presence.DeviceLimitMode)
}

func TestSlogLevelAndLocation(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "Debug"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{}.SlogLevel().String())
	assert.Equal(t, time.UTC, AppConfig{Timezone: "Mars/Base"}.Location())
	assert.Equal(t, time.UTC, AppConfig{}.Location())
}
