package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-presence/internal/config"
)

func TestNewJSONWithEnvironment(t *testing.T) {
	var buf bytes.Buffer
	opts := FromConfig(config.LogConfig{Level: "debug", Environment: "staging"})
	opts.Output = &buf

	New(opts).Debug("hello", "user_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "staging", line["env"])
	assert.EqualValues(t, 7, line["user_id"])
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelWarn, Format: "text", Output: &buf})
	logger.Info("skipped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "msg=kept")
}
