// 文件路径: internal/support/logging/logger.go
// 模块说明: slog 日志构造。默认输出 JSON，本地调试可以切换成 text。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/config"
)

// Options customize the slog logger construction.
type Options struct {
	Level       slog.Level
	Format      string
	AddSource   bool
	Environment string
	Output      io.Writer
}

// FromConfig maps the log section of the config file to Options.
func FromConfig(cfg config.LogConfig) Options {
	return Options{
		Level:       cfg.SlogLevel(),
		Format:      cfg.Format,
		AddSource:   cfg.AddSource,
		Environment: cfg.Environment,
	}
}

// New returns a slog.Logger configured according to options (JSON by default).
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	if env := strings.TrimSpace(opts.Environment); env != "" {
		logger = logger.With("env", env)
	}
	return logger
}
