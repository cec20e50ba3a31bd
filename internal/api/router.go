// 文件路径: internal/api/router.go
// 模块说明: HTTP 路由。v1 为节点回调与用户查询接口，v2/server 保留给新版节点程序。
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/xboard-presence/internal/api/handler"
	"github.com/creamcroissant/xboard-presence/internal/api/middleware"
	"github.com/creamcroissant/xboard-presence/internal/config"
	"github.com/creamcroissant/xboard-presence/internal/security"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

const maxBodyBytes = 10 << 20

// Services are the dependencies of the HTTP surface.
type Services struct {
	Auth       service.AuthService
	ServerAuth service.ServerAuthService
	Telemetry  service.ServerTelemetryService
	Traffic    service.ServerTrafficService
	Online     service.UserOnlineService
	UserStat   service.UserStatService
	I18n       *i18n.Manager

	// RateLimiter limits /api/v1/user requests per user; nil disables it.
	RateLimiter *security.RateLimiter
}

// RouterOption customizes NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// WithRegistry serves metrics from reg instead of the global registry.
func WithRegistry(reg *prometheus.Registry) RouterOption {
	return func(o *routerOptions) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// NewRouter wires the HTTP endpoints.
func NewRouter(logger *slog.Logger, services Services, metricsCfg config.MetricsConfig, opts ...RouterOption) http.Handler {
	options := routerOptions{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if services.Auth == nil {
		panic("router requires AuthService")
	}
	if services.ServerAuth == nil {
		panic("router requires ServerAuthService")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)
	if metricsCfg.Enabled {
		mCfg := middleware.DefaultMetricsConfig()
		if metricsCfg.Namespace != "" {
			mCfg.Namespace = metricsCfg.Namespace
		}
		if metricsCfg.Subsystem != "" {
			mCfg.Subsystem = metricsCfg.Subsystem
		}
		if len(metricsCfg.Buckets) > 0 {
			mCfg.Buckets = metricsCfg.Buckets
		}
		r.Use(middleware.NewMetrics(options.registerer, mCfg).Middleware())
	}
	r.Use(
		middleware.BodyLimit(maxBodyBytes),
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     []string{"/health", "/healthz", "/metrics"},
		}),
		chiMiddleware.Recoverer,
		middleware.I18n(services.I18n),
	)

	health := func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	r.Get("/healthz", health)
	r.Get("/health", health)

	if metricsCfg.Enabled {
		metricsHandler := promhttp.HandlerFor(options.gatherer, promhttp.HandlerOpts{})
		if metricsCfg.Token != "" {
			r.With(middleware.MetricsGuard(metricsCfg.Token)).Handle("/metrics", metricsHandler)
		} else {
			r.Handle("/metrics", metricsHandler)
		}
	}

	r.Route("/api", func(api chi.Router) {
		serverHandler := handler.NewServerHandler(services.Telemetry, services.Traffic, services.Online, services.I18n)
		api.Route("/v1", func(v1 chi.Router) {
			v1.Route("/server", func(server chi.Router) {
				server.Use(middleware.ServerGuard(services.ServerAuth, "", services.I18n))
				mountHandler(server, "/UniProxy", serverHandler)
			})
			v1.Route("/user", func(user chi.Router) {
				user.Use(
					middleware.UserGuard(services.Auth, services.I18n),
					middleware.UserRateLimit(services.RateLimiter, services.I18n),
				)
				mountHandler(user, "/stat", handler.NewUserStatHandler(services.UserStat, services.I18n))
				mountHandler(user, "/online", handler.NewUserOnlineHandler(services.Online, services.I18n))
			})
		})
		api.Route("/v2", func(v2 chi.Router) {
			v2.Route("/server", func(server chi.Router) {
				server.Use(middleware.ServerGuard(services.ServerAuth, "", services.I18n))
				mountHandler(server, "/", serverHandler)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

// mountHandler 同时绑定 /path 和 /path/*，避免重复写路由。
func mountHandler(r chi.Router, path string, h http.Handler) {
	normalized := path
	if normalized == "" {
		normalized = "/"
	}
	r.Handle(normalized, h)
	if normalized == "/" {
		r.Handle("/*", h)
		return
	}
	if !strings.HasSuffix(normalized, "/*") {
		r.Handle(strings.TrimSuffix(normalized, "/")+"/*", h)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
