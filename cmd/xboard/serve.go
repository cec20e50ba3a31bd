package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/api"
	"github.com/creamcroissant/xboard-presence/internal/bootstrap"
	internalgrpc "github.com/creamcroissant/xboard-presence/internal/grpc"
	"github.com/creamcroissant/xboard-presence/internal/grpc/handler"
	"github.com/creamcroissant/xboard-presence/internal/job"
	"github.com/creamcroissant/xboard-presence/internal/migrations"
	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository/sqlite"
	"github.com/creamcroissant/xboard-presence/internal/security"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
	"github.com/creamcroissant/xboard-presence/internal/support/logging"
)

func init() {
	var localesDir string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), localesDir)
		},
	}
	serveCmd.Flags().StringVar(&localesDir, "locales", "", "Directory with extra translation files")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context, localesDir string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(logging.FromConfig(cfg.Log))

	db, err := bootstrap.OpenSQLite(ctx, cfg.DB.Path, bootstrap.OpenOptions{})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}
	store := sqlite.NewStore(db)

	signingKey, source, err := bootstrap.ResolveSigningKey(ctx, store.Settings(), cfg.Auth.SigningKey, time.Now)
	if err != nil {
		return err
	}
	logger.Info("jwt signing key loaded", "source", string(source))

	infra, err := bootstrap.BuildInfrastructure(cfg, signingKey)
	if err != nil {
		return err
	}

	i18nManager, err := i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang(i18n.DefaultLang),
	)
	if err != nil {
		return err
	}
	if localesDir != "" {
		if err := i18nManager.LoadFromDir(localesDir); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	presenceStore := presence.NewStore(infra.Cache, cfg.Presence.CachePrefix, logger)
	modes := service.NewDeviceModeResolver(store.Settings(), cfg.Presence.DeviceLimitMode)
	tracker := presence.NewTracker(presenceStore, modes,
		presence.WithAliveTTL(cfg.Presence.AliveTTL),
		presence.WithAliveExpiry(cfg.Presence.AliveExpiry),
	)

	onlineService := service.NewUserOnlineService(presenceStore, infra.Registry, modes, store.Users(), logger)
	userStatService := service.NewUserStatService(store.StatUsers(), store.Servers(), onlineService, service.UserStatOptions{
		Location:   cfg.App.Location(),
		HideUserID: cfg.HiddenFeatures.EnableExposedUserCountFix,
	}, logger)

	var limiter *security.RateLimiter
	if cfg.Security.UserRateLimit > 0 {
		limiter, err = security.NewRateLimiter(infra.Cache, cfg.Security.UserRateLimit, cfg.Security.UserRateWindow)
		if err != nil {
			return err
		}
	}

	scheduler := job.NewScheduler(logger, job.WithMetrics(registry, cfg.Metrics.Namespace))
	snapshot := job.NewPresenceSnapshotJob(store.Users(), onlineService, registry, cfg.Metrics.Namespace, logger)
	if _, err := scheduler.Register(cfg.Presence.SnapshotSpec, snapshot); err != nil {
		return err
	}
	scheduler.Start()

	services := api.Services{
		Auth:       service.NewAuthService(store.Users(), infra.Token),
		ServerAuth: service.NewServerAuthService(store.Settings(), store.Servers(), infra.Registry),
		Telemetry:  service.NewServerTelemetryService(tracker, store.Servers(), logger),
		Traffic:    service.NewServerTrafficService(store.StatUsers(), cfg.App.Location()),
		Online:     onlineService,
		UserStat:   userStatService,
		I18n:       i18nManager,

		RateLimiter: limiter,
	}
	router := api.NewRouter(logger, services, cfg.Metrics, api.WithRegistry(registry))
	server := bootstrap.NewHTTPServer(cfg.HTTP, router)

	var grpcServer *internalgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer, err = internalgrpc.NewServer(cfg.GRPC, handler.NewPresenceHandler(onlineService, logger), logger)
		if err != nil {
			return err
		}
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Error("gRPC server failed", "error", err)
				stop()
			}
		}()
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Stop()
	}

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
