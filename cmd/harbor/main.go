package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harborchat/harbor/internal/app"
	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/communities"
	"github.com/harborchat/harbor/internal/directory"
	"github.com/harborchat/harbor/internal/observability"
	"github.com/harborchat/harbor/internal/platform/cache"
	"github.com/harborchat/harbor/internal/platform/db"
	"github.com/harborchat/harbor/internal/roles"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, grant cache degraded", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	grantCache := authz.NewCache(redisClient, cfg.GrantCacheTTL)
	roleRepo := roles.NewRepository(pool)
	roleService := roles.NewService(roleRepo, logger, grantCache)

	resourceDir := directory.NewRepository(pool)
	evaluator := authz.NewEvaluator(roleRepo, resourceDir, grantCache)
	guard := authz.Middleware{Evaluator: evaluator, Logger: logger, Metrics: metrics}

	communityRepo := communities.NewRepository(pool)
	communityService := communities.NewService(communityRepo, roleService, logger)

	rolesHandler := roles.NewHandler(logger, roleService, guard)
	communitiesHandler := communities.NewHandler(logger, communityService, guard)
	permissionsHandler := authz.NewPermissionsHandler(logger, evaluator)

	// One-time bootstrap of the instance-wide default roles. A store failure
	// here is logged, not fatal: the process must still serve requests and the
	// next restart retries.
	bootCtx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
	if err := roleService.EnsureDefaultInstanceRoles(bootCtx); err != nil {
		logger.Error("bootstrap instance roles", slog.Any("error", err))
	}
	cancel()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RolesHandler:       rolesHandler,
		CommunitiesHandler: communitiesHandler,
		PermissionsHandler: permissionsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
