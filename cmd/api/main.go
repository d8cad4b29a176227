package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/venuepulse/venuepulse/internal/api/handlers"
	"github.com/venuepulse/venuepulse/internal/api/router"
	"github.com/venuepulse/venuepulse/internal/cache"
	"github.com/venuepulse/venuepulse/internal/config"
	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/pkg/validator"
	"github.com/venuepulse/venuepulse/internal/repository/postgres"
	"github.com/venuepulse/venuepulse/internal/services"
	"github.com/venuepulse/venuepulse/internal/worker"
	"github.com/venuepulse/venuepulse/migrations"
)

// @title VenuePulse API
// @version 1.0
// @description Account entitlement and venue feedback backend.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	db, err := postgres.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var decisionCache services.Cache
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		decisionCache = redisCache
		log.Info("Decision cache enabled")
	}

	userRepo := postgres.NewUserRepository(db)
	accountRepo := postgres.NewAccountRepository(db)

	identitySvc := services.NewIdentityService(userRepo, log)
	authSvc := services.NewAuthService(userRepo, cfg.Auth.BCryptCost, log)
	entitlementSvc := services.NewEntitlementService(
		identitySvc,
		accountRepo,
		decisionCache,
		entitlement.FailMode(cfg.Entitlement.FailMode),
		cfg.Entitlement.CacheTTL,
		log,
	)

	val := validator.New()

	h := &router.Handlers{
		Health:      handlers.NewHealthHandler(db, log),
		Auth:        handlers.NewAuthHandler(authSvc, entitlementSvc, cfg, log, val),
		Entitlement: handlers.NewEntitlementHandler(entitlementSvc, authSvc, cfg, log, val),
	}

	watcher := worker.NewTrialWatcher(accountRepo, cfg.Entitlement.TrialWatchCron, cfg.Entitlement.TrialWatchHorizon, log)
	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("Failed to start trial watcher: %v", err)
	}
	defer watcher.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, entitlementSvc, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Graceful shutdown failed")
	}
}
