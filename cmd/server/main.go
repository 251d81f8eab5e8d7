package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/doublesclub/internal/api"
	"github.com/mcoot/doublesclub/internal/config"
	"github.com/mcoot/doublesclub/internal/factory"
	"github.com/mcoot/doublesclub/internal/housekeeping"
	"github.com/mcoot/doublesclub/internal/services/auth"
	pgstorage "github.com/mcoot/doublesclub/internal/storage/postgres"
	redisstorage "github.com/mcoot/doublesclub/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Build factory config
	factoryCfg := factory.Config{
		AuthConfig:  auth.Config{SessionDuration: cfg.SessionDuration},
		Logger:      logger,
		StorageType: cfg.StorageType,
	}
	switch cfg.StorageType {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	case config.StoragePostgres:
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.URL = cfg.DatabaseURL
		factoryCfg.PostgresConfig = &pgCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close error", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load the mirror and follow the store
	if err := app.Coordinator.Start(ctx); err != nil {
		logger.Error("failed to start coordinator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Periodic cleanup
	jobs, err := housekeeping.New(housekeeping.Config{
		HubCleanupInterval:     cfg.HubCleanupInterval,
		SessionCleanupInterval: cfg.SessionCleanupInterval,
	}, app.HubManager, app.Sessions, logger)
	if err != nil {
		logger.Error("failed to create housekeeping", slog.String("error", err.Error()))
		os.Exit(1)
	}
	jobs.Start()
	defer func() {
		if err := jobs.Shutdown(); err != nil {
			logger.Warn("housekeeping shutdown error", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		ClubController: app.ClubController,
		Coordinator:    app.Coordinator,
		HubManager:     app.HubManager,
		Sessions:       app.Sessions,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.Addr
	serverConfig.AllowedOrigins = cfg.AllowedOrigins
	server := api.NewServer(router, serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}
