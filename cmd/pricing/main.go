package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"storformat-pricing/internal/catalog"
	"storformat-pricing/internal/config"
	"storformat-pricing/internal/notify"
	"storformat-pricing/internal/server"
	"storformat-pricing/internal/storage"
	"storformat-pricing/pkg/api"
	"storformat-pricing/pkg/logger"
	"storformat-pricing/pkg/redis"
)

// ENTRY POINT

func main() {
	// Local development convenience; in deployment the env is already set.
	_ = godotenv.Load()

	zapLogger, err := logger.New()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	defer redisClient.Close()

	pgStorage, err := storage.NewPostgresStorage(ctx, storage.Config{
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		DBName:          cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	if err := storage.RunMigrations(ctx, pgStorage.DB(), zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	notifier, err := notify.New(cfg.TelegramToken, cfg.AdminIDs, cfg.NotifyMinTotal, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create notifier", zap.Error(err))
	}

	var syncer server.Syncer
	if cfg.CatalogAPIBaseURL != "" {
		apiClient := api.NewClient(cfg.CatalogAPIBaseURL, cfg.CatalogAPIKey, zapLogger)
		syncer = catalog.NewSyncer(apiClient, pgStorage, zapLogger)
	} else {
		zapLogger.Warn("Catalog sync disabled - no pricing hub URL configured")
	}

	srv := server.New(zapLogger, pgStorage, notifier, syncer, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.HTTPRequestTimeout,
		WriteTimeout: cfg.HTTPRequestTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Starting pricing service", zap.String("addr", cfg.HTTPAddr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Fatal("HTTP server stopped with error", zap.Error(err))
	}

	zapLogger.Info("Pricing service shutdown gracefully")
}
