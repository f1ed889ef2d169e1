package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MosinFAM/content-registry/internal/api"
	"github.com/MosinFAM/content-registry/internal/config"
	"github.com/MosinFAM/content-registry/internal/db"
	"github.com/MosinFAM/content-registry/internal/events"
	"github.com/MosinFAM/content-registry/internal/logging"
	"github.com/MosinFAM/content-registry/internal/metrics"
	"github.com/MosinFAM/content-registry/internal/service"
	"github.com/MosinFAM/content-registry/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("registry stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var publishers []service.Publisher
	if cfg.RedisURL != "" {
		rdb, err := events.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		publishers = append(publishers, events.NewRedisPublisher(rdb, cfg.RedisChannel))
		logger.Info("publishing operations to redis", "channel", cfg.RedisChannel)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	ledger := service.NewLedger(store, m, logger, publishers...)
	if _, err := ledger.Restore(ctx); err != nil {
		return err
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, trusting the X-Caller-Identity header")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewHandler(ledger, api.Options{
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.Origins(),
			Metrics:        m,
			Gatherer:       prometheus.DefaultGatherer,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", "port", cfg.Port, "storage", cfg.StorageType)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageType != config.StoragePostgres {
		logger.Warn("using in-memory storage, the journal is lost on exit")
		return storage.NewMemoryStorage(logger), nil
	}

	dbConn, err := db.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to DB: %w", err)
	}
	pgStore := storage.NewPostgresStorage(dbConn, cfg.DatabaseURL, cfg.MigrationsDir, logger)
	if err := pgStore.InitDB(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("initialize DB: %w", err)
	}
	return pgStore, nil
}
