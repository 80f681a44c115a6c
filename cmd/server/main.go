// @title           Freelance Order Tracker API
// @version         1.0.0
// @description     Freelancers manage projects and orders; clients follow progress, comment and approve through a per-project access token.

// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelance-tracker/internal/blob"
	"freelance-tracker/internal/config"
	"freelance-tracker/internal/database"
	"freelance-tracker/internal/handlers"
	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/realtime"
	"freelance-tracker/internal/services"
	"freelance-tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	applied, err := database.NewMigratorFromDB(db.DB(), log).Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations completed", zap.Int("applied", applied))

	blobs, err := blob.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}

	hub := realtime.NewHub(log)
	tracker := services.NewTracker(db, blobs, hub, log, services.WithMaxUploadBytes(cfg.MaxUploadBytes))

	opts := handlers.RouterOptions{
		Config:  cfg,
		Tracker: tracker,
		Hub:     hub,
		Logger:  log,
	}
	if local, ok := blobs.(*blob.Local); ok {
		opts.UploadDir = local.Root()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("blob_backend", cfg.BlobBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	// open event streams only end when their request context is cancelled
	srv.RegisterOnShutdown(hub.CloseAll)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
