package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"freelance-tracker/internal/blob"
	"freelance-tracker/internal/config"
	"freelance-tracker/internal/database"
	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/services"
	"freelance-tracker/internal/store"
)

// Env is what every command works against.
type Env struct {
	Config  *config.Config
	Store   store.Store
	Tracker *services.Tracker
	// Migrate applies pending schema migrations and returns how many ran.
	Migrate func(ctx context.Context) (int, error)
	Close   func() error
}

// Opener builds an Env lazily so that --help never touches the database.
type Opener func(ctx context.Context) (*Env, error)

// PostgresOpener wires the production stores from the environment. Events
// are not published: no realtime subscriber lives in this process.
func PostgresOpener(ctx context.Context) (*Env, error) {
	cfg, err := config.LoadForTool()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return nil, err
	}

	db, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	blobs, err := blob.FromConfig(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	return &Env{
		Config:  cfg,
		Store:   db,
		Tracker: services.NewTracker(db, blobs, nil, log, services.WithMaxUploadBytes(cfg.MaxUploadBytes)),
		Migrate: func(ctx context.Context) (int, error) {
			m, err := database.NewMigrator(cfg.DatabaseURL, log.With(zap.String("component", "migrator")))
			if err != nil {
				return 0, err
			}
			defer m.Close()
			return m.Run(ctx)
		},
		Close: func() error {
			_ = log.Sync()
			return db.Close()
		},
	}, nil
}
