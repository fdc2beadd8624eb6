package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mybooks/internal/app"
	"mybooks/internal/books"
	"mybooks/internal/config"
	"mybooks/internal/logging"
	"mybooks/internal/storage"
)

func main() {
	_ = godotenv.Load()

	root := newRootCmd(openFromEnv)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openFromEnv opens the same collection the service uses.
func openFromEnv(ctx context.Context) (*books.Store, storage.Storage, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return nil, nil, err
	}

	db, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := books.New(ctx, db, logger.Named("books"),
		books.WithKey(cfg.StorageKey),
		books.WithLocation(cfg.Location),
	)
	logger.Debug("Collection opened", zap.Int("books", store.Len()))
	return store, db, nil
}
