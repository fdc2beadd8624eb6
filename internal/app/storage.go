package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mybooks/internal/config"
	"mybooks/internal/storage"
	"mybooks/internal/storage/ch"
	"mybooks/internal/storage/file"
	"mybooks/internal/storage/objstore"
	"mybooks/internal/storage/pg"
	"mybooks/internal/storage/redisdb"
	"mybooks/internal/storage/sqlite"
	"mybooks/internal/storage/stubs"
)

// OpenStorage connects the backend selected by cfg.StorageBackend and
// prepares its schema.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	db, err := newStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageBackend, err)
	}
	logger.Info("Storage initialized successfully", zap.String("backend", cfg.StorageBackend))
	return db, nil
}

func newStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Info("Using in-memory storage")
		return stubs.NewMockDB(), nil

	case config.BackendNone:
		logger.Warn("No persistent storage configured, changes will be lost on restart")
		return storage.Unavailable{}, nil

	case config.BackendFile:
		logger.Info("Using file storage", zap.String("dir", cfg.DataDir))
		fs, err := file.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return fs, nil

	case config.BackendSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		return db, nil

	case config.BackendRedis:
		logger.Info("Using Redis storage",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
		)
		return redisdb.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix), nil

	case config.BackendClickHouse:
		logger.Info("Connecting to ClickHouse",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.String("user", cfg.ClickHouseUser),
			zap.Bool("tls", cfg.ClickHouseUseTLS),
		)
		db, err := ch.NewClickHouseDB(
			cfg.ClickHouseHost,
			cfg.ClickHousePort,
			cfg.ClickHouseDatabase,
			cfg.ClickHouseUser,
			cfg.ClickHousePassword,
			cfg.ClickHouseUseTLS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		return db, nil

	case config.BackendPostgres:
		logger.Info("Connecting to Postgres")
		db, err := pg.NewGormStore(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		return db, nil

	case config.BackendS3:
		logger.Info("Using object storage",
			zap.String("endpoint", cfg.S3Endpoint),
			zap.String("bucket", cfg.S3Bucket),
		)
		db, err := objstore.NewMinioStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Prefix, cfg.S3UseSSL)
		if err != nil {
			return nil, fmt.Errorf("failed to open object storage: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
