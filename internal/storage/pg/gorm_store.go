package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// KVModel is one stored key. Document mirrors Value as jsonb when the value
// is valid JSON so the collection can be queried from SQL.
type KVModel struct {
	Key       string         `gorm:"primaryKey"`
	Value     string         `gorm:"type:text;not null"`
	Document  datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (KVModel) TableName() string { return "kv" }

// GormStore implements storage.Storage using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB. The schema is applied by Initialize.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Initialize runs auto-migrations.
func (s *GormStore) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&KVModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row KVModel
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %q: %w", key, err)
	}
	return row.Value, true, nil
}

// Set upserts key.
func (s *GormStore) Set(ctx context.Context, key, value string) error {
	row := KVModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if json.Valid([]byte(value)) {
		row.Document = datatypes.JSON(value)
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "document", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
