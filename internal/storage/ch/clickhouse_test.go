package ch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"mybooks/internal/storage"
	"mybooks/internal/storage/storagetest"
)

// runMigrations manually creates the kv table
func runMigrations(ctx context.Context, db *ClickHouseDB) error {
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS kv")

	return db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key String,
			value String,
			updated_at DateTime64(9, 'UTC')
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY key
	`)
}

// setupTestDB creates a test ClickHouse instance using testcontainers
func setupTestDB(t *testing.T) (*ClickHouseDB, func()) {
	if testing.Short() {
		t.Skip("skipping ClickHouse container test in short mode")
	}
	ctx := context.Background()

	// Start ClickHouse container
	clickhouseContainer, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:24.3.3.102-alpine",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword(""),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "Failed to start ClickHouse container")

	// Get connection details
	host, err := clickhouseContainer.Host(ctx)
	require.NoError(t, err)

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	// Create database connection
	db, err := NewClickHouseDB(host, port.Int(), "default", "default", "", false)
	require.NoError(t, err, "Failed to connect to ClickHouse")

	// Run migrations manually (goose doesn't work well with ClickHouse)
	err = runMigrations(ctx, db)
	require.NoError(t, err, "Failed to run migrations")

	// Cleanup function
	cleanup := func() {
		db.Close()
		clickhouseContainer.Terminate(ctx)
	}

	return db, cleanup
}

// TestClickHouseDB_Contract runs the shared storage behavior
func TestClickHouseDB_Contract(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storagetest.Run(t, db)
}

// TestClickHouseDB_ConcurrentWrites tests that concurrent writers leave one of their values
func TestClickHouseDB_ConcurrentWrites(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	values := []string{"a", "b", "c", "d", "e"}

	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			assert.NoError(t, db.Set(ctx, "mybooks", v))
		}(v)
	}
	wg.Wait()

	value, ok, err := db.Get(ctx, "mybooks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, values, value)
}

// TestClickHouseDB_Close tests connection closing
func TestClickHouseDB_Close(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Close()
	assert.NoError(t, err)

	// Second close should not panic
	err = db.Close()
	assert.NoError(t, err)

	_, _, err = db.Get(context.Background(), "mybooks")
	assert.True(t, errors.Is(err, storage.ErrClosed))
}
