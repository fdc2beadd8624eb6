package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"mybooks/internal/storage"
)

// ClickHouseDB stores values in a ReplacingMergeTree keyed by name. Every
// Set inserts a new version; reads pick the newest one.
type ClickHouseDB struct {
	mu   sync.Mutex
	conn clickhouse.Conn
	now  func() time.Time
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, now: time.Now}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	// Tables are managed via migrations (see migrations/clickhouse)
	return nil
}

// Get returns the newest value written under key
func (db *ClickHouseDB) Get(ctx context.Context, key string) (string, bool, error) {
	conn, err := db.connection()
	if err != nil {
		return "", false, err
	}

	rows, err := conn.Query(ctx, `SELECT argMax(value, updated_at) FROM kv WHERE key = ? GROUP BY key`, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", false, fmt.Errorf("failed to scan value: %w", err)
	}
	return value, true, nil
}

// Set inserts a new version of key
func (db *ClickHouseDB) Set(ctx context.Context, key, value string) error {
	conn, err := db.connection()
	if err != nil {
		return err
	}

	err = conn.Exec(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, db.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (db *ClickHouseDB) connection() (clickhouse.Conn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil, storage.ErrClosed
	}
	return db.conn, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}
