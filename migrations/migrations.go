// Package migrations embeds the goose schema files for the SQL backends.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS holds one directory per goose dialect.
//
//go:embed clickhouse/*.sql sqlite/*.sql
var FS embed.FS

// Goose dialects with embedded migrations.
const (
	DialectClickHouse = "clickhouse"
	DialectSQLite     = "sqlite3"
)

var dirs = map[string]string{
	DialectClickHouse: "clickhouse",
	DialectSQLite:     "sqlite",
}

// Run executes a goose command (up, down, status or version) against db
// using the embedded files for dialect. version is the schema version after
// the command.
func Run(ctx context.Context, db *sql.DB, dialect, command string) (version int64, err error) {
	dir, ok := dirs[dialect]
	if !ok {
		return 0, fmt.Errorf("no migrations for dialect %q", dialect)
	}

	goose.SetBaseFS(FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, db, dir)
	case "down":
		err = goose.DownContext(ctx, db, dir)
	case "status":
		err = goose.StatusContext(ctx, db, dir)
	case "version":
	default:
		return 0, fmt.Errorf("unknown command %q (expected up, down, status or version)", command)
	}
	if err != nil {
		return 0, fmt.Errorf("migrate %s: %w", command, err)
	}

	version, err = goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
