package bunx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
)

// DatabaseType names the backend a cvapi DSN points at.
type DatabaseType string

const (
	DatabaseTypePostgreSQL DatabaseType = "postgres"
	DatabaseTypeSQLite     DatabaseType = "sqlite"
)

var postgresSchemes = []string{"postgres://", "postgresql://", "unix://"}

// sqlitePragmas run once per pool. The pool holds a single connection, so
// they cover every query.
var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

// DetectDatabaseType picks Postgres for URL-style DSNs and SQLite for
// anything else (":memory:", "file:..." or a bare path).
func DetectDatabaseType(dsn string) DatabaseType {
	for _, scheme := range postgresSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return DatabaseTypePostgreSQL
		}
	}
	return DatabaseTypeSQLite
}

// NewDB connects to the users/roles/departments store named by dsn, verifies
// the connection and registers the m2m models the repositories join through.
func NewDB(ctx context.Context, dsn string) (*bun.DB, error) {
	kind := DetectDatabaseType(dsn)

	var (
		db  *bun.DB
		err error
	)
	switch kind {
	case DatabaseTypePostgreSQL:
		db = openPostgres(dsn)
	case DatabaseTypeSQLite:
		db, err = openSQLite(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", kind, err)
	}

	models.Register(db)
	return db, nil
}

func openPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	// Auth traffic is short queries; a small fixed pool is enough.
	sqldb.SetMaxOpenConns(20)
	sqldb.SetMaxIdleConns(10)
	return bun.NewDB(sqldb, pgdialect.New())
}

func openSQLite(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// One connection serialises writers and keeps a :memory: database alive.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	return db, nil
}

// Close is nil-safe so deferred cleanup works on partially built commands.
func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
