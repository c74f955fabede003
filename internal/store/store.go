// Package store persists articles through the bun ORM on SQLite or
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/starford/arbor/internal/models"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a bun.DB with article-specific operations.
type DB struct {
	bun *bun.DB
}

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		sqldb *sql.DB
		err   error
		db    *bun.DB
	)
	switch driver {
	case "", DriverSQLite:
		sqldb, err = sql.Open("sqlite3", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("store: open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("store: open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &DB{bun: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteDSN turns a file path into a DSN with WAL, a busy timeout and
// foreign key enforcement.
func sqliteDSN(path string) string {
	const params = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.bun.NewCreateTable().
		Model((*models.Article)(nil)).
		IfNotExists().
		ForeignKey(`("parent_id") REFERENCES "articles" ("id")`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: create articles table: %w", err)
	}
	_, err = db.bun.NewCreateIndex().
		Model((*models.Article)(nil)).
		Index("idx_articles_parent_id").
		Column("parent_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: create parent index: %w", err)
	}
	return nil
}

// Articles returns queries bound to the connection pool.
func (db *DB) Articles() ArticleStore {
	return &Articles{db: db.bun}
}

// InTx runs fn inside one transaction. Returning an error rolls back.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context, tx ArticleStore) error) error {
	return db.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Articles{db: tx})
	})
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.bun.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.bun.Close()
}

// Stats reports connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.bun.Stats()
}
