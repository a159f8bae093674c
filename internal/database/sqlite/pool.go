// Package sqlite opens the embedded database, used for tests and
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // register the "sqlite" database/sql driver

	"github.com/refcask/refcask/internal/database"
	"github.com/refcask/refcask/internal/errs"
)

// Open builds a *sql.DB for the database file in cfg.DSN (":memory:" for an
// in-memory database).
func Open(ctx context.Context, cfg *database.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "open sqlite database", err)
	}

	// SQLite allows one writer, and each pooled connection to an in-memory
	// DSN would see its own empty database. A single connection avoids both
	// problems.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout())
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "ping sqlite", err)
	}

	return db, nil
}
