// Package mysql opens connection pools for the MySQL family (MySQL and
// MariaDB).
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // register the "mysql" database/sql driver

	"github.com/refcask/refcask/internal/database"
	"github.com/refcask/refcask/internal/errs"
)

// Open builds a pooled *sql.DB for the given config and verifies
// reachability with a ping bounded by cfg.ConnectTimeout.
func Open(ctx context.Context, cfg *database.Config) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid mysql DSN", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout())
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "ping mysql", err)
	}

	return db, nil
}

// buildDSN constructs the MySQL DSN string from the discrete config fields.
func buildDSN(cfg *database.Config) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	// format: user:pass@tcp(host:port)/dbname?parseTime=true
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database,
	)
}
