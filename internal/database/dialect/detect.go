package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnsupported is returned when the probed engine matches no known
// descriptor. Detection fails fast instead of guessing a default: a wrong
// default silently corrupts listing order or retry behavior.
var ErrUnsupported = errors.New("unsupported database engine")

// Process-wide detection cache. Exactly one dialect is ever resolved per
// process; there is no reset path except restart (and ResetDetection, for
// tests). The mutex doubles as the publish barrier: concurrent first-time
// callers block until the winner's probe finishes and then observe its
// result.
var (
	detectMu sync.Mutex
	detected *Dialect
)

// Resolve returns the dialect for db, probing it on first use and reusing
// the cached result afterwards. Safe for concurrent use; the probe runs at
// most once per process. Probe failures are fatal initialization errors and
// are never retried here — startup retry policy belongs to the caller.
func Resolve(ctx context.Context, db *sql.DB) (*Dialect, error) {
	detectMu.Lock()
	defer detectMu.Unlock()

	if detected != nil {
		return detected, nil
	}

	d, err := Detect(ctx, db)
	if err != nil {
		return nil, err
	}
	detected = d
	return d, nil
}

// ResetDetection clears the process-wide cache so the next Resolve probes
// again. Only tests may call this; production code resolves one engine for
// the life of the process.
func ResetDetection() {
	detectMu.Lock()
	defer detectMu.Unlock()
	detected = nil
}

// Detect probes db once and returns the matching dialect without touching
// the cache. It acquires a single scoped connection so all probe queries
// observe the same session, and releases it on every exit path.
func Detect(ctx context.Context, db *sql.DB) (*Dialect, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect detection: acquire connection: %w", err)
	}
	defer conn.Close()

	return detect(ctx, conn)
}

func detect(ctx context.Context, conn *sql.Conn) (*Dialect, error) {
	product, err := productName(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("dialect detection: probe product name: %w", err)
	}

	switch {
	case strings.Contains(product, "sqlite"):
		return Embedded, nil
	case strings.Contains(product, "cockroach"):
		return Cockroach, nil
	case strings.Contains(product, "postgres"):
		// Proxies and compatible engines report the PostgreSQL product name;
		// CockroachDB's internal catalog schema tells them apart. The retry
		// code sets differ, so this must never fall through to plain.
		distributed, err := hasCockroachCatalog(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("dialect detection: probe crdb_internal: %w", err)
		}
		if distributed {
			return Cockroach, nil
		}
		return Postgres, nil
	case strings.Contains(product, "mysql"), strings.Contains(product, "mariadb"):
		return MariaDB, nil
	default:
		return nil, fmt.Errorf("%w: product %q", ErrUnsupported, product)
	}
}

// productName reports the engine's product string, lower-cased.
//
// database/sql has no metadata API, so the engine is asked directly:
// version() answers on the PostgreSQL and MySQL families, sqlite_version()
// identifies the embedded engine. Stock MySQL returns a bare version number
// from version(), so a string naming no product is supplemented with
// @@version_comment ("MySQL Community Server - GPL" and the like).
func productName(ctx context.Context, conn *sql.Conn) (string, error) {
	var version string
	if err := conn.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		var sqliteVersion string
		if err2 := conn.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&sqliteVersion); err2 == nil {
			return "sqlite " + sqliteVersion, nil
		}
		return "", err
	}

	product := strings.ToLower(version)
	if namesKnownProduct(product) {
		return product, nil
	}

	var comment string
	if err := conn.QueryRowContext(ctx, "SELECT @@version_comment").Scan(&comment); err == nil {
		product += " " + strings.ToLower(comment)
	}
	return product, nil
}

func namesKnownProduct(product string) bool {
	for _, name := range []string{"postgres", "cockroach", "mysql", "mariadb", "sqlite"} {
		if strings.Contains(product, name) {
			return true
		}
	}
	return false
}

// hasCockroachCatalog reports whether the session's database exposes the
// crdb_internal schema.
func hasCockroachCatalog(ctx context.Context, conn *sql.Conn) (bool, error) {
	const q = `SELECT 1 FROM information_schema.schemata WHERE schema_name = 'crdb_internal'`

	var one int
	err := conn.QueryRowContext(ctx, q).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
