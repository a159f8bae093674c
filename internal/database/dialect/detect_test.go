package dialect

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	versionQuery        = "SELECT version()"
	sqliteVersionQuery  = "SELECT sqlite_version()"
	versionCommentQuery = "SELECT @@version_comment"
	crdbSchemaQuery     = "SELECT 1 FROM information_schema.schemata WHERE schema_name = 'crdb_internal'"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func versionRow(v string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"version"}).AddRow(v)
}

func TestDetectPostgres(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("PostgreSQL 16.3 (Debian 16.3-1.pgdg120+1) on x86_64-pc-linux-gnu"))
	mock.ExpectQuery(crdbSchemaQuery).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	d, err := Detect(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, Postgres, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetectCockroachViaInternalSchema(t *testing.T) {
	// A proxy can report the plain PostgreSQL product name for CockroachDB;
	// the crdb_internal schema is what decides.
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("PostgreSQL 13.0 compatible"))
	mock.ExpectQuery(crdbSchemaQuery).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	d, err := Detect(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, Cockroach, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetectCockroachViaProductName(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("CockroachDB CCL v23.2.4 (x86_64-pc-linux-gnu)"))

	d, err := Detect(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, Cockroach, d)
}

func TestDetectMySQLBareVersion(t *testing.T) {
	// Stock MySQL reports a bare version number; the product name comes
	// from @@version_comment.
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("8.4.0"))
	mock.ExpectQuery(versionCommentQuery).
		WillReturnRows(sqlmock.NewRows([]string{"@@version_comment"}).AddRow("MySQL Community Server - GPL"))

	d, err := Detect(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, MariaDB, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetectMariaDB(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("11.4.2-MariaDB-ubu2404"))

	d, err := Detect(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, MariaDB, d)
}

func TestDetectEmbedded(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnError(errors.New("no such function: version"))
	mock.ExpectQuery(sqliteVersionQuery).
		WillReturnRows(sqlmock.NewRows([]string{"sqlite_version()"}).AddRow("3.46.0"))

	d, err := Detect(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, Embedded, d)
}

func TestDetectUnsupportedEngine(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("Oracle Database 19c Enterprise Edition"))
	mock.ExpectQuery(versionCommentQuery).
		WillReturnError(errors.New("unknown system variable"))

	d, err := Detect(context.Background(), db)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Nil(t, d)
}

func TestDetectProbeFailureIsFatal(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectQuery(sqliteVersionQuery).
		WillReturnError(errors.New("connection refused"))

	_, err := Detect(context.Background(), db)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestResolveMemoizes(t *testing.T) {
	ResetDetection()
	t.Cleanup(ResetDetection)

	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("PostgreSQL 16.3"))
	mock.ExpectQuery(crdbSchemaQuery).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	first, err := Resolve(context.Background(), db)
	require.NoError(t, err)

	// Second call must not probe again; no further expectations are set.
	second, err := Resolve(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveConcurrentFirstUse(t *testing.T) {
	ResetDetection()
	t.Cleanup(ResetDetection)

	db, mock := newMockDB(t)
	// Exactly one probe for all callers.
	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("11.4.2-MariaDB"))

	const callers = 16
	results := make([]*Dialect, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := Resolve(context.Background(), db)
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.Same(t, MariaDB, results[i], "caller %d", i)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDoesNotCacheFailure(t *testing.T) {
	ResetDetection()
	t.Cleanup(ResetDetection)

	db, mock := newMockDB(t)
	mock.ExpectQuery(versionQuery).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectQuery(sqliteVersionQuery).
		WillReturnError(errors.New("connection refused"))

	_, err := Resolve(context.Background(), db)
	require.Error(t, err)

	mock.ExpectQuery(versionQuery).
		WillReturnRows(versionRow("PostgreSQL 16.3"))
	mock.ExpectQuery(crdbSchemaQuery).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	d, err := Resolve(context.Background(), db)
	require.NoError(t, err)
	assert.Same(t, Postgres, d)
}
