package store

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcask/refcask/internal/database/dialect"
	"github.com/refcask/refcask/internal/errs"
	"github.com/refcask/refcask/internal/logger"
	"github.com/refcask/refcask/internal/schema"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
	return New(db, dialect.Postgres, log), mock
}

func TestInitCreatesAllTables(t *testing.T) {
	s, mock := newTestStore(t)
	for _, table := range schema.Tables() {
		mock.ExpectExec(schema.CreateTableStmt(dialect.Postgres, table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitIdempotent(t *testing.T) {
	// A concurrent initializer already created refs; objs is still missing.
	s, mock := newTestStore(t)
	mock.ExpectExec(schema.CreateTableStmt(dialect.Postgres, schema.Refs)).
		WillReturnError(&pgconn.PgError{Code: "42P07"})
	mock.ExpectExec(schema.CreateTableStmt(dialect.Postgres, schema.Objs)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitFatalOnUnclassifiedError(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(schema.CreateTableStmt(dialect.Postgres, schema.Refs)).
		WillReturnError(&pgconn.PgError{Code: "42601"})

	err := s.Init(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
}

func TestPutObjUsesIdempotentInsert(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(schema.IdempotentInsertStmt(dialect.Postgres, schema.Objs)).
		WithArgs("repo", []byte{0xca, 0xfe}, "commit", []byte("payload")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutObj(context.Background(), Obj{
		Repo: "repo", ID: []byte{0xca, 0xfe}, Type: "commit", Payload: []byte("payload"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutObjDuplicateContentIsBenign(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(schema.IdempotentInsertStmt(dialect.Postgres, schema.Objs)).
		WithArgs("repo", []byte{0xca, 0xfe}, "commit", []byte("payload")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.PutObj(context.Background(), Obj{
		Repo: "repo", ID: []byte{0xca, 0xfe}, Type: "commit", Payload: []byte("payload"),
	})
	assert.NoError(t, err)
}

func TestPutObjRetryConflict(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(schema.IdempotentInsertStmt(dialect.Postgres, schema.Objs)).
		WithArgs("repo", []byte{0x01}, "commit", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "40001"})

	err := s.PutObj(context.Background(), Obj{Repo: "repo", ID: []byte{0x01}, Type: "commit"})
	require.Error(t, err)
	assert.True(t, errs.IsRetryConflict(err))
}

func TestGetObj(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(s.stmts.getObj).
		WithArgs("repo", []byte{0x01}).
		WillReturnRows(sqlmock.NewRows([]string{"obj_type", "payload"}).
			AddRow("commit", []byte("payload")))

	obj, err := s.GetObj(context.Background(), "repo", []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, "commit", obj.Type)
	assert.Equal(t, []byte("payload"), obj.Payload)
}

func TestGetObjNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(s.stmts.getObj).
		WithArgs("repo", []byte{0x01}).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetObj(context.Background(), "repo", []byte{0x01})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestPutRefDuplicateNameIsAnError(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(s.stmts.putRef).
		WithArgs("repo", "main", []byte{0x01}, false, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.PutRef(context.Background(), Ref{Repo: "repo", Name: "main", Pointer: []byte{0x01}})
	require.Error(t, err)
	assert.True(t, errs.IsAlreadyExists(err))
}

func TestGetRefNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(s.stmts.getRef).
		WithArgs("repo", "gone", false).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetRef(context.Background(), "repo", "gone")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestListRefsOrderedByName(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(s.stmts.listRefs).
		WithArgs("repo", false).
		WillReturnRows(sqlmock.NewRows([]string{"ref_name", "pointer", "created_at"}).
			AddRow("dev", []byte{0x02}, int64(2)).
			AddRow("main", []byte{0x01}, int64(1)))

	refs, err := s.ListRefs(context.Background(), "repo")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "dev", refs[0].Name)
	assert.Equal(t, "main", refs[1].Name)
	assert.Contains(t, s.stmts.listRefs, "ORDER BY ref_name")
}

func TestDeleteRef(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(s.stmts.deleteRef).
		WithArgs(true, "repo", "main", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteRef(context.Background(), "repo", "main"))
}

func TestDeleteRefNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(s.stmts.deleteRef).
		WithArgs(true, "repo", "gone", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteRef(context.Background(), "repo", "gone")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestStatementsFollowDialect(t *testing.T) {
	// The same store logic renders MySQL-family statement text when built
	// over that dialect.
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
	s := New(db, dialect.MariaDB, log)

	assert.Contains(t, s.stmts.putObj, "INSERT IGNORE INTO objs")
	assert.Contains(t, s.stmts.createTables[1], "obj_id(255)")
	assert.NotContains(t, s.stmts.getRef, "$")
}
