// Package store is the relational persistence layer of the catalog: named
// references pointing at content-addressed objects, runnable unmodified on
// every engine the dialect layer supports.
//
// The store only classifies failures; it never retries. Callers that receive
// an errs.IsRetryConflict error must re-execute their whole transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/refcask/refcask/internal/database"
	"github.com/refcask/refcask/internal/database/dialect"
	"github.com/refcask/refcask/internal/database/mysql"
	"github.com/refcask/refcask/internal/database/postgres"
	"github.com/refcask/refcask/internal/database/sqlite"
	"github.com/refcask/refcask/internal/errs"
	"github.com/refcask/refcask/internal/logger"
	"github.com/refcask/refcask/internal/schema"
)

// Ref is a named reference in a repository.
type Ref struct {
	Repo      string
	Name      string
	Pointer   []byte // content address of the referenced object
	CreatedAt int64  // unix milliseconds
}

// Obj is a content-addressed object. ID is the content hash; writing the
// same ID twice is a no-op by construction.
type Obj struct {
	Repo    string
	ID      []byte
	Type    string
	Payload []byte
}

// statements holds the dialect-rendered SQL, built once at construction.
type statements struct {
	createTables []string
	putObj       string
	getObj       string
	putRef       string
	getRef       string
	listRefs     string
	deleteRef    string
}

// Store executes the fixed catalog statement set against one database.
// Safe for concurrent use.
type Store struct {
	db    *sql.DB
	d     *dialect.Dialect
	log   *logger.Logger
	stmts statements
}

// Open connects according to cfg, resolves the dialect against the live
// connection, and returns a ready Store. An engine with no known dialect is
// a fatal error; the store never starts in a degraded mode.
func Open(ctx context.Context, cfg *database.Config, log *logger.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Engine {
	case database.EnginePostgres:
		db, err = postgres.Open(ctx, cfg)
	case database.EngineMySQL:
		db, err = mysql.Open(ctx, cfg)
	case database.EngineSQLite:
		db, err = sqlite.Open(ctx, cfg)
	default:
		return nil, errs.New(errs.ErrKindUnsupported, fmt.Sprintf("engine %q", cfg.Engine))
	}
	if err != nil {
		return nil, err
	}

	d, err := dialect.Resolve(ctx, db)
	if err != nil {
		_ = db.Close()
		if errors.Is(err, dialect.ErrUnsupported) {
			return nil, errs.Wrap(errs.ErrKindUnsupported, "resolve dialect", err)
		}
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "resolve dialect", err)
	}

	log.With().Str("dialect", d.Name()).Logger().Info("catalog store connected")
	return New(db, d, log), nil
}

// New builds a Store over an existing pool and an already-resolved dialect.
func New(db *sql.DB, d *dialect.Dialect, log *logger.Logger) *Store {
	s := &Store{db: db, d: d, log: log}
	s.stmts = buildStatements(d)
	return s
}

func buildStatements(d *dialect.Dialect) statements {
	var create []string
	for _, t := range schema.Tables() {
		create = append(create, schema.CreateTableStmt(d, t))
	}

	return statements{
		createTables: create,
		putObj:       schema.IdempotentInsertStmt(d, schema.Objs),
		getObj: fmt.Sprintf(
			"SELECT obj_type, payload FROM %s WHERE %s",
			schema.Objs.Name, schema.WhereKey(d, schema.Objs, 1),
		),
		putRef: schema.InsertStmt(d, schema.Refs),
		getRef: fmt.Sprintf(
			"SELECT pointer, created_at FROM %s WHERE %s AND deleted = %s",
			schema.Refs.Name, schema.WhereKey(d, schema.Refs, 1), d.Placeholder(3),
		),
		listRefs: fmt.Sprintf(
			"SELECT ref_name, pointer, created_at FROM %s WHERE repo_id = %s AND deleted = %s ORDER BY ref_name",
			schema.Refs.Name, d.Placeholder(1), d.Placeholder(2),
		),
		deleteRef: fmt.Sprintf(
			"UPDATE %s SET deleted = %s WHERE %s AND deleted = %s",
			schema.Refs.Name, d.Placeholder(1), schema.WhereKey(d, schema.Refs, 2), d.Placeholder(4),
		),
	}
}

// Dialect returns the resolved dialect, for callers that classify errors
// themselves.
func (s *Store) Dialect() *dialect.Dialect { return s.d }

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Init creates the catalog tables. Idempotent: a table created by an earlier
// run or by a concurrent initializer is skipped. Any other failure aborts;
// a half-initialized schema must not go unnoticed.
func (s *Store) Init(ctx context.Context) error {
	for i, stmt := range s.stmts.createTables {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if s.d.IsAlreadyExists(err) {
				s.log.Debugf("table %s already exists", schema.Tables()[i].Name)
				continue
			}
			return errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("create table %s", schema.Tables()[i].Name), err)
		}
	}
	return nil
}

// PutObj stores a content-addressed object. Duplicate content addresses are
// silently ignored: the insert is rewritten with the engine's duplicate-
// tolerant idiom, and a constraint violation that still slips through (the
// MySQL idiom can race) is treated as success.
func (s *Store) PutObj(ctx context.Context, obj Obj) error {
	_, err := s.db.ExecContext(ctx, s.stmts.putObj, obj.Repo, obj.ID, obj.Type, obj.Payload)
	if err != nil {
		if s.d.IsConstraintViolation(err) {
			return nil
		}
		return s.classified("put obj", err)
	}
	return nil
}

// GetObj loads a content-addressed object.
func (s *Store) GetObj(ctx context.Context, repo string, id []byte) (*Obj, error) {
	obj := &Obj{Repo: repo, ID: id}
	err := s.db.QueryRowContext(ctx, s.stmts.getObj, repo, id).Scan(&obj.Type, &obj.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.ErrKindNotFound, "obj not found")
	}
	if err != nil {
		return nil, s.classified("get obj", err)
	}
	return obj, nil
}

// PutRef creates a named reference. Unlike objects, a duplicate name is an
// error the caller must see: the same name can point at different content.
func (s *Store) PutRef(ctx context.Context, ref Ref) error {
	createdAt := ref.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, s.stmts.putRef, ref.Repo, ref.Name, ref.Pointer, false, createdAt)
	if err != nil {
		if s.d.IsConstraintViolation(err) {
			return errs.Wrap(errs.ErrKindAlreadyExists, fmt.Sprintf("ref %s", ref.Name), err)
		}
		return s.classified("put ref", err)
	}
	return nil
}

// GetRef loads a live (non-deleted) reference.
func (s *Store) GetRef(ctx context.Context, repo, name string) (*Ref, error) {
	ref := &Ref{Repo: repo, Name: name}
	err := s.db.QueryRowContext(ctx, s.stmts.getRef, repo, name, false).Scan(&ref.Pointer, &ref.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("ref %s", name))
	}
	if err != nil {
		return nil, s.classified("get ref", err)
	}
	return ref, nil
}

// ListRefs returns all live references of a repository ordered by name.
// The ordering is byte-wise on every engine — that is what the Name column
// type's collation guarantees — so pagination above this layer stays stable.
func (s *Store) ListRefs(ctx context.Context, repo string) ([]Ref, error) {
	rows, err := s.db.QueryContext(ctx, s.stmts.listRefs, repo, false)
	if err != nil {
		return nil, s.classified("list refs", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		ref := Ref{Repo: repo}
		if err := rows.Scan(&ref.Name, &ref.Pointer, &ref.CreatedAt); err != nil {
			return nil, s.classified("scan ref", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classified("list refs", err)
	}
	return refs, nil
}

// DeleteRef soft-deletes a reference.
func (s *Store) DeleteRef(ctx context.Context, repo, name string) error {
	res, err := s.db.ExecContext(ctx, s.stmts.deleteRef, true, repo, name, false)
	if err != nil {
		return s.classified("delete ref", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.New(errs.ErrKindNotFound, fmt.Sprintf("ref %s", name))
	}
	return nil
}

// classified wraps a driver error according to the dialect's classification.
// RetryableConflict is surfaced as a retry-conflict kind so the transaction
// layer above can re-run; everything unclassified stays fatal.
func (s *Store) classified(op string, err error) error {
	switch s.d.ClassifyError(err) {
	case dialect.RetryableConflict:
		return errs.Wrap(errs.ErrKindRetryConflict, op, err)
	case dialect.AlreadyExists:
		return errs.Wrap(errs.ErrKindAlreadyExists, op, err)
	case dialect.ConstraintViolation:
		return errs.Wrap(errs.ErrKindAlreadyExists, op, err)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, op, err)
	}
}
