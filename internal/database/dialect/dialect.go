// Package dialect describes the SQL engine variant behind a connection.
//
// The catalog store runs unmodified against PostgreSQL, CockroachDB,
// MySQL/MariaDB and embedded SQLite. Those engines disagree on native column
// types, on the codes they report errors under, and on the idiom for
// idempotent inserts. A Dialect bundles one engine family's answers to all
// three so the layers above stay engine-neutral: Detect resolves the dialect
// once per process, DDL/DML builders consult its type mapping, and every
// statement failure goes through its classifier before the caller decides to
// retry, ignore or fail.
//
// Dialects are immutable values, safe for unsynchronized concurrent use.
package dialect

import (
	"fmt"
	"strings"
)

type insertIdiom int

const (
	// Appends ON CONFLICT DO NOTHING (PostgreSQL family, SQLite).
	onConflictDoNothing insertIdiom = iota
	// Substitutes INSERT IGNORE INTO for INSERT INTO (MySQL family).
	insertIgnore
)

type codeSet map[string]bool

// Dialect is the immutable descriptor for one database engine family.
// The zero value is not usable; use the package-level descriptors resolved
// through Detect or Resolve.
type Dialect struct {
	name string

	// Total over ColumnTypes(); a missing entry is a programming fault.
	types map[ColumnType]NativeType

	// Classification code sets. Each descriptor owns its own code space:
	// vendors reuse textually identical codes for unrelated conditions, so
	// these are never shared across descriptors.
	constraintViolation codeSet
	retryConflict       codeSet
	alreadyExists       codeSet

	idiom        insertIdiom
	keyPrefix    int // max indexable prefix for wide binary keys; 0 = unconstrained
	numberedArgs bool

	// Engines with no dedicated table-exists error code guard the CREATE
	// itself instead of classifying the failure afterwards.
	ddlIfNotExists bool
}

// Name returns the engine family name ("postgres", "cockroach", "mysql",
// "sqlite").
func (d *Dialect) Name() string { return d.name }

// TypeOf returns the native rendering of a logical column type. The mapping
// is total by construction; asking for an unmapped type panics, it is never
// a runtime condition.
func (d *Dialect) TypeOf(t ColumnType) NativeType {
	nt, ok := d.types[t]
	if !ok {
		panic(fmt.Sprintf("dialect %s: no native type for logical type %s", d.name, t))
	}
	return nt
}

// KeywordOf returns the DDL keyword for a logical column type.
func (d *Dialect) KeywordOf(t ColumnType) string { return d.TypeOf(t).Keyword }

// CodeOf returns the engine-neutral type code for a logical column type.
func (d *Dialect) CodeOf(t ColumnType) TypeCode { return d.TypeOf(t).Code }

// Classify maps a raw vendor error code to its category. It is total and
// deterministic; evaluation order is fixed: constraint violation, then
// retryable conflict, then already-exists, then Unclassified. An empty code
// is always Unclassified.
func (d *Dialect) Classify(code string) Category {
	switch {
	case code == "":
		return Unclassified
	case d.constraintViolation[code]:
		return ConstraintViolation
	case d.retryConflict[code]:
		return RetryableConflict
	case d.alreadyExists[code]:
		return AlreadyExists
	default:
		return Unclassified
	}
}

// ClassifyError classifies the vendor code carried by err. Errors with no
// recognizable vendor code are Unclassified.
func (d *Dialect) ClassifyError(err error) Category {
	return d.Classify(Code(err))
}

// IsConstraintViolation reports whether err is a unique-constraint failure.
// For content-addressed writes this usually means the row already holds the
// identical content, a benign outcome.
func (d *Dialect) IsConstraintViolation(err error) bool {
	return d.ClassifyError(err) == ConstraintViolation
}

// IsRetryConflict reports whether err is a deadlock or serialization
// failure. The whole enclosing transaction must be re-executed from the
// start, not just the failing statement.
func (d *Dialect) IsRetryConflict(err error) bool {
	return d.ClassifyError(err) == RetryableConflict
}

// IsAlreadyExists reports whether err means a schema object was already
// created, the expected outcome of idempotent DDL racing another initializer.
func (d *Dialect) IsAlreadyExists(err error) bool {
	return d.ClassifyError(err) == AlreadyExists
}

// WrapInsert rewrites an engine-neutral INSERT statement so that a duplicate
// unique key is silently ignored instead of raising a constraint violation.
// The transform only appends or substitutes keywords, so wrapped statements
// stay composable with the input SQL.
func (d *Dialect) WrapInsert(sql string) string {
	switch d.idiom {
	case insertIgnore:
		return strings.Replace(sql, "INSERT INTO", "INSERT IGNORE INTO", 1)
	default:
		return sql + " ON CONFLICT DO NOTHING"
	}
}

// PrimaryKeyCol returns the column reference to use in primary-key and index
// definitions. Engines with a maximum indexable prefix on variable-length
// binary keys get an explicit length suffix for the wide ObjID type; every
// other combination is the bare column name.
func (d *Dialect) PrimaryKeyCol(col string, t ColumnType) string {
	if d.keyPrefix > 0 && t == ObjID {
		return fmt.Sprintf("%s(%d)", col, d.keyPrefix)
	}
	return col
}

// CreateTablePrefix returns the opening keywords of a CREATE TABLE
// statement. Engines whose only table-exists signal is a generic error code
// get IF NOT EXISTS baked into the DDL, so initializers never have to
// interpret an ambiguous failure; the rest report a classified
// already-exists error that idempotent initializers skip.
func (d *Dialect) CreateTablePrefix() string {
	if d.ddlIfNotExists {
		return "CREATE TABLE IF NOT EXISTS"
	}
	return "CREATE TABLE"
}

// Placeholder returns the i-th (1-based) statement parameter marker.
func (d *Dialect) Placeholder(i int) string {
	if d.numberedArgs {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func set(codes ...string) codeSet {
	s := make(codeSet, len(codes))
	for _, c := range codes {
		s[c] = true
	}
	return s
}

// postgresFamily builds a descriptor for an engine speaking the PostgreSQL
// wire vocabulary. The NAME rendering and the retry code set are the points
// of variation within the family.
func postgresFamily(name, nameType string, retryCodes ...string) *Dialect {
	return &Dialect{
		name: name,
		types: map[ColumnType]NativeType{
			Name:      {nameType, CodeVarchar},
			ObjID:     {"BYTEA", CodeBinary},
			Bool:      {"BOOLEAN", CodeBoolean},
			VarBinary: {"BYTEA", CodeBinary},
			BigInt:    {"BIGINT", CodeBigInt},
			Varchar:   {nameType, CodeVarchar},
		},
		constraintViolation: set("23505"),
		retryConflict:       set(retryCodes...),
		alreadyExists:       set("42P07"),
		idiom:               onConflictDoNothing,
		numberedArgs:        true,
	}
}

// Postgres is plain PostgreSQL.
//
// NAME columns use the 'ucs_basic' collation. The default collation may
// collapse runs of spaces, so 'ref-    2' could sort after 'ref-   19' and
// paginated reference listings would come back in the wrong order. ucs_basic
// compares byte-wise and keeps the expected order across padding widths.
//
// Retry codes: 40P01 deadlock_detected, 40001 serialization_failure.
var Postgres = postgresFamily("postgres", "VARCHAR COLLATE ucs_basic", "40P01", "40001")

// Cockroach is CockroachDB reached through the PostgreSQL wire protocol.
// Its default collation is already byte-wise stable, so NAME needs no
// collation clause. All of its transaction retry errors ("retry write too
// old" and friends) surface as 40001; it never reports 40P01.
var Cockroach = postgresFamily("cockroach", "VARCHAR", "40001")

// MariaDB covers MySQL and MariaDB.
//
// InnoDB caps indexable key prefixes, so ObjID maps to TINYBLOB and primary
// key definitions carry an explicit (255) prefix. NAME pins the utf8mb4_bin
// collation; the server default (utf8mb4_0900_ai_ci and relatives) is
// accent- and case-insensitive and would reorder reference listings.
//
// Code sets carry both the SQLSTATE and the server error number for each
// condition, since the driver reports whichever the server sent: 23000/1062
// duplicate entry, 40001/1213 lock deadlock, 42S01/1050 table exists. Note
// SQLSTATE 23000 covers every integrity-constraint violation, not just
// duplicate keys; the classifier keeps the fixed priority order and leaves
// the distinction to the statement that failed.
var MariaDB = &Dialect{
	name: "mysql",
	types: map[ColumnType]NativeType{
		Name:      {"VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin", CodeVarchar},
		ObjID:     {"TINYBLOB", CodeVarBinary},
		Bool:      {"BIT(1)", CodeBit},
		VarBinary: {"BLOB", CodeBlob},
		BigInt:    {"BIGINT", CodeBigInt},
		Varchar:   {"VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin", CodeVarchar},
	},
	constraintViolation: set("23000", "1062"),
	retryConflict:       set("40001", "1213"),
	alreadyExists:       set("42S01", "1050"),
	idiom:               insertIgnore,
	keyPrefix:           255,
}

// Embedded is SQLite, the in-process engine used for tests and single-node
// deployments. Codes are SQLite result codes rendered as decimal strings:
// 2067 SQLITE_CONSTRAINT_UNIQUE and 1555 SQLITE_CONSTRAINT_PRIMARYKEY for
// duplicates; 5 SQLITE_BUSY, 6 SQLITE_LOCKED and 517 SQLITE_BUSY_SNAPSHOT
// for conflicts that clear on retry.
//
// SQLite reports "table already exists" under its generic error code 1
// (SQLITE_ERROR), which also covers syntax errors and missing tables, so
// the code is useless for classification and the already-exists set stays
// empty. Idempotent DDL is handled in the statement instead: CREATEs render
// with IF NOT EXISTS.
//
// SQLite's default BINARY collation is byte-wise, so NAME is plain TEXT.
var Embedded = &Dialect{
	name: "sqlite",
	types: map[ColumnType]NativeType{
		Name:      {"TEXT", CodeVarchar},
		ObjID:     {"BLOB", CodeVarBinary},
		Bool:      {"BOOLEAN", CodeBoolean},
		VarBinary: {"BLOB", CodeVarBinary},
		BigInt:    {"INTEGER", CodeBigInt},
		Varchar:   {"TEXT", CodeVarchar},
	},
	constraintViolation: set("2067", "1555"),
	retryConflict:       set("5", "6", "517"),
	idiom:               onConflictDoNothing,
	ddlIfNotExists:      true,
}
