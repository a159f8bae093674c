package dialect

import (
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
)

// Category is the classification of a failed statement. The set is closed;
// the transaction layer above maps each category to a retry/ignore/fail
// decision and treats Unclassified as fatal. Defaulting an unknown code to
// anything else would either retry forever on a genuinely fatal error or
// swallow one.
type Category int

const (
	// Unclassified means no known code matched; propagate as fatal.
	Unclassified Category = iota

	// ConstraintViolation means a uniqueness constraint fired on insert.
	// Non-retryable; for content-addressed rows usually benign.
	ConstraintViolation

	// RetryableConflict means a deadlock or serialization failure. The whole
	// enclosing transaction must be re-executed from the start, because the
	// conflict may have invalidated reads made earlier in the transaction.
	RetryableConflict

	// AlreadyExists means a schema object was already created, typically by
	// a concurrent initializer running the same idempotent DDL.
	AlreadyExists
)

func (c Category) String() string {
	switch c {
	case ConstraintViolation:
		return "constraint_violation"
	case RetryableConflict:
		return "retryable_conflict"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unclassified"
	}
}

// sqlStater is the conventional interface driver errors expose their
// SQLSTATE through.
type sqlStater interface {
	SQLState() string
}

// Code extracts the raw vendor error code from err: the SQLSTATE of a
// PostgreSQL-family error, the SQLSTATE (or server error number, when the
// state was not transmitted) of a MySQL-family error, or the decimal result
// code of a SQLite error. Returns "" when err carries no vendor code; ""
// always classifies as Unclassified.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.SQLState[0] != 0 {
			return string(myErr.SQLState[:])
		}
		return strconv.Itoa(int(myErr.Number))
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(liteErr.Code())
	}

	var st sqlStater
	if errors.As(err, &st) {
		return st.SQLState()
	}

	return ""
}
