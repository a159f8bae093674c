// Package schema defines the catalog tables and renders their DDL and DML
// through a dialect. All statement text the store executes is generated
// here; nothing else in the repo concatenates SQL.
package schema

import (
	"fmt"
	"strings"

	"github.com/refcask/refcask/internal/database/dialect"
)

// Column is one catalog column, typed in the logical vocabulary.
type Column struct {
	Name       string
	Type       dialect.ColumnType
	PrimaryKey bool
}

// Table is one catalog table definition.
type Table struct {
	Name    string
	Columns []Column
}

// Refs holds the named references of every repository. Listings paginate on
// ref_name, which is why it is a Name column and not generic text.
var Refs = Table{
	Name: "refs",
	Columns: []Column{
		{Name: "repo_id", Type: dialect.Name, PrimaryKey: true},
		{Name: "ref_name", Type: dialect.Name, PrimaryKey: true},
		{Name: "pointer", Type: dialect.ObjID},
		{Name: "deleted", Type: dialect.Bool},
		{Name: "created_at", Type: dialect.BigInt},
	},
}

// Objs holds the content-addressed objects. The obj_id primary key is the
// content hash, so re-inserting identical content is a benign duplicate.
var Objs = Table{
	Name: "objs",
	Columns: []Column{
		{Name: "repo_id", Type: dialect.Name, PrimaryKey: true},
		{Name: "obj_id", Type: dialect.ObjID, PrimaryKey: true},
		{Name: "obj_type", Type: dialect.Varchar},
		{Name: "payload", Type: dialect.VarBinary},
	},
}

// Tables lists every catalog table, in creation order.
func Tables() []Table {
	return []Table{Refs, Objs}
}

// PrimaryKey returns the names of the table's key columns, in declaration
// order.
func (t Table) PrimaryKey() []string {
	var cols []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// ColumnNames returns all column names in declaration order.
func (t Table) ColumnNames() []string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	return cols
}

// CreateTableStmt renders the CREATE TABLE statement for t on d. Key
// columns are NOT NULL; the primary key clause goes through
// d.PrimaryKeyCol so length-constrained engines get their prefix
// specifiers, and the opening keywords come from d.CreateTablePrefix so
// engines without a table-exists error code guard the DDL itself.
func CreateTableStmt(d *dialect.Dialect, t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (", d.CreateTablePrefix(), t.Name)

	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", c.Name, d.KeywordOf(c.Type))
		if c.PrimaryKey {
			b.WriteString(" NOT NULL")
		}
	}

	b.WriteString(", PRIMARY KEY (")
	n := 0
	for _, c := range t.Columns {
		if !c.PrimaryKey {
			continue
		}
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.PrimaryKeyCol(c.Name, c.Type))
		n++
	}
	b.WriteString("))")

	return b.String()
}

// InsertStmt renders a full-row INSERT for t with d's placeholder style.
func InsertStmt(d *dialect.Dialect, t Table) string {
	cols := t.ColumnNames()
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), strings.Join(marks, ", "),
	)
}

// IdempotentInsertStmt renders an INSERT that silently ignores duplicate
// keys, in whatever idiom d supports.
func IdempotentInsertStmt(d *dialect.Dialect, t Table) string {
	return d.WrapInsert(InsertStmt(d, t))
}

// WhereKey renders "col1 = $1 AND col2 = $2" over the table's key columns,
// numbering placeholders from first.
func WhereKey(d *dialect.Dialect, t Table, first int) string {
	var parts []string
	for _, col := range t.PrimaryKey() {
		parts = append(parts, fmt.Sprintf("%s = %s", col, d.Placeholder(first)))
		first++
	}
	return strings.Join(parts, " AND ")
}
