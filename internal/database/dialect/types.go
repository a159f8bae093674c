package dialect

import "fmt"

// ColumnType is one of the fixed logical column kinds the catalog schema is
// written in. The set is closed: descriptors are built to cover all of it,
// and it never grows at runtime.
type ColumnType int

const (
	// Name holds reference and repository names. Listings are paginated by
	// this column, so its native type must sort byte-wise regardless of the
	// engine's default collation.
	Name ColumnType = iota

	// ObjID holds the content address (hash bytes) of a stored object.
	ObjID

	// Bool is a plain true/false flag.
	Bool

	// VarBinary is variable-length binary payload with no length limit at
	// the mapping layer.
	VarBinary

	// BigInt is a 64-bit signed integer on every engine.
	BigInt

	// Varchar is generic text with no length limit at the mapping layer.
	Varchar
)

var columnTypeNames = map[ColumnType]string{
	Name:      "name",
	ObjID:     "obj_id",
	Bool:      "bool",
	VarBinary: "varbinary",
	BigInt:    "bigint",
	Varchar:   "varchar",
}

func (t ColumnType) String() string {
	if s, ok := columnTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ColumnTypes lists every logical column type. Mapping tables and their
// totality tests iterate this instead of hard-coding the enum.
func ColumnTypes() []ColumnType {
	return []ColumnType{Name, ObjID, Bool, VarBinary, BigInt, Varchar}
}

// TypeCode is the engine-neutral code a native column type binds and scans
// as. DML builders dispatch on it instead of parsing type keywords.
type TypeCode int

const (
	CodeVarchar TypeCode = iota + 1
	CodeBinary
	CodeVarBinary
	CodeBoolean
	CodeBit
	CodeBlob
	CodeBigInt
)

var typeCodeNames = map[TypeCode]string{
	CodeVarchar:   "varchar",
	CodeBinary:    "binary",
	CodeVarBinary: "varbinary",
	CodeBoolean:   "boolean",
	CodeBit:       "bit",
	CodeBlob:      "blob",
	CodeBigInt:    "bigint",
}

func (c TypeCode) String() string {
	if s, ok := typeCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("TypeCode(%d)", int(c))
}

// NativeType is one engine's rendering of a logical column type: the keyword
// emitted into DDL and the code DML builders dispatch on.
type NativeType struct {
	Keyword string
	Code    TypeCode
}
