package ast

import "fmt"

// DataType is the SQL-facing column type enumeration (spec.md §3). The
// on-disk backend additionally recognizes a wider byte-code type space
// (see storage/disk/typecode.go); DataType is the language surface only.
type DataType int

const (
	UNKNOWN DataType = iota
	INT
	DOUBLE
	VARCHAR
	BOOLEAN
	DATE
	TIMESTAMP
)

var dataTypeNames = map[DataType]string{
	UNKNOWN:   "UNKNOWN",
	INT:       "INT",
	DOUBLE:    "DOUBLE",
	VARCHAR:   "VARCHAR",
	BOOLEAN:   "BOOLEAN",
	DATE:      "DATE",
	TIMESTAMP: "TIMESTAMP",
}

func (d DataType) String() string {
	if s, ok := dataTypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// ParseDataType maps a parsed type-name token to a DataType. Anything
// unrecognized maps to UNKNOWN, which is a semantic error at execute time
// (spec.md §3), never at parse time.
func ParseDataType(name string) DataType {
	switch name {
	case "INT", "INTEGER":
		return INT
	case "DOUBLE", "FLOAT":
		return DOUBLE
	case "VARCHAR", "TEXT", "STRING":
		return VARCHAR
	case "BOOLEAN", "BOOL":
		return BOOLEAN
	case "DATE":
		return DATE
	case "TIMESTAMP":
		return TIMESTAMP
	default:
		return UNKNOWN
	}
}

// ColumnDef describes one schema column.
type ColumnDef struct {
	Name       string
	Type       DataType
	NotNull    bool
	PrimaryKey bool
	MaxLength  int // VARCHAR only; 0 means unspecified
}

// TableOptions is the per-table configuration of spec.md §3. Validate
// returns every violation found rather than the first, so CREATE TABLE
// can report a complete diagnosis.
type TableOptions struct {
	AllowedTypes        map[DataType]bool // empty/nil = all allowed
	MaxColumnNameLength int               // 1..64, default 16
	AdditionalNameChars string            // extra identifier characters
	MaxStringLength     int64             // 1..2^40, default 65536
	GCFrequencyDays     int               // 1..365, default 7
}

// DefaultTableOptions returns the spec.md §3 defaults.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		MaxColumnNameLength: 16,
		MaxStringLength:     65536,
		GCFrequencyDays:     7,
	}
}

// Validate reports every out-of-range field; an empty slice means the
// options are acceptable. Validation is total: CREATE TABLE rejects on
// any single violation, but callers can surface the whole list.
func (o TableOptions) Validate() []string {
	var errs []string
	if o.MaxColumnNameLength < 1 || o.MaxColumnNameLength > 64 {
		errs = append(errs, "max_column_length must be in [1, 64]")
	}
	if o.MaxStringLength < 1 || o.MaxStringLength > (int64(1)<<40) {
		errs = append(errs, "max_string_length must be in [1, 2^40]")
	}
	if o.GCFrequencyDays < 1 || o.GCFrequencyDays > 365 {
		errs = append(errs, "gc_frequency must be in [1, 365] days")
	}
	return errs
}

// TypeAllowed reports whether dt may be used in a table configured with
// these options (spec.md §8: "subset of O.allowedTypes when non-empty").
func (o TableOptions) TypeAllowed(dt DataType) bool {
	if len(o.AllowedTypes) == 0 {
		return true
	}
	return o.AllowedTypes[dt]
}
