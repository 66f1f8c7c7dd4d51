// Package storage defines the Storage contract (spec.md §4.4/§9)
// implemented independently by the in-memory and on-disk backends, plus
// the shared Row/Schema types they both operate on.
package storage

import (
	"time"

	"github.com/woralem/dbtext/internal/dbtext/ast"
)

// Row is a single table row: column name to Value.
type Row map[string]ast.Value

// Clone returns a shallow copy (Values are themselves immutable).
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Schema is the ordered list of a table's columns.
type Schema []ast.ColumnDef

// ColumnNames returns the schema's column names in declared order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column definition by name.
func (s Schema) Column(name string) (ast.ColumnDef, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ast.ColumnDef{}, false
}

// UpdateAssignment is one column=value pair for Update.
type UpdateAssignment struct {
	Column string
	Value  ast.Value
}

// Storage is the contract both backends implement (spec.md §9: "a single
// Storage interface-like contract implemented by two backends"). Every
// operation is safe for concurrent use; see each backend's locking
// discipline (spec.md §5).
type Storage interface {
	CreateTable(name string, schema Schema, options ast.TableOptions) error
	DropTable(name string, ifExists bool) error
	Insert(table string, columns []string, rows [][]ast.Value) (affected int, err error)
	Select(table string, columns []string, predicate func(Row) bool) (Schema, []Row, error)
	Update(table string, assignments []UpdateAssignment, predicate func(Row) bool) (affected int, err error)
	Delete(table string, predicate func(Row) bool) (affected int, err error)
	AlterTable(name string, op AlterOp) error
	TableExists(name string) bool
	ListTables() []string

	// MaybeCompact runs a table's periodic maintenance (on-disk: heap
	// freelist compaction, per TableOptions.GCFrequencyDays) if due as
	// of now. A backend with nothing to compact (the in-memory store)
	// implements this as a no-op.
	MaybeCompact(table string, now time.Time) error
}

// AlterOpKind mirrors ast.AlterKind at the storage layer so the storage
// package does not need to import the parser's statement types.
type AlterOpKind int

const (
	AlterOpRenameTable AlterOpKind = iota
	AlterOpRenameColumn
	AlterOpColumnType
	AlterOpDropColumn
	AlterOpAddColumn
)

// AlterOp is a single ALTER TABLE operation passed to Storage.AlterTable.
type AlterOp struct {
	Kind         AlterOpKind
	NewTableName string
	Column       string
	NewColumn    string
	NewType      ast.DataType
	AddedColumn  ast.ColumnDef
}
