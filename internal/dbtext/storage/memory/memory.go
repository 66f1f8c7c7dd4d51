// Package memory implements the in-memory Storage backend (spec.md
// §4.4): a map of table name to Table, each table guarded by its own
// reader/writer lock, with hashed indexes over every PRIMARY KEY column.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

// table holds one in-memory table's schema, rows, and PK indexes.
type table struct {
	mu      sync.RWMutex
	schema  storage.Schema
	options ast.TableOptions
	rows    []storage.Row
	// indexes maps column name -> canonical value key -> sorted row indices.
	// Only PRIMARY KEY columns are indexed (spec.md §4.4).
	indexes map[string]map[string][]int
}

func newTable(schema storage.Schema, options ast.TableOptions) *table {
	t := &table{schema: schema, options: options, indexes: make(map[string]map[string][]int)}
	for _, c := range schema {
		if c.PrimaryKey {
			t.indexes[c.Name] = make(map[string][]int)
		}
	}
	return t
}

func (t *table) indexedColumns() []string {
	names := make([]string, 0, len(t.indexes))
	for name := range t.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// addToIndex records that row i has value v in column col, unless v is
// null (null values are never indexed, spec.md §4.4).
func (t *table) addToIndex(col string, v ast.Value, i int) {
	if v.IsNull() {
		return
	}
	idx := t.indexes[col]
	key := v.CanonicalKey()
	positions := idx[key]
	pos := sort.SearchInts(positions, i)
	positions = append(positions, 0)
	copy(positions[pos+1:], positions[pos:])
	positions[pos] = i
	idx[key] = positions
}

func (t *table) removeFromIndex(col string, v ast.Value, i int) {
	if v.IsNull() {
		return
	}
	idx := t.indexes[col]
	key := v.CanonicalKey()
	positions := idx[key]
	pos := sort.SearchInts(positions, i)
	if pos < len(positions) && positions[pos] == i {
		positions = append(positions[:pos], positions[pos+1:]...)
	}
	if len(positions) == 0 {
		delete(idx, key)
	} else {
		idx[key] = positions
	}
}

// pkConflict reports whether value v in PK column col already belongs to
// a row other than excludeRow (-1 for inserts, where no row is excluded).
func (t *table) pkConflict(col string, v ast.Value, excludeRow int) bool {
	if v.IsNull() {
		return false
	}
	idx, ok := t.indexes[col]
	if !ok {
		return false
	}
	for _, i := range idx[v.CanonicalKey()] {
		if i != excludeRow {
			return true
		}
	}
	return false
}

// rebuildIndexes recomputes every index from scratch, used after DELETE
// compaction where row indices shift (spec.md §4.3 DELETE semantics).
func (t *table) rebuildIndexes() {
	for col := range t.indexes {
		t.indexes[col] = make(map[string][]int)
	}
	for i, row := range t.rows {
		for col := range t.indexes {
			if v, ok := row[col]; ok {
				t.addToIndex(col, v, i)
			}
		}
	}
}

// Storage is the in-memory backend: a name->table map guarded by a
// top-level mutex for table lifecycle (create/drop/alter-rename), with
// per-table locks for row-level operations.
type Storage struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// New creates an empty in-memory Storage.
func New() *Storage {
	return &Storage{tables: make(map[string]*table)}
}

func (s *Storage) getTable(name string) (*table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	return t, ok
}

func (s *Storage) CreateTable(name string, schema storage.Schema, options ast.TableOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[name]; exists {
		return dberr.Newf(dberr.ConstraintError, "table %q already exists", name)
	}
	s.tables[name] = newTable(schema, options)
	return nil
}

func (s *Storage) DropTable(name string, ifExists bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[name]; !exists {
		if ifExists {
			return nil
		}
		return dberr.Newf(dberr.NameError, "table %q does not exist", name)
	}
	delete(s.tables, name)
	return nil
}

func (s *Storage) TableExists(name string) bool {
	_, ok := s.getTable(name)
	return ok
}

func (s *Storage) ListTables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaybeCompact is a no-op: the in-memory backend has no heap file to
// reclaim space in, so there is nothing for periodic GC to do.
func (s *Storage) MaybeCompact(name string, now time.Time) error {
	return nil
}

func (s *Storage) requireTable(name string) (*table, error) {
	t, ok := s.getTable(name)
	if !ok {
		return nil, dberr.Newf(dberr.ConstraintError, "table %q does not exist", name)
	}
	return t, nil
}

// Insert appends valid rows and rejects the entire row on any constraint
// violation (spec.md §4.3 INSERT semantics: "Any violation aborts the
// entire row").
func (s *Storage) Insert(name string, columns []string, valueRows [][]ast.Value) (int, error) {
	t, err := s.requireTable(name)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	affected := 0
	for _, values := range valueRows {
		row, verr := t.buildRow(columns, values)
		if verr != nil {
			continue
		}
		if verr := t.validateRow(row, -1); verr != nil {
			continue
		}
		idx := len(t.rows)
		t.rows = append(t.rows, row)
		for _, col := range t.indexedColumns() {
			t.addToIndex(col, row[col], idx)
		}
		affected++
	}
	return affected, nil
}

// buildRow maps a parsed column/value list onto the schema, assigning
// missing values null (spec.md §4.3: "when omitted, values must equal
// the schema's column count and are assigned in schema order").
func (t *table) buildRow(columns []string, values []ast.Value) (storage.Row, error) {
	row := make(storage.Row, len(t.schema))
	for _, c := range t.schema {
		row[c.Name] = ast.Null
	}
	if len(columns) == 0 {
		if len(values) != len(t.schema) {
			return nil, dberr.New(dberr.SchemaError, "value count does not match schema column count")
		}
		for i, c := range t.schema {
			row[c.Name] = values[i]
		}
		return row, nil
	}
	if len(columns) != len(values) {
		return nil, dberr.New(dberr.SchemaError, "column list length does not match value list length")
	}
	for i, col := range columns {
		row[col] = values[i]
	}
	return row, nil
}

// validateRow enforces NOT NULL, type conformance, VARCHAR length, and
// PRIMARY KEY uniqueness (spec.md §4.3). excludeRow is the row index to
// ignore for PK-collision checks during UPDATE (-1 for INSERT).
func (t *table) validateRow(row storage.Row, excludeRow int) error {
	for _, c := range t.schema {
		v, ok := row[c.Name]
		if !ok {
			v = ast.Null
		}
		if c.NotNull && v.IsNull() {
			return dberr.Newf(dberr.SchemaError, "column %q is NOT NULL", c.Name)
		}
		if !v.IsNull() {
			if err := conforms(c, v); err != nil {
				return err
			}
		}
		if c.PrimaryKey && t.pkConflict(c.Name, v, excludeRow) {
			return dberr.Newf(dberr.ConstraintError, "primary key collision on column %q", c.Name)
		}
	}
	return nil
}

func conforms(c ast.ColumnDef, v ast.Value) error {
	switch c.Type {
	case ast.VARCHAR:
		if !v.IsString() {
			return dberr.Newf(dberr.SchemaError, "column %q expects VARCHAR", c.Name)
		}
		if c.MaxLength > 0 && len(v.Str()) > c.MaxLength {
			return dberr.Newf(dberr.SchemaError, "value for column %q exceeds max length %d", c.Name, c.MaxLength)
		}
	case ast.INT:
		if !v.IsInt() {
			return dberr.Newf(dberr.SchemaError, "column %q expects INT", c.Name)
		}
	case ast.DOUBLE:
		if !v.IsInt() && !v.IsFloat() {
			return dberr.Newf(dberr.SchemaError, "column %q expects DOUBLE", c.Name)
		}
	case ast.BOOLEAN:
		if !v.IsBool() {
			return dberr.Newf(dberr.SchemaError, "column %q expects BOOLEAN", c.Name)
		}
	}
	return nil
}

func (s *Storage) Select(name string, columns []string, predicate func(storage.Row) bool) (storage.Schema, []storage.Row, error) {
	t, err := s.requireTable(name)
	if err != nil {
		return nil, nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matched []storage.Row
	for _, row := range t.rows {
		if predicate == nil || predicate(row) {
			matched = append(matched, row.Clone())
		}
	}
	schemaCopy := make(storage.Schema, len(t.schema))
	copy(schemaCopy, t.schema)
	return schemaCopy, matched, nil
}

// Update validates each assignment exactly as Insert does; a row whose
// assignment fails validation is skipped, not rolled back across rows
// (spec.md §4.3 UPDATE semantics).
func (s *Storage) Update(name string, assignments []storage.UpdateAssignment, predicate func(storage.Row) bool) (int, error) {
	t, err := s.requireTable(name)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	affected := 0
	for i := range t.rows {
		if predicate != nil && !predicate(t.rows[i]) {
			continue
		}
		candidate := t.rows[i].Clone()
		for _, a := range assignments {
			candidate[a.Column] = a.Value
		}
		if err := t.validateRow(candidate, i); err != nil {
			continue
		}
		for _, col := range t.indexedColumns() {
			if old, ok := t.rows[i][col]; ok {
				t.removeFromIndex(col, old, i)
			}
		}
		t.rows[i] = candidate
		for _, col := range t.indexedColumns() {
			t.addToIndex(col, candidate[col], i)
		}
		affected++
	}
	return affected, nil
}

// Delete compacts the row vector and rebuilds indexes from scratch
// (spec.md §4.3 DELETE semantics: "Row indices are thus renumbered after
// each DELETE").
func (s *Storage) Delete(name string, predicate func(storage.Row) bool) (int, error) {
	t, err := s.requireTable(name)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.rows[:0:0]
	removed := 0
	for _, row := range t.rows {
		if predicate != nil && predicate(row) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	t.rebuildIndexes()
	return removed, nil
}

func (s *Storage) AlterTable(name string, op storage.AlterOp) error {
	switch op.Kind {
	case storage.AlterOpRenameTable:
		return s.renameTable(name, op.NewTableName)
	default:
		t, err := s.requireTable(name)
		if err != nil {
			return err
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		switch op.Kind {
		case storage.AlterOpRenameColumn:
			return t.renameColumn(op.Column, op.NewColumn)
		case storage.AlterOpColumnType:
			return t.alterColumnType(op.Column, op.NewType)
		case storage.AlterOpDropColumn:
			return t.dropColumn(op.Column)
		case storage.AlterOpAddColumn:
			return t.addColumn(op.AddedColumn)
		default:
			return dberr.New(dberr.InternalError, "unknown ALTER TABLE operation")
		}
	}
}

func (s *Storage) renameTable(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[oldName]
	if !ok {
		return dberr.Newf(dberr.NameError, "table %q does not exist", oldName)
	}
	if _, exists := s.tables[newName]; exists {
		return dberr.Newf(dberr.ConstraintError, "table %q already exists", newName)
	}
	delete(s.tables, oldName)
	s.tables[newName] = t
	return nil
}

func (t *table) columnIndex(name string) int {
	for i, c := range t.schema {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t *table) renameColumn(oldName, newName string) error {
	i := t.columnIndex(oldName)
	if i < 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q does not exist", oldName)
	}
	if t.columnIndex(newName) >= 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q already exists", newName)
	}
	t.schema[i].Name = newName
	for _, row := range t.rows {
		if v, ok := row[oldName]; ok {
			row[newName] = v
			delete(row, oldName)
		}
	}
	if idx, ok := t.indexes[oldName]; ok {
		t.indexes[newName] = idx
		delete(t.indexes, oldName)
	}
	return nil
}

// alterColumnType coerces every existing value using the conversion
// matrix (spec.md Glossary); unconvertible values become null.
func (t *table) alterColumnType(name string, newType ast.DataType) error {
	i := t.columnIndex(name)
	if i < 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q does not exist", name)
	}
	oldType := t.schema[i].Type
	for _, row := range t.rows {
		v, ok := row[name]
		if !ok {
			continue
		}
		row[name] = convertValue(v, oldType, newType)
	}
	t.schema[i].Type = newType
	return nil
}

// convertValue implements the Conversion matrix of the Glossary.
func convertValue(v ast.Value, from, to ast.DataType) ast.Value {
	if v.IsNull() {
		return ast.Null
	}
	switch to {
	case ast.INT:
		switch {
		case v.IsInt():
			return v
		case v.IsFloat():
			return ast.IntValue(int64(v.Float()))
		case v.IsBool():
			if v.Bool() {
				return ast.IntValue(1)
			}
			return ast.IntValue(0)
		case v.IsString():
			return stringToInt(v.Str())
		}
	case ast.DOUBLE:
		switch {
		case v.IsFloat():
			return v
		case v.IsInt():
			return ast.FloatValue(float64(v.Int()))
		case v.IsBool():
			if v.Bool() {
				return ast.FloatValue(1)
			}
			return ast.FloatValue(0)
		case v.IsString():
			return stringToFloat(v.Str())
		}
	case ast.VARCHAR:
		return ast.StringValue(v.String())
	case ast.BOOLEAN:
		switch {
		case v.IsBool():
			return v
		case v.IsInt():
			return ast.BoolValue(v.Int() != 0)
		case v.IsFloat():
			return ast.BoolValue(v.Float() != 0)
		}
	}
	return ast.Null
}

func stringToInt(s string) ast.Value {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err == nil {
		return ast.IntValue(n)
	}
	var f float64
	_, err = fmt.Sscanf(s, "%g", &f)
	if err == nil {
		return ast.IntValue(int64(f + signOf(f)*0.5))
	}
	return ast.Null
}

func stringToFloat(s string) ast.Value {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	if err != nil {
		return ast.Null
	}
	return ast.FloatValue(f)
}

func signOf(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func (t *table) dropColumn(name string) error {
	if len(t.schema) <= 1 {
		return dberr.New(dberr.ConstraintError, "cannot drop the last remaining column")
	}
	i := t.columnIndex(name)
	if i < 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q does not exist", name)
	}
	t.schema = append(t.schema[:i], t.schema[i+1:]...)
	for _, row := range t.rows {
		delete(row, name)
	}
	delete(t.indexes, name)
	return nil
}

// addColumn adds a new column; existing rows get the type's zero value
// when the column is NOT NULL (spec.md open question: "type zero") and
// null otherwise. Adding a PRIMARY
// KEY column is refused when rows exist.
func (t *table) addColumn(def ast.ColumnDef) error {
	if t.columnIndex(def.Name) >= 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q already exists", def.Name)
	}
	if def.PrimaryKey && len(t.rows) > 0 {
		return dberr.New(dberr.ConstraintError, "cannot add a PRIMARY KEY column to a non-empty table")
	}
	t.schema = append(t.schema, def)
	defaultValue := ast.Null
	if def.NotNull {
		defaultValue = zeroValue(def.Type)
	}
	for _, row := range t.rows {
		row[def.Name] = defaultValue
	}
	if def.PrimaryKey {
		t.indexes[def.Name] = make(map[string][]int)
	}
	return nil
}

func zeroValue(dt ast.DataType) ast.Value {
	switch dt {
	case ast.INT:
		return ast.IntValue(0)
	case ast.DOUBLE:
		return ast.FloatValue(0)
	case ast.VARCHAR:
		return ast.StringValue("")
	case ast.BOOLEAN:
		return ast.BoolValue(false)
	default:
		return ast.Null
	}
}

var _ storage.Storage = (*Storage)(nil)
