package disk

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

// tableHandle is the open, in-memory state for one on-disk table: its
// schema and options, its per-column managers keyed by column name, and
// a PRIMARY KEY index mirroring the in-memory backend's (maintained here
// purely as a performance cache — the durable truth is always the column
// files).
type tableHandle struct {
	mu             sync.RWMutex
	dir            string
	link           uint16
	schema         storage.Schema
	options        ast.TableOptions
	columns        map[string]*columnManager
	nextColumnLink uint16
	rowCount       uint64
	indexes        map[string]map[string][]int
	lastCompact    time.Time
}

func (t *tableHandle) indexedColumns() []string {
	names := make([]string, 0, len(t.indexes))
	for name := range t.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *tableHandle) addToIndex(col string, v ast.Value, row uint64) {
	if v.IsNull() {
		return
	}
	idx := t.indexes[col]
	key := v.CanonicalKey()
	idx[key] = append(idx[key], int(row))
}

func (t *tableHandle) pkConflict(col string, v ast.Value, excludeRow int64) bool {
	if v.IsNull() {
		return false
	}
	idx, ok := t.indexes[col]
	if !ok {
		return false
	}
	for _, i := range idx[v.CanonicalKey()] {
		if int64(i) != excludeRow {
			return true
		}
	}
	return false
}

func (t *tableHandle) rebuildIndexesFromDisk() error {
	for col := range t.indexes {
		t.indexes[col] = make(map[string][]int)
	}
	for row := uint64(0); row < t.rowCount; row++ {
		for _, col := range t.indexedColumns() {
			v, err := t.columns[col].readValue(row)
			if err != nil {
				return err
			}
			t.addToIndex(col, v, row)
		}
	}
	return nil
}

func (t *tableHandle) readRow(row uint64) (storage.Row, error) {
	out := make(storage.Row, len(t.schema))
	for _, c := range t.schema {
		v, err := t.columns[c.Name].readValue(row)
		if err != nil {
			return nil, err
		}
		out[c.Name] = v
	}
	return out, nil
}

// Storage is the on-disk Storage backend: a catalog of table-name to
// directory-link mappings plus lazily-opened table handles, one per
// accessed table.
type Storage struct {
	baseDir string
	catalog *catalog

	mu     sync.Mutex
	tables map[string]*tableHandle
}

// Open opens (creating if necessary) an on-disk database rooted at dir.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "create database directory", err)
	}
	cat, err := openCatalog(dir)
	if err != nil {
		return nil, err
	}
	return &Storage{baseDir: dir, catalog: cat, tables: make(map[string]*tableHandle)}, nil
}

func (s *Storage) openExistingHandle(name string, link uint16) (*tableHandle, error) {
	dir := tableDir(s.baseDir, link)
	meta, err := readTableMeta(dir)
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "read table metadata", err)
	}
	handle := &tableHandle{
		dir: dir, link: link, options: meta.Options,
		columns: make(map[string]*columnManager), indexes: make(map[string]map[string][]int),
		nextColumnLink: meta.NextLink,
	}
	for _, cm := range meta.Columns {
		col, err := openColumnManager(dir, cm.Link, FromAST(cm.Type))
		if err != nil {
			return nil, err
		}
		handle.columns[cm.Name] = col
		handle.schema = append(handle.schema, ast.ColumnDef{
			Name: cm.Name, Type: cm.Type, NotNull: cm.NotNull, PrimaryKey: cm.PrimaryKey, MaxLength: cm.MaxLength,
		})
		if cm.PrimaryKey {
			handle.indexes[cm.Name] = make(map[string][]int)
		}
	}
	if len(handle.schema) > 0 {
		count, err := handle.columns[handle.schema[0].Name].rowCount()
		if err != nil {
			return nil, err
		}
		handle.rowCount = count
	}
	if err := handle.rebuildIndexesFromDisk(); err != nil {
		return nil, err
	}
	return handle, nil
}

func (s *Storage) getTable(name string) (*tableHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.tables[name]; ok {
		return h, nil
	}
	link, ok := s.catalog.lookup(name)
	if !ok {
		return nil, dberr.Newf(dberr.ConstraintError, "table %q does not exist", name)
	}
	h, err := s.openExistingHandle(name, link)
	if err != nil {
		return nil, err
	}
	s.tables[name] = h
	return h, nil
}

func (s *Storage) persistMeta(t *tableHandle) error {
	meta := tableMeta{Options: t.options, NextLink: t.nextColumnLink}
	for _, c := range t.schema {
		meta.Columns = append(meta.Columns, columnMeta{
			Name: c.Name, Type: c.Type, NotNull: c.NotNull, PrimaryKey: c.PrimaryKey, MaxLength: c.MaxLength,
			Link: t.columns[c.Name].link,
		})
	}
	return writeTableMeta(t.dir, meta)
}

func (s *Storage) CreateTable(name string, schema storage.Schema, options ast.TableOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateName(name, options.MaxColumnNameLength, options.AdditionalNameChars); err != nil {
		return err
	}
	for _, c := range schema {
		if err := ValidateName(c.Name, options.MaxColumnNameLength, options.AdditionalNameChars); err != nil {
			return err
		}
	}

	link, err := s.catalog.createTable(name)
	if err != nil {
		return err
	}
	dir := tableDir(s.baseDir, link)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dberr.Wrap(dberr.StorageError, "create table directory", err)
	}

	handle := &tableHandle{dir: dir, link: link, schema: schema, options: options,
		columns: make(map[string]*columnManager), indexes: make(map[string]map[string][]int)}
	for i, c := range schema {
		colLink := uint16(i)
		cm, err := openColumnManager(dir, colLink, FromAST(c.Type))
		if err != nil {
			return err
		}
		handle.columns[c.Name] = cm
		if c.PrimaryKey {
			handle.indexes[c.Name] = make(map[string][]int)
		}
	}
	handle.nextColumnLink = uint16(len(schema))
	if err := s.persistMeta(handle); err != nil {
		return err
	}
	s.tables[name] = handle
	return nil
}

func (s *Storage) DropTable(name string, ifExists bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found, err := s.catalog.dropTable(name)
	if err != nil {
		return err
	}
	if !found {
		if ifExists {
			return nil
		}
		return dberr.Newf(dberr.NameError, "table %q does not exist", name)
	}
	if h, ok := s.tables[name]; ok {
		for _, cm := range h.columns {
			cm.close()
		}
		delete(s.tables, name)
	}
	dir := tableDir(s.baseDir, link)
	if err := os.RemoveAll(dir); err != nil {
		return dberr.Wrap(dberr.StorageError, "remove table directory", err)
	}
	return nil
}

func (s *Storage) TableExists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return true
	}
	_, ok := s.catalog.lookup(name)
	return ok
}

func (s *Storage) ListTables() []string {
	names := s.catalog.tableNames()
	sort.Strings(names)
	return names
}

func (t *tableHandle) buildRow(columns []string, values []ast.Value) (storage.Row, error) {
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

func (t *tableHandle) validateRow(row storage.Row, excludeRow int64) error {
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

func (s *Storage) Insert(name string, columns []string, valueRows [][]ast.Value) (int, error) {
	t, err := s.getTable(name)
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
		rowIdx := t.rowCount
		ok := true
		for _, c := range t.schema {
			if err := t.columns[c.Name].appendValue(row[c.Name]); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, col := range t.indexedColumns() {
			t.addToIndex(col, row[col], rowIdx)
		}
		t.rowCount++
		affected++
	}
	return affected, nil
}

func (s *Storage) Select(name string, columns []string, predicate func(storage.Row) bool) (storage.Schema, []storage.Row, error) {
	t, err := s.getTable(name)
	if err != nil {
		return nil, nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matched []storage.Row
	for row := uint64(0); row < t.rowCount; row++ {
		r, err := t.readRow(row)
		if err != nil {
			return nil, nil, err
		}
		if predicate == nil || predicate(r) {
			matched = append(matched, r)
		}
	}
	schemaCopy := make(storage.Schema, len(t.schema))
	copy(schemaCopy, t.schema)
	return schemaCopy, matched, nil
}

func (s *Storage) Update(name string, assignments []storage.UpdateAssignment, predicate func(storage.Row) bool) (int, error) {
	t, err := s.getTable(name)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	affected := 0
	for row := uint64(0); row < t.rowCount; row++ {
		current, err := t.readRow(row)
		if err != nil {
			return affected, err
		}
		if predicate != nil && !predicate(current) {
			continue
		}
		candidate := current.Clone()
		for _, a := range assignments {
			candidate[a.Column] = a.Value
		}
		if err := t.validateRow(candidate, int64(row)); err != nil {
			continue
		}
		changed := false
		for _, a := range assignments {
			nv, ov := candidate[a.Column], current[a.Column]
			sameValue := (nv.IsNull() && ov.IsNull()) || nv.Equal(ov)
			if !sameValue {
				changed = true
				break
			}
		}
		if !changed {
			affected++
			continue
		}
		for _, col := range t.indexedColumns() {
			idx := t.indexes[col]
			key := current[col].CanonicalKey()
			if !current[col].IsNull() {
				positions := idx[key]
				for i, p := range positions {
					if p == int(row) {
						positions = append(positions[:i], positions[i+1:]...)
						break
					}
				}
				if len(positions) == 0 {
					delete(idx, key)
				} else {
					idx[key] = positions
				}
			}
		}
		for _, a := range assignments {
			if err := t.columns[a.Column].updateValue(row, a.Value); err != nil {
				return affected, err
			}
		}
		for _, col := range t.indexedColumns() {
			t.addToIndex(col, candidate[col], row)
		}
		affected++
	}
	_ = t.compactIfDue(time.Now())
	return affected, nil
}

// Delete removes matched rows using per-column swap-and-pop, processing
// indices from highest to lowest so later pops never invalidate an
// earlier target (spec.md §4.3 DELETE semantics).
func (s *Storage) Delete(name string, predicate func(storage.Row) bool) (int, error) {
	t, err := s.getTable(name)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var toDelete []uint64
	for row := uint64(0); row < t.rowCount; row++ {
		r, err := t.readRow(row)
		if err != nil {
			return 0, err
		}
		if predicate == nil || predicate(r) {
			toDelete = append(toDelete, row)
		}
	}
	for i := len(toDelete) - 1; i >= 0; i-- {
		row := toDelete[i]
		for _, c := range t.schema {
			if err := t.columns[c.Name].swapAndPop(row); err != nil {
				return i + 1, err
			}
		}
		t.rowCount--
	}
	if err := t.rebuildIndexesFromDisk(); err != nil {
		return len(toDelete), err
	}
	_ = t.compactIfDue(time.Now())
	return len(toDelete), nil
}

// compactIfDue runs heap compaction (merge-adjacent-freelist-entries) on
// t's variable-length columns if at least options.GCFrequencyDays have
// passed since the last compaction, per spec.md §3's
// TableOptions.GCFrequencyDays and original_source's log-rotation-style
// "run this maintenance at most once per period" scheduling. Caller
// must hold t.mu.
func (t *tableHandle) compactIfDue(now time.Time) error {
	due := t.lastCompact.IsZero() || now.Sub(t.lastCompact) >= time.Duration(t.options.GCFrequencyDays)*24*time.Hour
	if !due {
		return nil
	}
	for _, cm := range t.columns {
		if err := cm.compact(); err != nil {
			return err
		}
	}
	t.lastCompact = now
	return nil
}

// MaybeCompact is the externally-callable form of compactIfDue, used by
// callers (a scheduled task, a test) outside of an Update/Delete that
// already holds the table's lock. A table that is not open is not an
// error: nothing to compact yet.
func (s *Storage) MaybeCompact(name string, now time.Time) error {
	s.mu.Lock()
	t, ok := s.tables[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.compactIfDue(now)
}

func (s *Storage) AlterTable(name string, op storage.AlterOp) error {
	if op.Kind == storage.AlterOpRenameTable {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.catalog.renameTable(name, op.NewTableName); err != nil {
			return err
		}
		if h, ok := s.tables[name]; ok {
			delete(s.tables, name)
			s.tables[op.NewTableName] = h
		}
		return nil
	}

	t, err := s.getTable(name)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch op.Kind {
	case storage.AlterOpRenameColumn:
		err = t.renameColumn(op.Column, op.NewColumn)
	case storage.AlterOpColumnType:
		err = t.alterColumnType(op.Column, op.NewType)
	case storage.AlterOpDropColumn:
		err = t.dropColumn(op.Column)
	case storage.AlterOpAddColumn:
		err = t.addColumn(op.AddedColumn)
	default:
		err = dberr.New(dberr.InternalError, "unknown ALTER TABLE operation")
	}
	if err != nil {
		return err
	}
	return s.persistMeta(t)
}

func (t *tableHandle) columnIndex(name string) int {
	for i, c := range t.schema {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t *tableHandle) renameColumn(oldName, newName string) error {
	i := t.columnIndex(oldName)
	if i < 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q does not exist", oldName)
	}
	if t.columnIndex(newName) >= 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q already exists", newName)
	}
	t.schema[i].Name = newName
	t.columns[newName] = t.columns[oldName]
	delete(t.columns, oldName)
	if idx, ok := t.indexes[oldName]; ok {
		t.indexes[newName] = idx
		delete(t.indexes, oldName)
	}
	return nil
}

// alterColumnType rewrites every value in the column through the
// conversion matrix, replacing the column's on-disk files with ones of
// the new type code (a fixed<->variable type change needs a fresh heap,
// not an in-place reinterpretation of existing 8-byte records).
func (t *tableHandle) alterColumnType(name string, newType ast.DataType) error {
	i := t.columnIndex(name)
	if i < 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q does not exist", name)
	}
	oldLink := t.columns[name].link
	newLink := t.nextColumnLink
	t.nextColumnLink++

	newCol, err := openColumnManager(t.dir, newLink, FromAST(newType))
	if err != nil {
		return err
	}
	for row := uint64(0); row < t.rowCount; row++ {
		v, err := t.columns[name].readValue(row)
		if err != nil {
			return err
		}
		if err := newCol.appendValue(convertValue(v, newType)); err != nil {
			return err
		}
	}
	t.columns[name].close()
	if err := dropColumnFiles(t.dir, oldLink); err != nil {
		return err
	}
	t.columns[name] = newCol
	t.schema[i].Type = newType
	return nil
}

func (t *tableHandle) dropColumn(name string) error {
	if len(t.schema) <= 1 {
		return dberr.New(dberr.ConstraintError, "cannot drop the last remaining column")
	}
	i := t.columnIndex(name)
	if i < 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q does not exist", name)
	}
	link := t.columns[name].link
	t.columns[name].close()
	if err := dropColumnFiles(t.dir, link); err != nil {
		return err
	}
	delete(t.columns, name)
	delete(t.indexes, name)
	t.schema = append(t.schema[:i], t.schema[i+1:]...)
	return nil
}

func (t *tableHandle) addColumn(def ast.ColumnDef) error {
	if t.columnIndex(def.Name) >= 0 {
		return dberr.Newf(dberr.ConstraintError, "column %q already exists", def.Name)
	}
	if def.PrimaryKey && t.rowCount > 0 {
		return dberr.New(dberr.ConstraintError, "cannot add a PRIMARY KEY column to a non-empty table")
	}
	link := t.nextColumnLink
	t.nextColumnLink++
	cm, err := openColumnManager(t.dir, link, FromAST(def.Type))
	if err != nil {
		return err
	}
	defaultValue := ast.Null
	if def.NotNull {
		defaultValue = zeroValue(def.Type)
	}
	for row := uint64(0); row < t.rowCount; row++ {
		if err := cm.appendValue(defaultValue); err != nil {
			return err
		}
	}
	t.columns[def.Name] = cm
	t.schema = append(t.schema, def)
	if def.PrimaryKey {
		t.indexes[def.Name] = make(map[string][]int)
	}
	return nil
}

var _ storage.Storage = (*Storage)(nil)
