// Package dbmanager holds the name -> (storage, executor) mapping that
// lets one running engine serve several independently-named databases
// (spec.md §4.6). A "default" database is created at startup and can
// never be renamed or deleted.
package dbmanager

import (
	"sync"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/executor"
	"github.com/woralem/dbtext/internal/dbtext/logger"
	"github.com/woralem/dbtext/internal/dbtext/metrics"
	"github.com/woralem/dbtext/internal/dbtext/storage"
	"github.com/woralem/dbtext/internal/dbtext/storage/disk"
	"github.com/woralem/dbtext/internal/dbtext/storage/memory"
)

// DefaultDatabaseName is the protected database created at startup.
const DefaultDatabaseName = "default"

// Backend selects which storage.Storage implementation a new database
// uses (spec.md §4.4/§4.5: the engine supports both independently).
type Backend int

const (
	// BackendMemory backs a database with the in-memory store.
	BackendMemory Backend = iota
	// BackendDisk backs a database with the on-disk store, rooted at a
	// directory named after the database inside the manager's DataDir.
	BackendDisk
)

type entry struct {
	storage  storage.Storage
	executor *executor.Executor
}

// Manager is the engine's top-level database registry. All lifecycle
// operations (create/rename/drop) are serialized under a single mutex
// (spec.md §4.6: "All operations are serialized under a single mutex
// across the manager"), matching the teacher's container/connection
// manager locking discipline of one coarse lock per top-level registry
// rather than per-entry locks.
type Manager struct {
	mu      sync.Mutex
	dataDir string
	metrics *metrics.Collector
	log     *logger.Logger
	act     *logger.ActivityLogger
	dbs     map[string]*entry
}

// Options configures a new Manager.
type Options struct {
	DataDir  string // root directory for on-disk databases
	Metrics  *metrics.Collector
	Log      *logger.Logger
	Activity *logger.ActivityLogger
}

// New creates a Manager with its default database already present,
// backed by the in-memory store (spec.md §4.6: "default is created at
// startup").
func New(opts Options) (*Manager, error) {
	m := &Manager{
		dataDir: opts.DataDir,
		metrics: opts.Metrics,
		log:     opts.Log,
		act:     opts.Activity,
		dbs:     make(map[string]*entry),
	}
	if err := m.createLocked(DefaultDatabaseName, BackendMemory); err != nil {
		return nil, err
	}
	return m, nil
}

// Create registers a new named database. Creation fails on a name
// collision (spec.md §4.6: "creation ... fail[s] on collision").
func (m *Manager) Create(name string, backend Backend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(name, backend)
}

func (m *Manager) createLocked(name string, backend Backend) error {
	if err := ast.ValidateIdentifier(name, ast.DefaultTableOptions()); err != nil {
		return err
	}
	if _, exists := m.dbs[name]; exists {
		return dberr.Newf(dberr.SchemaError, "database %q already exists", name)
	}

	var store storage.Storage
	switch backend {
	case BackendMemory:
		store = memory.New()
	case BackendDisk:
		d, err := disk.Open(m.databaseDir(name))
		if err != nil {
			return dberr.Wrap(dberr.StorageError, "failed to open on-disk database", err)
		}
		store = d
	default:
		return dberr.New(dberr.InternalError, "unknown storage backend")
	}

	exec := executor.New(name, store, m.metrics, m.log, m.act)
	m.dbs[name] = &entry{storage: store, executor: exec}
	if m.act != nil {
		m.act.Record(logger.ActionDatabaseCreated, name, "", true, "")
	}
	return nil
}

func (m *Manager) databaseDir(name string) string {
	if m.dataDir == "" {
		return name
	}
	return m.dataDir + "/" + name
}

// Drop removes a named database. The default database can never be
// dropped (spec.md §4.6).
func (m *Manager) Drop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == DefaultDatabaseName {
		return dberr.New(dberr.ConstraintError, "the default database cannot be deleted")
	}
	if _, exists := m.dbs[name]; !exists {
		return dberr.Newf(dberr.SchemaError, "database %q does not exist", name)
	}
	delete(m.dbs, name)
	if m.act != nil {
		m.act.Record(logger.ActionDatabaseDeleted, name, "", true, "")
	}
	return nil
}

// Rename changes a database's registered name. The default database can
// never be renamed (spec.md §4.6), and the new name must not collide
// with an existing one.
func (m *Manager) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldName == DefaultDatabaseName {
		return dberr.New(dberr.ConstraintError, "the default database cannot be renamed")
	}
	e, exists := m.dbs[oldName]
	if !exists {
		return dberr.Newf(dberr.SchemaError, "database %q does not exist", oldName)
	}
	if err := ast.ValidateIdentifier(newName, ast.DefaultTableOptions()); err != nil {
		return err
	}
	if _, collide := m.dbs[newName]; collide {
		return dberr.Newf(dberr.SchemaError, "database %q already exists", newName)
	}
	e.executor = executor.New(newName, e.storage, m.metrics, m.log, m.act)
	delete(m.dbs, oldName)
	m.dbs[newName] = e
	if m.act != nil {
		m.act.Record(logger.ActionDatabaseRenamed, newName, "", true, "")
	}
	return nil
}

// Executor looks up the executor bound to a named database.
func (m *Manager) Executor(name string) (*executor.Executor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.dbs[name]
	if !ok {
		return nil, dberr.Newf(dberr.SchemaError, "database %q does not exist", name)
	}
	return e.executor, nil
}

// Names returns every registered database name.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.dbs))
	for name := range m.dbs {
		names = append(names, name)
	}
	return names
}

// Exists reports whether a named database is registered.
func (m *Manager) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.dbs[name]
	return ok
}
