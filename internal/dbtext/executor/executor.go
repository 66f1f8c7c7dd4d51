// Package executor binds a parsed ast.Statement to a storage.Storage
// backend (spec.md §4.3 "Executor"): it validates identifiers and
// constraints the storage layer doesn't already enforce, compiles WHERE
// clauses into reusable predicate closures, and renders every outcome as
// a storage.Result. One Executor is bound to exactly one database's
// storage.Storage (see internal/dbtext/dbmanager for the name->Executor
// map); the Executor itself holds no table state.
package executor

import (
	"sync"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/logger"
	"github.com/woralem/dbtext/internal/dbtext/metrics"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

// Executor dispatches parsed statements against one database's storage.
type Executor struct {
	Database string
	store    storage.Storage
	metrics  *metrics.Collector
	log      *logger.Logger
	activity *logger.ActivityLogger

	cacheMu        sync.Mutex
	predicateCache map[ast.Node]predicateFunc
}

// New builds an Executor bound to store. metrics/log/activity may be nil;
// a nil collector or logger is treated as a no-op sink.
func New(database string, store storage.Storage, m *metrics.Collector, log *logger.Logger, activity *logger.ActivityLogger) *Executor {
	return &Executor{
		Database:       database,
		store:          store,
		metrics:        m,
		log:            log,
		activity:       activity,
		predicateCache: make(map[ast.Node]predicateFunc),
	}
}

// Execute dispatches stmt to the matching handler and always returns a
// storage.Result, never an error: failures are rendered as
// storage.ErrorResult so callers (the REPL, a future network front end)
// have one uniform response shape (spec.md §4.7).
func (e *Executor) Execute(stmt ast.Statement, query string) storage.Result {
	e.incQuery()

	var result storage.Result
	var err error

	switch s := stmt.(type) {
	case *ast.SelectStmt:
		result, err = e.execSelect(s)
	case *ast.InsertStmt:
		result, err = e.execInsert(s)
	case *ast.UpdateStmt:
		result, err = e.execUpdate(s)
	case *ast.DeleteStmt:
		result, err = e.execDelete(s)
	case *ast.CreateTableStmt:
		result, err = e.execCreateTable(s)
	case *ast.AlterTableStmt:
		result, err = e.execAlterTable(s)
	case *ast.DropTableStmt:
		result, err = e.execDropTable(s)
	default:
		err = dberr.New(dberr.InternalError, "unsupported statement type")
	}

	if err != nil {
		return e.fail(query, err)
	}
	e.recordActivity(activityActionFor(stmt), query, true, "")
	return result
}

// activityActionFor maps a statement kind to the activity log's action
// taxonomy (spec.md §5), so a successful CREATE/DROP/ALTER/INSERT/
// UPDATE/DELETE is recorded under its own action rather than the
// generic QUERY_EXECUTED bucket used for SELECT.
func activityActionFor(stmt ast.Statement) logger.ActionType {
	switch stmt.(type) {
	case *ast.CreateTableStmt:
		return logger.ActionTableCreated
	case *ast.DropTableStmt:
		return logger.ActionTableDropped
	case *ast.AlterTableStmt:
		return logger.ActionTableAltered
	case *ast.InsertStmt:
		return logger.ActionDataInserted
	case *ast.UpdateStmt:
		return logger.ActionDataUpdated
	case *ast.DeleteStmt:
		return logger.ActionDataDeleted
	default:
		return logger.ActionQueryExecuted
	}
}

func (e *Executor) incQuery() {
	if e.metrics != nil {
		e.metrics.IncQueriesExecuted()
	}
}

func (e *Executor) fail(query string, err error) storage.Result {
	if e.metrics != nil {
		e.metrics.IncStatementsFailed()
		e.metrics.RecordError(string(dberr.KindOf(err)))
	}
	e.recordActivity(logger.ActionErrorOccurred, query, false, err.Error())
	return storage.ErrorResult(err.Error())
}

func (e *Executor) recordActivity(action logger.ActionType, query string, success bool, errMsg string) {
	if e.activity != nil {
		e.activity.Record(action, e.Database, query, success, errMsg)
	}
}

func (e *Executor) requireTable(name string) error {
	if !e.store.TableExists(name) {
		return dberr.Newf(dberr.SchemaError, "table %q does not exist", name)
	}
	return nil
}
