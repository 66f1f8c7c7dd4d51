package executor

import (
	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

func (e *Executor) execInsert(stmt *ast.InsertStmt) (storage.Result, error) {
	if err := e.requireTable(stmt.Table); err != nil {
		return storage.Result{}, err
	}
	affected, err := e.store.Insert(stmt.Table, stmt.Columns, stmt.Rows)
	if err != nil {
		return storage.Result{}, err
	}
	if e.metrics != nil {
		e.metrics.AddRowsAffected(int64(affected))
	}
	return storage.DMLResult(affected), nil
}

func (e *Executor) execUpdate(stmt *ast.UpdateStmt) (storage.Result, error) {
	if err := e.requireTable(stmt.Table); err != nil {
		return storage.Result{}, err
	}
	pred, err := e.compilePredicate(stmt.Where)
	if err != nil {
		return storage.Result{}, err
	}
	assignments := make([]storage.UpdateAssignment, len(stmt.Assignments))
	for i, a := range stmt.Assignments {
		assignments[i] = storage.UpdateAssignment{Column: a.Column, Value: a.Value}
	}
	affected, err := e.store.Update(stmt.Table, assignments, pred)
	if err != nil {
		return storage.Result{}, err
	}
	if e.metrics != nil {
		e.metrics.AddRowsAffected(int64(affected))
	}
	return storage.DMLResult(affected), nil
}

func (e *Executor) execDelete(stmt *ast.DeleteStmt) (storage.Result, error) {
	if err := e.requireTable(stmt.Table); err != nil {
		return storage.Result{}, err
	}
	pred, err := e.compilePredicate(stmt.Where)
	if err != nil {
		return storage.Result{}, err
	}
	affected, err := e.store.Delete(stmt.Table, pred)
	if err != nil {
		return storage.Result{}, err
	}
	if e.metrics != nil {
		e.metrics.AddRowsAffected(int64(affected))
	}
	return storage.DMLResult(affected), nil
}
