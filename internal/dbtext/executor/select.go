package executor

import (
	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

// runSelect executes a SelectStmt against the bound storage and returns
// its schema and matching rows, without building a Result. Used both by
// execSelect and by the IN-subquery materializer in predicate.go.
func (e *Executor) runSelect(stmt *ast.SelectStmt) (storage.Schema, []storage.Row, error) {
	if err := e.requireTable(stmt.Table); err != nil {
		return nil, nil, err
	}
	pred, err := e.compilePredicate(stmt.Where)
	if err != nil {
		return nil, nil, err
	}
	schema, rows, err := e.store.Select(stmt.Table, stmt.Columns, pred)
	if err != nil {
		return nil, nil, err
	}
	if e.metrics != nil {
		e.metrics.AddRowsScanned(int64(len(rows)))
	}
	return schema, rows, nil
}

func (e *Executor) execSelect(stmt *ast.SelectStmt) (storage.Result, error) {
	schema, rows, err := e.runSelect(stmt)
	if err != nil {
		return storage.Result{}, err
	}
	return storage.BuildSelectResult(stmt.Table, schema, stmt.Columns, rows), nil
}
