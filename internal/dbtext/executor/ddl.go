package executor

import (
	"strings"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

func (e *Executor) execCreateTable(stmt *ast.CreateTableStmt) (storage.Result, error) {
	if e.store.TableExists(stmt.Table) {
		return storage.Result{}, dberr.Newf(dberr.SchemaError, "table %q already exists", stmt.Table)
	}
	if err := ast.ValidateIdentifier(stmt.Table, stmt.Options); err != nil {
		return storage.Result{}, err
	}
	if errs := stmt.Options.Validate(); len(errs) > 0 {
		return storage.Result{}, dberr.New(dberr.OptionError, strings.Join(errs, "; "))
	}
	if len(stmt.Columns) == 0 {
		return storage.Result{}, dberr.New(dberr.SchemaError, "a table must have at least one column")
	}

	seen := make(map[string]bool, len(stmt.Columns))
	hasPK := false
	for _, c := range stmt.Columns {
		if err := ast.ValidateIdentifier(c.Name, stmt.Options); err != nil {
			return storage.Result{}, err
		}
		if seen[c.Name] {
			return storage.Result{}, dberr.Newf(dberr.SchemaError, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Type == ast.UNKNOWN {
			return storage.Result{}, dberr.Newf(dberr.SchemaError, "column %q has an unrecognized type", c.Name)
		}
		if !stmt.Options.TypeAllowed(c.Type) {
			return storage.Result{}, dberr.Newf(dberr.OptionError, "type %s is not permitted by this table's allowed_types", c.Type)
		}
		if c.PrimaryKey {
			if hasPK {
				return storage.Result{}, dberr.New(dberr.SchemaError, "a table may declare only one PRIMARY KEY column")
			}
			hasPK = true
		}
	}

	if err := e.store.CreateTable(stmt.Table, storage.Schema(stmt.Columns), stmt.Options); err != nil {
		return storage.Result{}, err
	}
	return storage.DDLResult("table " + stmt.Table + " created"), nil
}

func (e *Executor) execDropTable(stmt *ast.DropTableStmt) (storage.Result, error) {
	if err := e.store.DropTable(stmt.Table, stmt.IfExists); err != nil {
		return storage.Result{}, err
	}
	return storage.DDLResult("table " + stmt.Table + " dropped"), nil
}

func (e *Executor) execAlterTable(stmt *ast.AlterTableStmt) (storage.Result, error) {
	if err := e.requireTable(stmt.Table); err != nil {
		return storage.Result{}, err
	}

	op := storage.AlterOp{
		NewTableName: stmt.NewTableName,
		Column:       stmt.Column,
		NewColumn:    stmt.NewColumn,
		NewType:      stmt.NewType,
		AddedColumn:  stmt.AddedColumn,
	}

	switch stmt.Kind {
	case ast.AlterRenameTable:
		op.Kind = storage.AlterOpRenameTable
		if e.store.TableExists(stmt.NewTableName) {
			return storage.Result{}, dberr.Newf(dberr.SchemaError, "table %q already exists", stmt.NewTableName)
		}
		if err := ast.ValidateIdentifier(stmt.NewTableName, ast.DefaultTableOptions()); err != nil {
			return storage.Result{}, err
		}
	case ast.AlterRenameColumn:
		op.Kind = storage.AlterOpRenameColumn
		if err := ast.ValidateIdentifier(stmt.NewColumn, ast.DefaultTableOptions()); err != nil {
			return storage.Result{}, err
		}
	case ast.AlterColumnType:
		op.Kind = storage.AlterOpColumnType
		if stmt.NewType == ast.UNKNOWN {
			return storage.Result{}, dberr.New(dberr.SchemaError, "cannot alter a column to an unrecognized type")
		}
	case ast.AlterDropColumn:
		op.Kind = storage.AlterOpDropColumn
	case ast.AlterAddColumn:
		op.Kind = storage.AlterOpAddColumn
		if err := ast.ValidateIdentifier(stmt.AddedColumn.Name, ast.DefaultTableOptions()); err != nil {
			return storage.Result{}, err
		}
		if stmt.AddedColumn.Type == ast.UNKNOWN {
			return storage.Result{}, dberr.New(dberr.SchemaError, "added column has an unrecognized type")
		}
	default:
		return storage.Result{}, dberr.New(dberr.InternalError, "unsupported ALTER TABLE form")
	}

	if err := e.store.AlterTable(stmt.Table, op); err != nil {
		return storage.Result{}, err
	}
	return storage.DDLResult("table " + stmt.Table + " altered"), nil
}
