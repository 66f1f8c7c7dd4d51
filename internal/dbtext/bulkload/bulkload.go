// Package bulkload imports rows from an external SQL database into a
// dbtext table, grounded on the teacher repo's db.ConnectionManager
// (internal/dbtext/bulkload shares its driver-selection and
// connect-with-timeout shape, trimmed to the single-shot import use
// case instead of a long-lived pooled connection manager).
// It is a library API (Open, then Importer.ImportTable), not part of the
// core query path, and cmd/dbtext has no import subcommand: every imported
// row is funneled through the bound Executor's INSERT path, so it is
// subject to the same NOT NULL/PK/type constraints as a parsed INSERT
// statement.
package bulkload

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/executor"
)

// batchSize bounds how many source rows are buffered into a single
// INSERT statement sent through the executor at a time.
const batchSize = 500

// Importer streams rows from one external connection into dbtext tables.
// One Importer wraps one *sql.DB; callers import as many source tables
// as needed through it before calling Close.
type Importer struct {
	driverName string
	db         *sql.DB
}

// Open establishes a connection to an external database, following the
// teacher's connect-with-timeout pattern (db/connection.go's `connect`):
// ping within ctx before returning, so a bad DSN fails fast instead of
// surfacing on the first query.
func Open(ctx context.Context, driverName, dsn string) (*Importer, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, dberr.Newf(dberr.OptionError, "unsupported import driver %q (want mysql or postgres)", driverName)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, dberr.Wrap(dberr.StorageError, "failed to open external connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dberr.Wrap(dberr.StorageError, "failed to reach external database", err)
	}
	return &Importer{driverName: driverName, db: db}, nil
}

// Close releases the underlying *sql.DB.
func (imp *Importer) Close() error {
	return imp.db.Close()
}

// ImportTable streams every row of sourceTable through exec's INSERT
// path into destTable, batchSize rows per statement, and returns the
// total number of rows the executor reported as affected (which may be
// less than the number read, if some rows are rejected by destTable's
// constraints — see spec.md §4.3 "any violation skips that row").
func (imp *Importer) ImportTable(ctx context.Context, exec *executor.Executor, sourceTable, destTable string) (int, error) {
	rows, err := imp.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", sourceTable))
	if err != nil {
		return 0, dberr.Wrap(dberr.StorageError, "failed to query source table", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, dberr.Wrap(dberr.StorageError, "failed to read source columns", err)
	}

	total := 0
	var batch [][]ast.Value
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		stmt := &ast.InsertStmt{Table: destTable, Columns: cols, Rows: batch}
		result := exec.Execute(stmt, "bulk import")
		if result.Status != "success" {
			return dberr.New(dberr.StorageError, result.Message)
		}
		total += result.RowsAffected
		batch = batch[:0]
		return nil
	}

	scanDest := make([]interface{}, len(cols))
	scanVals := make([]interface{}, len(cols))
	for i := range scanVals {
		scanDest[i] = &scanVals[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return total, dberr.Wrap(dberr.StorageError, "failed to scan source row", err)
		}
		row := make([]ast.Value, len(cols))
		for i, raw := range scanVals {
			row[i] = sqlValueToAST(raw)
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return total, dberr.Wrap(dberr.StorageError, "error reading source rows", err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// sqlValueToAST converts a database/sql scanned value into an ast.Value,
// matching the coercion used throughout the engine: byte slices (the
// driver's representation of TEXT/VARCHAR/BLOB columns) become strings,
// everything else maps onto its natural Value constructor.
func sqlValueToAST(v interface{}) ast.Value {
	switch t := v.(type) {
	case nil:
		return ast.Null
	case []byte:
		return ast.StringValue(string(t))
	case string:
		return ast.StringValue(t)
	case int64:
		return ast.IntValue(t)
	case int:
		return ast.IntValue(int64(t))
	case float64:
		return ast.FloatValue(t)
	case bool:
		return ast.BoolValue(t)
	default:
		return ast.StringValue(fmt.Sprintf("%v", t))
	}
}
