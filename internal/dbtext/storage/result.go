package storage

import (
	"strconv"

	"github.com/woralem/dbtext/internal/dbtext/ast"
)

// HeaderCell is one column header entry in a SELECT result (spec.md
// §4.7).
type HeaderCell struct {
	Content string `json:"content"`
	ID      string `json:"id"`
	Type    string `json:"type"`
}

// DataCell is one cell value in a SELECT result row.
type DataCell struct {
	Content interface{} `json:"content"`
	ID      string      `json:"id"`
}

// Result is the structured payload returned by Execute (spec.md §4.7).
// Only the fields relevant to the statement kind are populated.
type Result struct {
	Status       string       `json:"status"`
	TableName    string       `json:"table_name,omitempty"`
	Header       []HeaderCell `json:"header,omitempty"`
	Cells        [][]DataCell `json:"cells,omitempty"`
	RowsAffected int          `json:"rows_affected,omitempty"`
	Message      string       `json:"message,omitempty"`
	Errors       []string     `json:"errors,omitempty"`
}

// valueToJSON converts an ast.Value to the JSON-native representation
// named in spec.md §6: numbers as JSON numbers, strings as JSON strings,
// booleans as JSON booleans, null as JSON null.
func valueToJSON(v ast.Value) interface{} {
	switch {
	case v.IsNull():
		return nil
	case v.IsInt():
		return v.Int()
	case v.IsFloat():
		return v.Float()
	case v.IsString():
		return v.Str()
	case v.IsBool():
		return v.Bool()
	default:
		return nil
	}
}

// BuildSelectResult assembles a SELECT result from a schema and the rows
// to emit, in the requested projection order (spec.md §4.7).
func BuildSelectResult(table string, schema Schema, projection []string, rows []Row) Result {
	cols := projection
	if len(cols) == 0 {
		cols = schema.ColumnNames()
	}
	header := make([]HeaderCell, len(cols))
	for i, name := range cols {
		typeName := "UNKNOWN"
		if def, ok := schema.Column(name); ok {
			typeName = def.Type.String()
		}
		header[i] = HeaderCell{Content: name, ID: cellHeaderID(i), Type: typeName}
	}

	cells := make([][]DataCell, len(rows))
	for r, row := range rows {
		rowCells := make([]DataCell, len(cols))
		for c, name := range cols {
			v, ok := row[name]
			if !ok {
				v = ast.Null
			}
			rowCells[c] = DataCell{Content: valueToJSON(v), ID: cellID(r, c)}
		}
		cells[r] = rowCells
	}

	return Result{Status: "success", TableName: table, Header: header, Cells: cells}
}

func cellHeaderID(i int) string { return "col_" + strconv.Itoa(i) }
func cellID(r, c int) string    { return "cell_" + strconv.Itoa(r) + "_" + strconv.Itoa(c) }

// DMLResult builds the `{status, rows_affected}` payload for INSERT/
// UPDATE/DELETE.
func DMLResult(affected int) Result {
	return Result{Status: "success", RowsAffected: affected}
}

// DDLResult builds the `{status, message}` payload for CREATE/DROP/ALTER.
func DDLResult(message string) Result {
	return Result{Status: "success", Message: message}
}

// ErrorResult builds the `{status:"error", message, errors?}` payload.
func ErrorResult(message string, errs ...string) Result {
	return Result{Status: "error", Message: message, Errors: errs}
}
