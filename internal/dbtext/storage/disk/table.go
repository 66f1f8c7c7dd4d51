package disk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/woralem/dbtext/internal/dbtext/ast"
)

// columnMeta is one column's persisted schema entry, including the
// column link used to name its on-disk files (table.h's ColumnInfo).
type columnMeta struct {
	Name       string        `json:"name"`
	Type       ast.DataType  `json:"type"`
	NotNull    bool          `json:"not_null"`
	PrimaryKey bool          `json:"primary_key"`
	MaxLength  int           `json:"max_length"`
	Link       uint16        `json:"link"`
}

// tableMeta is the full persisted description of one table: its schema
// (in declared order) and its configured TableOptions. dbtext persists
// this as JSON rather than the original's raw binary layout (table.h's
// writeTableMetadata/readTableMetadata), since no third-party codec in
// the example pack addresses a bespoke on-disk schema format and JSON
// is the standard library's natural fit for a small, rarely-rewritten
// metadata document.
type tableMeta struct {
	Columns   []columnMeta    `json:"columns"`
	Options   ast.TableOptions `json:"options"`
	NextLink  uint16          `json:"next_link"`
}

func tableDir(dbPath string, link uint16) string {
	high := (link >> 8) & 0xFF
	low := link & 0xFF
	return filepath.Join(dbPath, fmt.Sprintf("%02X", high), fmt.Sprintf("%02X", low))
}

func metaPath(dir string) string { return filepath.Join(dir, "table.meta") }

func writeTableMeta(dir string, meta tableMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath(dir), data, 0o644)
}

func readTableMeta(dir string) (tableMeta, error) {
	var meta tableMeta
	data, err := os.ReadFile(metaPath(dir))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}
