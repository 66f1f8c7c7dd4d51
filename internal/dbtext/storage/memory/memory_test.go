package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

func usersSchema() storage.Schema {
	return storage.Schema{
		{Name: "id", Type: ast.INT, PrimaryKey: true, NotNull: true},
		{Name: "name", Type: ast.VARCHAR, MaxLength: 32},
		{Name: "age", Type: ast.INT},
	}
}

func TestCreateAndDropTable(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	assert.True(t, s.TableExists("users"))
	assert.Equal(t, []string{"users"}, s.ListTables())

	err := s.CreateTable("users", usersSchema(), ast.DefaultTableOptions())
	require.Error(t, err)
	assert.Equal(t, dberr.ConstraintError, dberr.KindOf(err))

	require.NoError(t, s.DropTable("users", false))
	assert.False(t, s.TableExists("users"))

	require.NoError(t, s.DropTable("missing", true))
	err = s.DropTable("missing", false)
	require.Error(t, err)
	assert.Equal(t, dberr.NameError, dberr.KindOf(err))
}

func TestInsertEnforcesPrimaryKeyAndNotNull(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))

	affected, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	affected, err = s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("dup"), ast.IntValue(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, affected, "duplicate primary key must be rejected")

	affected, err = s.Insert("users", nil, [][]ast.Value{
		{ast.Null, ast.StringValue("noid"), ast.IntValue(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, affected, "NOT NULL violation must be rejected")
}

func TestSelectWithPredicate(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
	})
	require.NoError(t, err)

	schema, rows, err := s.Select("users", nil, func(r storage.Row) bool {
		return r["age"].Int() >= 35
	})
	require.NoError(t, err)
	assert.Len(t, schema, 3)
	require.Len(t, rows, 1)
	assert.Equal(t, "grace", rows[0]["name"].Str())
}

func TestUpdateSkipsConstraintViolationsButAppliesOthers(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
	})
	require.NoError(t, err)

	affected, err := s.Update("users", []storage.UpdateAssignment{{Column: "id", Value: ast.IntValue(2)}}, func(r storage.Row) bool {
		return r["id"].Int() == 1
	})
	require.NoError(t, err)
	assert.Equal(t, 0, affected, "update colliding with an existing primary key must be rejected")

	affected, err = s.Update("users", []storage.UpdateAssignment{{Column: "age", Value: ast.IntValue(99)}}, func(r storage.Row) bool {
		return r["id"].Int() == 1
	})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	_, rows, err := s.Select("users", nil, func(r storage.Row) bool { return r["id"].Int() == 1 })
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(99), rows[0]["age"].Int())
}

func TestDeleteCompactsAndRebuildsIndex(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
		{ast.IntValue(3), ast.StringValue("linus"), ast.IntValue(50)},
	})
	require.NoError(t, err)

	affected, err := s.Delete("users", func(r storage.Row) bool { return r["id"].Int() == 2 })
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	// The freed primary key must be reusable after compaction.
	affected, err = s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(2), ast.StringValue("new"), ast.IntValue(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
}

func TestAlterTableRenameAndType(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
	})
	require.NoError(t, err)

	require.NoError(t, s.AlterTable("users", storage.AlterOp{Kind: storage.AlterOpRenameTable, NewTableName: "people"}))
	assert.True(t, s.TableExists("people"))
	assert.False(t, s.TableExists("users"))

	require.NoError(t, s.AlterTable("people", storage.AlterOp{Kind: storage.AlterOpRenameColumn, Column: "name", NewColumn: "full_name"}))
	schema, rows, err := s.Select("people", nil, nil)
	require.NoError(t, err)
	_, hasOld := schema.Column("name")
	_, hasNew := schema.Column("full_name")
	assert.False(t, hasOld)
	assert.True(t, hasNew)
	assert.Equal(t, "ada", rows[0]["full_name"].Str())

	require.NoError(t, s.AlterTable("people", storage.AlterOp{Kind: storage.AlterOpColumnType, Column: "age", NewType: ast.VARCHAR}))
	_, rows, err = s.Select("people", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "30", rows[0]["age"].Str())
}

func TestAlterTableDropLastColumnRefused(t *testing.T) {
	s := New()
	schema := storage.Schema{{Name: "only", Type: ast.INT}}
	require.NoError(t, s.CreateTable("solo", schema, ast.DefaultTableOptions()))
	err := s.AlterTable("solo", storage.AlterOp{Kind: storage.AlterOpDropColumn, Column: "only"})
	require.Error(t, err)
	assert.Equal(t, dberr.ConstraintError, dberr.KindOf(err))
}

func TestAlterTableAddColumnDefaults(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
	})
	require.NoError(t, err)

	require.NoError(t, s.AlterTable("users", storage.AlterOp{
		Kind:        storage.AlterOpAddColumn,
		AddedColumn: ast.ColumnDef{Name: "active", Type: ast.BOOLEAN, NotNull: true},
	}))
	_, rows, err := s.Select("users", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, false, rows[0]["active"].Bool())
}
