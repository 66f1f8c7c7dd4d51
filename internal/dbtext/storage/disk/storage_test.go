package disk

import (
	"testing"
	"time"

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

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestDiskCreateInsertSelect(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))

	affected, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	_, rows, err := s.Select("users", nil, func(r storage.Row) bool { return r["age"].Int() >= 35 })
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "grace", rows[0]["name"].Str())
}

func TestDiskPrimaryKeyRejectsDuplicate(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)}})
	require.NoError(t, err)

	affected, err := s.Insert("users", nil, [][]ast.Value{{ast.IntValue(1), ast.StringValue("dup"), ast.IntValue(1)}})
	require.NoError(t, err)
	assert.Equal(t, 0, affected)
}

func TestDiskUpdateAndDeletePersist(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
		{ast.IntValue(3), ast.StringValue("linus"), ast.IntValue(50)},
	})
	require.NoError(t, err)

	affected, err := s.Update("users", []storage.UpdateAssignment{{Column: "age", Value: ast.IntValue(99)}},
		func(r storage.Row) bool { return r["id"].Int() == 1 })
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	deleted, err := s.Delete("users", func(r storage.Row) bool { return r["id"].Int() == 2 })
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, rows, err := s.Select("users", nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDiskReopenSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err = s.Insert("users", nil, [][]ast.Value{{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)}})
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.True(t, reopened.TableExists("users"))
	_, rows, err := reopened.Select("users", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ada", rows[0]["name"].Str())
}

func TestDiskAlterTableRenameAndType(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	_, err := s.Insert("users", nil, [][]ast.Value{{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)}})
	require.NoError(t, err)

	require.NoError(t, s.AlterTable("users", storage.AlterOp{Kind: storage.AlterOpRenameTable, NewTableName: "people"}))
	assert.True(t, s.TableExists("people"))
	assert.False(t, s.TableExists("users"))

	require.NoError(t, s.AlterTable("people", storage.AlterOp{Kind: storage.AlterOpColumnType, Column: "age", NewType: ast.VARCHAR}))
	_, rows, err := s.Select("people", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "30", rows[0]["age"].Str())
}

func TestDiskDropTableRemovesData(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.CreateTable("users", usersSchema(), ast.DefaultTableOptions()))
	require.NoError(t, s.DropTable("users", false))
	assert.False(t, s.TableExists("users"))

	err := s.DropTable("users", false)
	require.Error(t, err)
	assert.Equal(t, dberr.NameError, dberr.KindOf(err))
	require.NoError(t, s.DropTable("users", true))
}

func TestMaybeCompactRunsOnceThenWaitsForNextPeriod(t *testing.T) {
	s := openTestStorage(t)
	opts := ast.DefaultTableOptions()
	opts.GCFrequencyDays = 7
	require.NoError(t, s.CreateTable("users", usersSchema(), opts))

	_, err := s.Insert("users", nil, [][]ast.Value{
		{ast.IntValue(1), ast.StringValue("ada"), ast.IntValue(30)},
		{ast.IntValue(2), ast.StringValue("grace"), ast.IntValue(40)},
	})
	require.NoError(t, err)
	_, err = s.Delete("users", func(r storage.Row) bool { return r["id"].Int() == 1 })
	require.NoError(t, err)

	// Delete already ran compaction and stamped lastCompact with the wall
	// clock, so the first explicit call has to be a full period later.
	first := time.Now().AddDate(0, 0, 30)
	require.NoError(t, s.MaybeCompact("users", first))
	require.True(t, s.tables["users"].lastCompact.Equal(first), "a due compaction must stamp lastCompact")

	soon := first.Add(time.Hour)
	require.NoError(t, s.MaybeCompact("users", soon))
	assert.True(t, s.tables["users"].lastCompact.Equal(first), "within the GC period, MaybeCompact must not run again")

	later := first.AddDate(0, 0, 8)
	require.NoError(t, s.MaybeCompact("users", later))
	assert.True(t, s.tables["users"].lastCompact.Equal(later), "past the GC period, MaybeCompact must run again")
}

func TestMaybeCompactOnUnopenedTableIsNotError(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.MaybeCompact("ghosts", time.Now()))
}
