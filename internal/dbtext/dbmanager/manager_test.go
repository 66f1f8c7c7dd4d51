package dbmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/dberr"
)

func TestNewCreatesDefaultDatabase(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	assert.True(t, m.Exists(DefaultDatabaseName))

	exec, err := m.Executor(DefaultDatabaseName)
	require.NoError(t, err)
	assert.NotNil(t, exec)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, m.Create("analytics", BackendMemory))

	err = m.Create("analytics", BackendMemory)
	require.Error(t, err)
	assert.Equal(t, dberr.SchemaError, dberr.KindOf(err))
}

func TestDefaultDatabaseCannotBeRenamedOrDropped(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)

	assert.Error(t, m.Rename(DefaultDatabaseName, "renamed"))
	assert.Error(t, m.Drop(DefaultDatabaseName))
	assert.True(t, m.Exists(DefaultDatabaseName))
}

func TestRenameMovesExecutorUnderNewName(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, m.Create("analytics", BackendMemory))

	require.NoError(t, m.Rename("analytics", "reporting"))
	assert.False(t, m.Exists("analytics"))
	assert.True(t, m.Exists("reporting"))
}

func TestDropRemovesDatabase(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, m.Create("scratch", BackendMemory))
	require.NoError(t, m.Drop("scratch"))
	assert.False(t, m.Exists("scratch"))
}

func TestDiskBackedDatabase(t *testing.T) {
	m, err := New(Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, m.Create("onDisk", BackendDisk))
	exec, err := m.Executor("onDisk")
	require.NoError(t, err)
	assert.NotNil(t, exec)
}
