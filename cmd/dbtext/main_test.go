package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/dbmanager"
)

func newTestRepl(t *testing.T, input string) (*repl, *bytes.Buffer) {
	t.Helper()
	mgr, err := dbmanager.New(dbmanager.Options{})
	require.NoError(t, err)
	var out bytes.Buffer
	r := &repl{mgr: mgr, current: dbmanager.DefaultDatabaseName, in: bufio.NewScanner(strings.NewReader(input)), out: &out}
	return r, &out
}

func TestReplExecutesStatements(t *testing.T) {
	r, out := newTestRepl(t, "")
	r.execute(`CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR)`)
	assert.Contains(t, out.String(), `"status": "success"`)

	out.Reset()
	r.execute(`INSERT INTO users VALUES (1, 'ada')`)
	assert.Contains(t, out.String(), `"rows_affected": 1`)
}

func TestReplReportsParseErrors(t *testing.T) {
	r, out := newTestRepl(t, "")
	r.execute(`SELEC * FROM users`)
	assert.Contains(t, out.String(), "parse errors:")
}

func TestReplMetaCommands(t *testing.T) {
	r, out := newTestRepl(t, "")
	require.NoError(t, r.mgr.Create("analytics", dbmanager.BackendMemory))

	assert.True(t, r.handleMeta("\\l"))
	assert.Contains(t, out.String(), "analytics")
	assert.Contains(t, out.String(), dbmanager.DefaultDatabaseName)

	out.Reset()
	assert.True(t, r.handleMeta("\\u analytics"))
	assert.Equal(t, "analytics", r.current)

	assert.True(t, r.handleMeta("\\h"))
	assert.False(t, r.handleMeta("SELECT 1"))
}
