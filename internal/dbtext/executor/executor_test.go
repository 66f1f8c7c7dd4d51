package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/parser"
	"github.com/woralem/dbtext/internal/dbtext/storage"
	"github.com/woralem/dbtext/internal/dbtext/storage/memory"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	return New("test", memory.New(), nil, nil, nil)
}

func run(t *testing.T, e *Executor, sql string) storage.Result {
	t.Helper()
	stmts, errs := parser.Parse(sql)
	require.Empty(t, errs, "parse errors for %q", sql)
	require.Len(t, stmts, 1, "expected exactly one statement in %q", sql)
	return e.Execute(stmts[0], sql)
}

func mustSucceed(t *testing.T, r storage.Result) storage.Result {
	t.Helper()
	require.Equal(t, "success", r.Status, "result: %+v", r)
	return r
}

func TestExecutorCreateInsertSelect(t *testing.T) {
	e := newTestExecutor(t)
	mustSucceed(t, run(t, e, `CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR, age INT)`))
	mustSucceed(t, run(t, e, `INSERT INTO users VALUES (1, 'ada', 30), (2, 'grace', 40)`))

	r := mustSucceed(t, run(t, e, `SELECT * FROM users WHERE age >= 35`))
	require.Len(t, r.Cells, 1)
	assert.Equal(t, "grace", r.Cells[0][1].Content)
}

func TestExecutorSelectUnknownTableFails(t *testing.T) {
	e := newTestExecutor(t)
	r := run(t, e, `SELECT * FROM ghosts`)
	assert.Equal(t, "error", r.Status)
}

func TestExecutorUpdateAndDelete(t *testing.T) {
	e := newTestExecutor(t)
	mustSucceed(t, run(t, e, `CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR, age INT)`))
	mustSucceed(t, run(t, e, `INSERT INTO users VALUES (1, 'ada', 30), (2, 'grace', 40)`))

	r := mustSucceed(t, run(t, e, `UPDATE users SET age = 99 WHERE id = 1`))
	assert.Equal(t, 1, r.RowsAffected)

	r = mustSucceed(t, run(t, e, `DELETE FROM users WHERE id = 2`))
	assert.Equal(t, 1, r.RowsAffected)

	r = mustSucceed(t, run(t, e, `SELECT * FROM users`))
	require.Len(t, r.Cells, 1)
}

func TestExecutorLikeAndIn(t *testing.T) {
	e := newTestExecutor(t)
	mustSucceed(t, run(t, e, `CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR, age INT)`))
	mustSucceed(t, run(t, e, `INSERT INTO users VALUES (1, 'ada', 30), (2, 'grace', 40), (3, 'alan', 50)`))

	r := mustSucceed(t, run(t, e, `SELECT * FROM users WHERE name LIKE 'a%'`))
	assert.Len(t, r.Cells, 2)

	r = mustSucceed(t, run(t, e, `SELECT * FROM users WHERE id IN (1, 3)`))
	assert.Len(t, r.Cells, 2)
}

func TestExecutorCreateTableRejectsDuplicateColumn(t *testing.T) {
	e := newTestExecutor(t)
	r := run(t, e, `CREATE TABLE dupes (id INT PRIMARY KEY, id VARCHAR)`)
	assert.Equal(t, "error", r.Status)
}

func TestExecutorAlterTableRename(t *testing.T) {
	e := newTestExecutor(t)
	mustSucceed(t, run(t, e, `CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR)`))
	mustSucceed(t, run(t, e, `ALTER TABLE users RENAME TO people`))

	r := run(t, e, `SELECT * FROM users`)
	assert.Equal(t, "error", r.Status)

	mustSucceed(t, run(t, e, `SELECT * FROM people`))
}

func TestExecutorDropTableIfExists(t *testing.T) {
	e := newTestExecutor(t)
	r := run(t, e, `DROP TABLE IF EXISTS ghosts`)
	mustSucceed(t, r)
}

func TestExecutorPredicateCacheReusesCompiledClosure(t *testing.T) {
	e := newTestExecutor(t)
	mustSucceed(t, run(t, e, `CREATE TABLE users (id INT PRIMARY KEY, age INT)`))
	mustSucceed(t, run(t, e, `INSERT INTO users VALUES (1, 30), (2, 40)`))

	stmts, errs := parser.Parse(`SELECT * FROM users WHERE age > 20`)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)

	mustSucceed(t, e.Execute(stmts[0], "q1"))
	assert.Len(t, e.predicateCache, 1)
	mustSucceed(t, e.Execute(stmts[0], "q2"))
	assert.Len(t, e.predicateCache, 1)
}
