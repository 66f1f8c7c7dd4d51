package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/ast"
)

func TestParseSelectStatement(t *testing.T) {
	stmts, errs := Parse("SELECT id, name FROM users WHERE id = 1")
	require.Empty(t, errs)
	require.Len(t, stmts, 1)

	sel, ok := stmts[0].(*ast.SelectStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, sel.Columns)
	assert.Equal(t, "users", sel.Table)
	assert.NotNil(t, sel.Where)
}

func TestParseDropTableStatement(t *testing.T) {
	stmts, errs := Parse("DROP TABLE IF EXISTS ghosts")
	require.Empty(t, errs)
	require.Len(t, stmts, 1)

	drop, ok := stmts[0].(*ast.DropTableStmt)
	require.True(t, ok)
	assert.Equal(t, "ghosts", drop.Table)
	assert.True(t, drop.IfExists)
}

func TestParseMultipleStatementsSeparatedBySemicolons(t *testing.T) {
	stmts, errs := Parse("SELECT * FROM a; DROP TABLE b; SELECT * FROM c")
	require.Empty(t, errs)
	require.Len(t, stmts, 3)
}

// TestParseRecoversAfterErrorViaSynchronize exercises spec.md §4.2's error
// recovery: a malformed statement records an error and is skipped, but the
// parser synchronizes to the next statement-starting keyword and keeps
// parsing the rest of the batch rather than aborting the whole batch.
func TestParseRecoversAfterErrorViaSynchronize(t *testing.T) {
	stmts, errs := Parse("SELEC * FROM users; DROP TABLE ghosts")
	require.NotEmpty(t, errs)
	require.Len(t, stmts, 1)

	drop, ok := stmts[0].(*ast.DropTableStmt)
	require.True(t, ok)
	assert.Equal(t, "ghosts", drop.Table)
}

// TestParseSuppressesDuplicateConsecutiveErrors exercises spec.md §4.2's
// "duplicate consecutive messages are suppressed" rule: two back-to-back
// failures that produce the identical message must only appear once.
func TestParseSuppressesDuplicateConsecutiveErrors(t *testing.T) {
	p := New(nil)
	p.error("expected a statement")
	p.error("expected a statement")
	p.error("expected a statement")
	assert.Equal(t, []string{"expected a statement"}, p.errors)

	p.error("a different message")
	p.error("expected a statement")
	assert.Equal(t, []string{"expected a statement", "a different message", "expected a statement"}, p.errors)
}

func TestParseEmptyInputProducesNoStatementsOrErrors(t *testing.T) {
	stmts, errs := Parse("")
	assert.Empty(t, stmts)
	assert.Empty(t, errs)
}
