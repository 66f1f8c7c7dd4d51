package bulkload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/woralem/dbtext/internal/dbtext/ast"
)

func TestOpenRejectsUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "sqlite3", "file::memory:")
	assert.Error(t, err)
}

func TestSqlValueToAST(t *testing.T) {
	assert.True(t, sqlValueToAST(nil).IsNull())
	assert.Equal(t, ast.IntValue(42), sqlValueToAST(int64(42)))
	assert.Equal(t, ast.StringValue("hi"), sqlValueToAST([]byte("hi")))
	assert.Equal(t, ast.FloatValue(1.5), sqlValueToAST(1.5))
	assert.Equal(t, ast.BoolValue(true), sqlValueToAST(true))
}
