package executor

import (
	"regexp"
	"strings"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/dberr"
	"github.com/woralem/dbtext/internal/dbtext/storage"
)

// valueFunc resolves an expression to a Value for a given row.
type valueFunc func(storage.Row) ast.Value

// predicateFunc resolves a boolean-context expression for a given row.
type predicateFunc func(storage.Row) bool

// compilePredicate turns a WHERE clause into a reusable closure, caching
// the result by the AST root's pointer identity so a statement re-run
// against the same parsed tree skips recompilation (spec.md §4.3). IN
// subqueries are materialized once, at compile time, not per row.
func (e *Executor) compilePredicate(where ast.Node) (predicateFunc, error) {
	if where == nil {
		return func(storage.Row) bool { return true }, nil
	}

	e.cacheMu.Lock()
	if fn, ok := e.predicateCache[where]; ok {
		e.cacheMu.Unlock()
		return fn, nil
	}
	e.cacheMu.Unlock()

	fn, err := e.buildPredicate(where)
	if err != nil {
		return nil, err
	}

	e.cacheMu.Lock()
	e.predicateCache[where] = fn
	e.cacheMu.Unlock()
	return fn, nil
}

func (e *Executor) buildPredicate(node ast.Node) (predicateFunc, error) {
	switch n := node.(type) {
	case *ast.BinaryExpr:
		return e.buildBinaryPredicate(n)
	case *ast.UnaryNotExpr:
		inner, err := e.buildPredicate(n.Operand)
		if err != nil {
			return nil, err
		}
		return func(row storage.Row) bool { return !inner(row) }, nil
	case *ast.LiteralExpr:
		if n.Value.IsBool() {
			v := n.Value.Bool()
			return func(storage.Row) bool { return v }, nil
		}
		return nil, dberr.New(dberr.SchemaError, "WHERE clause must evaluate to a boolean expression")
	default:
		return nil, dberr.New(dberr.SchemaError, "WHERE clause must evaluate to a boolean expression")
	}
}

func (e *Executor) buildBinaryPredicate(n *ast.BinaryExpr) (predicateFunc, error) {
	switch n.Op {
	case ast.OpAND:
		left, err := e.buildPredicate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.buildPredicate(n.Right)
		if err != nil {
			return nil, err
		}
		return func(row storage.Row) bool { return left(row) && right(row) }, nil
	case ast.OpOR:
		left, err := e.buildPredicate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.buildPredicate(n.Right)
		if err != nil {
			return nil, err
		}
		return func(row storage.Row) bool { return left(row) || right(row) }, nil
	case ast.OpEQ, ast.OpNE, ast.OpLT, ast.OpGT, ast.OpLE, ast.OpGE:
		left := buildValueFunc(n.Left)
		right := buildValueFunc(n.Right)
		op := n.Op
		return func(row storage.Row) bool { return compareOp(op, left(row), right(row)) }, nil
	case ast.OpLIKE:
		left := buildValueFunc(n.Left)
		lit, ok := n.Right.(*ast.LiteralExpr)
		if !ok || !lit.Value.IsString() {
			return nil, dberr.New(dberr.SchemaError, "LIKE pattern must be a string literal")
		}
		re, err := compileLikePattern(lit.Value.Str())
		if err != nil {
			return nil, err
		}
		return func(row storage.Row) bool {
			v := left(row)
			return v.IsString() && re.MatchString(v.Str())
		}, nil
	case ast.OpIN:
		left := buildValueFunc(n.Left)
		set, err := e.materializeInSet(n.Right)
		if err != nil {
			return nil, err
		}
		return func(row storage.Row) bool {
			v := left(row)
			if v.IsNull() {
				return false
			}
			_, ok := set[v.CanonicalKey()]
			return ok
		}, nil
	default:
		return nil, dberr.New(dberr.InternalError, "unsupported WHERE operator")
	}
}

func buildValueFunc(node ast.Node) valueFunc {
	switch n := node.(type) {
	case *ast.LiteralExpr:
		return func(storage.Row) ast.Value { return n.Value }
	case *ast.IdentifierExpr:
		name := n.Name
		return func(row storage.Row) ast.Value {
			if v, ok := row[name]; ok {
				return v
			}
			return ast.Null
		}
	default:
		return func(storage.Row) ast.Value { return ast.Null }
	}
}

// compareOp applies the Value ordering semantics of spec.md §3/§8: EQ/NE
// treat null as never matching anything (including another null); the
// ordered comparisons collapse an incomparable pair (null, or
// incompatible types) to false rather than erroring, per SQL's
// three-valued-logic-to-boolean-filter convention.
func compareOp(op ast.BinaryOp, a, b ast.Value) bool {
	switch op {
	case ast.OpEQ:
		return a.Equal(b)
	case ast.OpNE:
		if a.IsNull() || b.IsNull() {
			return false
		}
		return !a.Equal(b)
	case ast.OpLT, ast.OpGT, ast.OpLE, ast.OpGE:
		cmp, ok := a.Compare(b)
		if !ok {
			return false
		}
		switch op {
		case ast.OpLT:
			return cmp < 0
		case ast.OpGT:
			return cmp > 0
		case ast.OpLE:
			return cmp <= 0
		case ast.OpGE:
			return cmp >= 0
		}
	}
	return false
}

// compileLikePattern translates a SQL LIKE pattern (% = any run of
// characters, _ = any single character) into an anchored regular
// expression. No library in the example pack implements SQL glob
// matching, so this uses the standard library's regexp directly.
func compileLikePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, dberr.Wrap(dberr.SchemaError, "invalid LIKE pattern", err)
	}
	return re, nil
}

// materializeInSet evaluates the right-hand side of an IN expression
// once, at predicate-compile time, into a canonical-key set.
func (e *Executor) materializeInSet(node ast.Node) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	switch n := node.(type) {
	case *ast.ValueListExpr:
		for _, v := range n.Values {
			if !v.IsNull() {
				set[v.CanonicalKey()] = struct{}{}
			}
		}
		return set, nil
	case *ast.SubqueryExpr:
		schema, rows, err := e.runSelect(n.Select)
		if err != nil {
			return nil, err
		}
		var colName string
		if len(n.Select.Columns) == 1 {
			colName = n.Select.Columns[0]
		} else if len(schema) > 0 {
			colName = schema[0].Name
		}
		for _, row := range rows {
			if v, ok := row[colName]; ok && !v.IsNull() {
				set[v.CanonicalKey()] = struct{}{}
			}
		}
		return set, nil
	default:
		return nil, dberr.New(dberr.InternalError, "unsupported IN right-hand side")
	}
}
