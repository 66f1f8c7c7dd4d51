// Package parser implements a Pratt-precedence parser over the dbtext
// query language (spec.md §4.2): statement routines for SELECT, INSERT,
// UPDATE, DELETE, CREATE TABLE, DROP TABLE, and ALTER TABLE, plus a
// precedence-climbing expression parser for WHERE clauses.
package parser

import (
	"strings"

	"github.com/woralem/dbtext/internal/dbtext/ast"
	"github.com/woralem/dbtext/internal/dbtext/lexer"
	"github.com/woralem/dbtext/internal/dbtext/token"
)

// precedence levels, lowest to highest, matching spec.md §4.2:
// OR < AND < EQ/NE < LT/GT/LE/GE/LIKE/IN < unary NOT < primary.
const (
	precNone = iota
	precOr
	precAnd
	precEquality
	precComparison
	precUnaryNot
	precPrimary
)

func precedenceOf(k token.Kind) int {
	switch k {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NE:
		return precEquality
	case token.LT, token.GT, token.LE, token.GE, token.LIKE, token.IN:
		return precComparison
	default:
		return precNone
	}
}

// Parser consumes a token stream and produces statements plus a list of
// recovered error messages (spec.md §4.2 "Error recovery").
type Parser struct {
	toks   []token.Token
	pos    int
	errors []string
}

// New creates a Parser over already-tokenized input.
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse tokenizes and parses src, returning every statement recovered and
// the accumulated error list. A best-effort AST is always returned even
// when errors occurred (spec.md §4.2).
func Parse(src string) ([]ast.Statement, []string) {
	p := New(lexer.Tokenize(src))
	return p.ParseAll()
}

// ParseAll parses every statement in the token stream, synchronizing past
// errors so a later statement can still be recovered.
func (p *Parser) ParseAll() ([]ast.Statement, []string) {
	var stmts []ast.Statement
	for !p.isAtEnd() {
		for p.check(token.SEMICOLON) {
			p.advance()
		}
		if p.isAtEnd() {
			break
		}
		start := len(p.errors)
		stmt := p.statementRecovering()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if len(p.errors) == start && !p.isAtEnd() {
			p.consume(token.SEMICOLON, "expected ';' after statement")
		}
	}
	return stmts, p.errors
}

// statementRecovering parses one statement, synchronizing to the next
// statement boundary if a parse error is raised partway through.
func (p *Parser) statementRecovering() (stmt ast.Statement) {
	defer func() {
		if r := recover(); r != nil {
			p.synchronize()
			stmt = nil
		}
	}()
	return p.statement()
}

func (p *Parser) isAtEnd() bool { return p.peek().Kind == token.EOF }
func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}
func (p *Parser) previous() token.Token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}
func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}
func (p *Parser) check(k token.Kind) bool {
	if p.isAtEnd() {
		return k == token.EOF
	}
	return p.peek().Kind == k
}
func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

type parseAbort struct{}

func (p *Parser) consume(k token.Kind, msg string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.error(msg + " (got " + p.peek().Kind.String() + " at " + p.peek().Pos.String() + ")")
	panic(parseAbort{})
}

// error records msg, suppressing immediately-repeated duplicates (spec.md
// §4.2: "Duplicate consecutive messages are suppressed").
func (p *Parser) error(msg string) {
	if len(p.errors) == 0 || p.errors[len(p.errors)-1] != msg {
		p.errors = append(p.errors, msg)
	}
}

func (p *Parser) fail(msg string) {
	p.error(msg)
	panic(parseAbort{})
}

// synchronize discards tokens until a semicolon or a statement-starting
// reserved word (spec.md §4.2).
func (p *Parser) synchronize() {
	if !p.isAtEnd() {
		p.advance()
	}
	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		switch p.peek().Kind {
		case token.SELECT, token.INSERT, token.UPDATE, token.DELETE, token.CREATE, token.DROP, token.ALTER:
			return
		}
		p.advance()
	}
}

func (p *Parser) statement() ast.Statement {
	switch {
	case p.check(token.SELECT):
		return p.selectStatement()
	case p.check(token.INSERT):
		return p.insertStatement()
	case p.check(token.UPDATE):
		return p.updateStatement()
	case p.check(token.DELETE):
		return p.deleteStatement()
	case p.check(token.CREATE):
		return p.createTableStatement()
	case p.check(token.DROP):
		return p.dropTableStatement()
	case p.check(token.ALTER):
		return p.alterTableStatement()
	default:
		p.fail("expected a statement (SELECT, INSERT, UPDATE, DELETE, CREATE, DROP, ALTER) but got '" + p.peek().Lexeme + "'")
		return nil
	}
}

// --- SELECT ---

func (p *Parser) selectStatement() *ast.SelectStmt {
	p.consume(token.SELECT, "expected SELECT")
	stmt := &ast.SelectStmt{}
	if p.match(token.ASTERISK) {
		// columns stays nil/empty -> "*"
	} else if p.check(token.IDENT) {
		stmt.Columns = p.columnList()
	} else {
		p.consume(token.IDENT, "expected '*' or column names after SELECT")
	}
	p.consume(token.FROM, "expected FROM after column list")
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	if p.match(token.WHERE) {
		stmt.Where = p.expression()
	}
	return stmt
}

func (p *Parser) columnList() []string {
	var cols []string
	cols = append(cols, p.consume(token.IDENT, "expected column name").Lexeme)
	for p.match(token.COMMA) {
		cols = append(cols, p.consume(token.IDENT, "expected column name").Lexeme)
	}
	return cols
}

// --- INSERT ---

func (p *Parser) insertStatement() *ast.InsertStmt {
	p.consume(token.INSERT, "expected INSERT")
	stmt := &ast.InsertStmt{}
	p.consume(token.INTO, "expected INTO")
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	if p.match(token.LPAREN) {
		stmt.Columns = p.columnList()
		p.consume(token.RPAREN, "expected ')'")
	}
	p.consume(token.VALUES, "expected VALUES")
	for {
		p.consume(token.LPAREN, "expected '('")
		if p.check(token.RPAREN) {
			p.error("value list cannot be empty")
		} else {
			stmt.Rows = append(stmt.Rows, p.valueList())
		}
		p.consume(token.RPAREN, "expected ')'")
		if !p.match(token.COMMA) {
			break
		}
	}
	return stmt
}

func (p *Parser) valueList() []ast.Value {
	var vals []ast.Value
	vals = append(vals, p.literalValue())
	for p.match(token.COMMA) {
		vals = append(vals, p.literalValue())
	}
	return vals
}

func (p *Parser) literalValue() ast.Value {
	t := p.peek()
	switch t.Kind {
	case token.NUMBER:
		p.advance()
		if f, ok := t.Literal.(float64); ok {
			return ast.FloatValue(f)
		}
		return ast.IntValue(t.Literal.(int64))
	case token.STRING:
		p.advance()
		return ast.StringValue(t.Literal.(string))
	case token.NULL:
		p.advance()
		return ast.Null
	case token.TRUE:
		p.advance()
		return ast.BoolValue(true)
	case token.FALSE:
		p.advance()
		return ast.BoolValue(false)
	default:
		p.fail("expected a literal value")
		return ast.Null
	}
}

// --- UPDATE ---

func (p *Parser) updateStatement() *ast.UpdateStmt {
	p.consume(token.UPDATE, "expected UPDATE")
	stmt := &ast.UpdateStmt{}
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	p.consume(token.SET, "expected SET")
	for {
		col := p.consume(token.IDENT, "expected column name").Lexeme
		p.consume(token.EQ, "expected '='")
		stmt.Assignments = append(stmt.Assignments, ast.Assignment{Column: col, Value: p.literalValue()})
		if !p.match(token.COMMA) {
			break
		}
	}
	if p.match(token.WHERE) {
		stmt.Where = p.expression()
	}
	return stmt
}

// --- DELETE ---

func (p *Parser) deleteStatement() *ast.DeleteStmt {
	p.consume(token.DELETE, "expected DELETE")
	stmt := &ast.DeleteStmt{}
	p.consume(token.FROM, "expected FROM")
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	if p.match(token.WHERE) {
		stmt.Where = p.expression()
	}
	return stmt
}

// --- CREATE TABLE ---

func (p *Parser) createTableStatement() *ast.CreateTableStmt {
	p.consume(token.CREATE, "expected CREATE")
	stmt := &ast.CreateTableStmt{Options: ast.DefaultTableOptions()}
	p.consume(token.TABLE, "expected TABLE")
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	p.consume(token.LPAREN, "expected '('")
	if p.check(token.RPAREN) {
		p.error("column definitions cannot be empty")
	} else {
		for {
			stmt.Columns = append(stmt.Columns, p.columnDef())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expected ')'")
	if p.match(token.WITH) {
		p.consume(token.OPTIONS, "expected OPTIONS")
		p.consume(token.LPAREN, "expected '('")
		stmt.Options = p.tableOptions()
		p.consume(token.RPAREN, "expected ')'")
	}
	return stmt
}

func (p *Parser) columnDef() ast.ColumnDef {
	def := ast.ColumnDef{}
	def.Name = p.consume(token.IDENT, "expected column name").Lexeme
	typeName := p.consume(token.IDENT, "expected data type").Lexeme
	def.Type = ast.ParseDataType(strings.ToUpper(typeName))
	if p.match(token.LBRACKET) {
		n := p.consume(token.NUMBER, "expected VARCHAR length")
		if l, ok := n.Literal.(int64); ok {
			def.MaxLength = int(l)
		}
		p.consume(token.RBRACKET, "expected ']'")
	}
	for {
		if p.check(token.NOT) {
			p.advance()
			p.consume(token.NULL, "expected NULL after NOT")
			def.NotNull = true
			continue
		}
		if p.check(token.IDENT) && strings.EqualFold(p.peek().Lexeme, "PRIMARY") {
			p.advance()
			if p.check(token.IDENT) && strings.EqualFold(p.peek().Lexeme, "KEY") {
				p.advance()
			}
			def.PrimaryKey = true
			continue
		}
		break
	}
	return def
}

func (p *Parser) tableOptions() ast.TableOptions {
	opts := ast.DefaultTableOptions()
	if p.check(token.RPAREN) {
		return opts
	}
	for {
		switch {
		case p.match(token.TYPES):
			p.consume(token.EQ, "expected '=' after TYPES")
			p.consume(token.LPAREN, "expected '('")
			allowed := map[ast.DataType]bool{}
			for {
				name := p.consume(token.IDENT, "expected data type").Lexeme
				allowed[ast.ParseDataType(strings.ToUpper(name))] = true
				if !p.match(token.COMMA) {
					break
				}
			}
			p.consume(token.RPAREN, "expected ')'")
			opts.AllowedTypes = allowed
		case p.match(token.MAXCOLUMNLENGTH):
			p.consume(token.EQ, "expected '='")
			n := p.consume(token.NUMBER, "expected number")
			opts.MaxColumnNameLength = int(n.Literal.(int64))
		case p.match(token.ADDITIONALCHARS):
			p.consume(token.EQ, "expected '='")
			s := p.consume(token.STRING, "expected string")
			opts.AdditionalNameChars = s.Literal.(string)
		case p.match(token.MAXSTRINGLENGTH):
			p.consume(token.EQ, "expected '='")
			n := p.consume(token.NUMBER, "expected number")
			opts.MaxStringLength = n.Literal.(int64)
		case p.match(token.GCFREQUENCY):
			p.consume(token.EQ, "expected '='")
			n := p.consume(token.NUMBER, "expected number")
			opts.GCFrequencyDays = int(n.Literal.(int64))
			if p.check(token.DAYS) {
				p.advance()
			}
		default:
			p.fail("unknown table option '" + p.peek().Lexeme + "'")
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	return opts
}

// --- DROP TABLE ---

func (p *Parser) dropTableStatement() *ast.DropTableStmt {
	p.consume(token.DROP, "expected DROP")
	p.consume(token.TABLE, "expected TABLE")
	stmt := &ast.DropTableStmt{}
	if p.match(token.IF) {
		p.consume(token.EXISTS, "expected EXISTS after IF")
		stmt.IfExists = true
	}
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	return stmt
}

// --- ALTER TABLE ---

func (p *Parser) alterTableStatement() *ast.AlterTableStmt {
	p.consume(token.ALTER, "expected ALTER")
	p.consume(token.TABLE, "expected TABLE")
	stmt := &ast.AlterTableStmt{}
	stmt.Table = p.consume(token.IDENT, "expected table name").Lexeme
	switch {
	case p.match(token.RENAME):
		if p.match(token.COLUMN) {
			stmt.Kind = ast.AlterRenameColumn
			stmt.Column = p.consume(token.IDENT, "expected column name").Lexeme
			p.consume(token.TO, "expected TO")
			stmt.NewColumn = p.consume(token.IDENT, "expected new column name").Lexeme
		} else {
			p.consume(token.TO, "expected TO")
			stmt.Kind = ast.AlterRenameTable
			stmt.NewTableName = p.consume(token.IDENT, "expected new table name").Lexeme
		}
	case p.match(token.ALTER):
		p.consume(token.COLUMN, "expected COLUMN")
		stmt.Kind = ast.AlterColumnType
		stmt.Column = p.consume(token.IDENT, "expected column name").Lexeme
		p.consume(token.TYPE, "expected TYPE")
		typeName := p.consume(token.IDENT, "expected data type").Lexeme
		stmt.NewType = ast.ParseDataType(strings.ToUpper(typeName))
	case p.match(token.DROP):
		p.consume(token.COLUMN, "expected COLUMN")
		stmt.Kind = ast.AlterDropColumn
		stmt.Column = p.consume(token.IDENT, "expected column name").Lexeme
	default:
		if p.check(token.IDENT) && strings.EqualFold(p.peek().Lexeme, "ADD") {
			p.advance()
			p.consume(token.COLUMN, "expected COLUMN")
			stmt.Kind = ast.AlterAddColumn
			stmt.AddedColumn = p.columnDef()
		} else {
			p.fail("expected RENAME, ALTER, DROP, or ADD after table name")
		}
	}
	return stmt
}

// --- Expressions (Pratt precedence climbing) ---

func (p *Parser) expression() ast.Node {
	return p.parsePrecedence(precOr)
}

func (p *Parser) parsePrecedence(minPrec int) ast.Node {
	left := p.unary()
	for !p.isAtEnd() {
		prec := precedenceOf(p.peek().Kind)
		if prec < minPrec || prec == precNone {
			break
		}
		opTok := p.advance()
		right := p.parsePrecedence(prec + 1)
		left = p.makeBinary(opTok, left, right)
	}
	return left
}

func (p *Parser) unary() ast.Node {
	if p.match(token.NOT) {
		operand := p.parsePrecedence(precUnaryNot)
		return &ast.UnaryNotExpr{Operand: operand}
	}
	return p.primary()
}

func (p *Parser) makeBinary(opTok token.Token, left, right ast.Node) ast.Node {
	switch opTok.Kind {
	case token.EQ:
		return &ast.BinaryExpr{Op: ast.OpEQ, Left: left, Right: right}
	case token.NE:
		return &ast.BinaryExpr{Op: ast.OpNE, Left: left, Right: right}
	case token.LT:
		return &ast.BinaryExpr{Op: ast.OpLT, Left: left, Right: right}
	case token.GT:
		return &ast.BinaryExpr{Op: ast.OpGT, Left: left, Right: right}
	case token.LE:
		return &ast.BinaryExpr{Op: ast.OpLE, Left: left, Right: right}
	case token.GE:
		return &ast.BinaryExpr{Op: ast.OpGE, Left: left, Right: right}
	case token.AND:
		return &ast.BinaryExpr{Op: ast.OpAND, Left: left, Right: right}
	case token.OR:
		return &ast.BinaryExpr{Op: ast.OpOR, Left: left, Right: right}
	default:
		p.fail("unexpected operator token")
		return nil
	}
}

func (p *Parser) primary() ast.Node {
	t := p.peek()
	switch t.Kind {
	case token.NUMBER, token.STRING, token.NULL, token.TRUE, token.FALSE:
		return &ast.LiteralExpr{Value: p.literalValue()}
	case token.IDENT:
		p.advance()
		ident := &ast.IdentifierExpr{Name: t.Lexeme}
		if p.check(token.LIKE) {
			return p.likeExpr(ident)
		}
		if p.check(token.IN) {
			return p.inExpr(ident)
		}
		return ident
	case token.LPAREN:
		p.advance()
		if p.check(token.SELECT) {
			sub := p.selectStatement()
			p.consume(token.RPAREN, "expected ')' after subquery")
			return &ast.SubqueryExpr{Select: sub}
		}
		inner := p.expression()
		p.consume(token.RPAREN, "expected ')' after expression")
		return inner
	default:
		p.fail("unexpected token in expression: '" + t.Lexeme + "'")
		return nil
	}
}

// likeExpr parses `x LIKE pattern`. Pattern syntax (%, _) is interpreted
// by the executor, not the parser (spec.md §4.2).
func (p *Parser) likeExpr(left ast.Node) ast.Node {
	p.consume(token.LIKE, "expected LIKE")
	pattern := p.consume(token.STRING, "expected string pattern after LIKE")
	return &ast.BinaryExpr{Op: ast.OpLIKE, Left: left, Right: &ast.LiteralExpr{Value: ast.StringValue(pattern.Literal.(string))}}
}

// inExpr parses `x IN (lit, ...)` and `x IN (SELECT ...)`.
func (p *Parser) inExpr(left ast.Node) ast.Node {
	p.consume(token.IN, "expected IN")
	p.consume(token.LPAREN, "expected '(' after IN")
	if p.check(token.SELECT) {
		sub := p.selectStatement()
		p.consume(token.RPAREN, "expected ')' after subquery")
		if len(sub.Columns) > 1 {
			p.error("subquery in IN must return exactly one column")
		}
		return &ast.BinaryExpr{Op: ast.OpIN, Left: left, Right: &ast.SubqueryExpr{Select: sub}}
	}
	values := p.valueList()
	p.consume(token.RPAREN, "expected ')' after value list")
	return &ast.BinaryExpr{Op: ast.OpIN, Left: left, Right: &ast.ValueListExpr{Values: values}}
}
