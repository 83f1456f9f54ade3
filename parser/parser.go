// Package parser implements a recursive-descent parser for the
// Pascal-like source language, producing an [ast.Program] (or, for
// fragment compilation, a standalone [ast.Expression]/[ast.Statement]).
//
// Expression parsing follows the classic Pascal precedence ladder:
// relational operators are non-associative and bind loosest, additive
// operators (`+ - OR`) and multiplicative operators (`* / DIV MOD AND`)
// are left-associative, and unary operators (`NOT + -`) bind tightest
// and associate to the right. Dangling `ELSE` resolves to the nearest
// unmatched `IF` for free, by the usual recursive-descent argument: each
// call to parseIf consumes the `ELSE` immediately following its own
// `THEN` branch before returning to its caller.
package parser

import (
	"fmt"

	"github.com/pascalc/pascalc/ast"
	"github.com/pascalc/pascalc/lexer"
	"github.com/pascalc/pascalc/token"
)

// Parser turns a token stream into an AST. Errors accumulate in errors;
// a syntax error does not stop parsing outright, but ParseProgram's
// result should not be trusted for codegen unless Errors is empty.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	cur  token.Token
	peek token.Token

	debug bool
	trace []string
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Errors returns the syntax errors accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

// SetDebug enables grammar-rule tracing: every entry into a production
// records a line, available afterward via Trace. This is the `debug`
// flag's "verbose parser trace".
func (p *Parser) SetDebug(on bool) { p.debug = on }

// Trace returns the accumulated rule-entry trace, one line per
// production entered, in parse order.
func (p *Parser) Trace() []string { return p.trace }

func (p *Parser) enter(rule string) {
	if p.debug {
		p.trace = append(p.trace, fmt.Sprintf("line %d: %s", p.cur.Line, rule))
	}
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) peekIs(k token.Kind) bool { return p.peek.Kind == k }

// expect advances past the current token if it has kind k, reporting a
// syntax error (and not advancing) otherwise.
func (p *Parser) expect(k token.Kind) bool {
	if p.curIs(k) {
		p.next()
		return true
	}
	p.errorf("expected %s, got %s", k, p.cur)
	return false
}

func (p *Parser) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.cur.Line, msg))
}

// ParseProgram parses a full `program : PROGRAM ID declarations
// procedures compound_statement` translation unit.
func (p *Parser) ParseProgram() *ast.Program {
	p.enter("program")
	p.expect(token.PROGRAM)
	name := p.cur
	p.expect(token.IDENT)
	decls := p.parseDeclarations()
	procs := p.parseProcedures()
	body := p.parseCompound()
	return ast.NewProgram(name, decls, procs, body)
}

// ParseExpression parses a single standalone expression — the `start`
// grammar-override entry point used for fragment compilation.
func (p *Parser) ParseExpression() ast.Expression {
	return p.parseExpr()
}

// ParseStatement parses a single standalone statement, the other
// fragment-compilation entry point.
func (p *Parser) ParseStatement() ast.Statement {
	return p.parseStatement()
}

// declarations : VAR decl_list ';' | ε
func (p *Parser) parseDeclarations() *ast.Declarations {
	p.enter("declarations")
	line := p.cur.Line
	if !p.curIs(token.VAR) {
		return ast.NewDeclarations(line, nil)
	}
	p.next()

	var list []*ast.Declaration
	for {
		d := p.parseDeclaration()
		if d != nil {
			list = append(list, d)
		}
		if !p.expect(token.SEMICOLON) {
			break
		}
		if !p.curIs(token.IDENT) {
			break
		}
	}
	return ast.NewDeclarations(line, list)
}

// decl : id_list ':' type
func (p *Parser) parseDeclaration() *ast.Declaration {
	p.enter("decl")
	if !p.curIs(token.IDENT) {
		p.errorf("expected identifier, got %s", p.cur)
		return nil
	}
	names := []token.Token{p.cur}
	p.next()
	for p.curIs(token.COMMA) {
		p.next()
		if !p.curIs(token.IDENT) {
			p.errorf("expected identifier, got %s", p.cur)
			break
		}
		names = append(names, p.cur)
		p.next()
	}

	if !p.expect(token.COLON) {
		return ast.NewDeclaration(names, token.Token{})
	}

	typeTok := p.cur
	if typeTok.Kind != token.INTEGER && typeTok.Kind != token.REAL {
		p.errorf("expected INTEGER or REAL, got %s", p.cur)
	}
	p.next()
	return ast.NewDeclaration(names, typeTok)
}

// parameters : '(' decl_list ')' | ε
func (p *Parser) parseParameters() *ast.Parameters {
	p.enter("parameters")
	line := p.cur.Line
	if !p.curIs(token.LPAREN) {
		return ast.NewParameters(line, nil)
	}
	p.next()

	var list []*ast.Declaration
	if !p.curIs(token.RPAREN) {
		for {
			d := p.parseDeclaration()
			if d != nil {
				list = append(list, d)
			}
			if p.curIs(token.SEMICOLON) {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(token.RPAREN)
	return ast.NewParameters(line, list)
}

// procedures : proc_list | ε
func (p *Parser) parseProcedures() *ast.Procedures {
	p.enter("procedures")
	line := p.cur.Line
	var list []*ast.Procedure
	for p.curIs(token.PROCEDURE) {
		list = append(list, p.parseProcedure())
	}
	return ast.NewProcedures(line, list)
}

// procedure : PROCEDURE ID parameters ';' declarations compound_statement ';'
func (p *Parser) parseProcedure() *ast.Procedure {
	p.enter("procedure")
	p.next() // consume PROCEDURE
	name := p.cur
	p.expect(token.IDENT)
	params := p.parseParameters()
	p.expect(token.SEMICOLON)
	decls := p.parseDeclarations()
	body := p.parseCompound()
	p.expect(token.SEMICOLON)
	return ast.NewProcedure(name, params, decls, body)
}

// compound_stmt : BEGIN stmt_list END
func (p *Parser) parseCompound() *ast.Compound {
	p.enter("compound_stmt")
	line := p.cur.Line
	p.expect(token.BEGIN)

	stmts := []ast.Statement{p.parseStatement()}
	for p.curIs(token.SEMICOLON) {
		p.next()
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(token.END)
	return ast.NewCompound(line, stmts)
}

func (p *Parser) parseStatement() ast.Statement {
	p.enter("stmt")
	switch p.cur.Kind {
	case token.IDENT:
		return p.parseIdentStatement()
	case token.WHILE:
		return p.parseWhile()
	case token.IF:
		return p.parseIf()
	case token.PRINT:
		return p.parsePrint()
	case token.BEGIN:
		return p.parseCompound()
	default:
		p.errorf("unexpected token %s at start of statement", p.cur)
		p.next()
		return nil
	}
}

// stmt : ID ':=' expr | ID arguments
func (p *Parser) parseIdentStatement() ast.Statement {
	name := p.cur
	if p.peekIs(token.ASSIGN) {
		p.next() // cur = ASSIGN
		p.next() // cur = start of expr
		value := p.parseExpr()
		return ast.NewAssignment(name, value)
	}
	p.next() // consume ID
	var args *ast.Arguments
	if p.curIs(token.LPAREN) {
		args = p.parseArguments()
	}
	return ast.NewProcedureCall(name, args)
}

// arguments : '(' actual_list ')' | ε
func (p *Parser) parseArguments() *ast.Arguments {
	p.enter("arguments")
	line := p.cur.Line
	p.next() // consume '('

	var exprs []ast.Expression
	if !p.curIs(token.RPAREN) {
		exprs = append(exprs, p.parseExpr())
		for p.curIs(token.COMMA) {
			p.next()
			exprs = append(exprs, p.parseExpr())
		}
	}
	p.expect(token.RPAREN)
	return ast.NewArguments(line, exprs)
}

func (p *Parser) parseWhile() ast.Statement {
	line := p.cur.Line
	p.next() // consume WHILE
	cond := p.parseExpr()
	p.expect(token.DO)
	body := p.parseStatement()
	return ast.NewWhile(line, cond, body)
}

// parseIf binds a trailing ELSE to the innermost IF still awaiting one,
// because this call consumes it before returning control to any
// enclosing parseIf.
func (p *Parser) parseIf() ast.Statement {
	line := p.cur.Line
	p.next() // consume IF
	cond := p.parseExpr()
	p.expect(token.THEN)
	then := p.parseStatement()
	if p.curIs(token.ELSE) {
		p.next()
		els := p.parseStatement()
		return ast.NewIfElse(line, cond, then, els)
	}
	return ast.NewIf(line, cond, then)
}

func (p *Parser) parsePrint() ast.Statement {
	line := p.cur.Line
	p.next() // consume PRINT
	p.expect(token.LPAREN)
	expr := p.parseExpr()
	p.expect(token.RPAREN)
	return ast.NewPrint(line, expr)
}

// expr : simple_expr (relop simple_expr)?  — relational is non-associative
func (p *Parser) parseExpr() ast.Expression {
	p.enter("expr")
	left := p.parseSimpleExpr()
	if isRelop(p.cur.Kind) {
		op := p.cur
		p.next()
		right := p.parseSimpleExpr()
		return ast.NewBinaryExpression(op, left, right)
	}
	return left
}

func isRelop(k token.Kind) bool {
	switch k {
	case token.LT, token.LE, token.EQ, token.NE, token.GT, token.GE:
		return true
	default:
		return false
	}
}

// simple_expr : term (addop term)*   — '+', '-', 'OR' are addop
func (p *Parser) parseSimpleExpr() ast.Expression {
	p.enter("simple_expr")
	left := p.parseTerm()
	for isAddop(p.cur.Kind) {
		op := p.cur
		p.next()
		right := p.parseTerm()
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left
}

func isAddop(k token.Kind) bool {
	switch k {
	case token.PLUS, token.MINUS, token.OR:
		return true
	default:
		return false
	}
}

// term : factor (mulop factor)*   — '*', '/', 'DIV', 'MOD', 'AND' are mulop
func (p *Parser) parseTerm() ast.Expression {
	p.enter("term")
	left := p.parseFactor()
	for isMulop(p.cur.Kind) {
		op := p.cur
		p.next()
		right := p.parseFactor()
		left = ast.NewBinaryExpression(op, left, right)
	}
	return left
}

func isMulop(k token.Kind) bool {
	switch k {
	case token.TIMES, token.DIVIDE, token.DIV, token.MOD, token.AND:
		return true
	default:
		return false
	}
}

// factor : unop factor | '(' expr ')' | atom
func (p *Parser) parseFactor() ast.Expression {
	p.enter("factor")
	switch p.cur.Kind {
	case token.NOT, token.PLUS, token.MINUS:
		op := p.cur
		p.next()
		operand := p.parseFactor()
		return ast.NewUnaryExpression(op, operand)
	case token.LPAREN:
		p.next()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e
	default:
		return p.parseAtom()
	}
}

// atom : INTEGER_CONSTANT | REAL_CONSTANT | ID | TRUE | FALSE
func (p *Parser) parseAtom() ast.Expression {
	p.enter("atom")
	tok := p.cur
	switch tok.Kind {
	case token.INTEGER_CONSTANT, token.REAL_CONSTANT, token.IDENT, token.TRUE, token.FALSE:
		p.next()
		return ast.NewTerminalExpression(tok)
	default:
		p.errorf("unexpected token %s in expression", tok)
		p.next()
		return ast.NewTerminalExpression(tok)
	}
}
