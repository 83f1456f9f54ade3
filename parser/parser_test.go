package parser

import (
	"testing"

	"github.com/pascalc/pascalc/ast"
	"github.com/pascalc/pascalc/lexer"
	"github.com/pascalc/pascalc/token"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parser errors for %q: %v", src, p.Errors())
	}
	return prog
}

func TestParseMinimalProgram(t *testing.T) {
	prog := parseOK(t, `PROGRAM p VAR x: INTEGER; BEGIN x := 1 + 2 END`)
	if prog.Name.Lexeme != "p" {
		t.Fatalf("expected program name 'p', got %q", prog.Name.Lexeme)
	}
	if len(prog.Decls.List) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(prog.Decls.List))
	}
	assign, ok := prog.Body.Stmts[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected an Assignment statement, got %T", prog.Body.Stmts[0])
	}
	if assign.Name.Lexeme != "x" {
		t.Fatalf("expected assignment to 'x', got %q", assign.Name.Lexeme)
	}
}

func TestDanglingElseBindsToNearestIf(t *testing.T) {
	prog := parseOK(t, `PROGRAM p VAR x,y: INTEGER; BEGIN IF x < y THEN IF y < x THEN x := 1 ELSE x := 2 END`)
	outer, ok := prog.Body.Stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("expected outer statement to be a plain If, got %T", prog.Body.Stmts[0])
	}
	_, ok = outer.Then.(*ast.IfElse)
	if !ok {
		t.Fatalf("expected the ELSE to bind to the inner IF, got %T", outer.Then)
	}
}

func TestRelationalIsNonAssociative(t *testing.T) {
	p := New(lexer.New(`x < y < z`))
	expr := p.ParseExpression()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	bin, ok := expr.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected BinaryExpression, got %T", expr)
	}
	if bin.Op.Kind != token.LT {
		t.Fatalf("expected '<' at the top, got %s", bin.Op.Lexeme)
	}
	_, leftNested := bin.Left.(*ast.BinaryExpression)
	_, rightNested := bin.Right.(*ast.BinaryExpression)
	if leftNested || rightNested {
		t.Fatalf("expected relational operators not to chain, got %#v", bin)
	}
}

func TestAdditiveLeftAssociative(t *testing.T) {
	p := New(lexer.New(`1 - 2 - 3`))
	expr := p.ParseExpression()
	top, ok := expr.(*ast.BinaryExpression)
	if !ok || top.Op.Kind != token.MINUS {
		t.Fatalf("expected top-level '-', got %#v", expr)
	}
	left, ok := top.Left.(*ast.BinaryExpression)
	if !ok || left.Op.Kind != token.MINUS {
		t.Fatalf("expected left-associative grouping (1-2)-3, got %#v", top.Left)
	}
}

func TestMultiplicativeBindsTighterThanAdditive(t *testing.T) {
	p := New(lexer.New(`1 + 2 * 3`))
	expr := p.ParseExpression()
	top, ok := expr.(*ast.BinaryExpression)
	if !ok || top.Op.Kind != token.PLUS {
		t.Fatalf("expected top-level '+', got %#v", expr)
	}
	right, ok := top.Right.(*ast.BinaryExpression)
	if !ok || right.Op.Kind != token.TIMES {
		t.Fatalf("expected '*' nested under '+', got %#v", top.Right)
	}
}

func TestUnaryIsRightAssociative(t *testing.T) {
	p := New(lexer.New(`- - x`))
	expr := p.ParseExpression()
	outer, ok := expr.(*ast.UnaryExpression)
	if !ok || outer.Op.Kind != token.MINUS {
		t.Fatalf("expected outer unary '-', got %#v", expr)
	}
	_, ok = outer.Operand.(*ast.UnaryExpression)
	if !ok {
		t.Fatalf("expected nested unary operand, got %#v", outer.Operand)
	}
}

func TestProcedureCallWithAndWithoutArguments(t *testing.T) {
	prog := parseOK(t, `PROGRAM p
PROCEDURE inc(n: INTEGER);
BEGIN
  n := n + 1
END;
BEGIN
  inc(1);
  inc
END`)
	call1, ok := prog.Body.Stmts[0].(*ast.ProcedureCall)
	if !ok || call1.Args == nil || len(call1.Args.Exprs) != 1 {
		t.Fatalf("expected a call with one argument, got %#v", prog.Body.Stmts[0])
	}
	call2, ok := prog.Body.Stmts[1].(*ast.ProcedureCall)
	if !ok || call2.Args != nil {
		t.Fatalf("expected a call with no argument list, got %#v", prog.Body.Stmts[1])
	}
}

func TestProcedureWithMultipleParameters(t *testing.T) {
	prog := parseOK(t, `PROGRAM p
PROCEDURE add(a, b: INTEGER; c: REAL);
BEGIN
  PRINT(a)
END;
BEGIN
  add(1, 2, 3.0)
END`)
	proc := prog.Procs.List[0]
	if len(proc.Params.List) != 2 {
		t.Fatalf("expected 2 declaration groups in parameter list, got %d", len(proc.Params.List))
	}
	if len(proc.Params.List[0].Names) != 2 {
		t.Fatalf("expected 2 names in the first parameter group, got %d", len(proc.Params.List[0].Names))
	}
}

func TestWhileAndPrint(t *testing.T) {
	prog := parseOK(t, `PROGRAM p VAR x: INTEGER; BEGIN WHILE x < 10 DO PRINT(x) END`)
	w, ok := prog.Body.Stmts[0].(*ast.While)
	if !ok {
		t.Fatalf("expected a While statement, got %T", prog.Body.Stmts[0])
	}
	if _, ok := w.Body.(*ast.Print); !ok {
		t.Fatalf("expected the while body to be a Print statement, got %T", w.Body)
	}
}

func TestSyntaxErrorIsReported(t *testing.T) {
	p := New(lexer.New(`PROGRAM p VAR x INTEGER; BEGIN x := 1 END`))
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected a syntax error for the missing ':'")
	}
}
