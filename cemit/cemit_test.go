package cemit_test

import (
	"strings"
	"testing"

	"github.com/pascalc/pascalc/cemit"
	"github.com/pascalc/pascalc/codegen"
	"github.com/pascalc/pascalc/lexer"
	"github.com/pascalc/pascalc/parser"
	"github.com/pascalc/pascalc/tac"
)

func compile(t *testing.T, src string) (*codegen.CodeGenerator, *tac.Sequence) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	cg := codegen.New(false)
	seq := cg.Generate(prog)
	if cg.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", cg.Diagnostics)
	}
	return cg, seq
}

func TestRenderDeclarationAsBareVariable(t *testing.T) {
	cg, seq := compile(t, `PROGRAM p VAR x: INTEGER; BEGIN x := 1 END`)
	out, err := cemit.Render(seq, cg.Root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "int x;") {
		t.Fatalf("expected a bare 'int x;' declaration, got:\n%s", out)
	}
}

func TestRenderIfElseShape(t *testing.T) {
	cg, seq := compile(t, `PROGRAM p VAR x,y,z: INTEGER; BEGIN IF x < y THEN z := 1 ELSE z := 2 END`)
	out, err := cemit.Render(seq, cg.Root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "if (x < y) goto l") {
		t.Fatalf("expected a conditional goto guarding the THEN branch, got:\n%s", out)
	}
	if strings.Count(out, "goto l") < 3 {
		t.Fatalf("expected the conditional jump plus both then/else exit jumps, got:\n%s", out)
	}
}

func TestRenderRefusesFragment(t *testing.T) {
	p := parser.New(lexer.New(`x := 1 + 2`))
	stmt := p.ParseStatement()
	cg := codegen.New(true)
	seq := cg.GenerateFragment(stmt)
	if _, err := cemit.Render(seq, cg.Root); err == nil {
		t.Fatalf("expected Render to refuse a fragment-mode sequence")
	}
}

func TestRenderProcedureCallShape(t *testing.T) {
	cg, seq := compile(t, `PROGRAM p
VAR x: INTEGER;
PROCEDURE inc(n: INTEGER);
BEGIN
  n := n + 1
END;
BEGIN
  inc(x)
END`)
	out, err := cemit.Render(seq, cg.Root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "struct activation_record_inc {") {
		t.Fatalf("expected an activation record struct for 'inc', got:\n%s", out)
	}
	if !strings.Contains(out, "malloc(sizeof(ActivationRecord_inc))") {
		t.Fatalf("expected a heap-allocated activation record at the call site, got:\n%s", out)
	}
	if !strings.Contains(out, "->return_address = &&l") {
		t.Fatalf("expected a computed-goto return address, got:\n%s", out)
	}
	if !strings.Contains(out, "goto *return_address;") {
		t.Fatalf("expected a computed goto on return, got:\n%s", out)
	}
	if !strings.Contains(out, "->parameters.n") {
		t.Fatalf("expected the parameter to be addressed through the activation record, got:\n%s", out)
	}
}

func TestRenderPrintPicksFormatByType(t *testing.T) {
	cg, seq := compile(t, `PROGRAM p VAR x: REAL; BEGIN x := 1.0; PRINT(x) END`)
	out, err := cemit.Render(seq, cg.Root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `printf("%f\n", x);`) {
		t.Fatalf("expected a %%f format for a REAL print, got:\n%s", out)
	}
}

func TestRenderTemporaryArrayDeclaration(t *testing.T) {
	cg, seq := compile(t, `PROGRAM p VAR x,y,z: INTEGER; BEGIN x := 1 + 2 + 3 END`)
	out, err := cemit.Render(seq, cg.Root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "temporary_INTEGER[") {
		t.Fatalf("expected a temporary array declaration, got:\n%s", out)
	}
}
