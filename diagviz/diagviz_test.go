package diagviz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pascalc/pascalc/lexer"
	"github.com/pascalc/pascalc/parser"
)

func TestWriteProducesSVGWithNodeCounts(t *testing.T) {
	p := parser.New(lexer.New(`PROGRAM p VAR x: INTEGER; BEGIN x := 1 + 2 END`))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}

	path := filepath.Join(t.TempDir(), "p.syntax.svg")
	if err := Write(path, prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "<svg") {
		t.Fatalf("expected an <svg> root element, got:\n%s", out)
	}
	if !strings.Contains(out, "BinaryExpression") {
		t.Fatalf("expected the node-count summary to mention BinaryExpression, got:\n%s", out)
	}
}
