package symtable

import (
	"testing"

	"github.com/pascalc/pascalc/token"
)

func ident(lexeme string) token.Token {
	return token.Token{Kind: token.IDENT, Lexeme: lexeme}
}

func TestInsertAndLookupEntry(t *testing.T) {
	root := New(ident("program"), nil)
	e, w := root.InsertEntry(ident("x"), INTEGER, DECLARATION)
	if w != nil {
		t.Fatalf("unexpected warning: %v", w)
	}
	if e.Offset != 0 || e.Width != 4 {
		t.Fatalf("unexpected entry: %+v", e)
	}

	found := root.LookupEntry(ident("x"))
	if found != e {
		t.Fatalf("lookup did not return the inserted entry")
	}
}

func TestShadowWarning(t *testing.T) {
	root := New(ident("program"), nil)
	root.InsertEntry(ident("x"), INTEGER, DECLARATION)
	_, w := root.InsertEntry(ident("x"), REAL, DECLARATION)
	if w == nil {
		t.Fatalf("expected shadow warning on redeclaration")
	}
}

func TestConstantIdempotent(t *testing.T) {
	root := New(ident("program"), nil)
	c1, w1 := root.InsertEntry(ident("1"), INTEGER, CONSTANT)
	if w1 != nil {
		t.Fatalf("unexpected warning on first constant insert")
	}
	c2, w2 := root.InsertEntry(ident("1"), INTEGER, CONSTANT)
	if w2 != nil {
		t.Fatalf("re-inserting a constant must not warn")
	}
	if c1 != c2 {
		t.Fatalf("re-inserting the same constant must return the same entry")
	}
}

func TestLookupWalksParentChain(t *testing.T) {
	root := New(ident("program"), nil)
	root.InsertEntry(ident("g"), INTEGER, DECLARATION)
	child := New(ident("proc"), root)

	found := child.LookupEntry(ident("g"))
	if found == nil {
		t.Fatalf("expected to find 'g' via parent chain")
	}

	if child.LookupEntry(ident("missing")) != nil {
		t.Fatalf("expected nil for an undeclared identifier")
	}
}

func TestNewTempAndFreeTemp(t *testing.T) {
	root := New(ident("program"), nil)
	t1 := root.NewTemp(INTEGER)
	if t1.TempIndex != 1 || root.MaxCountOfTemporary[INTEGER] != 1 {
		t.Fatalf("unexpected state after first NewTemp: %+v max=%d", t1, root.MaxCountOfTemporary[INTEGER])
	}
	root.FreeTemp(INTEGER)
	if root.NextAvailableTemporary[INTEGER] != 0 {
		t.Fatalf("FreeTemp should undo the NewTemp increment")
	}
	if root.MaxCountOfTemporary[INTEGER] != 1 {
		t.Fatalf("FreeTemp must not lower the high-water mark")
	}

	t2 := root.NewTemp(INTEGER)
	if t2 != t1 {
		t.Fatalf("expected the freed temporary's entry to be recycled")
	}
	if root.MaxCountOfTemporary[INTEGER] != 1 {
		t.Fatalf("recycling a temp must not raise the high-water mark again")
	}
}

func TestInsertProcedureShadow(t *testing.T) {
	root := New(ident("program"), nil)
	_, w1 := root.InsertProcedure(ident("p"))
	if w1 != nil {
		t.Fatalf("unexpected warning on first procedure insert")
	}
	_, w2 := root.InsertProcedure(ident("p"))
	if w2 == nil {
		t.Fatalf("expected shadow warning on redeclared procedure")
	}
}
