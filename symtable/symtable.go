// Package symtable implements the lexically scoped symbol table used by
// codegen: one table per scope (the program, or a single procedure),
// linked to its parent, holding declared/parameter/temporary/constant
// entries and per-procedure activation-record bookkeeping.
package symtable

import (
	"strconv"

	"github.com/pascalc/pascalc/token"
)

// DataType is the closed set of value types. BOOLEAN is never
// user-declarable — it only arises as an expression's synthesized type.
type DataType int

const (
	INTEGER DataType = iota
	REAL
	BOOLEAN
)

// Width returns the storage width in bytes for d.
func (d DataType) Width() int {
	switch d {
	case INTEGER:
		return 4
	case REAL:
		return 8
	case BOOLEAN:
		return 1
	default:
		return 0
	}
}

// String renders d the way it appears in temporary names
// ("temporary_INTEGER_3" etc); CType gives its C declaration type.
func (d DataType) String() string {
	switch d {
	case INTEGER:
		return "INTEGER"
	case REAL:
		return "REAL"
	case BOOLEAN:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}

// CType returns the C declaration type for d.
func (d DataType) CType() string {
	switch d {
	case INTEGER:
		return "int"
	case REAL:
		return "double"
	case BOOLEAN:
		return "int"
	default:
		return "void"
	}
}

// EntryType classifies why an identifier occurs in a scope.
type EntryType int

const (
	DECLARATION EntryType = iota
	PARAMETER
	TEMPORARY
	CONSTANT
)

// Entry is a single identifier occurrence within a SymbolTable.
type Entry struct {
	Token     token.Token
	Offset    int
	Width     int
	DataType  DataType
	EntryType EntryType
	Owner     *SymbolTable
	TempIndex int // 1-based slot for TEMPORARY entries, used to name temporary_<T>[index-1]
}

// Lexeme is a convenience accessor over the owning token's text.
func (e *Entry) Lexeme() string { return e.Token.Lexeme }

// Warning is a recoverable shadowing notice: redeclaring an identifier or
// procedure in the same scope. It never aborts compilation.
type Warning struct {
	Message string
}

func (w *Warning) Error() string { return w.Message }

// SymbolTable represents one lexical scope: the program, or a single
// procedure one level deep (spec: no nested procedures beyond one level).
type SymbolTable struct {
	Header     token.Token
	Parent     *SymbolTable
	Entries    map[string]*Entry
	order      []string // insertion order of Entries, for deterministic iteration
	Procedures map[string]*SymbolTable
	procOrder  []string
	Parameters []*Entry

	NextAvailableTemporary map[DataType]int
	MaxCountOfTemporary    map[DataType]int
	temporaryEntries       map[DataType]map[int]*Entry

	Offset         int
	BeginCodeLabel any // *tac.Label; any to avoid an import cycle with tac
}

// New creates a root (program) or nested (procedure) SymbolTable.
// parent is nil for the program scope.
func New(header token.Token, parent *SymbolTable) *SymbolTable {
	return &SymbolTable{
		Header:     header,
		Parent:     parent,
		Entries:    make(map[string]*Entry),
		Procedures: make(map[string]*SymbolTable),
		Parameters: nil,
		NextAvailableTemporary: map[DataType]int{
			INTEGER: 0,
			REAL:    0,
		},
		MaxCountOfTemporary: map[DataType]int{
			INTEGER: 0,
			REAL:    0,
		},
		temporaryEntries: map[DataType]map[int]*Entry{
			INTEGER: {},
			REAL:    {},
		},
	}
}

// InsertEntry inserts (or idempotently returns) an Entry for tok in this
// scope. A CONSTANT entry for a lexeme already present is returned
// unchanged with no warning (spec invariant 4); any other redeclaration
// shadows the prior entry and produces a Warning.
func (s *SymbolTable) InsertEntry(tok token.Token, dt DataType, et EntryType) (*Entry, *Warning) {
	lexeme := tok.Lexeme
	var warning *Warning
	if existing, ok := s.Entries[lexeme]; ok {
		if existing.EntryType == CONSTANT {
			return existing, nil
		}
		warning = &Warning{Message: "redeclared identifier '" + lexeme + "' shadows a previous declaration in the same scope"}
	} else {
		s.order = append(s.order, lexeme)
	}
	entry := &Entry{
		Token:     tok,
		Offset:    s.Offset,
		Width:     dt.Width(),
		DataType:  dt,
		EntryType: et,
		Owner:     s,
	}
	s.Entries[lexeme] = entry
	s.Offset += entry.Width
	return entry, warning
}

// InsertProcedure creates (or overwrites) a child SymbolTable for the
// procedure named by tok, parented to s.
func (s *SymbolTable) InsertProcedure(tok token.Token) (*SymbolTable, *Warning) {
	lexeme := tok.Lexeme
	var warning *Warning
	if _, ok := s.Procedures[lexeme]; ok {
		warning = &Warning{Message: "redeclared procedure '" + lexeme + "' shadows a previous procedure in the same scope"}
	} else {
		s.procOrder = append(s.procOrder, lexeme)
	}
	child := New(tok, s)
	s.Procedures[lexeme] = child
	return child, warning
}

// LookupEntry walks from s up through Parent links, returning the first
// scope's matching Entry, or nil if none is found. Each step reads from
// the scope currently under inspection (not always s.Entries).
func (s *SymbolTable) LookupEntry(tok token.Token) *Entry {
	for cur := s; cur != nil; cur = cur.Parent {
		if e, ok := cur.Entries[tok.Lexeme]; ok {
			return e
		}
	}
	return nil
}

// LookupProcedure is the procedure-table analogue of LookupEntry.
func (s *SymbolTable) LookupProcedure(tok token.Token) *SymbolTable {
	for cur := s; cur != nil; cur = cur.Parent {
		if p, ok := cur.Procedures[tok.Lexeme]; ok {
			return p
		}
	}
	return nil
}

// OrderedEntries returns this scope's declared Entries (DECLARATION and
// PARAMETER only) in insertion order, for deterministic C declaration
// emission.
func (s *SymbolTable) OrderedEntries() []*Entry {
	out := make([]*Entry, 0, len(s.order))
	for _, lexeme := range s.order {
		e := s.Entries[lexeme]
		if e.EntryType == DECLARATION || e.EntryType == PARAMETER {
			out = append(out, e)
		}
	}
	return out
}

// OrderedProcedures returns this scope's child procedure tables in
// declaration order.
func (s *SymbolTable) OrderedProcedures() []*SymbolTable {
	out := make([]*SymbolTable, 0, len(s.procOrder))
	for _, lexeme := range s.procOrder {
		out = append(out, s.Procedures[lexeme])
	}
	return out
}

// NewTemp allocates (or recycles) a temporary Entry of type d in this
// scope: it increments NextAvailableTemporary[d], raising
// MaxCountOfTemporary[d] and minting a fresh Entry only when the new
// count exceeds the prior high-water mark; otherwise it reuses the
// existing Entry for that slot.
func (s *SymbolTable) NewTemp(d DataType) *Entry {
	s.NextAvailableTemporary[d]++
	n := s.NextAvailableTemporary[d]
	if n > s.MaxCountOfTemporary[d] {
		s.MaxCountOfTemporary[d] = n
		entry := &Entry{
			Token:     token.Token{Kind: token.IDENT, Lexeme: tempLexeme(d, n)},
			DataType:  d,
			EntryType: TEMPORARY,
			Owner:     s,
			TempIndex: n,
		}
		s.temporaryEntries[d][n] = entry
		return entry
	}
	return s.temporaryEntries[d][n]
}

// FreeTemp releases the most recently allocated temporary of type d,
// making its slot eligible for reuse on the next NewTemp(d). The
// Entry itself persists; only NextAvailableTemporary is decremented.
func (s *SymbolTable) FreeTemp(d DataType) {
	if s.NextAvailableTemporary[d] > 0 {
		s.NextAvailableTemporary[d]--
	}
}

func tempLexeme(d DataType, n int) string {
	return "temporary_" + d.String() + "_" + strconv.Itoa(n)
}
