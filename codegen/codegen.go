// Package codegen implements the syntax-directed translator: it walks an
// [ast.Program] and emits three-address code, building the symbol table
// as it goes and performing Aho/Sethi/Ullman backpatched short-circuit
// translation of boolean and control-flow expressions.
//
// CodeGenerator is the single owner of all mutable compilation state —
// the symbol-table tree, the instruction sequence, and the current-scope
// pointer — for the duration of one Generate call.
package codegen

import (
	"fmt"

	"github.com/pascalc/pascalc/ast"
	"github.com/pascalc/pascalc/symtable"
	"github.com/pascalc/pascalc/tac"
	"github.com/pascalc/pascalc/token"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one accumulated error or shadow warning. Errors fail the
// overall run once generation completes; warnings do not.
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Severity, d.Message)
}

// CodeGenerator orchestrates one translation run: it drives the AST
// traversal via [ast.Visitor], owns the instruction [tac.Sequence], and
// tracks the current symbol-table scope (swapped on procedure entry,
// restored on exit — stack discipline, never a stack of its own).
type CodeGenerator struct {
	Seq  *tac.Sequence
	Root *symtable.SymbolTable

	current *symtable.SymbolTable

	Diagnostics []Diagnostic

	// Relaxed enables semantic_analysis_relaxed mode: undeclared
	// identifiers and procedures are auto-inserted with a default type
	// instead of reported, for testing expression fragments in
	// isolation.
	Relaxed bool
}

// New creates a CodeGenerator ready to Generate a Program, or
// GenerateFragment an isolated expression/statement.
func New(relaxed bool) *CodeGenerator {
	return &CodeGenerator{Seq: tac.NewSequence(), Relaxed: relaxed}
}

// Generate translates a whole program, returning the emitted sequence.
// Diagnostics accumulate on c.Diagnostics; check HasErrors afterward.
func (c *CodeGenerator) Generate(program *ast.Program) *tac.Sequence {
	program.Accept(c)
	return c.Seq
}

// GenerateFragment translates a single expression or statement in
// isolation, outside any Program — the `start` grammar-override
// workflow. It establishes a synthetic root scope on first use.
// Undeclared names are auto-inserted only when the generator was
// created with relaxed set; otherwise they are reported as errors, as
// in a whole program. The resulting sequence carries no BeginProgram/
// EndProgram bracketing; cemit refuses to render it as a standalone
// translation unit.
func (c *CodeGenerator) GenerateFragment(node ast.Node) *tac.Sequence {
	if c.Root == nil {
		c.Root = symtable.New(token.Token{Kind: token.IDENT, Lexeme: "fragment"}, nil)
		c.current = c.Root
	}
	node.Accept(c)
	return c.Seq
}

// HasErrors reports whether any accumulated Diagnostic is an error
// (shadow warnings alone do not fail a run).
func (c *CodeGenerator) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (c *CodeGenerator) errorf(line int, format string, args ...any) {
	c.Diagnostics = append(c.Diagnostics, Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Line: line})
}

func (c *CodeGenerator) addWarning(w *symtable.Warning) {
	if w == nil {
		return
	}
	c.Diagnostics = append(c.Diagnostics, Diagnostic{Severity: SeverityWarning, Message: w.Message})
}

// lookupOrRelax resolves tok in the current scope, auto-inserting a
// default REAL declaration when nothing is found and Relaxed is on.
func (c *CodeGenerator) lookupOrRelax(tok token.Token) *symtable.Entry {
	if entry := c.current.LookupEntry(tok); entry != nil {
		return entry
	}
	if c.Relaxed {
		entry, _ := c.current.InsertEntry(tok, symtable.REAL, symtable.DECLARATION)
		return entry
	}
	return nil
}

// lookupProcedureOrRelax is the procedure analogue: relaxed mode
// auto-inserts an empty procedure (no parameters, no body) standing in
// for the undeclared callee.
func (c *CodeGenerator) lookupProcedureOrRelax(tok token.Token) *symtable.SymbolTable {
	if proc := c.current.LookupProcedure(tok); proc != nil {
		return proc
	}
	if c.Relaxed {
		proc, _ := c.current.InsertProcedure(tok)
		return proc
	}
	return nil
}

func (c *CodeGenerator) freeIfTemp(e *symtable.Entry) {
	if e != nil && e.EntryType == symtable.TEMPORARY {
		c.current.FreeTemp(e.DataType)
	}
}

func isArithmetic(d symtable.DataType) bool {
	return d == symtable.INTEGER || d == symtable.REAL
}

func isArithmeticOp(k token.Kind) bool {
	switch k {
	case token.PLUS, token.MINUS, token.TIMES, token.DIVIDE, token.DIV, token.MOD:
		return true
	default:
		return false
	}
}

func isRelationalOp(k token.Kind) bool {
	switch k {
	case token.LT, token.LE, token.EQ, token.NE, token.GT, token.GE:
		return true
	default:
		return false
	}
}

func dataTypeFromTypeToken(tok token.Token) symtable.DataType {
	if tok.Kind == token.REAL {
		return symtable.REAL
	}
	return symtable.INTEGER
}

func beginCodeLabel(s *symtable.SymbolTable) *tac.Label {
	if s == nil {
		return nil
	}
	l, _ := s.BeginCodeLabel.(*tac.Label)
	return l
}

func concat(lists ...[]*tac.Instruction) []*tac.Instruction {
	out := make([]*tac.Instruction, 0)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// --- Expression visitors ---

func (c *CodeGenerator) VisitBinaryExpression(n *ast.BinaryExpression) {
	n.Left.Accept(c)

	isLogical := n.Op.Kind == token.AND || n.Op.Kind == token.OR
	var marker *tac.Label
	if isLogical {
		marker = c.Seq.NewLabel()
		c.Seq.Emit(tac.NewLabelMark(marker))
	}

	n.Right.Accept(c)

	switch {
	case isArithmeticOp(n.Op.Kind):
		if !isArithmetic(n.Left.Type()) || !isArithmetic(n.Right.Type()) {
			c.errorf(n.Op.Line, "operator '%s' requires arithmetic operands", n.Op.Lexeme)
		}
		c.freeIfTemp(n.Left.Place())
		c.freeIfTemp(n.Right.Place())
		resultType := symtable.INTEGER
		if n.Left.Type() == symtable.REAL || n.Right.Type() == symtable.REAL {
			resultType = symtable.REAL
		}
		dst := c.current.NewTemp(resultType)
		c.Seq.Emit(tac.NewBinaryAssignment(n.Op, n.Left.Place(), n.Right.Place(), dst))
		n.SetPlace(dst)
		n.SetType(resultType)

	case isRelationalOp(n.Op.Kind):
		if !isArithmetic(n.Left.Type()) || !isArithmetic(n.Right.Type()) {
			c.errorf(n.Op.Line, "operator '%s' requires arithmetic operands", n.Op.Lexeme)
		}
		c.freeIfTemp(n.Left.Place())
		c.freeIfTemp(n.Right.Place())
		cjump := c.Seq.Emit(tac.NewConditionalJump(n.Op, n.Left.Place(), n.Right.Place()))
		ujump := c.Seq.Emit(tac.NewUnconditionalJump(nil))
		n.SetType(symtable.BOOLEAN)
		n.SetTruelist([]*tac.Instruction{cjump})
		n.SetFalselist([]*tac.Instruction{ujump})

	case isLogical:
		if n.Left.Type() != symtable.BOOLEAN || n.Right.Type() != symtable.BOOLEAN {
			c.errorf(n.Op.Line, "operator '%s' requires boolean operands", n.Op.Lexeme)
		}
		n.SetType(symtable.BOOLEAN)
		if n.Op.Kind == token.OR {
			tac.Backpatch(n.Left.Falselist(), marker)
			n.SetTruelist(concat(n.Left.Truelist(), n.Right.Truelist()))
			n.SetFalselist(n.Right.Falselist())
		} else {
			tac.Backpatch(n.Left.Truelist(), marker)
			n.SetTruelist(n.Right.Truelist())
			n.SetFalselist(concat(n.Left.Falselist(), n.Right.Falselist()))
		}

	default:
		c.errorf(n.Op.Line, "unsupported binary operator '%s'", n.Op.Lexeme)
	}
}

func (c *CodeGenerator) VisitUnaryExpression(n *ast.UnaryExpression) {
	n.Operand.Accept(c)

	switch n.Op.Kind {
	case token.NOT:
		if n.Operand.Type() != symtable.BOOLEAN {
			c.errorf(n.Op.Line, "NOT operand must be boolean")
		}
		n.SetType(symtable.BOOLEAN)
		n.SetTruelist(n.Operand.Falselist())
		n.SetFalselist(n.Operand.Truelist())

	case token.PLUS, token.MINUS:
		if !isArithmetic(n.Operand.Type()) {
			c.errorf(n.Op.Line, "unary '%s' operand must be arithmetic", n.Op.Lexeme)
		}
		dst := c.current.NewTemp(n.Operand.Type())
		c.Seq.Emit(tac.NewUnaryAssignment(n.Op, n.Operand.Place(), dst))
		n.SetPlace(dst)
		n.SetType(n.Operand.Type())

	default:
		c.errorf(n.Op.Line, "unsupported unary operator '%s'", n.Op.Lexeme)
	}
}

func (c *CodeGenerator) VisitTerminalExpression(n *ast.TerminalExpression) {
	switch n.Token.Kind {
	case token.IDENT:
		entry := c.lookupOrRelax(n.Token)
		if entry == nil {
			c.errorf(n.Token.Line, "undeclared identifier '%s'", n.Token.Lexeme)
			n.SetType(symtable.INTEGER)
			return
		}
		n.SetPlace(entry)
		n.SetType(entry.DataType)

	case token.INTEGER_CONSTANT:
		entry, _ := c.current.InsertEntry(n.Token, symtable.INTEGER, symtable.CONSTANT)
		n.SetPlace(entry)
		n.SetType(symtable.INTEGER)

	case token.REAL_CONSTANT:
		entry, _ := c.current.InsertEntry(n.Token, symtable.REAL, symtable.CONSTANT)
		n.SetPlace(entry)
		n.SetType(symtable.REAL)

	case token.TRUE:
		entry, _ := c.current.InsertEntry(n.Token, symtable.BOOLEAN, symtable.CONSTANT)
		n.SetPlace(entry)
		n.SetType(symtable.BOOLEAN)
		jump := c.Seq.Emit(tac.NewUnconditionalJump(nil))
		n.SetTruelist([]*tac.Instruction{jump})

	case token.FALSE:
		entry, _ := c.current.InsertEntry(n.Token, symtable.BOOLEAN, symtable.CONSTANT)
		n.SetPlace(entry)
		n.SetType(symtable.BOOLEAN)
		jump := c.Seq.Emit(tac.NewUnconditionalJump(nil))
		n.SetFalselist([]*tac.Instruction{jump})

	default:
		c.errorf(n.Token.Line, "unexpected token '%s' in expression", n.Token.Lexeme)
	}
}

// --- Statement visitors ---

func (c *CodeGenerator) VisitAssignment(n *ast.Assignment) {
	n.Value.Accept(c)

	entry := c.lookupOrRelax(n.Name)
	if entry == nil {
		c.errorf(n.Name.Line, "undeclared identifier '%s'", n.Name.Lexeme)
		return
	}
	if entry.DataType != n.Value.Type() {
		c.errorf(n.Name.Line, "cannot assign %s to %s '%s'", n.Value.Type(), entry.DataType, n.Name.Lexeme)
	}
	c.Seq.Emit(tac.NewBareAssignment(n.Value.Place(), entry))
	c.freeIfTemp(n.Value.Place())
}

func (c *CodeGenerator) VisitWhile(n *ast.While) {
	marker1 := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(marker1))

	n.Cond.Accept(c)
	if n.Cond.Type() != symtable.BOOLEAN {
		c.errorf(n.Line(), "while condition must be boolean")
	}

	marker2 := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(marker2))

	n.Body.Accept(c)

	tac.Backpatch(n.Body.Nextlist(), marker1)
	tac.Backpatch(n.Cond.Truelist(), marker2)
	c.Seq.Emit(tac.NewUnconditionalJump(marker1))
	n.SetNextlist(n.Cond.Falselist())
}

func (c *CodeGenerator) VisitIf(n *ast.If) {
	n.Cond.Accept(c)
	if n.Cond.Type() != symtable.BOOLEAN {
		c.errorf(n.Line(), "if condition must be boolean")
	}

	marker := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(marker))

	n.Then.Accept(c)

	tac.Backpatch(n.Cond.Truelist(), marker)
	n.SetNextlist(concat(n.Cond.Falselist(), n.Then.Nextlist()))
}

func (c *CodeGenerator) VisitIfElse(n *ast.IfElse) {
	n.Cond.Accept(c)
	if n.Cond.Type() != symtable.BOOLEAN {
		c.errorf(n.Line(), "if condition must be boolean")
	}

	marker1 := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(marker1))

	n.Then.Accept(c)

	u := c.Seq.Emit(tac.NewUnconditionalJump(nil))

	marker3 := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(marker3))

	n.Else.Accept(c)

	tac.Backpatch(n.Cond.Truelist(), marker1)
	tac.Backpatch(n.Cond.Falselist(), marker3)
	n.SetNextlist(concat(n.Then.Nextlist(), n.Else.Nextlist(), []*tac.Instruction{u}))
}

func (c *CodeGenerator) VisitProcedureCall(n *ast.ProcedureCall) {
	var argPlaces []*symtable.Entry
	var argTypes []symtable.DataType
	if n.Args != nil {
		n.Args.Accept(c)
		for _, arg := range n.Args.Exprs {
			argPlaces = append(argPlaces, arg.Place())
			argTypes = append(argTypes, arg.Type())
		}
	}

	proc := c.lookupProcedureOrRelax(n.Name)
	if proc == nil {
		c.errorf(n.Name.Line, "call to undeclared procedure '%s'", n.Name.Lexeme)
		return
	}

	params := proc.Parameters
	if len(argPlaces) != len(params) {
		c.errorf(n.Name.Line, "procedure '%s' expects %d argument(s), got %d", n.Name.Lexeme, len(params), len(argPlaces))
		return
	}
	for i, p := range params {
		if argTypes[i] != p.DataType {
			c.errorf(n.Name.Line, "argument %d to procedure '%s' has the wrong type", i+1, n.Name.Lexeme)
		}
	}

	returnLabel := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewCall(proc, returnLabel))
	for i, p := range params {
		c.Seq.Emit(tac.NewBareAssignment(argPlaces[i], p))
		c.freeIfTemp(argPlaces[i])
	}
	c.Seq.Emit(tac.NewUnconditionalJump(beginCodeLabel(proc)))
	c.Seq.Emit(tac.NewLabelMark(returnLabel))
}

func (c *CodeGenerator) VisitCompound(n *ast.Compound) {
	for i, stmt := range n.Stmts {
		stmt.Accept(c)
		if i < len(n.Stmts)-1 {
			if nl := stmt.Nextlist(); len(nl) > 0 {
				label := c.Seq.NewLabel()
				c.Seq.Emit(tac.NewLabelMark(label))
				tac.Backpatch(nl, label)
			}
		}
	}
	if len(n.Stmts) > 0 {
		n.SetNextlist(n.Stmts[len(n.Stmts)-1].Nextlist())
	}
}

func (c *CodeGenerator) VisitPrint(n *ast.Print) {
	n.Expr.Accept(c)
	c.Seq.Emit(tac.NewPrint(n.Expr.Place()))
	c.freeIfTemp(n.Expr.Place())
}

// --- Declarative visitors ---

func (c *CodeGenerator) VisitDeclaration(n *ast.Declaration) {
	dt := dataTypeFromTypeToken(n.TypeTok)
	for _, nameTok := range n.Names {
		_, warn := c.current.InsertEntry(nameTok, dt, symtable.DECLARATION)
		c.addWarning(warn)
	}
}

func (c *CodeGenerator) VisitDeclarations(n *ast.Declarations) {
	for _, d := range n.List {
		d.Accept(c)
	}
}

func (c *CodeGenerator) VisitParameters(n *ast.Parameters) {
	for _, d := range n.List {
		dt := dataTypeFromTypeToken(d.TypeTok)
		for _, nameTok := range d.Names {
			entry, warn := c.current.InsertEntry(nameTok, dt, symtable.PARAMETER)
			c.addWarning(warn)
			c.current.Parameters = append(c.current.Parameters, entry)
		}
	}
}

func (c *CodeGenerator) VisitArguments(n *ast.Arguments) {
	for _, e := range n.Exprs {
		e.Accept(c)
	}
}

func (c *CodeGenerator) VisitProcedure(n *ast.Procedure) {
	child, warn := c.current.InsertProcedure(n.Name)
	c.addWarning(warn)

	beginMarker := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(beginMarker))
	child.BeginCodeLabel = beginMarker

	outer := c.current
	c.current = child

	if n.Params != nil {
		n.Params.Accept(c)
	}
	if n.Decls != nil {
		n.Decls.Accept(c)
	}
	n.Body.Accept(c)

	c.Seq.InsertInstruction(1, tac.NewActivationRecordDefinition(child))

	if nl := n.Body.Nextlist(); len(nl) > 0 {
		endLabel := c.Seq.NewLabel()
		c.Seq.Emit(tac.NewLabelMark(endLabel))
		tac.Backpatch(nl, endLabel)
	}
	c.Seq.Emit(tac.NewReturn(child))

	c.current = outer
}

func (c *CodeGenerator) VisitProcedures(n *ast.Procedures) {
	for _, p := range n.List {
		p.Accept(c)
	}
}

func (c *CodeGenerator) VisitProgram(n *ast.Program) {
	c.Root = symtable.New(n.Name, nil)
	c.current = c.Root

	c.Seq.Emit(tac.NewBeginProgram())

	if n.Decls != nil {
		n.Decls.Accept(c)
	}
	for _, e := range c.current.OrderedEntries() {
		c.Seq.Emit(tac.NewDefinition(e))
	}

	u := c.Seq.Emit(tac.NewUnconditionalJump(nil))

	if n.Procs != nil {
		n.Procs.Accept(c)
	}

	beginMarker := c.Seq.NewLabel()
	c.Seq.Emit(tac.NewLabelMark(beginMarker))
	tac.Backpatch([]*tac.Instruction{u}, beginMarker)

	recordedIndex := len(c.Seq.Instructions)
	n.Body.Accept(c)

	for _, dt := range []symtable.DataType{symtable.INTEGER, symtable.REAL} {
		if max := c.current.MaxCountOfTemporary[dt]; max > 0 {
			c.Seq.InsertInstruction(recordedIndex, tac.NewTemporaryDefinition(dt, max))
			recordedIndex++
		}
	}

	if nl := n.Body.Nextlist(); len(nl) > 0 {
		endLabel := c.Seq.NewLabel()
		c.Seq.Emit(tac.NewLabelMark(endLabel))
		tac.Backpatch(nl, endLabel)
	}

	c.Seq.Emit(tac.NewEndProgram())
}
