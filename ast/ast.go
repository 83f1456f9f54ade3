// Package ast defines the node hierarchy produced by parser and walked by
// codegen: expression nodes carrying synthesized place/type/truelist/
// falselist attributes, statement nodes carrying nextlist, and the
// declarative nodes that shape a program's scopes.
//
// Dispatch is double-dispatch via [Visitor] rather than a type switch:
// codegen's translation needs a concrete return type per node kind (an
// Expression's place/type, a Statement's nextlist), which a single
// switch-based Compile(node) would otherwise have to smuggle back out
// through side channels. Visitor keeps that typed.
package ast

import (
	"github.com/pascalc/pascalc/symtable"
	"github.com/pascalc/pascalc/tac"
	"github.com/pascalc/pascalc/token"
)

// Node is the common interface implemented by every AST node.
type Node interface {
	Accept(v Visitor)
	Line() int
}

// Expression is a Node that synthesizes a numeric place/type or a
// boolean truelist/falselist (never both meaningfully at once).
type Expression interface {
	Node

	Place() *symtable.Entry
	SetPlace(*symtable.Entry)
	Type() symtable.DataType
	SetType(symtable.DataType)
	Truelist() []*tac.Instruction
	SetTruelist([]*tac.Instruction)
	Falselist() []*tac.Instruction
	SetFalselist([]*tac.Instruction)
}

// Statement is a Node that synthesizes a nextlist: the jumps still open
// to its textual successor.
type Statement interface {
	Node

	Nextlist() []*tac.Instruction
	SetNextlist([]*tac.Instruction)
}

// Visitor is implemented by codegen.CodeGenerator; every node kind
// double-dispatches to its matching method.
type Visitor interface {
	VisitBinaryExpression(*BinaryExpression)
	VisitUnaryExpression(*UnaryExpression)
	VisitTerminalExpression(*TerminalExpression)

	VisitAssignment(*Assignment)
	VisitWhile(*While)
	VisitIf(*If)
	VisitIfElse(*IfElse)
	VisitProcedureCall(*ProcedureCall)
	VisitCompound(*Compound)
	VisitPrint(*Print)

	VisitDeclaration(*Declaration)
	VisitDeclarations(*Declarations)
	VisitParameters(*Parameters)
	VisitArguments(*Arguments)
	VisitProcedure(*Procedure)
	VisitProcedures(*Procedures)
	VisitProgram(*Program)
}

// ExprAttrs holds the attributes every Expression variant synthesizes.
// Embedded by value; methods have pointer receivers so the outer struct
// must always be addressed through a pointer (which Accept requires
// anyway).
type ExprAttrs struct {
	line      int
	place     *symtable.Entry
	typ       symtable.DataType
	truelist  []*tac.Instruction
	falselist []*tac.Instruction
}

func (a *ExprAttrs) Line() int                         { return a.line }
func (a *ExprAttrs) Place() *symtable.Entry            { return a.place }
func (a *ExprAttrs) SetPlace(e *symtable.Entry)        { a.place = e }
func (a *ExprAttrs) Type() symtable.DataType           { return a.typ }
func (a *ExprAttrs) SetType(d symtable.DataType)       { a.typ = d }
func (a *ExprAttrs) Truelist() []*tac.Instruction      { return a.truelist }
func (a *ExprAttrs) SetTruelist(l []*tac.Instruction)  { a.truelist = l }
func (a *ExprAttrs) Falselist() []*tac.Instruction     { return a.falselist }
func (a *ExprAttrs) SetFalselist(l []*tac.Instruction) { a.falselist = l }

// StmtAttrs holds the nextlist every Statement variant synthesizes.
type StmtAttrs struct {
	line     int
	nextlist []*tac.Instruction
}

func (a *StmtAttrs) Line() int                        { return a.line }
func (a *StmtAttrs) Nextlist() []*tac.Instruction     { return a.nextlist }
func (a *StmtAttrs) SetNextlist(l []*tac.Instruction) { a.nextlist = l }

// --- Expression variants ---

// BinaryExpression is `left op right`.
type BinaryExpression struct {
	ExprAttrs
	Op    token.Token
	Left  Expression
	Right Expression
}

func NewBinaryExpression(op token.Token, left, right Expression) *BinaryExpression {
	return &BinaryExpression{ExprAttrs: ExprAttrs{line: op.Line}, Op: op, Left: left, Right: right}
}

func (n *BinaryExpression) Accept(v Visitor) { v.VisitBinaryExpression(n) }

// UnaryExpression is `op operand`: NOT, unary +, unary -.
type UnaryExpression struct {
	ExprAttrs
	Op      token.Token
	Operand Expression
}

func NewUnaryExpression(op token.Token, operand Expression) *UnaryExpression {
	return &UnaryExpression{ExprAttrs: ExprAttrs{line: op.Line}, Op: op, Operand: operand}
}

func (n *UnaryExpression) Accept(v Visitor) { v.VisitUnaryExpression(n) }

// TerminalExpression wraps a single token: an identifier, a numeric
// literal, or TRUE/FALSE.
type TerminalExpression struct {
	ExprAttrs
	Token token.Token
}

func NewTerminalExpression(tok token.Token) *TerminalExpression {
	return &TerminalExpression{ExprAttrs: ExprAttrs{line: tok.Line}, Token: tok}
}

func (n *TerminalExpression) Accept(v Visitor) { v.VisitTerminalExpression(n) }

// --- Statement variants ---

// Assignment is `name := value`.
type Assignment struct {
	StmtAttrs
	Name  token.Token
	Value Expression
}

func NewAssignment(name token.Token, value Expression) *Assignment {
	return &Assignment{StmtAttrs: StmtAttrs{line: name.Line}, Name: name, Value: value}
}

func (n *Assignment) Accept(v Visitor) { v.VisitAssignment(n) }

// While is `WHILE cond DO body`.
type While struct {
	StmtAttrs
	Cond Expression
	Body Statement
}

func NewWhile(line int, cond Expression, body Statement) *While {
	return &While{StmtAttrs: StmtAttrs{line: line}, Cond: cond, Body: body}
}

func (n *While) Accept(v Visitor) { v.VisitWhile(n) }

// If is `IF cond THEN then`.
type If struct {
	StmtAttrs
	Cond Expression
	Then Statement
}

func NewIf(line int, cond Expression, then Statement) *If {
	return &If{StmtAttrs: StmtAttrs{line: line}, Cond: cond, Then: then}
}

func (n *If) Accept(v Visitor) { v.VisitIf(n) }

// IfElse is `IF cond THEN then ELSE els`.
type IfElse struct {
	StmtAttrs
	Cond Expression
	Then Statement
	Else Statement
}

func NewIfElse(line int, cond Expression, then, els Statement) *IfElse {
	return &IfElse{StmtAttrs: StmtAttrs{line: line}, Cond: cond, Then: then, Else: els}
}

func (n *IfElse) Accept(v Visitor) { v.VisitIfElse(n) }

// ProcedureCall is `name(args)` or `name` (no arguments, no parens, in
// which case Args is nil).
type ProcedureCall struct {
	StmtAttrs
	Name token.Token
	Args *Arguments
}

func NewProcedureCall(name token.Token, args *Arguments) *ProcedureCall {
	return &ProcedureCall{StmtAttrs: StmtAttrs{line: name.Line}, Name: name, Args: args}
}

func (n *ProcedureCall) Accept(v Visitor) { v.VisitProcedureCall(n) }

// Compound is `BEGIN stmt_list END`.
type Compound struct {
	StmtAttrs
	Stmts []Statement
}

func NewCompound(line int, stmts []Statement) *Compound {
	return &Compound{StmtAttrs: StmtAttrs{line: line}, Stmts: stmts}
}

func (n *Compound) Accept(v Visitor) { v.VisitCompound(n) }

// Print is `PRINT(expr)`.
type Print struct {
	StmtAttrs
	Expr Expression
}

func NewPrint(line int, expr Expression) *Print {
	return &Print{StmtAttrs: StmtAttrs{line: line}, Expr: expr}
}

func (n *Print) Accept(v Visitor) { v.VisitPrint(n) }

// --- Declarative nodes ---

// Declaration is `id_list : type`: a batch of identifiers sharing a
// DataType, spelled out by the TypeTok keyword token (INTEGER or REAL).
type Declaration struct {
	line    int
	Names   []token.Token
	TypeTok token.Token
}

func NewDeclaration(names []token.Token, typeTok token.Token) *Declaration {
	line := typeTok.Line
	if len(names) > 0 {
		line = names[0].Line
	}
	return &Declaration{line: line, Names: names, TypeTok: typeTok}
}

func (n *Declaration) Line() int        { return n.line }
func (n *Declaration) Accept(v Visitor) { v.VisitDeclaration(n) }

// Declarations is `VAR decl_list ;` (or empty).
type Declarations struct {
	line int
	List []*Declaration
}

func NewDeclarations(line int, list []*Declaration) *Declarations {
	return &Declarations{line: line, List: list}
}

func (n *Declarations) Line() int        { return n.line }
func (n *Declarations) Accept(v Visitor) { v.VisitDeclarations(n) }

// Parameters is the parenthesized decl_list of a procedure header.
type Parameters struct {
	line int
	List []*Declaration
}

func NewParameters(line int, list []*Declaration) *Parameters {
	return &Parameters{line: line, List: list}
}

func (n *Parameters) Line() int        { return n.line }
func (n *Parameters) Accept(v Visitor) { v.VisitParameters(n) }

// Arguments is the parenthesized actual_list at a call site.
type Arguments struct {
	line  int
	Exprs []Expression
}

func NewArguments(line int, exprs []Expression) *Arguments {
	return &Arguments{line: line, Exprs: exprs}
}

func (n *Arguments) Line() int        { return n.line }
func (n *Arguments) Accept(v Visitor) { v.VisitArguments(n) }

// Procedure is a single `PROCEDURE name parameters ; declarations
// compound_stmt ;`.
type Procedure struct {
	Name   token.Token
	Params *Parameters
	Decls  *Declarations
	Body   *Compound
}

func NewProcedure(name token.Token, params *Parameters, decls *Declarations, body *Compound) *Procedure {
	return &Procedure{Name: name, Params: params, Decls: decls, Body: body}
}

func (n *Procedure) Line() int        { return n.Name.Line }
func (n *Procedure) Accept(v Visitor) { v.VisitProcedure(n) }

// Procedures is the ordered list of top-level procedure declarations.
type Procedures struct {
	line int
	List []*Procedure
}

func NewProcedures(line int, list []*Procedure) *Procedures {
	return &Procedures{line: line, List: list}
}

func (n *Procedures) Line() int        { return n.line }
func (n *Procedures) Accept(v Visitor) { v.VisitProcedures(n) }

// Program is the translation unit root: `PROGRAM name declarations
// procedures compound_statement`.
type Program struct {
	Name  token.Token
	Decls *Declarations
	Procs *Procedures
	Body  *Compound
}

func NewProgram(name token.Token, decls *Declarations, procs *Procedures, body *Compound) *Program {
	return &Program{Name: name, Decls: decls, Procs: procs, Body: body}
}

func (n *Program) Line() int        { return n.Name.Line }
func (n *Program) Accept(v Visitor) { v.VisitProgram(n) }
