// Package tac defines the three-address code instruction set produced by
// codegen and rendered as C by cemit.
//
// Unlike a byte-packed bytecode stream, a [Sequence] is a structured,
// pointer-addressed list: backpatching mutates an instruction's Target
// field in place, with no index-translation layer between a truelist/
// falselist/nextlist and the instruction it names.
package tac

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pascalc/pascalc/symtable"
	"github.com/pascalc/pascalc/token"
)

// Label is a jump target, minted by Sequence.NewLabel with a
// monotonically increasing id independent of instruction position.
type Label struct {
	ID int
}

func (l *Label) String() string {
	if l == nil {
		return "l?"
	}
	return "l" + strconv.Itoa(l.ID)
}

// Kind tags the variant an Instruction belongs to.
type Kind int

const (
	BinaryAssignment Kind = iota
	UnaryAssignment
	BareAssignment
	ConditionalJump
	UnconditionalJump
	LabelMark
	Print
	Call
	Return
	BeginProgram
	EndProgram
	Definition
	TemporaryDefinition
	ActivationRecordDefinition
)

var kindNames = map[Kind]string{
	BinaryAssignment:           "BinaryAssignment",
	UnaryAssignment:            "UnaryAssignment",
	BareAssignment:             "BareAssignment",
	ConditionalJump:            "ConditionalJump",
	UnconditionalJump:          "UnconditionalJump",
	LabelMark:                  "Label",
	Print:                      "Print",
	Call:                       "Call",
	Return:                     "Return",
	BeginProgram:               "BeginProgram",
	EndProgram:                 "EndProgram",
	Definition:                 "Definition",
	TemporaryDefinition:        "TemporaryDefinition",
	ActivationRecordDefinition: "ActivationRecordDefinition",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Instruction is a single tagged three-address instruction. Only the
// fields relevant to its Kind are populated; the rest stay zero.
type Instruction struct {
	Kind Kind

	Op token.Token // operator token: arithmetic/relational op, or relop of a ConditionalJump

	A, B *symtable.Entry // operands (BinaryAssignment: a, b; UnaryAssignment/BareAssignment: A is the source)
	Dst  *symtable.Entry // BinaryAssignment/UnaryAssignment/BareAssignment destination

	Target *Label // ConditionalJump/UnconditionalJump target; nil until backpatched
	Self   *Label // LabelMark: the label this instruction defines

	Place *symtable.Entry // Print operand

	Procedure   *symtable.SymbolTable // Call/Return/ActivationRecordDefinition
	ReturnLabel *Label                // Call: label to resume at after return

	Entry *symtable.Entry // Definition

	DataType symtable.DataType // TemporaryDefinition
	Count    int               // TemporaryDefinition: high-water mark for DataType
}

// IsJump reports whether ins is a jump whose Target is patched by
// backpatch.
func (ins *Instruction) IsJump() bool {
	return ins.Kind == ConditionalJump || ins.Kind == UnconditionalJump
}

func (ins *Instruction) String() string {
	switch ins.Kind {
	case BinaryAssignment:
		return fmt.Sprintf("%s = %s %s %s", entryName(ins.Dst), entryName(ins.A), ins.Op.Lexeme, entryName(ins.B))
	case UnaryAssignment:
		return fmt.Sprintf("%s = %s%s", entryName(ins.Dst), ins.Op.Lexeme, entryName(ins.A))
	case BareAssignment:
		return fmt.Sprintf("%s = %s", entryName(ins.Dst), entryName(ins.A))
	case ConditionalJump:
		return fmt.Sprintf("if %s %s %s goto %s", entryName(ins.A), ins.Op.Lexeme, entryName(ins.B), ins.Target)
	case UnconditionalJump:
		return fmt.Sprintf("goto %s", ins.Target)
	case LabelMark:
		return fmt.Sprintf("%s:", ins.Self)
	case Print:
		return fmt.Sprintf("print %s", entryName(ins.Place))
	case Call:
		return fmt.Sprintf("call %s, %s", procName(ins.Procedure), ins.ReturnLabel)
	case Return:
		return fmt.Sprintf("return %s", procName(ins.Procedure))
	case BeginProgram:
		return "begin_program"
	case EndProgram:
		return "end_program"
	case Definition:
		return fmt.Sprintf("definition %s", entryName(ins.Entry))
	case TemporaryDefinition:
		return fmt.Sprintf("temporary_definition %s[%d]", ins.DataType, ins.Count)
	case ActivationRecordDefinition:
		return fmt.Sprintf("activation_record %s", procName(ins.Procedure))
	default:
		return "UNKNOWN"
	}
}

func entryName(e *symtable.Entry) string {
	if e == nil {
		return "<nil>"
	}
	return e.Lexeme()
}

func procName(s *symtable.SymbolTable) string {
	if s == nil {
		return "<nil>"
	}
	return s.Header.Lexeme
}

// Sequence is the single ordered, append-only list of TAC instructions
// produced by one code-generation run, plus the independent label
// counter described by the label-generation contract.
type Sequence struct {
	Instructions []*Instruction
	nextLabel    int
}

// NewSequence returns an empty instruction sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewLabel mints a fresh Label; it is not yet emitted anywhere.
func (s *Sequence) NewLabel() *Label {
	s.nextLabel++
	return &Label{ID: s.nextLabel}
}

// Emit appends ins to the sequence and returns it.
func (s *Sequence) Emit(ins *Instruction) *Instruction {
	s.Instructions = append(s.Instructions, ins)
	return ins
}

// InsertInstruction inserts ins at index i, shifting the rest of the
// sequence right. Used to prepend struct/temporary-array declarations
// after the body has already been generated.
func (s *Sequence) InsertInstruction(i int, ins *Instruction) {
	s.Instructions = append(s.Instructions, nil)
	copy(s.Instructions[i+1:], s.Instructions[i:])
	s.Instructions[i] = ins
}

// NextQuad returns the 1-based index the next Emit will occupy. Used
// only when a label needs an anchor position; final control flow
// addresses labels, never quad indices.
func (s *Sequence) NextQuad() int {
	return len(s.Instructions) + 1
}

// Backpatch sets Target = label on every jump instruction in list. Each
// jump is expected to be patched at most once; a second call overwrites,
// it does not append.
func Backpatch(list []*Instruction, label *Label) {
	for _, ins := range list {
		ins.Target = label
	}
}

// String renders the full sequence, one instruction per line, for debug
// traces and tests. It is not the C rendering; see package cemit for that.
func (s *Sequence) String() string {
	var out strings.Builder
	for i, ins := range s.Instructions {
		fmt.Fprintf(&out, "%04d %s\n", i, ins)
	}
	return out.String()
}

// --- Instruction constructors ---

func NewBinaryAssignment(op token.Token, a, b, dst *symtable.Entry) *Instruction {
	return &Instruction{Kind: BinaryAssignment, Op: op, A: a, B: b, Dst: dst}
}

func NewUnaryAssignment(op token.Token, a, dst *symtable.Entry) *Instruction {
	return &Instruction{Kind: UnaryAssignment, Op: op, A: a, Dst: dst}
}

func NewBareAssignment(src, dst *symtable.Entry) *Instruction {
	return &Instruction{Kind: BareAssignment, A: src, Dst: dst}
}

// NewConditionalJump creates a conditional jump with an unpatched target.
func NewConditionalJump(op token.Token, a, b *symtable.Entry) *Instruction {
	return &Instruction{Kind: ConditionalJump, Op: op, A: a, B: b}
}

// NewUnconditionalJump creates an unconditional jump. target may be nil,
// to be filled in later by Backpatch.
func NewUnconditionalJump(target *Label) *Instruction {
	return &Instruction{Kind: UnconditionalJump, Target: target}
}

// NewLabelMark creates the instruction that marks label's position in
// the sequence.
func NewLabelMark(label *Label) *Instruction {
	return &Instruction{Kind: LabelMark, Self: label}
}

func NewPrint(place *symtable.Entry) *Instruction {
	return &Instruction{Kind: Print, Place: place}
}

func NewCall(procedure *symtable.SymbolTable, returnLabel *Label) *Instruction {
	return &Instruction{Kind: Call, Procedure: procedure, ReturnLabel: returnLabel}
}

func NewReturn(procedure *symtable.SymbolTable) *Instruction {
	return &Instruction{Kind: Return, Procedure: procedure}
}

func NewBeginProgram() *Instruction { return &Instruction{Kind: BeginProgram} }
func NewEndProgram() *Instruction   { return &Instruction{Kind: EndProgram} }

func NewDefinition(entry *symtable.Entry) *Instruction {
	return &Instruction{Kind: Definition, Entry: entry}
}

func NewTemporaryDefinition(dt symtable.DataType, count int) *Instruction {
	return &Instruction{Kind: TemporaryDefinition, DataType: dt, Count: count}
}

func NewActivationRecordDefinition(procedure *symtable.SymbolTable) *Instruction {
	return &Instruction{Kind: ActivationRecordDefinition, Procedure: procedure}
}
