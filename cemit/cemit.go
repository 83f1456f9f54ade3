// Package cemit renders a fully generated [tac.Sequence] as a
// compilable C translation unit: activation records as C structs,
// computed-goto for procedure call/return, and one line (or small
// block) of C per TAC instruction.
//
// Entry rendering is decided entirely by the Entry's Owner: a program-
// scope Entry renders as its bare lexeme (or its temporary-array slot),
// while a procedure-scope Entry renders through the current activation
// record pointer, keyed by the procedure's own struct/typedef names.
// This holds regardless of where in the flat instruction stream the
// reference occurs, so the renderer needs no notion of "which procedure
// is this instruction in" beyond what each Entry already carries.
package cemit

import (
	"fmt"
	"strings"

	"github.com/pascalc/pascalc/symtable"
	"github.com/pascalc/pascalc/tac"
	"github.com/pascalc/pascalc/token"
)

// Render renders seq as a complete, compilable C source file. root is
// the program's top-level symbol table, used to distinguish
// program-scope entries from procedure-scope ones during rendering.
//
// Render refuses to render a fragment-mode sequence (one produced by
// codegen.GenerateFragment, lacking a leading BeginProgram) as a
// translation unit: fragment compilation exists for debugging
// expressions and statements in isolation, not for producing runnable C.
// It also refuses a sequence containing any unpatched jump, which would
// indicate a backpatching bug rather than a valid program.
func Render(seq *tac.Sequence, root *symtable.SymbolTable) (string, error) {
	if len(seq.Instructions) == 0 || seq.Instructions[0].Kind != tac.BeginProgram {
		return "", fmt.Errorf("cemit: refusing to render a fragment-mode sequence as a standalone translation unit")
	}
	for _, ins := range seq.Instructions {
		if ins.IsJump() && ins.Target == nil {
			return "", fmt.Errorf("cemit: unpatched jump instruction %s", ins)
		}
	}

	var out strings.Builder
	for _, ins := range seq.Instructions {
		renderInstruction(&out, root, ins)
	}
	return out.String(), nil
}

func renderInstruction(out *strings.Builder, root *symtable.SymbolTable, ins *tac.Instruction) {
	switch ins.Kind {
	case tac.BeginProgram:
		renderBeginProgram(out)
	case tac.EndProgram:
		renderEndProgram(out)
	case tac.LabelMark:
		fmt.Fprintf(out, "%s: ;\n", ins.Self)
	case tac.BinaryAssignment:
		fmt.Fprintf(out, "%s = %s %s %s;\n",
			renderEntry(root, ins.Dst), renderEntry(root, ins.A), cOperator(ins.Op.Kind), renderEntry(root, ins.B))
	case tac.UnaryAssignment:
		fmt.Fprintf(out, "%s = %s%s;\n", renderEntry(root, ins.Dst), cOperator(ins.Op.Kind), renderEntry(root, ins.A))
	case tac.BareAssignment:
		fmt.Fprintf(out, "%s = %s;\n", renderEntry(root, ins.Dst), renderEntry(root, ins.A))
	case tac.ConditionalJump:
		fmt.Fprintf(out, "if (%s %s %s) goto %s;\n",
			renderEntry(root, ins.A), cOperator(ins.Op.Kind), renderEntry(root, ins.B), ins.Target)
	case tac.UnconditionalJump:
		fmt.Fprintf(out, "goto %s;\n", ins.Target)
	case tac.Print:
		renderPrint(out, root, ins)
	case tac.Definition:
		fmt.Fprintf(out, "%s %s;\n", ins.Entry.DataType.CType(), ins.Entry.Lexeme())
	case tac.TemporaryDefinition:
		fmt.Fprintf(out, "%s temporary_%s[%d] = {0};\n", ins.DataType.CType(), ins.DataType, ins.Count)
	case tac.ActivationRecordDefinition:
		renderActivationRecordDefinition(out, ins.Procedure)
	case tac.Call:
		renderCall(out, ins)
	case tac.Return:
		renderReturn(out, ins)
	}
}

func renderBeginProgram(out *strings.Builder) {
	out.WriteString("#include <stdio.h>\n")
	out.WriteString("#include <stdlib.h>\n")
	out.WriteString("#include <string.h>\n\n")
	out.WriteString("int main() {\n")
	out.WriteString("void* current_activation_record = NULL, *tmp_activation_record = NULL;\n")
}

func renderEndProgram(out *strings.Builder) {
	out.WriteString("return 0;\n")
	out.WriteString("}\n")
}

func renderPrint(out *strings.Builder, root *symtable.SymbolTable, ins *tac.Instruction) {
	format := `%d\n`
	if ins.Place != nil && ins.Place.DataType == symtable.REAL {
		format = `%f\n`
	}
	fmt.Fprintf(out, "printf(\"%s\", %s);\n", format, renderEntry(root, ins.Place))
}

func renderActivationRecordDefinition(out *strings.Builder, proc *symtable.SymbolTable) {
	name := proc.Header.Lexeme
	fmt.Fprintf(out, "struct activation_record_%s {\n", name)
	fmt.Fprintf(out, "struct activation_record_%s* control_link;\n", name)
	out.WriteString("void* return_address;\n")

	out.WriteString("struct {\n")
	for _, e := range proc.Parameters {
		fmt.Fprintf(out, "%s %s;\n", e.DataType.CType(), e.Lexeme())
	}
	out.WriteString("} parameters;\n")

	out.WriteString("struct {\n")
	for _, e := range proc.OrderedEntries() {
		if e.EntryType == symtable.DECLARATION {
			fmt.Fprintf(out, "%s %s;\n", e.DataType.CType(), e.Lexeme())
		}
	}
	out.WriteString("} locals;\n")

	for _, dt := range []symtable.DataType{symtable.INTEGER, symtable.REAL} {
		if n := proc.MaxCountOfTemporary[dt]; n > 0 {
			fmt.Fprintf(out, "%s temporary_%s[%d];\n", dt.CType(), dt, n)
		}
	}
	out.WriteString("};\n")
	fmt.Fprintf(out, "typedef struct activation_record_%s ActivationRecord_%s;\n", name, name)
	fmt.Fprintf(out, "typedef ActivationRecord_%s* ActivationRecordPtr_%s;\n", name, name)
}

func renderCall(out *strings.Builder, ins *tac.Instruction) {
	name := ins.Procedure.Header.Lexeme
	ptrType := "ActivationRecordPtr_" + name

	out.WriteString("{\n")
	fmt.Fprintf(out, "tmp_activation_record = malloc(sizeof(ActivationRecord_%s));\n", name)
	for _, dt := range []symtable.DataType{symtable.INTEGER, symtable.REAL} {
		if n := ins.Procedure.MaxCountOfTemporary[dt]; n > 0 {
			fmt.Fprintf(out, "memset(((%s)tmp_activation_record)->temporary_%s, 0, sizeof(((%s)tmp_activation_record)->temporary_%s));\n",
				ptrType, dt, ptrType, dt)
		}
	}
	fmt.Fprintf(out, "((%s)tmp_activation_record)->control_link = current_activation_record;\n", ptrType)
	fmt.Fprintf(out, "((%s)tmp_activation_record)->return_address = &&%s;\n", ptrType, ins.ReturnLabel)
	out.WriteString("current_activation_record = tmp_activation_record;\n")
	out.WriteString("}\n")
}

func renderReturn(out *strings.Builder, ins *tac.Instruction) {
	name := ins.Procedure.Header.Lexeme
	ptrType := "ActivationRecordPtr_" + name

	out.WriteString("{\n")
	out.WriteString("void* returning_activation_record = current_activation_record;\n")
	fmt.Fprintf(out, "current_activation_record = ((%s)returning_activation_record)->control_link;\n", ptrType)
	fmt.Fprintf(out, "void* return_address = ((%s)returning_activation_record)->return_address;\n", ptrType)
	out.WriteString("free(returning_activation_record);\n")
	out.WriteString("goto *return_address;\n")
	out.WriteString("}\n")
}

func renderEntry(root *symtable.SymbolTable, e *symtable.Entry) string {
	if e == nil {
		return ""
	}
	if e.EntryType == symtable.CONSTANT {
		switch e.Token.Kind {
		case token.TRUE:
			return "1"
		case token.FALSE:
			return "0"
		default:
			return e.Lexeme()
		}
	}
	if e.Owner == root {
		if e.EntryType == symtable.TEMPORARY {
			return fmt.Sprintf("temporary_%s[%d]", e.DataType, e.TempIndex-1)
		}
		return e.Lexeme()
	}

	procName := e.Owner.Header.Lexeme
	base := fmt.Sprintf("((ActivationRecordPtr_%s)current_activation_record)", procName)
	switch e.EntryType {
	case symtable.PARAMETER:
		return base + "->parameters." + e.Lexeme()
	case symtable.TEMPORARY:
		return fmt.Sprintf("%s->temporary_%s[%d]", base, e.DataType, e.TempIndex-1)
	default:
		return base + "->locals." + e.Lexeme()
	}
}

func cOperator(k token.Kind) string {
	switch k {
	case token.EQ:
		return "=="
	case token.NE:
		return "!="
	case token.MOD:
		return "%"
	case token.DIV:
		return "/"
	default:
		return k.String()
	}
}
