// Command pascalc compiles a small Pascal-like source file into a C
// translation unit, or starts an interactive fragment workbench when
// no input file is given.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pascalc/pascalc/cemit"
	"github.com/pascalc/pascalc/codegen"
	"github.com/pascalc/pascalc/diagviz"
	"github.com/pascalc/pascalc/lexer"
	"github.com/pascalc/pascalc/parser"
	"github.com/pascalc/pascalc/repl"
	"github.com/pascalc/pascalc/symtable"
	"github.com/pascalc/pascalc/token"
)

const version = "0.1.0"

// printUsage displays custom usage information.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `pascalc v%s

USAGE:
    %s [OPTIONS] <input-file> [output-dir]

DESCRIPTION:
    pascalc compiles a Pascal-like program into a three-address code
    sequence rendered as a C translation unit.
    Without an input file, it starts an interactive fragment workbench.

OPTIONS:
    --debug                         Verbose parser trace, written to <name>.reductions
    --semantic_analysis_relaxed     Auto-insert undeclared identifiers instead of reporting them
    --start <expr|stmt>              Grammar start-symbol override, for fragment compilation
    --code_generation=false         Stop after semantic analysis; skip the .compiled output
    -h, --help                      Show this help message

OUTPUTS (for input name.pas, written to the output directory):
    name.tokens       Token dump
    name.reductions   Parser trace (only with --debug)
    name.syntax.svg   Placeholder syntax-diagram SVG
    name.symbols      Symbol table dump
    name.compiled     Generated C translation unit

EXAMPLES:
    %s program.pas
    %s --debug program.pas build/
    %s --start=expr --semantic_analysis_relaxed fragment.txt

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	debugFlag := flag.Bool("debug", false, "verbose parser trace")
	relaxedFlag := flag.Bool("semantic_analysis_relaxed", false, "auto-insert undeclared identifiers instead of reporting them")
	startFlag := flag.String("start", "", "grammar start-symbol override: expr or stmt")
	codeGenFlag := flag.Bool("code_generation", true, "emit the C translation unit")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		if *startFlag != "" {
			fmt.Fprintln(os.Stderr, "error: --start requires an input file")
			os.Exit(1)
		}
		username := "unknown"
		if usr, err := user.Current(); err == nil {
			username = usr.Username
		}
		repl.Start(username, repl.Options{Debug: *debugFlag})
		return
	}

	inputPath := args[0]
	outDir := "."
	if len(args) > 1 {
		outDir = args[1]
	}

	content, err := os.ReadFile(filepath.Clean(inputPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %s\n", inputPath, err)
		os.Exit(1)
	}
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	if *startFlag != "" {
		os.Exit(runFragment(string(content), *startFlag, *relaxedFlag, *debugFlag))
	}
	os.Exit(runProgram(string(content), name, outDir, *relaxedFlag, *debugFlag, *codeGenFlag))
}

// runFragment drives the `start` grammar-override path: it parses
// content as a single expression or statement and prints the emitted
// TAC to stdout, without touching the five-file output contract (there
// is no whole program to name output files after).
func runFragment(content, start string, relaxed, debug bool) int {
	p := parser.New(lexer.New(content))
	p.SetDebug(debug)

	cg := codegen.New(relaxed)

	switch strings.ToLower(start) {
	case "expr", "expression":
		expr := p.ParseExpression()
		if errs := p.Errors(); len(errs) != 0 {
			printErrors("syntax", errs)
			return 1
		}
		cg.GenerateFragment(expr)
	case "stmt", "statement":
		stmt := p.ParseStatement()
		if errs := p.Errors(); len(errs) != 0 {
			printErrors("syntax", errs)
			return 1
		}
		cg.GenerateFragment(stmt)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown --start value %q (want expr or stmt)\n", start)
		return 1
	}

	if debug {
		for _, line := range p.Trace() {
			fmt.Fprintln(os.Stderr, "DEBUG:", line)
		}
	}

	hadErrors := false
	for _, d := range cg.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
		if d.Severity == codegen.SeverityError {
			hadErrors = true
		}
	}
	fmt.Print(cg.Seq.String())
	if hadErrors {
		return 1
	}
	return 0
}

// runProgram drives the full-program path: lex, parse, generate,
// render, and fan the five contractual output files out to outDir.
func runProgram(content, name, outDir string, relaxed, debug, emitCode bool) int {
	if err := writeTokenDump(outDir, name, content); err != nil {
		fmt.Fprintf(os.Stderr, "error writing token dump: %s\n", err)
		return 1
	}

	p := parser.New(lexer.New(content))
	p.SetDebug(debug)
	prog := p.ParseProgram()

	if debug {
		if err := writeReductionTrace(outDir, name, p.Trace()); err != nil {
			fmt.Fprintf(os.Stderr, "error writing reduction trace: %s\n", err)
			return 1
		}
	}

	if errs := p.Errors(); len(errs) != 0 {
		printErrors("syntax", errs)
		return 1
	}

	if err := diagviz.Write(filepath.Join(outDir, name+".syntax.svg"), prog); err != nil {
		fmt.Fprintf(os.Stderr, "error writing syntax diagram: %s\n", err)
		return 1
	}

	cg := codegen.New(relaxed)
	seq := cg.Generate(prog)

	if err := writeSymbolDump(outDir, name, cg.Root); err != nil {
		fmt.Fprintf(os.Stderr, "error writing symbol dump: %s\n", err)
		return 1
	}

	hadErrors := false
	for _, d := range cg.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
		if d.Severity == codegen.SeverityError {
			hadErrors = true
		}
	}
	if hadErrors {
		return 1
	}

	if !emitCode {
		return 0
	}

	out, err := cemit.Render(seq, cg.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error emitting C: %s\n", err)
		return 1
	}
	if err := os.WriteFile(filepath.Join(outDir, name+".compiled"), []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing compiled output: %s\n", err)
		return 1
	}
	return 0
}

func writeTokenDump(outDir, name, content string) error {
	l := lexer.New(content)
	var s strings.Builder
	for {
		tok := l.NextToken()
		s.WriteString(tok.String())
		s.WriteString("\n")
		if tok.Kind == token.EOF {
			break
		}
	}
	return os.WriteFile(filepath.Join(outDir, name+".tokens"), []byte(s.String()), 0o644)
}

func writeReductionTrace(outDir, name string, trace []string) error {
	var s strings.Builder
	for _, line := range trace {
		s.WriteString(line)
		s.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(outDir, name+".reductions"), []byte(s.String()), 0o644)
}

func printErrors(kind string, errs []string) {
	fmt.Fprintf(os.Stderr, "%s errors:\n", kind)
	for _, msg := range errs {
		fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}

// writeSymbolDump writes a human-readable dump of root and every
// procedure scope nested beneath it, one scope per block.
func writeSymbolDump(outDir, name string, root *symtable.SymbolTable) error {
	var s strings.Builder
	dumpScope(&s, root, 0)
	return os.WriteFile(filepath.Join(outDir, name+".symbols"), []byte(s.String()), 0o644)
}

func dumpScope(s *strings.Builder, scope *symtable.SymbolTable, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(s, "%sscope %s (offset %d)\n", indent, scope.Header.Lexeme, scope.Offset)
	for _, e := range scope.OrderedEntries() {
		fmt.Fprintf(s, "%s  %-12s %-8s width=%d offset=%d\n", indent, e.Lexeme(), e.DataType, e.Width, e.Offset)
	}
	for dt, n := range scope.MaxCountOfTemporary {
		if n > 0 {
			fmt.Fprintf(s, "%s  temporaries %-8s count=%d\n", indent, dt, n)
		}
	}
	for _, proc := range scope.OrderedProcedures() {
		dumpScope(s, proc, depth+1)
	}
}
