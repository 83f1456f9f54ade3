// Package repl implements an interactive fragment workbench for the
// Pascal-like source language.
//
// Unlike a conventional REPL that evaluates a whole program, this one
// exercises the `start`-flag fragment-compilation entry points
// (parser.ParseExpression / parser.ParseStatement plus
// codegen.GenerateFragment): each line the user enters is compiled in
// isolation against a persistent symbol table, and the three-address
// code sequence accumulated so far (this fragment's instructions
// appended to those of every earlier fragment) is shown immediately,
// styled history and all. It
// uses the Charm libraries (Bubbletea, Bubbles, Lipgloss) for the
// terminal interface, in the usual model/update/view shape of a
// Bubble Tea chat-style REPL.
package repl

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pascalc/pascalc/ast"
	"github.com/pascalc/pascalc/codegen"
	"github.com/pascalc/pascalc/lexer"
	"github.com/pascalc/pascalc/parser"
	"github.com/pascalc/pascalc/token"
)

const (
	// Prompt is the default prompt for the workbench.
	Prompt = "pc> "

	// ContPrompt is the continuation prompt used while a fragment's
	// parentheses or BEGIN/END pairing is still open.
	ContPrompt = ".. "
)

// Options configures the workbench.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Print parse/codegen timings to stderr as fragments are compiled
}

// Start initializes and runs the workbench for username.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	syntaxErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF5F87")).
				Bold(true)

	semanticErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))
)

// ErrorType classifies why a fragment failed to compile.
type ErrorType int

const (
	NoError ErrorType = iota
	SyntaxError
	SemanticError
)

// evalResultMsg is the async result of compiling one fragment.
type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	warnings  []string
	elapsed   time.Duration
}

type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	warnings       []string
	evaluationTime time.Duration
}

// model is the workbench's Bubble Tea state. cg is the one persistent
// CodeGenerator for the whole session: a fragment that declares `x`
// leaves it visible to every later fragment, one persistent scope
// threaded through every evaluation.
type model struct {
	textInput    textinput.Model
	history      []historyEntry
	cg           *codegen.CodeGenerator
	username     string
	evaluating   bool
	currentInput string
	buffer       string
	isMultiline  bool
	spinner      spinner.Model
	options      Options
}

func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter an expression or statement"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		cg:        codegen.New(true),
		username:  username,
		spinner:   s,
		options:   options,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// fragmentComplete reports whether input's parentheses and BEGIN/END
// pairs are balanced, the multiline-continuation signal. A negative
// balance (an extra closer) is left for the parser to report as a
// syntax error rather than treated as "still open".
func fragmentComplete(input string) bool {
	l := lexer.New(input)
	parens, blocks := 0, 0
	for {
		tok := l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
		switch tok.Kind {
		case token.LPAREN:
			parens++
		case token.RPAREN:
			parens--
		case token.BEGIN:
			blocks++
		case token.END:
			blocks--
		}
	}
	return parens <= 0 && blocks <= 0
}

// classifyStatement reports whether input should be parsed as a
// statement rather than a bare expression: the statement-leading
// keywords, or an identifier immediately followed by ':=', '(', or
// nothing at all (a parenthesis-less procedure call).
func classifyStatement(input string) bool {
	l := lexer.New(input)
	first := l.NextToken()
	switch first.Kind {
	case token.WHILE, token.IF, token.PRINT, token.BEGIN:
		return true
	case token.IDENT:
		second := l.NextToken()
		return second.Kind == token.ASSIGN || second.Kind == token.LPAREN || second.Kind == token.EOF
	default:
		return false
	}
}

func evalCmd(input string, cg *codegen.CodeGenerator, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		p := parser.New(lexer.New(input))

		var node ast.Node
		if classifyStatement(input) {
			node = p.ParseStatement()
		} else {
			node = p.ParseExpression()
		}

		if errs := p.Errors(); len(errs) != 0 {
			if debug {
				fmt.Fprintf(os.Stderr, "DEBUG: parse errors: %v\n", errs)
			}
			return evalResultMsg{
				output:    formatSyntaxErrors(errs),
				isError:   true,
				errorType: SyntaxError,
				elapsed:   time.Since(start),
			}
		}
		parseTime := time.Since(start)

		genStart := time.Now()
		before := len(cg.Diagnostics)
		seq := cg.GenerateFragment(node)
		newDiags := cg.Diagnostics[before:]
		genTime := time.Since(genStart)

		if debug {
			fmt.Fprintf(os.Stderr, "DEBUG: parse time: %v, codegen time: %v\n", parseTime, genTime)
		}

		var warnings, errs []string
		for _, d := range newDiags {
			if d.Severity == codegen.SeverityWarning {
				warnings = append(warnings, d.Message)
			} else {
				errs = append(errs, d.String())
			}
		}

		if len(errs) > 0 {
			return evalResultMsg{
				output:    formatSemanticErrors(errs),
				isError:   true,
				errorType: SemanticError,
				warnings:  warnings,
				elapsed:   time.Since(start),
			}
		}
		return evalResultMsg{
			output:   seq.String(),
			warnings: warnings,
			elapsed:  time.Since(start),
		}
	}
}

func formatSyntaxErrors(errs []string) string {
	var s strings.Builder
	s.WriteString("Syntax errors:\n")
	for i, msg := range errs {
		fmt.Fprintf(&s, "  %d. %s\n", i+1, msg)
	}
	return s.String()
}

func formatSemanticErrors(errs []string) string {
	var s strings.Builder
	s.WriteString("Semantic errors:\n")
	for i, msg := range errs {
		fmt.Fprintf(&s, "  %d. %s\n", i+1, msg)
	}
	return s.String()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			warnings:       msg.warnings,
			evaluationTime: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.buffer == "" {
						m.isMultiline = false
						return m, nil
					}
					return m.submit(m.buffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.buffer += "\n" + input
				m.textInput.SetValue("")
				if fragmentComplete(m.buffer) {
					return m.submit(m.buffer)
				}
				return m, nil
			}

			if !fragmentComplete(input) {
				m.isMultiline = true
				m.buffer = input
				m.textInput.SetValue("")
				return m, nil
			}
			return m.submit(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

// submit starts compiling fragment in the background, clearing the
// input and multiline buffer.
func (m model) submit(fragment string) (tea.Model, tea.Cmd) {
	m.evaluating = true
	m.currentInput = fragment
	m.buffer = ""
	m.isMultiline = false
	m.textInput.SetValue("")
	return m, evalCmd(fragment, m.cg, m.options.Debug)
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Pascal-like Fragment Workbench "))
	s.WriteString("\n")
	if m.username != "" {
		fmt.Fprintf(&s, "\nHello %s! Enter an expression or statement.\n", m.username)
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		for i, line := range strings.Split(entry.input, "\n") {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case SyntaxError:
				s.WriteString(m.applyStyle(syntaxErrorStyle, entry.output))
			case SemanticError:
				s.WriteString(m.applyStyle(semanticErrorStyle, entry.output))
			default:
				s.WriteString(m.applyStyle(errorStyle, entry.output))
			}
		} else {
			s.WriteString(m.applyStyle(resultStyle, entry.output))
		}
		for _, w := range entry.warnings {
			s.WriteString(m.applyStyle(warningStyle, "warning: "+w))
			s.WriteString("\n")
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}
		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Compiling...\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline fragment:\n"))
		s.WriteString(m.highlightCode(m.buffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: empty line compiles the buffer"
	} else {
		helpText += " | Unbalanced ( or BEGIN opens multiline input"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

// highlightCode applies syntax highlighting to one line of source.
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}

	for i, tok := range tokens {
		if tok.Kind == token.EOF {
			continue
		}
		if i > 0 {
			s.WriteString(" ")
		}
		s.WriteString(m.applyStyle(styleFor(tok.Kind), tok.Lexeme))
	}
	return s.String()
}

func styleFor(k token.Kind) lipgloss.Style {
	switch k {
	case token.PROGRAM, token.VAR, token.BEGIN, token.END, token.IF, token.THEN, token.ELSE,
		token.WHILE, token.DO, token.AND, token.OR, token.NOT, token.MOD, token.DIV,
		token.INTEGER, token.REAL, token.PROCEDURE, token.TRUE, token.FALSE, token.PRINT:
		return keywordStyle
	case token.IDENT:
		return identifierStyle
	case token.INTEGER_CONSTANT, token.REAL_CONSTANT:
		return literalStyle
	case token.PLUS, token.MINUS, token.TIMES, token.DIVIDE,
		token.LT, token.LE, token.EQ, token.NE, token.GT, token.GE, token.ASSIGN:
		return operatorStyle
	case token.COMMA, token.SEMICOLON, token.COLON, token.LPAREN, token.RPAREN:
		return delimiterStyle
	default:
		return identifierStyle
	}
}
