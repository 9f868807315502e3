// Package diag renders compiler diagnostics with the same Rust-like
// caret-under-source styling as the teacher language's internal/errors
// package, generalized from one AST's ast.Position to lex.Position so it
// can frame errors from both DSL programs and pattern/RecExpr source text.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"eqsat/internal/lex"
)

type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
	Help    Level = "help"
)

// Suggestion is a suggested fix attached to a Diagnostic.
type Suggestion struct {
	Message     string
	Replacement string
}

// Diagnostic is a structured, user-facing compiler message.
type Diagnostic struct {
	Level       Level
	Code        string
	Message     string
	Position    lex.Position
	Length      int
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

func (d Diagnostic) Error() string { return fmt.Sprintf("%s: %s", d.Position, d.Message) }

// Fault marks an internal invariant violation (spec.md §7 "Soundness
// violation") — e.g. two e-classes whose cvecs disagree were merged. It is
// never silently swallowed: the caller either attributes it to a specific
// rule (added to the synthesizer's poison set) or aborts the run.
type Fault struct {
	Message string
	Rule    string // name of the offending rule, if identifiable
}

func (f Fault) Error() string {
	if f.Rule != "" {
		return fmt.Sprintf("internal invariant violated by rule %q: %s", f.Rule, f.Message)
	}
	return fmt.Sprintf("internal invariant violated: %s", f.Message)
}

// Reporter formats diagnostics against one named source text.
type Reporter struct {
	filename string
	lines    []string
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	levelColor := levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		fmt.Fprintf(&out, "%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message)
	} else {
		fmt.Fprintf(&out, "%s: %s\n", levelColor(string(d.Level)), d.Message)
	}

	width := lineNumberWidth(d.Position.Line)
	indent := strings.Repeat(" ", width)

	fmt.Fprintf(&out, "%s %s %s\n", indent, dim("-->"), d.Position)
	fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))

	if d.Position.Line > 1 && d.Position.Line-1 < len(r.lines) {
		fmt.Fprintf(&out, "%s %s %s\n", dim(pad(width, d.Position.Line-1)), dim("│"), r.lines[d.Position.Line-2])
	}

	if d.Position.Line >= 1 && d.Position.Line <= len(r.lines) {
		line := r.lines[d.Position.Line-1]
		fmt.Fprintf(&out, "%s %s %s\n", bold(pad(width, d.Position.Line)), dim("│"), line)

		length := d.Length
		if length <= 0 {
			length = 1
		}
		spaces := strings.Repeat(" ", max(0, d.Position.Column-1))
		marker := markerColor(d.Level)(strings.Repeat("^", length))
		fmt.Fprintf(&out, "%s %s %s%s\n", indent, dim("│"), spaces, marker)
	}

	if d.Position.Line < len(r.lines) {
		fmt.Fprintf(&out, "%s %s %s\n", dim(pad(width, d.Position.Line+1)), dim("│"), r.lines[d.Position.Line])
	}

	if len(d.Suggestions) > 0 {
		fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
		help := color.New(color.FgCyan).SprintFunc()
		for i, s := range d.Suggestions {
			if i == 0 {
				fmt.Fprintf(&out, "%s %s: %s\n", indent, help("help"), s.Message)
			} else {
				fmt.Fprintf(&out, "%s %s\n", indent, s.Message)
			}
			if s.Replacement != "" {
				fmt.Fprintf(&out, "%s %s %s\n", indent, help("│"), help(s.Replacement))
			}
		}
	}

	for _, n := range d.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), noteColor("note:"), n)
	}

	if d.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), helpColor("help:"), d.HelpText)
	}

	out.WriteString("\n")
	return out.String()
}

func levelColor(l Level) func(...interface{}) string {
	switch l {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func markerColor(l Level) func(...interface{}) string {
	if l == Warning {
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	}
	return color.New(color.FgRed, color.Bold).SprintFunc()
}

func lineNumberWidth(line int) int {
	w := len(fmt.Sprintf("%d", line))
	if w < 3 {
		w = 3
	}
	return w
}

func pad(width, n int) string { return fmt.Sprintf("%*d", width, n) }

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
