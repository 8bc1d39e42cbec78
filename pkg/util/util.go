// Package util holds the error taxonomy shared by the compiler stages and the
// coloured diagnostic printer used by the command line tools.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Kind classifies a failure by the stage that produced it
type Kind int

const (
	Structural Kind = iota
	Type
	Registry
	Generator
)

var kindNames = [...]string{
	Structural: "structural",
	Type:       "type",
	Registry:   "registry",
	Generator:  "generator",
}

func (k Kind) String() string { return kindNames[k] }

// Error is a single-sentence diagnostic tagged with its kind. Msg is the text a
// repair step receives verbatim.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error. A %w verb keeps the wrapped cause reachable.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: err.Error(), Err: errors.Unwrap(err)}
}

// KindOf returns the kind of the first Error in err's chain. Untagged errors
// are reported as Structural.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Structural
}

// Diagnostic locates a message inside an input file. Expr and Pos/Len, when
// set, point at the offending sub-expression.
type Diagnostic struct {
	File string
	Unit string
	Expr string
	Pos  int
	Len  int
	Msg  string
	Flag string
}

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorReset  = "\033[0m"
)

// Printer writes diagnostics, colouring them only when the stream is a terminal
type Printer struct {
	w     io.Writer
	color bool
}

func NewPrinter(w io.Writer) *Printer {
	p := &Printer{w: w}
	if f, ok := w.(*os.File); ok {
		p.color = term.IsTerminal(int(f.Fd()))
	}
	return p
}

// Stderr is the printer the tools report through
var Stderr = NewPrinter(os.Stderr)

func (p *Printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

func (p *Printer) location(d Diagnostic) string {
	var parts []string
	if d.File != "" {
		parts = append(parts, d.File)
	}
	if d.Unit != "" {
		parts = append(parts, d.Unit)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ":") + ": "
}

// printExprLine prints the offending expression with a caret under the span
func (p *Printer) printExprLine(d Diagnostic) {
	if d.Expr == "" {
		return
	}
	fmt.Fprintf(p.w, "  %s\n", d.Expr)
	if d.Pos < 0 || d.Pos > len(d.Expr) {
		return
	}
	marker := "^"
	if d.Len > 1 {
		marker += strings.Repeat("~", d.Len-1)
	}
	fmt.Fprintf(p.w, "  %s%s\n", strings.Repeat(" ", len([]rune(d.Expr[:d.Pos]))), p.paint(colorGreen, marker))
}

// Error prints an error diagnostic
func (p *Printer) Error(d Diagnostic) {
	fmt.Fprintf(p.w, "%s%s %s\n", p.location(d), p.paint(colorRed, "error:"), d.Msg)
	p.printExprLine(d)
}

// Warn prints a warning diagnostic followed by the flag that controls it
func (p *Printer) Warn(d Diagnostic) {
	fmt.Fprintf(p.w, "%s%s %s", p.location(d), p.paint(colorYellow, "warning:"), d.Msg)
	if d.Flag != "" {
		fmt.Fprintf(p.w, " [-W%s]", d.Flag)
	}
	fmt.Fprintln(p.w)
	p.printExprLine(d)
}

// Info prints a progress line
func (p *Printer) Info(prog, format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s: %s ", prog, p.paint(colorCyan, "info:"))
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}
