package errors

import (
	"fmt"
	"io"
	"strings"
)

// TsluaError is the interface implemented by all tslua errors.
type TsluaError interface {
	error
	Pos() Position
	Kind() string // "Syntax", "Type", "Compile" or "Runtime"
	// Message returns the specific error message without position info.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// SyntaxError represents an error during lexing or parsing.
type SyntaxError struct {
	Position
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// TypeError represents an error found while resolving names and static types.
type TypeError struct {
	Position
	Msg   string
	Cause error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("Type Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *TypeError) Pos() Position   { return e.Position }
func (e *TypeError) Kind() string    { return "Type" }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }
func (e *TypeError) CausedBy(cause error) *TypeError {
	e.Cause = cause
	return e
}

// CompileError represents an error during lowering to Lua. Code is a stable
// tag that tests and tooling can match on instead of the message text.
type CompileError struct {
	Position
	Code  Code
	Msg   string
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("Compile Error at %d:%d: %s [%s]", e.Line, e.Column, e.Msg, e.Code)
}
func (e *CompileError) Pos() Position      { return e.Position }
func (e *CompileError) Kind() string       { return "Compile" }
func (e *CompileError) Message() string    { return e.Msg }
func (e *CompileError) Unwrap() error      { return e.Cause }
func (e *CompileError) Category() Category { return e.Code.Category() }
func (e *CompileError) CausedBy(cause error) *CompileError {
	e.Cause = cause
	return e
}

// RuntimeError represents a failure while executing emitted Lua.
type RuntimeError struct {
	Position
	Msg   string
	Cause error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Runtime Error: %s", e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }

// NewCompileError builds a CompileError with a formatted message.
func NewCompileError(pos Position, code Code, format string, args ...interface{}) *CompileError {
	return &CompileError{Position: pos, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// --- Error Reporting ---

// DisplayErrors writes errors to w in a user-friendly format, including the
// source line and a position marker when the source is known.
func DisplayErrors(w io.Writer, errs []TsluaError) {
	for _, err := range errs {
		pos := err.Pos()
		name := "<input>"
		if pos.Source != nil {
			name = pos.Source.DisplayPath()
		}
		fmt.Fprintf(w, "%s:%d:%d: %s Error: %s", name, pos.Line, pos.Column, err.Kind(), err.Message())
		if ce, ok := err.(*CompileError); ok {
			fmt.Fprintf(w, " [%s]", ce.Code)
		}
		fmt.Fprintln(w)

		if pos.Source == nil || pos.Line < 1 {
			continue
		}
		line := pos.Source.Line(pos.Line)
		if line == "" {
			continue
		}
		fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\t "))
		col := pos.Column - 1
		if col < 0 {
			col = 0
		}
		width := pos.EndPos - pos.StartPos
		if width < 1 || col+width > len(line) {
			width = 1
		}
		// Tabs in the prefix keep the marker aligned with the source line.
		prefix := []byte(line)
		if col > len(prefix) {
			col = len(prefix)
		}
		prefix = prefix[:col]
		for i, b := range prefix {
			if b != '\t' {
				prefix[i] = ' '
			}
		}
		fmt.Fprintf(w, "  %s^%s\n", prefix, strings.Repeat("~", width-1))
	}
}

// Sprint renders errors the way DisplayErrors does and returns the text.
func Sprint(errs []TsluaError) string {
	var sb strings.Builder
	DisplayErrors(&sb, errs)
	return sb.String()
}
