package errors

import (
	"fmt"
	"io"
	"strings"
)

// ProteusError is the interface implemented by all proteus errors.
type ProteusError interface {
	error // Embed the standard error interface
	Pos() Position
	Kind() string // e.g., "Syntax", "Type", "Reference", "Runtime"
	// Message returns the specific error message without position info.
	Message() string
	Unwrap() error // For error wrapping support (errors.Is/As)
}

func format(kind string, pos Position, msg string) string {
	if !pos.IsValid() {
		return fmt.Sprintf("%s Error: %s", kind, msg)
	}
	return fmt.Sprintf("%s Error at %d:%d: %s", kind, pos.Line, pos.Column, msg)
}

// --- Concrete Error Types ---

// SyntaxError represents an error while lexing or parsing script input.
type SyntaxError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *SyntaxError) Error() string   { return format(e.Kind(), e.Position, e.Msg) }
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// TypeError is raised when a value is used as something it is not, most
// commonly calling a non-function attribute.
type TypeError struct {
	Position
	Msg   string
	Cause error
}

func (e *TypeError) Error() string   { return format(e.Kind(), e.Position, e.Msg) }
func (e *TypeError) Pos() Position   { return e.Position }
func (e *TypeError) Kind() string    { return "Type" }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }
func (e *TypeError) CausedBy(cause error) *TypeError {
	e.Cause = cause
	return e
}

// ReferenceError reports a name that does not refer to anything, such as a
// script naming an object that was never created.
type ReferenceError struct {
	Position
	Msg   string
	Cause error
}

func (e *ReferenceError) Error() string   { return format(e.Kind(), e.Position, e.Msg) }
func (e *ReferenceError) Pos() Position   { return e.Position }
func (e *ReferenceError) Kind() string    { return "Reference" }
func (e *ReferenceError) Message() string { return e.Msg }
func (e *ReferenceError) Unwrap() error   { return e.Cause }
func (e *ReferenceError) CausedBy(cause error) *ReferenceError {
	e.Cause = cause
	return e
}

// RuntimeError represents a failure while executing a command: refused
// extension in a script, a failing guard expression, snapshot I/O.
type RuntimeError struct {
	Position
	Msg   string
	Cause error
}

func (e *RuntimeError) Error() string {
	msg := format(e.Kind(), e.Position, e.Msg)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }
func (e *RuntimeError) Unwrap() error   { return e.Cause }
func (e *RuntimeError) CausedBy(cause error) *RuntimeError {
	e.Cause = cause
	return e
}

// --- Error Reporting ---

// DisplayErrors writes errs to w in a user-friendly format, including the
// source line and a position marker when the position is known.
func DisplayErrors(w io.Writer, source string, errs []ProteusError) {
	if len(errs) == 0 {
		return
	}

	lines := strings.Split(source, "\n")

	for _, err := range errs {
		pos := err.Pos()
		kind := err.Kind()
		msg := err.Message()
		if c := err.Unwrap(); c != nil {
			msg += ": " + c.Error()
		}

		lineIdx := pos.Line - 1
		if lineIdx < 0 || lineIdx >= len(lines) {
			fmt.Fprintf(w, "%s Error: %s\n", kind, msg)
			continue
		}

		sourceLine := strings.TrimRight(lines[lineIdx], "\r\n\t ")

		// Format: <Kind> Error at <Line>:<Column>: <Message>
		fmt.Fprintf(w, "%s Error at %d:%d: %s\n", kind, pos.Line, pos.Column, msg)
		fmt.Fprintf(w, "  %s\n", sourceLine)

		col := pos.Column - 1
		if col < 0 {
			col = 0
		}
		marker := strings.Repeat(" ", col) + "^"
		if span := pos.EndPos - pos.StartPos; span > 1 {
			marker += strings.Repeat("~", span-1)
		}
		fmt.Fprintf(w, "  %s\n", marker)
		fmt.Fprintln(w)
	}
}
