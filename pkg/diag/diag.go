// Package diag defines the error taxonomy shared by the parser, the compiler
// pipeline and the component manager.
//
// Every failure is reported as an *Error carrying a Kind, an optional source
// location and, for script failures, a formatted snippet of the offending
// code. Callers branch on the kind with IsKind or on the sentinel values with
// errors.Is.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an Error.
type Kind string

const (
	KindParse      Kind = "parse"      // unterminated tag/comment, mismatched closer
	KindStructural Kind = "structural" // bad conditional chain, slot misuse, void mutation
	KindScript     Kind = "script"     // evaluation failure inside an embedded expression
	KindResource   Kind = "resource"   // missing external file
	KindInternal   Kind = "internal"   // unreachable states
)

// Sentinels usable with errors.Is.
var (
	ErrVoidElement    = errors.New("void element has no children")
	ErrUnknownNode    = errors.New("unknown node kind")
	ErrEmptyComponent = errors.New("component body is empty")
	ErrDuplicateSlot  = errors.New("duplicate slot")
	ErrNotFound       = errors.New("not found")
)

// Error is the structured error produced throughout hypermark.
type Error struct {
	Kind    Kind
	Message string
	File    string // file path or diagnostic label, if known
	Line    int    // 1-based, 0 if unknown
	Column  int    // 1-based, 0 if unknown
	Snippet string // formatted source context, script errors only
	Err     error  // wrapped cause
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	}
	sb.WriteString(e.Message)
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Pretty returns a multi-line rendering including the snippet, if any.
func (e *Error) Pretty() string {
	var sb strings.Builder
	switch e.Kind {
	case KindParse:
		sb.WriteString("Parse error")
	case KindStructural:
		sb.WriteString("Structural error")
	case KindScript:
		sb.WriteString("Script error")
	case KindResource:
		sb.WriteString("Resource error")
	default:
		sb.WriteString("Internal error")
	}
	if e.File != "" {
		sb.WriteString("\n  in: ")
		sb.WriteString(e.File)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "\n  at: line %d, column %d", e.Line, e.Column)
	}
	sb.WriteString("\n  ")
	sb.WriteString(e.Message)
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Snippet != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Snippet)
	}
	return sb.String()
}

func newError(kind Kind, line, col int, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{
		Kind:    kind,
		Message: err.Error(),
		Line:    line,
		Column:  col,
		Err:     errors.Unwrap(err),
	}
}

// Parse returns a parse error at the given location.
func Parse(line, col int, format string, args ...any) *Error {
	return newError(KindParse, line, col, format, args...)
}

// Structural returns a structural error at the given location. Line and
// column may be zero when the location is unknown.
func Structural(line, col int, format string, args ...any) *Error {
	return newError(KindStructural, line, col, format, args...)
}

// Resource returns a resource error wrapping cause.
func Resource(cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    KindResource,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// Internal returns an internal error.
func Internal(format string, args ...any) *Error {
	return newError(KindInternal, 0, 0, format, args...)
}

// Script builds a script error for code evaluated under label. The snippet
// is rendered around line when line is known.
func Script(cause error, label, code string, line, col int) *Error {
	return &Error{
		Kind:    KindScript,
		Message: "evaluating " + label,
		File:    "",
		Line:    line,
		Column:  col,
		Snippet: Snippet(code, line, col),
		Err:     cause,
	}
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// WithFile sets the file label on err when it is an *Error without one.
// Other errors are wrapped as-is.
func WithFile(err error, file string) error {
	if err == nil || file == "" {
		return err
	}
	var de *Error
	if errors.As(err, &de) {
		if de.File == "" {
			de.File = file
		}
		return err
	}
	return fmt.Errorf("%s: %w", file, err)
}

// At fills in the location of err when it is an *Error without one.
func At(err error, line, col int) error {
	var de *Error
	if errors.As(err, &de) && de.Line == 0 {
		de.Line, de.Column = line, col
	}
	return err
}
