package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// ErrorKind classifies script failures.
type ErrorKind uint8

const (
	// ErrType is a value of the wrong datatype (argument checks).
	ErrType ErrorKind = iota
	// ErrScript is a runtime failure: unset word, end of block, bad path.
	ErrScript
	// ErrInternal is an evaluator failure such as frame-stack overflow.
	// It aborts the evaluation and is never caught.
	ErrInternal
	// ErrThrow is a value raised by throw that nothing caught.
	ErrThrow
)

var errorKindNames = [...]string{
	ErrType:     "type",
	ErrScript:   "script",
	ErrInternal: "internal",
	ErrThrow:    "throw",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is a script error value. It is both a Go error returned to the
// host and the payload of an error! cell inside the evaluator.
type Error struct {
	Kind    ErrorKind
	Message string
	ArgN    int    // 1-based argument position of a type error, else 0
	Where   string // molded source near the failure, if known
	Value   Cell   // thrown value for ErrThrow

	// Incomplete is set when the source ended inside an open block.
	Incomplete bool
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(" error: ")
	sb.WriteString(e.Message)
	if e.Where != "" {
		sb.WriteString(" near ")
		sb.WriteString(e.Where)
	}
	return sb.String()
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func typeError(format string, args ...any) *Error {
	return newError(ErrType, format, args...)
}

func scriptError(format string, args ...any) *Error {
	return newError(ErrScript, format, args...)
}

func internalError(format string, args ...any) *Error {
	return newError(ErrInternal, format, args...)
}

// ---------------------------------------------------------------------------
// Non-local control signals
// ---------------------------------------------------------------------------

// thrown carries a value raised by throw through the unwinder.
type thrown struct {
	value Cell
}

func (t *thrown) Error() string { return "uncaught throw" }

// errReturn is raised by return; the nearest function body absorbs it.
var errReturn = errors.New("return outside of function")

// errReframed is returned by natives that replaced their own call frame.
// It is a signal to the run loop, never an evaluation failure.
var errReframed = errors.New("reframed")

// exceptionCell converts a raised Go error into the current-exception cell.
func exceptionCell(err error) Cell {
	var t *thrown
	if errors.As(err, &t) {
		return t.value
	}
	var e *Error
	if errors.As(err, &e) {
		return ErrorCell(e)
	}
	return ErrorCell(internalError("%v", err))
}

// isInternal reports whether err must bypass every catch frame.
func isInternal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrInternal
}
