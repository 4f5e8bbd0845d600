package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// InvariantError reports an assumption a transformation relies on that does
// not hold for the model being rewritten.
type InvariantError struct {
	Code           string
	Message        string
	Transformation string // name of the transformation that raised it, if known
	Operator       string // log name of the operator being rewritten, if known
	Notes          []string
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s", e.Code, e.Message)
	if e.Transformation != "" {
		fmt.Fprintf(&b, " (in %s", e.Transformation)
		if e.Operator != "" {
			fmt.Fprintf(&b, " at %s", e.Operator)
		}
		b.WriteString(")")
	}
	return b.String()
}

// NewInvariantError builds a violation without raising it.
func NewInvariantError(code, format string, args ...any) *InvariantError {
	return &InvariantError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Violationf raises an invariant violation. Transformations call it once a
// match is committed and a required assumption turns out to be false; the
// pipeline recovers it and aborts the run.
func Violationf(code, format string, args ...any) {
	panic(NewInvariantError(code, format, args...))
}

// Check raises a violation with the given code unless cond holds.
func Check(cond bool, code, format string, args ...any) {
	if !cond {
		Violationf(code, format, args...)
	}
}

// WithNote appends a context note.
func (e *InvariantError) WithNote(note string) *InvariantError {
	e.Notes = append(e.Notes, note)
	return e
}

// As finds the first invariant violation in err's chain.
func As(err error, target **InvariantError) bool {
	return pkgerrors.As(err, target)
}
