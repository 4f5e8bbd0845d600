// Package transforms implements the graph rewrite passes and the fixpoint
// pipeline that drives them.
package transforms

import (
	"fmt"

	"github.com/tliron/commonlog"

	"graphopt/internal/model"
)

var log = commonlog.GetLogger("graphopt.transforms")

// Result is the outcome of running a transformation on one operator.
type Result int

const (
	// NoMatch means the pattern is absent; the model is untouched.
	NoMatch Result = iota
	// Deferred means the operator is a candidate but waits on work another
	// transformation has yet to do (typically resolving a constant). The
	// model is untouched.
	Deferred
	// Applied means the model was rewritten.
	Applied
)

func (r Result) String() string {
	switch r {
	case Deferred:
		return "deferred"
	case Applied:
		return "applied"
	default:
		return "no-match"
	}
}

// Changed reports whether the model was mutated.
func (r Result) Changed() bool {
	return r == Applied
}

// Transformation is a single rewrite rule.
//
// Run inspects the operator at opIndex and either rewrites the model
// completely and returns Applied, or leaves it untouched. All validation
// happens before the first mutation. A transformation that discovers a
// broken assumption after committing to a match raises an invariant
// violation (see errors.Violationf) instead of returning.
type Transformation interface {
	Name() string
	Description() string
	Run(m *model.Model, opIndex int) Result
}

// messagef records a transformation message at debug level.
func messagef(t Transformation, format string, args ...any) {
	log.Debugf("%s: %s", t.Name(), fmt.Sprintf(format, args...))
}
