package transforms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"graphopt/internal/errors"
	"graphopt/internal/graphtext"
	"graphopt/internal/model"
)

// runOn runs pass on the first operator of type typ.
func runOn(t *testing.T, m *model.Model, pass Transformation, typ model.OperatorType) Result {
	t.Helper()
	for i := 0; i < m.OperatorCount(); i++ {
		if m.OperatorAt(i).Type == typ {
			return pass.Run(m, i)
		}
	}
	require.Failf(t, "operator not found", "no %s operator in the model", typ)
	return NoMatch
}

// runEverywhere runs pass once on every operator index and returns the
// first non-NoMatch result. It stops after the first applied rewrite.
func runEverywhere(m *model.Model, pass Transformation) Result {
	result := NoMatch
	for i := 0; i < m.OperatorCount(); i++ {
		switch r := pass.Run(m, i); r {
		case Applied:
			return r
		case Deferred:
			result = r
		}
	}
	return result
}

// optimize runs the given transformations to fixpoint with verification on.
func optimize(t *testing.T, m *model.Model, passes ...Transformation) *Report {
	t.Helper()
	report, err := NewPipeline(Options{Verify: true}, passes...).Run(context.Background(), m)
	require.NoError(t, err)
	return report
}

func operatorTypes(m *model.Model) []model.OperatorType {
	var types []model.OperatorType
	for _, op := range m.Operators() {
		types = append(types, op.Type)
	}
	return types
}

// violationCode runs fn and returns the code of the invariant violation it
// raises, or "" if it returns normally.
func violationCode(t *testing.T, fn func()) string {
	t.Helper()
	if violation := raisedViolation(t, fn); violation != nil {
		return violation.Code
	}
	return ""
}

// raisedViolation runs fn and returns the invariant violation it panicked
// with, or nil if it returned normally.
func raisedViolation(t *testing.T, fn func()) (violation *errors.InvariantError) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			violation, ok = r.(*errors.InvariantError)
			require.Truef(t, ok, "panic value %v is not an invariant violation", r)
		}
	}()
	fn()
	return nil
}

func parse(t *testing.T, source string) *model.Model {
	t.Helper()
	m, err := graphtext.Parse(t.Name(), source)
	require.NoError(t, err)
	return m
}
