package transforms

import (
	"slices"

	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// fusion replaces a matched subgraph with one operator. Operators in matched
// are removed in order, so they must be listed consumers first: removing an
// operator erases its outputs, which only succeeds once every reader is gone.
type fusion struct {
	matched []*model.Operator
	anchor  *model.Operator // the fused operator takes this operator's place
	fused   *model.Operator
}

// apply performs the rewrite. Callers have validated the match; any failure
// here is an invariant violation.
func (f *fusion) apply(m *model.Model) model.OpID {
	pos := f.position(m)

	keep := make(map[string]bool)
	for _, name := range f.fused.Inputs {
		keep[name] = true
	}
	for _, name := range f.fused.Outputs {
		keep[name] = true
	}

	for _, op := range f.matched {
		if !m.RemoveOperator(op.ID) {
			errors.Violationf(errors.ErrorOperatorMissing, "%s was removed twice", m.LogName(op))
		}
		for _, name := range op.Outputs {
			if keep[name] {
				continue
			}
			if !m.EraseArray(name) {
				errors.Violationf(errors.ErrorArrayStillReferenced,
					"array %q is still used after removing its producer", name)
			}
		}
		for _, name := range op.Inputs {
			if keep[name] {
				continue
			}
			eraseIfDanglingLeaf(m, name)
		}
	}
	return m.InsertOperator(pos, f.fused)
}

// position is the index the anchor will have once the matched operators
// preceding it are gone.
func (f *fusion) position(m *model.Model) int {
	anchorIndex, ok := m.IndexOf(f.anchor.ID)
	if !ok {
		errors.Violationf(errors.ErrorOperatorMissing, "%s is not part of the model", m.LogName(f.anchor))
	}
	pos := anchorIndex
	for _, op := range f.matched {
		if i, ok := m.IndexOf(op.ID); ok && i < anchorIndex {
			pos--
		}
	}
	return pos
}

// eraseIfDanglingLeaf erases an array nobody reads or writes any more,
// unless it is pinned.
func eraseIfDanglingLeaf(m *model.Model, name string) bool {
	if !m.HasArray(name) || !m.IsDiscardableArray(name) {
		return false
	}
	if m.UseCount(name) > 0 || m.ProducerOf(name) != nil {
		return false
	}
	return m.EraseArray(name)
}

// earliest returns the operator of ops that comes first in the model.
func earliest(m *model.Model, ops ...*model.Operator) *model.Operator {
	best, bestIndex := ops[0], -1
	for _, op := range ops {
		if i, ok := m.IndexOf(op.ID); ok && (bestIndex < 0 || i < bestIndex) {
			best, bestIndex = op, i
		}
	}
	return best
}

// outputsOf collects the outputs of ops, skipping the names in except.
func outputsOf(ops []*model.Operator, except ...string) []string {
	var names []string
	for _, op := range ops {
		for _, name := range op.Outputs {
			if !slices.Contains(except, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// attrs returns the attribute payload of op as T, raising a violation when
// the payload does not match the operator type.
func attrs[T model.Attributes](m *model.Model, op *model.Operator) T {
	a, ok := op.Attrs.(T)
	if !ok {
		errors.Violationf(errors.ErrorAttributePayload,
			"%s carries %T attributes", m.LogName(op), op.Attrs)
	}
	return a
}

// isScalarFloat reports whether the named array is a one-element float32
// constant.
func isScalarFloat(m *model.Model, name string) bool {
	a, ok := m.FindArray(name)
	if !ok {
		return false
	}
	data, ok := a.FloatData()
	return ok && len(data) == 1
}
