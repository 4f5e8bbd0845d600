package match

import (
	"slices"

	"graphopt/internal/model"
)

// SoleConsumer returns the operator reading the named array when there is
// exactly one, or nil otherwise.
func SoleConsumer(m *model.Model, name string) *model.Operator {
	consumers := m.ConsumersOf(name)
	if len(consumers) != 1 {
		return nil
	}
	return consumers[0]
}

// OtherInput returns the input of a binary operator that is not name, or
// ok=false if name is not exactly one of the inputs.
func OtherInput(op *model.Operator, name string) (string, bool) {
	if len(op.Inputs) != 2 {
		return "", false
	}
	switch {
	case op.Inputs[0] == name && op.Inputs[1] != name:
		return op.Inputs[1], true
	case op.Inputs[1] == name && op.Inputs[0] != name:
		return op.Inputs[0], true
	default:
		return "", false
	}
}

// ExclusivelyConsumed reports whether the given arrays can disappear with the
// matched operators: none of them is pinned, and every operator reading
// them is part of within.
func ExclusivelyConsumed(m *model.Model, arrays []string, within []*model.Operator) bool {
	for _, name := range arrays {
		if !m.IsDiscardableArray(name) {
			return false
		}
		for _, consumer := range m.ConsumersOf(name) {
			if !slices.Contains(within, consumer) {
				return false
			}
		}
	}
	return true
}

// Distinct reports whether no operator appears twice in ops.
func Distinct(ops ...*model.Operator) bool {
	seen := make(map[model.OpID]bool, len(ops))
	for _, op := range ops {
		if op == nil || seen[op.ID] {
			return false
		}
		seen[op.ID] = true
	}
	return true
}
