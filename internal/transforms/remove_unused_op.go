package transforms

import (
	"graphopt/internal/model"
)

// RemoveUnusedOp discards operators none of whose outputs is read or pinned.
type RemoveUnusedOp struct{}

func (t *RemoveUnusedOp) Name() string {
	return "RemoveUnusedOp"
}

func (t *RemoveUnusedOp) Description() string {
	return "Removes operators whose outputs are neither consumed nor pinned"
}

func (t *RemoveUnusedOp) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)

	for _, output := range op.Outputs {
		if !m.IsDiscardableArray(output) {
			return NoMatch
		}
		if m.UseCount(output) > 0 {
			return NoMatch
		}
	}

	if op.UnresolvedOutputs {
		messagef(t, "Not discarding %s because it has unresolved outputs.", m.LogName(op))
		return NoMatch
	}

	messagef(t, "Discarding %s because none of its outputs is used.", m.LogName(op))

	inputs := append([]string{}, op.Inputs...)
	outputs := append([]string{}, op.Outputs...)
	m.RemoveOperator(op.ID)

	// Inputs go only when they were leaves used by this operator alone;
	// other operators' outputs are left for a later run of this pass.
	for _, input := range inputs {
		eraseIfDanglingLeaf(m, input)
	}
	for _, output := range outputs {
		m.EraseArray(output)
	}
	return Applied
}
