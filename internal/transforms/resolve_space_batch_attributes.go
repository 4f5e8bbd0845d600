package transforms

import (
	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// ResolveSpaceToBatchNDAttributes copies the constant block shape and
// paddings inputs of SpaceToBatchND into its attributes.
type ResolveSpaceToBatchNDAttributes struct{}

func (t *ResolveSpaceToBatchNDAttributes) Name() string {
	return "ResolveSpaceToBatchNDAttributes"
}

func (t *ResolveSpaceToBatchNDAttributes) Description() string {
	return "Materializes block shape and paddings of SpaceToBatchND into its attributes"
}

func (t *ResolveSpaceToBatchNDAttributes) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)
	if op.Type != model.OpSpaceToBatchND {
		return NoMatch
	}
	a := attrs[*model.SpaceToBatchNDAttrs](m, op)
	if len(a.BlockShape) > 0 {
		return NoMatch
	}
	errors.Check(len(op.Inputs) == 3, errors.ErrorOperatorArity,
		"%s has %d inputs, want 3", m.LogName(op), len(op.Inputs))

	blockShape, before, after, ok := readBlockParams(m, op)
	if !ok {
		return Deferred
	}
	a.BlockShape, a.BeforePaddings, a.AfterPaddings = blockShape, before, after
	messagef(t, "Resolved block shape of %s to %v", m.LogName(op), blockShape)
	return Applied
}

// ResolveBatchToSpaceNDAttributes copies the constant block shape and crops
// inputs of BatchToSpaceND into its attributes.
type ResolveBatchToSpaceNDAttributes struct{}

func (t *ResolveBatchToSpaceNDAttributes) Name() string {
	return "ResolveBatchToSpaceNDAttributes"
}

func (t *ResolveBatchToSpaceNDAttributes) Description() string {
	return "Materializes block shape and crops of BatchToSpaceND into its attributes"
}

func (t *ResolveBatchToSpaceNDAttributes) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)
	if op.Type != model.OpBatchToSpaceND {
		return NoMatch
	}
	a := attrs[*model.BatchToSpaceNDAttrs](m, op)
	if len(a.BlockShape) > 0 {
		return NoMatch
	}
	errors.Check(len(op.Inputs) == 3, errors.ErrorOperatorArity,
		"%s has %d inputs, want 3", m.LogName(op), len(op.Inputs))

	blockShape, before, after, ok := readBlockParams(m, op)
	if !ok {
		return Deferred
	}
	a.BlockShape, a.BeforeCrops, a.AfterCrops = blockShape, before, after
	messagef(t, "Resolved block shape of %s to %v", m.LogName(op), blockShape)
	return Applied
}

// readBlockParams reads inputs[1] (block shape, one entry per spatial
// dimension) and inputs[2] (a [dims, 2] table of before/after amounts).
func readBlockParams(m *model.Model, op *model.Operator) (blockShape, before, after []int, ok bool) {
	if !m.IsConstantParameterArray(op.Inputs[1]) || !m.IsConstantParameterArray(op.Inputs[2]) {
		return nil, nil, nil, false
	}
	block, isInt := m.GetArray(op.Inputs[1]).Int32Data()
	errors.Check(isInt, errors.ErrorBufferType, "block shape %q must hold int32 data", op.Inputs[1])
	amounts, isInt := m.GetArray(op.Inputs[2]).Int32Data()
	errors.Check(isInt, errors.ErrorBufferType, "array %q must hold int32 data", op.Inputs[2])
	errors.Check(len(block) > 0, errors.ErrorBufferSize, "block shape %q is empty", op.Inputs[1])
	errors.Check(len(amounts) == 2*len(block), errors.ErrorBufferSize,
		"array %q holds %d values, want %d", op.Inputs[2], len(amounts), 2*len(block))

	for i, b := range block {
		blockShape = append(blockShape, int(b))
		before = append(before, int(amounts[2*i]))
		after = append(after, int(amounts[2*i+1]))
	}
	return blockShape, before, after, true
}
