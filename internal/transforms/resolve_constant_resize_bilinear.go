package transforms

import (
	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// ResolveConstantResizeBilinear drops the constant size input of a
// ResizeBilinear operator once the output shape already carries it.
type ResolveConstantResizeBilinear struct{}

func (t *ResolveConstantResizeBilinear) Name() string {
	return "ResolveConstantResizeBilinear"
}

func (t *ResolveConstantResizeBilinear) Description() string {
	return "Drops the constant size input of ResizeBilinear once the output shape is known"
}

func (t *ResolveConstantResizeBilinear) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)
	if op.Type != model.OpResizeBilinear {
		return NoMatch
	}
	if len(op.Inputs) == 1 {
		return NoMatch
	}
	errors.Check(len(op.Inputs) == 2, errors.ErrorOperatorArity,
		"%s has %d inputs, want 1 or 2", m.LogName(op), len(op.Inputs))

	// inputs[1] is [new_height, new_width].
	sizeName := op.Inputs[1]
	if !m.IsConstantParameterArray(sizeName) {
		return Deferred
	}
	size, ok := m.GetArray(sizeName).Int32Data()
	errors.Check(ok, errors.ErrorBufferType, "resize size %q must hold int32 data", sizeName)
	errors.Check(len(size) == 2, errors.ErrorBufferSize,
		"resize size %q holds %d values, want 2", sizeName, len(size))

	outputArray := m.GetArray(op.Outputs[0])
	errors.Check(outputArray.Buffer == nil, errors.ErrorConstantOutput,
		"resize output %q already holds constant data", outputArray.Name)
	if !outputArray.HasShape() {
		return Deferred
	}
	dims := *outputArray.Shape
	errors.Check(len(dims) == 4, errors.ErrorShapeMismatch,
		"resize output %q has rank %d, want 4", outputArray.Name, len(dims))
	errors.Check(dims[1] == int(size[0]) && dims[2] == int(size[1]), errors.ErrorShapeMismatch,
		"resize output %q is %dx%d but size is %dx%d", outputArray.Name, dims[1], dims[2], size[0], size[1])

	messagef(t, "Dropping constant size input of %s", m.LogName(op))

	op.Inputs = op.Inputs[:1:1]
	eraseIfDanglingLeaf(m, sizeName)
	return Applied
}
