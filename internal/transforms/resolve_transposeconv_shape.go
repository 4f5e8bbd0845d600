package transforms

import (
	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// ResolveTransposeConvShape copies the constant output-shape input of a
// TransposeConv operator into its attributes.
type ResolveTransposeConvShape struct{}

func (t *ResolveTransposeConvShape) Name() string {
	return "ResolveTransposeConvShape"
}

func (t *ResolveTransposeConvShape) Description() string {
	return "Materializes the constant output shape of TransposeConv into its attributes"
}

func (t *ResolveTransposeConvShape) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)
	if op.Type != model.OpTransposeConv {
		return NoMatch
	}
	conv := attrs[*model.TransposeConvAttrs](m, op)
	if conv.OutShape != [4]int{} {
		return NoMatch
	}
	errors.Check(len(op.Inputs) >= 3, errors.ErrorOperatorArity,
		"%s has %d inputs, want at least 3", m.LogName(op), len(op.Inputs))

	shapeName := op.Inputs[0]
	if !m.IsConstantParameterArray(shapeName) {
		return Deferred
	}
	data, ok := m.GetArray(shapeName).Int32Data()
	errors.Check(ok, errors.ErrorBufferType, "output shape %q must hold int32 data", shapeName)
	errors.Check(len(data) == 4, errors.ErrorBufferSize,
		"output shape %q holds %d values, want 4", shapeName, len(data))

	var shape [4]int
	for i, d := range data {
		shape[i] = int(d)
	}
	// An all-zero constant leaves the shape unresolved; copying it would
	// match again on the next visit.
	if shape == conv.OutShape {
		return NoMatch
	}
	conv.OutShape = shape
	messagef(t, "Resolved output shape of %s to %v", m.LogName(op), conv.OutShape)
	return Applied
}
