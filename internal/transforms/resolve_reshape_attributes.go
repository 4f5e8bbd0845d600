package transforms

import (
	"slices"

	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// ResolveReshapeAttributes copies a constant target shape into the Reshape
// operator's attributes. When every dimension is fixed, the batch dimension
// is made dynamic (-1) both in the attributes and in the shape array.
type ResolveReshapeAttributes struct{}

func (t *ResolveReshapeAttributes) Name() string {
	return "ResolveReshapeAttributes"
}

func (t *ResolveReshapeAttributes) Description() string {
	return "Materializes the constant target shape of Reshape into its attributes"
}

func (t *ResolveReshapeAttributes) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)
	if op.Type != model.OpReshape {
		return NoMatch
	}
	reshape := attrs[*model.ReshapeAttrs](m, op)
	if len(reshape.Shape) > 0 {
		return NoMatch
	}
	if len(op.Inputs) < 2 {
		return NoMatch
	}

	shapeName := op.Inputs[1]
	if !m.IsConstantParameterArray(shapeName) {
		return Deferred
	}
	shapeArray := m.GetArray(shapeName)
	data, ok := shapeArray.Int32Data()
	errors.Check(ok, errors.ErrorBufferType, "reshape shape %q must hold int32 data", shapeName)
	if len(data) == 0 {
		return NoMatch
	}

	shape := make([]int, len(data))
	for i, d := range data {
		shape[i] = int(d)
	}
	if !slices.Contains(shape, -1) {
		shape[0] = -1
		data[0] = -1
	}
	reshape.Shape = shape

	messagef(t, "Resolved target shape of %s to %v", m.LogName(op), shape)
	return Applied
}
