package transforms

import (
	"graphopt/internal/errors"
	"graphopt/internal/model"
)

// ResolveConstantDequantize folds the constant min/max inputs of a
// Dequantize operator into quantization parameters on its input and output
// arrays, then drops those inputs.
type ResolveConstantDequantize struct{}

func (t *ResolveConstantDequantize) Name() string {
	return "ResolveConstantDequantize"
}

func (t *ResolveConstantDequantize) Description() string {
	return "Folds constant min/max inputs of Dequantize into quantization parameters"
}

func (t *ResolveConstantDequantize) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)
	if op.Type != model.OpDequantize {
		return NoMatch
	}
	if len(op.Inputs) == 1 {
		return NoMatch
	}
	errors.Check(len(op.Inputs) == 3, errors.ErrorOperatorArity,
		"%s has %d inputs, want 1 or 3", m.LogName(op), len(op.Inputs))

	// inputs[1] is min, inputs[2] is max.
	if !m.IsConstantParameterArray(op.Inputs[1]) || !m.IsConstantParameterArray(op.Inputs[2]) {
		return Deferred
	}

	inputArray := m.GetArray(op.Inputs[0])
	outputArray := m.GetArray(op.Outputs[0])
	errors.Check(inputArray.DataType == model.Uint8, errors.ErrorBufferType,
		"dequantize input %q is %s, want uint8", inputArray.Name, inputArray.DataType)
	errors.Check(outputArray.Buffer == nil, errors.ErrorConstantOutput,
		"dequantize output %q already holds constant data", outputArray.Name)

	minValue := scalarFloat(m, op.Inputs[1])
	maxValue := scalarFloat(m, op.Inputs[2])

	outputArray.DataType = model.Float32
	qmin, qmax, _ := model.QuantizationRange(model.Uint8)
	for _, a := range []*model.Array{inputArray, outputArray} {
		mm := a.GetOrCreateMinMax()
		mm.Min = float64(minValue)
		mm.Max = float64(maxValue)
		*a.GetOrCreateQuantizationParams() = model.ChooseQuantizationParams(*mm, qmin, qmax)
	}

	messagef(t, "Resolved %s with range [%g, %g]", m.LogName(op), minValue, maxValue)

	dropped := op.Inputs[1:]
	op.Inputs = op.Inputs[:1:1]
	for _, name := range dropped {
		eraseIfDanglingLeaf(m, name)
	}
	return Applied
}

// scalarFloat reads a one-element float32 constant.
func scalarFloat(m *model.Model, name string) float32 {
	data, ok := m.GetArray(name).FloatData()
	errors.Check(ok, errors.ErrorBufferType, "array %q must hold float32 data", name)
	errors.Check(len(data) == 1, errors.ErrorBufferSize,
		"array %q holds %d values, want a scalar", name, len(data))
	return data[0]
}
