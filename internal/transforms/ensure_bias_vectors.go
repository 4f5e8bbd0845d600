package transforms

import (
	"graphopt/internal/model"
)

// EnsureBiasVectors gives every linear operator an explicit bias input, so
// later transformations and exporters can rely on a fixed input count.
type EnsureBiasVectors struct{}

func (t *EnsureBiasVectors) Name() string {
	return "EnsureBiasVectors"
}

func (t *EnsureBiasVectors) Description() string {
	return "Adds a bias vector to Conv, DepthwiseConv, FullyConnected and TransposeConv"
}

func (t *EnsureBiasVectors) Run(m *model.Model, opIndex int) Result {
	op := m.OperatorAt(opIndex)

	inputsWithBias := 3
	switch op.Type {
	case model.OpConv, model.OpDepthwiseConv, model.OpFullyConnected:
	case model.OpTransposeConv:
		inputsWithBias = 4
	default:
		return NoMatch
	}
	if len(op.Inputs) != inputsWithBias-1 || len(op.Outputs) == 0 {
		return NoMatch
	}

	biasName := m.AvailableName(op.Outputs[0] + "_bias")
	bias := m.GetOrCreateArray(biasName)
	bias.DataType = model.Float32
	if depth, ok := outputDepth(m, op); ok {
		bias.SetShape(depth)
		bias.SetFloatData(make([]float32, depth)...)
	}
	op.Inputs = append(op.Inputs, biasName)

	messagef(t, "Added bias vector to %s", m.LogName(op))
	return Applied
}

// outputDepth infers the number of output channels from the weights shape.
// Weights are always inputs[1]. Conv, FullyConnected and TransposeConv
// weights lead with the output depth; depthwise weights end with it.
func outputDepth(m *model.Model, op *model.Operator) (int, bool) {
	weights, ok := m.FindArray(op.Inputs[1])
	if !ok || !weights.HasShape() || len(*weights.Shape) == 0 {
		return 0, false
	}
	dims := *weights.Shape
	depth := dims[0]
	if op.Type == model.OpDepthwiseConv {
		depth = dims[len(dims)-1]
	}
	if depth <= 0 {
		return 0, false
	}
	return depth, true
}
