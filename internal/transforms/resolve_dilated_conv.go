package transforms

import (
	"graphopt/internal/match"
	"graphopt/internal/model"
)

// ResolveDilatedConv fuses the SpaceToBatchND -> Conv -> BatchToSpaceND
// sequence that frameworks emit for atrous convolutions into a single
// DilatedConv operator.
type ResolveDilatedConv struct{}

func (t *ResolveDilatedConv) Name() string {
	return "ResolveDilatedConv"
}

func (t *ResolveDilatedConv) Description() string {
	return "Fuses SpaceToBatchND+Conv+BatchToSpaceND into DilatedConv"
}

func (t *ResolveDilatedConv) Run(m *model.Model, opIndex int) Result {
	spaceToBatch := m.OperatorAt(opIndex)
	if spaceToBatch.Type != model.OpSpaceToBatchND || len(spaceToBatch.Inputs) == 0 || len(spaceToBatch.Outputs) != 1 {
		return NoMatch
	}

	convOp := match.SoleConsumer(m, spaceToBatch.Outputs[0])
	if convOp == nil {
		messagef(t, "Conv op not found after %s", m.LogName(spaceToBatch))
		return NoMatch
	}
	if convOp.Type != model.OpConv || len(convOp.Inputs) < 2 || convOp.Inputs[0] != spaceToBatch.Outputs[0] {
		return NoMatch
	}
	conv := attrs[*model.ConvAttrs](m, convOp)
	if conv.StrideWidth != 1 || conv.StrideHeight != 1 {
		return NoMatch
	}

	batchToSpace := match.SoleConsumer(m, convOp.Outputs[0])
	if batchToSpace == nil {
		messagef(t, "BatchToSpaceND op not found after %s", m.LogName(convOp))
		return NoMatch
	}
	if batchToSpace.Type != model.OpBatchToSpaceND || len(batchToSpace.Inputs) == 0 ||
		batchToSpace.Inputs[0] != convOp.Outputs[0] {
		return NoMatch
	}

	weights := m.GetArray(convOp.Inputs[1])
	if weights.Buffer == nil {
		// Yield until the weights are resolved as a constant array.
		return Deferred
	}
	if weights.DataType != model.Float32 {
		return NoMatch
	}

	blocks := attrs[*model.SpaceToBatchNDAttrs](m, spaceToBatch)
	if len(blocks.BlockShape) == 0 {
		// Yield until the block shape has been resolved into attributes.
		return Deferred
	}
	rate := blocks.BlockShape[0]
	if rate <= 0 {
		return NoMatch
	}

	matched := []*model.Operator{batchToSpace, convOp, spaceToBatch}
	// The conv's extra outputs (an im2col scratch buffer) go away with it.
	intermediate := append([]string{spaceToBatch.Outputs[0]}, convOp.Outputs...)
	if !match.ExclusivelyConsumed(m, intermediate, matched) {
		return NoMatch
	}
	messagef(t, "Found dilated convolution: %s, %s, %s",
		m.LogName(spaceToBatch), m.LogName(convOp), m.LogName(batchToSpace))

	inputs := append([]string{}, convOp.Inputs...)
	inputs[0] = spaceToBatch.Inputs[0]
	dilated := model.NewOperator(model.OpDilatedConv, inputs, batchToSpace.Outputs)
	dilated.FusedActivation = convOp.FusedActivation

	padding := model.PaddingSame
	if len(blocks.BeforePaddings) == 0 || blocks.BeforePaddings[0] == 0 {
		padding = model.PaddingValid
	}
	dilatedAttrs := dilated.Attrs.(*model.DilatedConvAttrs)
	dilatedAttrs.Rate = rate
	dilatedAttrs.Padding = padding

	f := &fusion{
		matched: matched,
		anchor:  convOp,
		fused:   dilated,
	}
	f.apply(m)
	return Applied
}
