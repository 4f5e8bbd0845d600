package transforms

import (
	"graphopt/internal/match"
	"graphopt/internal/model"
)

// ResolveLeakyRelu fuses
//
//	m = Mul(x, alpha)
//	y = Maximum(x, m)
//
// into y = LeakyRelu(alpha, x), with alpha a constant scalar.
type ResolveLeakyRelu struct{}

func (t *ResolveLeakyRelu) Name() string {
	return "ResolveLeakyRelu"
}

func (t *ResolveLeakyRelu) Description() string {
	return "Fuses Mul+Maximum into LeakyRelu"
}

func (t *ResolveLeakyRelu) Run(m *model.Model, opIndex int) Result {
	mulOp := m.OperatorAt(opIndex)
	if mulOp.Type != model.OpMul || len(mulOp.Inputs) != 2 || len(mulOp.Outputs) != 1 {
		return NoMatch
	}
	maximumOp := match.SoleConsumer(m, mulOp.Outputs[0])
	if maximumOp == nil || maximumOp.Type != model.OpMaximum || len(maximumOp.Outputs) != 1 {
		return NoMatch
	}
	x, ok := match.OtherInput(maximumOp, mulOp.Outputs[0])
	if !ok {
		return NoMatch
	}

	alphaName, ok := match.OtherInput(mulOp, x)
	if !ok {
		return NoMatch
	}
	if !m.IsConstantParameterArray(alphaName) {
		if m.IsInputArray(alphaName) {
			return NoMatch
		}
		// Yield until alpha is resolved as a constant array.
		return Deferred
	}
	if !isScalarFloat(m, alphaName) {
		return NoMatch
	}
	if !match.ExclusivelyConsumed(m, mulOp.Outputs, []*model.Operator{maximumOp}) {
		return NoMatch
	}
	messagef(t, "Found LeakyRelu pattern: mul=%s, maximum=%s", m.LogName(mulOp), m.LogName(maximumOp))

	alpha := scalarFloat(m, alphaName)

	// Constants may have any number of readers, so alpha is wired as is.
	leakyRelu := model.NewOperator(model.OpLeakyRelu, []string{alphaName, x}, maximumOp.Outputs)
	leakyRelu.Attrs.(*model.LeakyReluAttrs).Alpha = alpha

	f := &fusion{
		matched: []*model.Operator{maximumOp, mulOp},
		anchor:  earliest(m, mulOp, maximumOp),
		fused:   leakyRelu,
	}
	f.apply(m)
	return Applied
}
