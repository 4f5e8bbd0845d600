package transforms

import (
	"slices"

	"graphopt/internal/match"
	"graphopt/internal/model"
)

// ResolvePRelu recognizes the decomposed parametric relu
//
//	a = Abs(x)
//	s = Sub(x, a)
//	n = Mul(s, c1)
//	n' = Mul(n, c2)   ; optional
//	r = Relu(x)
//	y = Add(r, n')
//
// and replaces it with y = PRelu(x, alpha) where alpha = c1 * c2 (c2 = 1
// when the second multiply is absent).
type ResolvePRelu struct{}

func (t *ResolvePRelu) Name() string {
	return "ResolvePRelu"
}

func (t *ResolvePRelu) Description() string {
	return "Fuses Abs/Sub/Mul/Add/Relu into PRelu with a folded alpha"
}

func (t *ResolvePRelu) Run(m *model.Model, opIndex int) Result {
	absOp := m.OperatorAt(opIndex)
	if absOp.Type != model.OpAbs || len(absOp.Inputs) != 1 || len(absOp.Outputs) != 1 {
		return NoMatch
	}
	x := absOp.Inputs[0]

	subOp := match.SoleConsumer(m, absOp.Outputs[0])
	if subOp == nil || subOp.Type != model.OpSub || len(subOp.Outputs) != 1 {
		return NoMatch
	}
	if !slices.Equal(subOp.Inputs, []string{x, absOp.Outputs[0]}) {
		return NoMatch
	}
	messagef(t, "Searching PRelu pattern: abs=%s, sub=%s", m.LogName(absOp), m.LogName(subOp))

	mulOp := match.SoleConsumer(m, subOp.Outputs[0])
	if mulOp == nil || mulOp.Type != model.OpMul || len(mulOp.Outputs) != 1 {
		return NoMatch
	}
	c1, ok := match.OtherInput(mulOp, subOp.Outputs[0])
	if !ok {
		return NoMatch
	}

	next := match.SoleConsumer(m, mulOp.Outputs[0])
	if next == nil || len(next.Outputs) != 1 {
		return NoMatch
	}
	var mul1Op, addOp *model.Operator
	var c2 string
	switch next.Type {
	case model.OpMul:
		mul1Op = next
		if c2, ok = match.OtherInput(mul1Op, mulOp.Outputs[0]); !ok {
			return NoMatch
		}
		addOp = match.SoleConsumer(m, mul1Op.Outputs[0])
		if addOp == nil || addOp.Type != model.OpAdd || len(addOp.Outputs) != 1 {
			return NoMatch
		}
	case model.OpAdd:
		addOp = next
	default:
		return NoMatch
	}
	negative := mulOp.Outputs[0]
	if mul1Op != nil {
		negative = mul1Op.Outputs[0]
	}

	positive, ok := match.OtherInput(addOp, negative)
	if !ok {
		return NoMatch
	}
	reluOp := m.ProducerOf(positive)
	if reluOp == nil || reluOp.Type != model.OpRelu || !slices.Equal(reluOp.Inputs, []string{x}) {
		return NoMatch
	}

	multipliers := []string{c1}
	if mul1Op != nil {
		multipliers = append(multipliers, c2)
	}
	for _, name := range multipliers {
		if !m.IsConstantParameterArray(name) {
			if m.ProducerOf(name) == nil && m.IsInputArray(name) {
				return NoMatch
			}
			// Yield until the multipliers are resolved as constant arrays.
			return Deferred
		}
		if !isScalarFloat(m, name) {
			return NoMatch
		}
	}

	matched := []*model.Operator{addOp}
	if mul1Op != nil {
		matched = append(matched, mul1Op)
	}
	matched = append(matched, mulOp, subOp, absOp, reluOp)
	if !match.Distinct(matched...) {
		return NoMatch
	}
	if !match.ExclusivelyConsumed(m, outputsOf(matched, addOp.Outputs[0]), matched) {
		return NoMatch
	}
	messagef(t, "Found PRelu pattern ending at %s", m.LogName(addOp))

	alpha := float32(1)
	for _, name := range multipliers {
		alpha *= scalarFloat(m, name)
	}

	alphaName := m.AvailableName("alpha")
	alphaArray := m.GetOrCreateArray(alphaName)
	alphaArray.SetShape(1)
	alphaArray.SetFloatData(alpha)

	prelu := model.NewOperator(model.OpPRelu, []string{x, alphaName}, addOp.Outputs)
	f := &fusion{
		matched: matched,
		anchor:  earliest(m, matched...),
		fused:   prelu,
	}
	f.apply(m)
	return Applied
}
