package transforms

import (
	"fmt"

	"graphopt/internal/errors"
	"graphopt/internal/match"
	"graphopt/internal/model"
)

// IdentifyGruCell fuses the operator chain of a GRU cell into one GruCell
// operator. The chain is walked backward from the final add:
//
//	gates    = Logistic(FullyConnected(Concatenation(data, state), Wg, bg))
//	r, u     = Split(axis, gates)
//	cand     = Tanh(FullyConnected(Concatenation(data, Mul(r, state)), Wc, bc))
//	newState = Add(Mul(u, state), Mul(Sub(one, u), cand))
//
// The fused operator reads {data, state, Wc, bc, Wg, bg} and writes newState.
type IdentifyGruCell struct{}

func (t *IdentifyGruCell) Name() string {
	return "IdentifyGruCell"
}

func (t *IdentifyGruCell) Description() string {
	return "Fuses the operators of a GRU cell into GruCell"
}

// gruMatch holds the operators of one matched cell.
type gruMatch struct {
	add, prevStateMul, candidateMul, updateSub, candidate *model.Operator
	fcCandidate, concatCandidate, resetMul                *model.Operator
	split, gates, fcGates, concatGates                    *model.Operator
	data, state                                           string
}

// consumerFirst lists the matched operators so that each one precedes the
// operators producing its inputs.
func (g *gruMatch) consumerFirst() []*model.Operator {
	return []*model.Operator{
		g.add, g.candidateMul, g.prevStateMul, g.updateSub, g.candidate,
		g.fcCandidate, g.concatCandidate, g.resetMul,
		g.split, g.gates, g.fcGates, g.concatGates,
	}
}

func (t *IdentifyGruCell) Run(m *model.Model, opIndex int) Result {
	g, ok := t.match(m, m.OperatorAt(opIndex))
	if !ok {
		return NoMatch
	}

	matched := g.consumerFirst()
	if !match.Distinct(matched...) {
		return NoMatch
	}
	if !match.ExclusivelyConsumed(m, outputsOf(matched, g.add.Outputs[0]), matched) {
		return NoMatch
	}

	// The gate concatenation must read the same data and state arrays as the
	// candidate branch; a cell that got this far with different operands is
	// malformed.
	if len(g.concatGates.Inputs) != 2 ||
		g.concatGates.Inputs[0] != g.data || g.concatGates.Inputs[1] != g.state {
		panic(errors.NewInvariantError(errors.ErrorUnsharedSubexpression,
			"%s reads %v, want [%s %s]", m.LogName(g.concatGates), g.concatGates.Inputs, g.data, g.state).
			WithNote(fmt.Sprintf("the candidate branch reads %s through %s", g.data, m.LogName(g.concatCandidate))))
	}

	messagef(t, "Found GRU cell ending in %s", m.LogName(g.add))

	gru := model.NewOperator(model.OpGruCell, []string{
		g.data,
		g.state,
		g.fcCandidate.Inputs[1],
		g.fcCandidate.Inputs[2],
		g.fcGates.Inputs[1],
		g.fcGates.Inputs[2],
	}, g.add.Outputs)

	f := &fusion{
		matched: matched,
		anchor:  g.add,
		fused:   gru,
	}
	f.apply(m)
	return Applied
}

func (t *IdentifyGruCell) match(m *model.Model, add *model.Operator) (*gruMatch, bool) {
	if add.Type != model.OpAdd || len(add.Outputs) != 1 {
		return nil, false
	}
	g := &gruMatch{add: add}
	var ok bool

	g.prevStateMul, g.candidateMul, ok = match.Inputs2(m, add, match.Producer(model.OpMul), match.Producer(model.OpMul))
	if !ok {
		return nil, false
	}
	g.updateSub, g.candidate, ok = match.Inputs2(m, g.candidateMul, match.Producer(model.OpSub), match.Producer(model.OpTanh))
	if !ok {
		return nil, false
	}
	if g.fcCandidate, ok = match.Inputs1(m, g.candidate, match.Producer(model.OpFullyConnected)); !ok {
		return nil, false
	}
	g.concatCandidate, _, _, ok = match.Inputs3(m, g.fcCandidate, match.Producer(model.OpConcatenation), match.Leaf, match.Leaf)
	if !ok {
		return nil, false
	}
	_, g.resetMul, ok = match.Inputs2(m, g.concatCandidate, match.Leaf, match.Producer(model.OpMul))
	if !ok {
		return nil, false
	}
	g.data = g.concatCandidate.Inputs[0]

	// Both state multiplies must read the same split and the same state.
	var split *model.Operator
	if split, _, ok = match.Partial2(m, g.prevStateMul, match.Producer(model.OpSplit), match.Any); !ok {
		return nil, false
	}
	g.state = g.prevStateMul.Inputs[1]
	resetSplit, _, ok := match.Partial2(m, g.resetMul, match.Producer(model.OpSplit), match.Any)
	if !ok || resetSplit.ID != split.ID || g.resetMul.Inputs[1] != g.state {
		return nil, false
	}
	_, subSplit, ok := match.Partial2(m, g.updateSub, match.Any, match.Producer(model.OpSplit))
	if !ok || subSplit.ID != split.ID {
		return nil, false
	}
	if len(split.Outputs) != 2 {
		return nil, false
	}
	reset, update := split.Outputs[0], split.Outputs[1]
	if g.resetMul.Inputs[0] != reset || g.prevStateMul.Inputs[0] != update || g.updateSub.Inputs[1] != update {
		return nil, false
	}
	g.split = split

	if _, g.gates, ok = match.Inputs2(m, split, match.Leaf, match.Producer(model.OpLogistic)); !ok {
		return nil, false
	}
	if g.fcGates, ok = match.Inputs1(m, g.gates, match.Producer(model.OpFullyConnected)); !ok {
		return nil, false
	}
	g.concatGates, _, _, ok = match.Inputs3(m, g.fcGates, match.Producer(model.OpConcatenation), match.Leaf, match.Leaf)
	if !ok {
		return nil, false
	}
	return g, true
}
