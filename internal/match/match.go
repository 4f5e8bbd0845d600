// Package match holds the side-effect-free predicates the rewrite passes
// use to recognize operator patterns.
//
// Every matcher first checks the operator's input count, then resolves the
// producer of each input and compares it against the slot it was asked to
// match. Matched producers are only returned when every slot matched.
package match

import (
	"graphopt/internal/model"
)

type slotKind int

const (
	slotAny slotKind = iota
	slotLeaf
	slotProducer
)

// Slot describes what is expected to produce one input of an operator.
type Slot struct {
	kind slotKind
	typ  model.OperatorType
}

var (
	// Leaf requires the input to have no producer (graph input or constant).
	Leaf = Slot{kind: slotLeaf}
	// Any accepts every input.
	Any = Slot{kind: slotAny}
)

// Producer requires the input to be written by an operator of type t.
func Producer(t model.OperatorType) Slot {
	return Slot{kind: slotProducer, typ: t}
}

func (s Slot) String() string {
	switch s.kind {
	case slotLeaf:
		return "leaf"
	case slotProducer:
		return s.typ.String()
	default:
		return "any"
	}
}

// Inputs1 matches an operator with exactly one input.
func Inputs1(m *model.Model, op *model.Operator, a Slot) (*model.Operator, bool) {
	got, ok := matchInputs(m, op, false, a)
	if !ok {
		return nil, false
	}
	return got[0], true
}

// Inputs2 matches an operator with exactly two inputs.
func Inputs2(m *model.Model, op *model.Operator, a, b Slot) (x, y *model.Operator, ok bool) {
	got, ok := matchInputs(m, op, false, a, b)
	if !ok {
		return nil, nil, false
	}
	return got[0], got[1], true
}

// Inputs3 matches an operator with exactly three inputs.
func Inputs3(m *model.Model, op *model.Operator, a, b, c Slot) (x, y, z *model.Operator, ok bool) {
	got, ok := matchInputs(m, op, false, a, b, c)
	if !ok {
		return nil, nil, nil, false
	}
	return got[0], got[1], got[2], true
}

// Partial2 is Inputs2 with Leaf slots relaxed to Any.
func Partial2(m *model.Model, op *model.Operator, a, b Slot) (x, y *model.Operator, ok bool) {
	got, ok := matchInputs(m, op, true, a, b)
	if !ok {
		return nil, nil, false
	}
	return got[0], got[1], true
}

func matchInputs(m *model.Model, op *model.Operator, partial bool, slots ...Slot) ([]*model.Operator, bool) {
	if op == nil || len(op.Inputs) != len(slots) {
		return nil, false
	}
	producers := make([]*model.Operator, len(slots))
	for i, slot := range slots {
		producer := m.ProducerOf(op.Inputs[i])
		switch slot.kind {
		case slotLeaf:
			if producer != nil && !partial {
				return nil, false
			}
		case slotProducer:
			if producer == nil || producer.Type != slot.typ {
				return nil, false
			}
		}
		producers[i] = producer
	}
	return producers, true
}
