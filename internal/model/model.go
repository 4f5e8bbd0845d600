package model

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// RNNState pins a recurrent state array and the array its next value is
// read from (the back edge).
type RNNState struct {
	StateArray          string
	BackEdgeSourceArray string
}

// Flags are the externally pinned names of a model.
type Flags struct {
	InputArrays  []string
	OutputArrays []string
	RNNStates    []RNNState
}

// Model owns the arrays and the ordered operator list of a graph.
//
// The operator order is the only addressing mechanism the rewrite passes
// use; OpID handles stay valid across insertions and removals of other
// operators.
type Model struct {
	Flags Flags

	arrays    map[string]*Array
	operators []*Operator
	byID      map[OpID]*Operator
	nextID    OpID
	reserved  map[string]struct{}
}

// New returns an empty model.
func New() *Model {
	return &Model{
		arrays:   make(map[string]*Array),
		byID:     make(map[OpID]*Operator),
		reserved: make(map[string]struct{}),
		nextID:   1,
	}
}

// Arrays returns the array table. Callers must not add or remove entries.
func (m *Model) Arrays() map[string]*Array {
	return m.arrays
}

// ArrayNames returns the array names in sorted order.
func (m *Model) ArrayNames() []string {
	names := make([]string, 0, len(m.arrays))
	for name := range m.arrays {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasArray reports whether an array with the given name exists.
func (m *Model) HasArray(name string) bool {
	_, ok := m.arrays[name]
	return ok
}

// FindArray looks an array up by name.
func (m *Model) FindArray(name string) (*Array, bool) {
	a, ok := m.arrays[name]
	return a, ok
}

// GetArray returns the named array and panics if it does not exist: every
// name an operator refers to must resolve.
func (m *Model) GetArray(name string) *Array {
	a, ok := m.arrays[name]
	if !ok {
		exceptions.Panicf("model: array %q does not exist", name)
	}
	return a
}

// GetOrCreateArray returns the named array, inserting a fresh unresolved one
// if needed.
func (m *Model) GetOrCreateArray(name string) *Array {
	if a, ok := m.arrays[name]; ok {
		return a
	}
	a := &Array{Name: name}
	m.arrays[name] = a
	delete(m.reserved, name)
	return a
}

// EraseArray removes the named array. It refuses, and returns false, while
// any operator still refers to the name.
func (m *Model) EraseArray(name string) bool {
	if _, ok := m.arrays[name]; !ok {
		return false
	}
	for _, op := range m.operators {
		if slices.Contains(op.Inputs, name) || slices.Contains(op.Outputs, name) {
			return false
		}
	}
	delete(m.arrays, name)
	return true
}

// OperatorCount returns the number of operators.
func (m *Model) OperatorCount() int {
	return len(m.operators)
}

// OperatorAt returns the operator at index i of the operator list.
func (m *Model) OperatorAt(i int) *Operator {
	return m.operators[i]
}

// Operators returns a snapshot of the operator list.
func (m *Model) Operators() []*Operator {
	return slices.Clone(m.operators)
}

// Lookup resolves a handle. ok is false once the operator has been removed.
func (m *Model) Lookup(id OpID) (*Operator, bool) {
	op, ok := m.byID[id]
	return op, ok
}

// IndexOf returns the current position of the operator with the given handle.
func (m *Model) IndexOf(id OpID) (int, bool) {
	if _, ok := m.byID[id]; !ok {
		return -1, false
	}
	for i, op := range m.operators {
		if op.ID == id {
			return i, true
		}
	}
	return -1, false
}

// AddOperator appends op to the operator list and returns its handle.
func (m *Model) AddOperator(op *Operator) OpID {
	return m.InsertOperator(len(m.operators), op)
}

// InsertOperator places op at index i, shifting later operators, and
// returns its new handle. Every input and output name gets an array.
func (m *Model) InsertOperator(i int, op *Operator) OpID {
	if i < 0 || i > len(m.operators) {
		exceptions.Panicf("model: insert position %d out of range [0, %d]", i, len(m.operators))
	}
	if existing, ok := m.byID[op.ID]; ok && existing == op {
		exceptions.Panicf("model: operator %d is already part of the model", op.ID)
	}
	op.ID = m.nextID
	m.nextID++
	for _, name := range op.Inputs {
		m.GetOrCreateArray(name)
	}
	for _, name := range op.Outputs {
		m.GetOrCreateArray(name)
	}
	m.operators = slices.Insert(m.operators, i, op)
	m.byID[op.ID] = op
	return op.ID
}

// RemoveOperator detaches the operator with the given handle. Its arrays
// are left in place; erasing them is up to the caller.
func (m *Model) RemoveOperator(id OpID) bool {
	i, ok := m.IndexOf(id)
	if !ok {
		return false
	}
	m.operators = slices.Delete(m.operators, i, i+1)
	delete(m.byID, id)
	return true
}

// ProducerOf returns the operator that writes the named array, or nil for
// graph inputs and constants.
func (m *Model) ProducerOf(name string) *Operator {
	for _, op := range m.operators {
		if slices.Contains(op.Outputs, name) {
			return op
		}
	}
	return nil
}

// ConsumersOf returns the operators reading the named array, in operator order.
func (m *Model) ConsumersOf(name string) []*Operator {
	var consumers []*Operator
	for _, op := range m.operators {
		if slices.Contains(op.Inputs, name) {
			consumers = append(consumers, op)
		}
	}
	return consumers
}

// UseCount returns how many operator input slots reference the named array.
func (m *Model) UseCount(name string) int {
	count := 0
	for _, op := range m.operators {
		for _, input := range op.Inputs {
			if input == name {
				count++
			}
		}
	}
	return count
}

// IsConstantParameterArray reports whether the named array exists and
// carries a constant buffer.
func (m *Model) IsConstantParameterArray(name string) bool {
	a, ok := m.arrays[name]
	return ok && a.Buffer != nil
}

// IsInputArray reports whether name is a designated graph input.
func (m *Model) IsInputArray(name string) bool {
	return slices.Contains(m.Flags.InputArrays, name)
}

// IsOutputArray reports whether name is a designated graph output.
func (m *Model) IsOutputArray(name string) bool {
	return slices.Contains(m.Flags.OutputArrays, name)
}

// IsRNNStateArray reports whether name holds a recurrent state.
func (m *Model) IsRNNStateArray(name string) bool {
	for _, s := range m.Flags.RNNStates {
		if s.StateArray == name {
			return true
		}
	}
	return false
}

// IsBackEdgeSource reports whether name feeds a recurrent state.
func (m *Model) IsBackEdgeSource(name string) bool {
	for _, s := range m.Flags.RNNStates {
		if s.BackEdgeSourceArray == name {
			return true
		}
	}
	return false
}

// IsDiscardableArray reports whether the named array may be deleted once
// unused, i.e. it is not pinned as an input, output or recurrent state.
func (m *Model) IsDiscardableArray(name string) bool {
	return !m.IsInputArray(name) && !m.IsOutputArray(name) &&
		!m.IsRNNStateArray(name) && !m.IsBackEdgeSource(name)
}

// AvailableName returns a name derived from hint that is not used by any
// array and has not been handed out before.
func (m *Model) AvailableName(hint string) string {
	if m.nameFree(hint) {
		m.reserved[hint] = struct{}{}
		return hint
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s_%d", hint, i)
		if m.nameFree(candidate) {
			m.reserved[candidate] = struct{}{}
			return candidate
		}
	}
}

func (m *Model) nameFree(name string) bool {
	if _, ok := m.arrays[name]; ok {
		return false
	}
	_, taken := m.reserved[name]
	return !taken
}

// LogName describes an operator for log messages.
func (m *Model) LogName(op *Operator) string {
	if len(op.Outputs) == 0 {
		return fmt.Sprintf("%s operator #%d", op.Type, op.ID)
	}
	return fmt.Sprintf("%s operator producing %s", op.Type, op.Outputs[0])
}

// Check verifies the structural invariants of the model: every referenced
// name resolves, every array has at most one producer and constant arrays
// have none.
func (m *Model) Check() error {
	producers := make(map[string]*Operator)
	for _, op := range m.operators {
		for _, name := range op.Inputs {
			if _, ok := m.arrays[name]; !ok {
				return errors.Errorf("%s: input %q does not resolve to an array", m.LogName(op), name)
			}
		}
		for _, name := range op.Outputs {
			a, ok := m.arrays[name]
			if !ok {
				return errors.Errorf("%s: output %q does not resolve to an array", m.LogName(op), name)
			}
			if prev, dup := producers[name]; dup {
				return errors.Errorf("array %q is written by both %s and %s", name, m.LogName(prev), m.LogName(op))
			}
			if a.Buffer != nil {
				return errors.Errorf("constant array %q is written by %s", name, m.LogName(op))
			}
			producers[name] = op
		}
	}
	return nil
}
