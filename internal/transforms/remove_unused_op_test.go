package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphopt/internal/model"
)

func TestRemoveUnusedOpDropsDeadOperatorAndItsInputs(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 4]
output y
array w : float32 [1] = [2]
op Relu (x) -> y
op Mul (x, w) -> dead
`)
	pass := &RemoveUnusedOp{}

	assert.Equal(t, Applied, runOn(t, m, pass, model.OpMul))
	assert.Equal(t, []model.OperatorType{model.OpRelu}, operatorTypes(m))
	assert.False(t, m.HasArray("dead"))
	assert.False(t, m.HasArray("w"), "w was used by the removed operator only")
	assert.True(t, m.HasArray("x"), "pinned inputs stay")
	require.NoError(t, m.Check())
}

func TestRemoveUnusedOpKeepsPinnedOutputs(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 4]
output y
state h <- h_next
op Relu (x) -> y
op Tanh (x) -> h_next
op Logistic (x) -> h
`)
	pass := &RemoveUnusedOp{}

	assert.Equal(t, NoMatch, runOn(t, m, pass, model.OpRelu), "y is a graph output")
	assert.Equal(t, NoMatch, runOn(t, m, pass, model.OpTanh), "h_next feeds a recurrent state")
	assert.Equal(t, NoMatch, runOn(t, m, pass, model.OpLogistic), "h is a recurrent state")
	assert.Equal(t, 3, m.OperatorCount())
}

func TestRemoveUnusedOpKeepsSharedInputs(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 4]
output y
array w : float32 [1] = [2]
op Mul (x, w) -> y
op Add (x, w) -> dead
`)
	assert.Equal(t, Applied, runOn(t, m, &RemoveUnusedOp{}, model.OpAdd))
	assert.True(t, m.HasArray("w"), "Mul still reads w")
	assert.Equal(t, 1, m.UseCount("w"))
}

func TestRemoveUnusedOpRespectsUnresolvedOutputs(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 4]
op Unsupported (x) -> u { unresolved_outputs = true }
`)
	assert.Equal(t, NoMatch, runOn(t, m, &RemoveUnusedOp{}, model.OpUnsupported))
	assert.Equal(t, 1, m.OperatorCount())
}

func TestRemoveUnusedOpKeepsProducersOfInputArrays(t *testing.T) {
	m := parse(t, `
input raw : float32 [1, 4]
input x : float32 [1, 4]
output y
op Relu (raw) -> x
op Tanh (x) -> y
op Abs (raw) -> z
`)
	pass := &RemoveUnusedOp{}

	assert.Equal(t, NoMatch, runOn(t, m, pass, model.OpRelu), "x is a pinned graph input")
	assert.Equal(t, Applied, runOn(t, m, pass, model.OpAbs))
	assert.Equal(t, []model.OperatorType{model.OpRelu, model.OpTanh}, operatorTypes(m))
	assert.True(t, m.HasArray("x"))
	assert.True(t, m.HasArray("raw"))
}

func TestRemoveUnusedOpClearsDeadChains(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 4]
output y
op Relu (x) -> y
op Tanh (x) -> t1
op Abs (t1) -> t2
op Logistic (t2) -> t3
`)
	report := optimize(t, m, &RemoveUnusedOp{})

	assert.Equal(t, []model.OperatorType{model.OpRelu}, operatorTypes(m))
	assert.Equal(t, 3, report.Applied["RemoveUnusedOp"])
	assert.Equal(t, []string{"x", "y"}, m.ArrayNames())
}
