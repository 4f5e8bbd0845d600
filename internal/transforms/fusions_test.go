package transforms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphopt/internal/errors"
	"graphopt/internal/model"
)

const dilatedConvGraph = `
input x : float32 [1, 16, 16, 1]
output y
array block : int32 [2] = [2, 2]
array pads : int32 [2, 2] = [2, 2, 2, 2]
array crops : int32 [2, 2] = [0, 0, 0, 0]
array w : float32 [2, 1, 1, 1] = [0.5, -0.5]
array b : float32 [2] = [0, 0]
op SpaceToBatchND (x, block, pads) -> s2b
op Conv (s2b, w, b) -> conv, im2col { padding = valid, activation = relu6 }
op BatchToSpaceND (conv, block, crops) -> y
`

func TestResolveDilatedConv(t *testing.T) {
	m := parse(t, dilatedConvGraph)
	pass := &ResolveDilatedConv{}

	assert.Equal(t, Deferred, runOn(t, m, pass, model.OpSpaceToBatchND), "block shape is not resolved yet")
	assert.Equal(t, Applied, runOn(t, m, &ResolveSpaceToBatchNDAttributes{}, model.OpSpaceToBatchND))
	assert.Equal(t, Applied, runOn(t, m, pass, model.OpSpaceToBatchND))

	require.Equal(t, 1, m.OperatorCount())
	op := m.OperatorAt(0)
	assert.Equal(t, model.OpDilatedConv, op.Type)
	assert.Equal(t, []string{"x", "w", "b"}, op.Inputs)
	assert.Equal(t, []string{"y"}, op.Outputs)
	assert.Equal(t, model.ActivationRelu6, op.FusedActivation)

	dilated := op.Attrs.(*model.DilatedConvAttrs)
	assert.Equal(t, 2, dilated.Rate)
	assert.Equal(t, model.PaddingSame, dilated.Padding)

	for _, name := range []string{"s2b", "conv", "im2col", "block", "pads", "crops"} {
		assert.False(t, m.HasArray(name), name)
	}
	require.NoError(t, m.Check())
}

func TestResolveDilatedConvValidPadding(t *testing.T) {
	m := parse(t, strings.Replace(dilatedConvGraph, "[2, 2, 2, 2]", "[0, 0, 0, 0]", 1))
	optimize(t, m, &ResolveSpaceToBatchNDAttributes{}, &ResolveDilatedConv{})

	require.Equal(t, []model.OperatorType{model.OpDilatedConv}, operatorTypes(m))
	assert.Equal(t, model.PaddingValid, m.OperatorAt(0).Attrs.(*model.DilatedConvAttrs).Padding)
}

func TestResolveDilatedConvDefersOnComputedWeights(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 16, 16, 1]
input qw : uint8 [2, 1, 1, 1]
output y
op SpaceToBatchND (x, block, pads) -> s2b { block_shape = [2, 2], before_paddings = [2, 2], after_paddings = [2, 2] }
op Dequantize (qw) -> w
op Conv (s2b, w) -> conv
op BatchToSpaceND (conv, block, crops) -> y
`)
	assert.Equal(t, Deferred, runOn(t, m, &ResolveDilatedConv{}, model.OpSpaceToBatchND))
	assert.Equal(t, 4, m.OperatorCount())
}

func TestResolveDilatedConvNoMatch(t *testing.T) {
	tests := map[string]string{
		"strided conv": strings.Replace(dilatedConvGraph, "padding = valid", "padding = valid, stride_width = 2", 1),
		"no batch-to-space": `
input x : float32 [1, 16, 16, 1]
output y
array w : float32 [2, 1, 1, 1] = [0.5, -0.5]
op SpaceToBatchND (x, block, pads) -> s2b { block_shape = [2, 2], before_paddings = [0, 0], after_paddings = [0, 0] }
op Conv (s2b, w) -> y
`,
		"im2col read elsewhere": dilatedConvGraph + `
output z
op Tanh (im2col) -> z
`,
	}

	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			m := parse(t, source)
			runEverywhere(m, &ResolveSpaceToBatchNDAttributes{})
			count := m.OperatorCount()
			assert.Equal(t, NoMatch, runOn(t, m, &ResolveDilatedConv{}, model.OpSpaceToBatchND))
			assert.Equal(t, count, m.OperatorCount())
		})
	}
}

const gruGraph = `
input data : float32 [1, 4]
state h <- h_new
output h_new
array axis : int32 [] = [1]
array one : float32 [1] = [1]
array wg : float32 [8, 8]
array bg : float32 [8]
array wc : float32 [4, 8]
array bc : float32 [4]
op Concatenation (data, h) -> cg { axis = 1 }
op FullyConnected (cg, wg, bg) -> fg
op Logistic (fg) -> gates
op Split (axis, gates) -> r, u { num_split = 2 }
op Mul (r, h) -> rh
op Concatenation (data, rh) -> cc { axis = 1 }
op FullyConnected (cc, wc, bc) -> fc
op Tanh (fc) -> cand
op Mul (u, h) -> uh
op Sub (one, u) -> nu
op Mul (nu, cand) -> nc
op Add (uh, nc) -> h_new
`

func TestIdentifyGruCell(t *testing.T) {
	m := parse(t, gruGraph)

	assert.Equal(t, Applied, runOn(t, m, &IdentifyGruCell{}, model.OpAdd))

	require.Equal(t, 1, m.OperatorCount())
	op := m.OperatorAt(0)
	assert.Equal(t, model.OpGruCell, op.Type)
	assert.Equal(t, []string{"data", "h", "wc", "bc", "wg", "bg"}, op.Inputs)
	assert.Equal(t, []string{"h_new"}, op.Outputs)
	assert.Equal(t, []string{"bc", "bg", "data", "h", "h_new", "wc", "wg"}, m.ArrayNames())
	require.NoError(t, m.Check())
}

func TestIdentifyGruCellRequiresOneState(t *testing.T) {
	m := parse(t, strings.Replace(gruGraph, "op Mul (r, h) -> rh", "op Mul (r, h2) -> rh", 1))

	assert.Equal(t, NoMatch, runOn(t, m, &IdentifyGruCell{}, model.OpAdd))
	assert.Equal(t, 12, m.OperatorCount())
}

func TestIdentifyGruCellRequiresOneSplit(t *testing.T) {
	m := parse(t, strings.Replace(gruGraph,
		"op Sub (one, u) -> nu",
		"op Split (axis, gates) -> r2, u2\nop Sub (one, u2) -> nu", 1))

	assert.Equal(t, NoMatch, runOn(t, m, &IdentifyGruCell{}, model.OpAdd))
	assert.Equal(t, 13, m.OperatorCount())
}

func TestIdentifyGruCellRejectsUnsharedGateInputs(t *testing.T) {
	m := parse(t, strings.Replace(gruGraph,
		"op Concatenation (data, h) -> cg", "op Concatenation (h, data) -> cg", 1))

	violation := raisedViolation(t, func() { runOn(t, m, &IdentifyGruCell{}, model.OpAdd) })
	require.NotNil(t, violation)
	assert.Equal(t, errors.ErrorUnsharedSubexpression, violation.Code)
	assert.Equal(t, []string{"the candidate branch reads data through Concatenation operator producing cc"}, violation.Notes)
	assert.Equal(t, 12, m.OperatorCount(), "the violation is raised before any mutation")
}

func TestIdentifyGruCellLeavesPlainAddAlone(t *testing.T) {
	m := parse(t, `
input a : float32 [1]
input b : float32 [1]
output c
op Add (a, b) -> c
`)
	assert.Equal(t, NoMatch, runOn(t, m, &IdentifyGruCell{}, model.OpAdd))
}
