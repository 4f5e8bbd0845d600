package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphopt/internal/model"
)

func TestResolveLeakyRelu(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 8]
output y
array a : float32 [1] = [0.2]
op Mul (x, a) -> m1
op Maximum (x, m1) -> y
`)
	assert.Equal(t, Applied, runOn(t, m, &ResolveLeakyRelu{}, model.OpMul))

	require.Equal(t, 1, m.OperatorCount())
	op := m.OperatorAt(0)
	assert.Equal(t, model.OpLeakyRelu, op.Type)
	assert.Equal(t, []string{"a", "x"}, op.Inputs)
	assert.Equal(t, []string{"y"}, op.Outputs)
	assert.InDelta(t, 0.2, op.Attrs.(*model.LeakyReluAttrs).Alpha, 1e-6)
	assert.False(t, m.HasArray("m1"))
	assert.True(t, m.HasArray("a"))
	require.NoError(t, m.Check())
}

func TestResolveLeakyReluSharesAlphaWithOtherReaders(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 8]
output y
output z
array a : float32 [1] = [0.2]
op Mul (x, a) -> m1
op Maximum (m1, x) -> y
op Add (x, a) -> z
`)
	assert.Equal(t, Applied, runOn(t, m, &ResolveLeakyRelu{}, model.OpMul))

	fused := m.OperatorAt(0)
	assert.Equal(t, model.OpLeakyRelu, fused.Type)
	assert.Equal(t, []string{"a", "x"}, fused.Inputs)
	assert.Equal(t, 2, m.UseCount("a"), "the Add keeps reading a")
	assert.False(t, m.HasArray("a_alpha"))

	// Optimizing once more finds nothing.
	report := optimize(t, m, &ResolveLeakyRelu{}, &RemoveUnusedOp{})
	assert.Equal(t, 0, report.TotalApplied())
}

func TestResolveLeakyReluNoMatch(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   Result
	}{
		{
			name: "mul output read elsewhere",
			source: `
input x : float32 [1, 8]
output y
output w
array a : float32 [1] = [0.2]
op Mul (x, a) -> m1
op Maximum (x, m1) -> y
op Tanh (m1) -> w
`,
			want: NoMatch,
		},
		{
			name: "maximum of unrelated operand",
			source: `
input x : float32 [1, 8]
input v : float32 [1, 8]
output y
array a : float32 [1] = [0.2]
op Mul (x, a) -> m1
op Maximum (v, m1) -> y
`,
			want: NoMatch,
		},
		{
			name: "per-channel alpha",
			source: `
input x : float32 [1, 2]
output y
array a : float32 [2] = [0.2, 0.3]
op Mul (x, a) -> m1
op Maximum (x, m1) -> y
`,
			want: NoMatch,
		},
		{
			name: "alpha fed at runtime",
			source: `
input x : float32 [1, 8]
input a : float32 [1]
output y
op Mul (x, a) -> m1
op Maximum (x, m1) -> y
`,
			want: NoMatch,
		},
		{
			name: "alpha still being computed",
			source: `
input x : float32 [1, 8]
output y
array raw : float32 [1] = [-0.2]
op Abs (raw) -> a
op Mul (x, a) -> m1
op Maximum (x, m1) -> y
`,
			want: Deferred,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parse(t, tt.source)
			count := m.OperatorCount()
			assert.Equal(t, tt.want, runOn(t, m, &ResolveLeakyRelu{}, model.OpMul))
			assert.Equal(t, count, m.OperatorCount())
		})
	}
}

const preluGraph = `
input x : float32 [1, 8]
output y
array c1 : float32 [1] = [0.3]
op Relu (x) -> r
op Abs (x) -> a
op Sub (x, a) -> s
op Mul (s, c1) -> n
op Add (r, n) -> y
`

func TestResolvePReluFoldsSingleMultiplier(t *testing.T) {
	m := parse(t, preluGraph)

	assert.Equal(t, Applied, runOn(t, m, &ResolvePRelu{}, model.OpAbs))

	require.Equal(t, 1, m.OperatorCount())
	op := m.OperatorAt(0)
	assert.Equal(t, model.OpPRelu, op.Type)
	require.Len(t, op.Inputs, 2)
	assert.Equal(t, "x", op.Inputs[0])
	assert.Equal(t, []string{"y"}, op.Outputs)

	alpha, ok := m.GetArray(op.Inputs[1]).FloatData()
	require.True(t, ok)
	assert.Equal(t, []float32{0.3}, alpha)

	for _, name := range []string{"r", "a", "s", "n", "c1"} {
		assert.False(t, m.HasArray(name), name)
	}
	require.NoError(t, m.Check())
}

func TestResolvePReluFoldsTwoMultipliers(t *testing.T) {
	m := parse(t, `
input x : float32 [1, 8]
output y
array c1 : float32 [1] = [0.5]
array c2 : float32 [1] = [0.4]
op Abs (x) -> a
op Sub (x, a) -> s
op Mul (s, c1) -> n
op Mul (c2, n) -> n2
op Relu (x) -> r
op Add (n2, r) -> y
`)
	assert.Equal(t, Applied, runOn(t, m, &ResolvePRelu{}, model.OpAbs))

	require.Equal(t, []model.OperatorType{model.OpPRelu}, operatorTypes(m))
	alpha, _ := m.GetArray(m.OperatorAt(0).Inputs[1]).FloatData()
	assert.InDelta(t, 0.2, alpha[0], 1e-6)
}

func TestResolvePReluAvoidsTakenAlphaName(t *testing.T) {
	m := parse(t, preluGraph+`
array alpha : float32 [1] = [9]
output z
op Mul (x, alpha) -> z
`)
	assert.Equal(t, Applied, runOn(t, m, &ResolvePRelu{}, model.OpAbs))

	prelu := m.OperatorAt(0)
	assert.Equal(t, model.OpPRelu, prelu.Type)
	assert.Equal(t, "alpha_0", prelu.Inputs[1])
	original, _ := m.GetArray("alpha").FloatData()
	assert.Equal(t, []float32{9}, original)
}

func TestResolvePReluLeavesSharedIntermediates(t *testing.T) {
	m := parse(t, preluGraph+`
output z
op Tanh (s) -> z
`)
	before := operatorTypes(m)
	assert.Equal(t, NoMatch, runOn(t, m, &ResolvePRelu{}, model.OpAbs))
	assert.Equal(t, before, operatorTypes(m))
}
