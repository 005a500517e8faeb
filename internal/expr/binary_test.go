package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func evalTree(t *testing.T, s Symbol, inputs Inputs) Value {
	t.Helper()
	v, err := s.Evaluate(0, nil, nil, inputs, nil)
	require.NoError(t, err)
	return v
}

func TestBinaryEvaluate(t *testing.T) {
	t.Run("heaviside at equality", func(t *testing.T) {
		eq, err := NewEqualHeaviside(2, 2)
		require.NoError(t, err)
		assert.Equal(t, 1.0, evalTree(t, eq, nil).Float())

		ne, err := NewNotEqualHeaviside(2, 2)
		require.NoError(t, err)
		assert.Equal(t, 0.0, evalTree(t, ne, nil).Float())
	})

	t.Run("exact min and max", func(t *testing.T) {
		mn, err := NewMinimum(3, 5)
		require.NoError(t, err)
		assert.Equal(t, 3.0, evalTree(t, mn, nil).Float())

		mx, err := NewMaximum(3, 5)
		require.NoError(t, err)
		assert.Equal(t, 5.0, evalTree(t, mx, nil).Float())
	})

	t.Run("modulo", func(t *testing.T) {
		m, err := NewModulo(7, 3)
		require.NoError(t, err)
		assert.Equal(t, 1.0, evalTree(t, m, nil).Float())
	})

	t.Run("inner product projects off edges", func(t *testing.T) {
		n, err := NewInner(NewVector([]float64{1, 2}), NewVector([]float64{3, 4}))
		require.NoError(t, err)
		v := evalTree(t, n, nil)
		d := v.ToDense()
		assert.Equal(t, 3.0, d.At(0, 0))
		assert.Equal(t, 8.0, d.At(1, 0))
		assert.False(t, n.EvaluatesOnEdges("primary"))
	})

	t.Run("state vector slice", func(t *testing.T) {
		y := mat.NewVecDense(4, []float64{1, 2, 3, 4})
		sv := NewStateVector(1, 3)
		expr, err := NewMultiplication(sv, 10)
		require.NoError(t, err)
		v, err := expr.Evaluate(0, y, nil, nil, nil)
		require.NoError(t, err)
		d := v.ToDense()
		assert.Equal(t, 20.0, d.At(0, 0))
		assert.Equal(t, 30.0, d.At(1, 0))
	})
}

func TestSparseDenseAgreement(t *testing.T) {
	dense := mat.NewDense(2, 2, []float64{1, 0, 3, 4})
	other := mat.NewDense(2, 2, []float64{5, 6, 0, 8})

	cases := []struct {
		name  string
		build func(l, r interface{}) (*BinaryOperator, error)
	}{
		{"multiplication", NewMultiplication},
		{"inner", NewInner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dd, err := tc.build(NewMatrix(dense), NewMatrix(other))
			require.NoError(t, err)
			sd, err := tc.build(NewSparseMatrix(csrOf(dense)), NewMatrix(other))
			require.NoError(t, err)

			want := evalTree(t, dd, nil)
			got := evalTree(t, sd, nil)
			assert.True(t, got.IsSparse())
			assert.True(t, mat.Equal(want.ToDense(), got.ToDense()))
		})
	}
}

// countingVector counts how many times its value is actually computed,
// as opposed to served from the memo table.
type countingVector struct {
	*Vector
	calls *int
}

func (c *countingVector) Evaluate(t float64, y, ydot *mat.VecDense, inputs Inputs, known KnownEvals) (Value, error) {
	*c.calls++
	return c.Vector.Evaluate(t, y, ydot, inputs, known)
}

func TestMemoization(t *testing.T) {
	t.Run("memo and no-memo agree", func(t *testing.T) {
		y := mat.NewVecDense(2, []float64{2, 3})
		sv := NewStateVector(0, 2)
		scaled, err := NewMultiplication(sv, 2)
		require.NoError(t, err)
		squared, err := NewPower(scaled, 2)
		require.NoError(t, err)
		expr, err := NewAddition(scaled, squared)
		require.NoError(t, err)

		plain, err := expr.Evaluate(1.5, y, nil, nil, nil)
		require.NoError(t, err)
		memod, err := expr.Evaluate(1.5, y, nil, nil, KnownEvals{})
		require.NoError(t, err)
		assert.True(t, mat.Equal(plain.ToDense(), memod.ToDense()))
	})

	t.Run("shared subexpression computed once", func(t *testing.T) {
		calls := 0
		leaf := &countingVector{Vector: NewVector([]float64{1, 2}), calls: &calls}
		shared, err := NewMultiplication(leaf, NewVector([]float64{3, 4}))
		require.NoError(t, err)
		expr, err := NewAddition(shared, shared)
		require.NoError(t, err)

		_, err = expr.Evaluate(0, nil, nil, nil, KnownEvals{})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		calls = 0
		_, err = expr.Evaluate(0, nil, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, calls, "without a memo both parents recompute")
	})
}

func TestEvaluateForShape(t *testing.T) {
	sv := NewStateVector(0, 3)
	expr, err := NewAddition(sv, sv)
	require.NoError(t, err)
	v, err := expr.EvaluateForShape()
	require.NoError(t, err)
	r, c := v.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)
}

func TestString(t *testing.T) {
	a := NewVariable("a")
	b := NewVariable("b")
	c := NewVariable("c")

	cases := []struct {
		name string
		sym  func() Symbol
		want string
	}{
		{"product binds tighter than sum", func() Symbol { return add(mul(a, b), c) }, "a * b + c"},
		{"parenthesized sum under product", func() Symbol { return mul(add(a, b), c) }, "(a + b) * c"},
		{"product numerator stays bare", func() Symbol { return div(mul(a, b), c) }, "a * b / c"},
		{"right-nested difference", func() Symbol { return sub(a, sub(b, c)) }, "a - (b - c)"},
		{"right-nested quotient under product stays bare", func() Symbol { return mul(a, div(b, c)) }, "a * b / c"},
		{"modulo", func() Symbol { return mustSym(NewModulo(a, b)) }, "a mod b"},
		{"minimum call form", func() Symbol { return mustSym(NewMinimum(a, b)) }, "minimum(a, b)"},
		{"heaviside", func() Symbol { return leq(a, b) }, "a <= b"},
		{"negated operator", func() Symbol { return neg(add(a, b)) }, "-(a + b)"},
		{"power", func() Symbol { return pow(a, num(2)) }, "a ** 2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sym().String())
		})
	}
}
