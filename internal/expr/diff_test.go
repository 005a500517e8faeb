package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func evalAt(t *testing.T, s Symbol, x float64) float64 {
	t.Helper()
	v, err := s.Evaluate(0, nil, nil, Inputs{"x": x}, nil)
	require.NoError(t, err)
	require.True(t, v.IsScalar())
	return v.Float()
}

// checkDerivative compares the symbolic derivative against a central
// finite difference at the given point.
func checkDerivative(t *testing.T, f Symbol, x *Variable, at float64) {
	t.Helper()
	df, err := f.Diff(x)
	require.NoError(t, err)

	const h = 1e-6
	want := (evalAt(t, f, at+h) - evalAt(t, f, at-h)) / (2 * h)
	got := evalAt(t, df, at)
	assert.InDelta(t, want, got, 1e-4*math.Max(1, math.Abs(want)))
}

func TestDiffMatchesFiniteDifference(t *testing.T) {
	x := NewVariable("x")

	cases := []struct {
		name  string
		build func() (Symbol, error)
		at    float64
	}{
		{"power", func() (Symbol, error) { return NewPower(x, 3) }, 1.7},
		{"power with variable exponent", func() (Symbol, error) { return NewPower(2, x) }, 1.3},
		{"product", func() (Symbol, error) { return NewMultiplication(x, add(x, num(1))) }, 0.4},
		{"quotient", func() (Symbol, error) { return NewDivision(x, add(x, num(2))) }, 1.0},
		{"modulo of variable", func() (Symbol, error) { return NewModulo(x, 5) }, 2.7},
		{"modulo by variable", func() (Symbol, error) { return NewModulo(7, x) }, 3.0},
		{"log", func() (Symbol, error) { return NewLog(x) }, 2.0},
		{"exp", func() (Symbol, error) { return NewExp(x) }, 0.3},
		{"tanh", func() (Symbol, error) { return NewTanh(x) }, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := tc.build()
			require.NoError(t, err)
			checkDerivative(t, f, x, tc.at)
		})
	}
}

func TestDiffSpecialCases(t *testing.T) {
	x := NewVariable("x")

	t.Run("derivative with respect to self is one", func(t *testing.T) {
		n, err := NewAddition(x, 1)
		require.NoError(t, err)
		d, err := n.Diff(n)
		require.NoError(t, err)
		assert.Equal(t, 1.0, evalAt(t, d, 0))
	})

	t.Run("absent variable differentiates to zero", func(t *testing.T) {
		n, err := NewPower(x, 2)
		require.NoError(t, err)
		d, err := n.Diff(NewVariable("y"))
		require.NoError(t, err)
		sc, ok := d.(*Scalar)
		require.True(t, ok)
		assert.Equal(t, 0.0, sc.Value())
	})

	t.Run("same-named variable built separately still matches", func(t *testing.T) {
		other := NewVariable("x")
		d, err := x.Diff(other)
		require.NoError(t, err)
		assert.Equal(t, 1.0, evalAt(t, d, 0))
	})

	t.Run("same-named variable matches through a composite tree", func(t *testing.T) {
		other := NewVariable("x")
		n, err := NewMultiplication(2, x)
		require.NoError(t, err)
		d, err := n.Diff(other)
		require.NoError(t, err)
		assert.Equal(t, 2.0, evalAt(t, d, 1.5))
	})

	t.Run("variable exponent matches through a composite tree", func(t *testing.T) {
		other := NewVariable("x")
		n, err := NewPower(2, x)
		require.NoError(t, err)
		d, err := n.Diff(other)
		require.NoError(t, err)
		assert.InDelta(t, math.Pow(2, 1.3)*math.Ln2, evalAt(t, d, 1.3), 1e-12)
	})

	t.Run("time matches through a composite tree", func(t *testing.T) {
		n, err := NewAddition(NewTime(), 1)
		require.NoError(t, err)
		d, err := n.Diff(NewTime())
		require.NoError(t, err)
		v, err := d.Evaluate(0.7, nil, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v.Float())
	})

	t.Run("heaviside differentiates to zero", func(t *testing.T) {
		n, err := NewEqualHeaviside(x, 2)
		require.NoError(t, err)
		d, err := n.Diff(x)
		require.NoError(t, err)
		sc, ok := d.(*Scalar)
		require.True(t, ok)
		assert.Equal(t, 0.0, sc.Value())
	})

	t.Run("floor differentiates to zero", func(t *testing.T) {
		n, err := NewFloor(x)
		require.NoError(t, err)
		d, err := n.Diff(x)
		require.NoError(t, err)
		assert.Equal(t, 0.0, evalAt(t, d, 2.5))
	})

	t.Run("matrix multiplication has no derivative rule", func(t *testing.T) {
		n, err := NewMatrixMultiplication(NewMatrix(mat.NewDense(2, 2, []float64{1, 0, 0, 1})), NewVector([]float64{1, 2}))
		require.NoError(t, err)
		_, err = n.Diff(x)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupported))
	})

	t.Run("time differentiates against time", func(t *testing.T) {
		tm := NewTime()
		d, err := tm.Diff(NewTime())
		require.NoError(t, err)
		sc, ok := d.(*Scalar)
		require.True(t, ok)
		assert.Equal(t, 1.0, sc.Value())
	})
}

func TestDiffMinMaxSelectsActiveSide(t *testing.T) {
	x := NewVariable("x")
	mn, err := NewMinimum(x, 5)
	require.NoError(t, err)
	d, err := mn.Diff(x)
	require.NoError(t, err)

	t.Run("below the cutoff the variable side is active", func(t *testing.T) {
		assert.Equal(t, 1.0, evalAt(t, d, 3))
	})
	t.Run("above the cutoff the constant side is active", func(t *testing.T) {
		assert.Equal(t, 0.0, evalAt(t, d, 7))
	})
}
