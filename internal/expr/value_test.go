package expr

import (
	"math"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func denseOf(t *testing.T, v Value) *mat.Dense {
	t.Helper()
	return v.ToDense()
}

func csrOf(m *mat.Dense) *sparse.CSR {
	rows, cols := m.Dims()
	dok := sparse.NewDOK(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if x := m.At(i, j); x != 0 {
				dok.Set(i, j, x)
			}
		}
	}
	return dok.ToCSR()
}

func TestValueHadamard(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 3, 4})
	b := mat.NewDense(2, 2, []float64{5, 6, 0, 8})

	want, err := mulValues(FromDense(a), FromDense(b))
	require.NoError(t, err)

	t.Run("sparse left matches dense", func(t *testing.T) {
		got, err := mulValues(FromCSR(csrOf(a)), FromDense(b))
		require.NoError(t, err)
		assert.True(t, got.IsSparse(), "sparse operand should keep sparse storage")
		assert.True(t, mat.Equal(denseOf(t, want), denseOf(t, got)))
	})

	t.Run("sparse right matches dense", func(t *testing.T) {
		got, err := mulValues(FromDense(a), FromCSR(csrOf(b)))
		require.NoError(t, err)
		assert.True(t, got.IsSparse())
		assert.True(t, mat.Equal(denseOf(t, want), denseOf(t, got)))
	})

	t.Run("sparse both matches dense", func(t *testing.T) {
		got, err := mulValues(FromCSR(csrOf(a)), FromCSR(csrOf(b)))
		require.NoError(t, err)
		assert.True(t, mat.Equal(denseOf(t, want), denseOf(t, got)))
	})

	t.Run("scalar broadcast", func(t *testing.T) {
		got, err := mulValues(Num(2), FromDense(a))
		require.NoError(t, err)
		assert.Equal(t, 8.0, denseOf(t, got).At(1, 1))
	})

	t.Run("column vector stretches across columns", func(t *testing.T) {
		col := FromVec([]float64{10, 100})
		got, err := mulValues(col, FromDense(a))
		require.NoError(t, err)
		d := denseOf(t, got)
		assert.Equal(t, 10.0, d.At(0, 0))
		assert.Equal(t, 400.0, d.At(1, 1))
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := mulValues(FromDense(a), FromDense(mat.NewDense(3, 1, nil)))
		assert.Error(t, err)
	})
}

func TestValueDivision(t *testing.T) {
	t.Run("exact scalar zero divisor gives signed infinity", func(t *testing.T) {
		got, err := divValues(FromVec([]float64{1, -2, 0}), Num(0))
		require.NoError(t, err)
		d := denseOf(t, got)
		assert.True(t, math.IsInf(d.At(0, 0), 1))
		assert.True(t, math.IsInf(d.At(1, 0), -1))
		assert.True(t, math.IsNaN(d.At(2, 0)))
	})

	t.Run("sparse left scales stored entries", func(t *testing.T) {
		a := csrOf(mat.NewDense(2, 2, []float64{2, 0, 0, 8}))
		got, err := divValues(FromCSR(a), Num(2))
		require.NoError(t, err)
		assert.True(t, got.IsSparse())
		assert.Equal(t, 1.0, denseOf(t, got).At(0, 0))
		assert.Equal(t, 4.0, denseOf(t, got).At(1, 1))
	})

	t.Run("elementwise zeros follow IEEE", func(t *testing.T) {
		got, err := divValues(FromVec([]float64{1}), FromVec([]float64{0}))
		require.NoError(t, err)
		assert.True(t, math.IsInf(denseOf(t, got).At(0, 0), 1))
	})
}

func TestValueMatMul(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := mat.NewDense(3, 1, []float64{1, 0, -1})

	want, err := matMulValues(FromDense(a), FromDense(b))
	require.NoError(t, err)
	assert.Equal(t, -2.0, denseOf(t, want).At(0, 0))
	assert.Equal(t, -2.0, denseOf(t, want).At(1, 0))

	t.Run("sparse operand", func(t *testing.T) {
		got, err := matMulValues(FromCSR(csrOf(a)), FromDense(b))
		require.NoError(t, err)
		assert.True(t, mat.Equal(denseOf(t, want), denseOf(t, got)))
	})

	t.Run("inner dimension mismatch", func(t *testing.T) {
		_, err := matMulValues(FromDense(a), FromDense(a))
		assert.Error(t, err)
	})
}

func TestValuePowAndMod(t *testing.T) {
	t.Run("invalid power is NaN not error", func(t *testing.T) {
		got, err := powValues(Num(-1), Num(0.5))
		require.NoError(t, err)
		assert.True(t, math.IsNaN(got.Float()))
	})

	t.Run("floored modulo follows divisor sign", func(t *testing.T) {
		got, err := modValues(Num(-7), Num(5))
		require.NoError(t, err)
		assert.Equal(t, 3.0, got.Float())

		got, err = modValues(Num(7), Num(-5))
		require.NoError(t, err)
		assert.Equal(t, -3.0, got.Float())
	})
}

func TestApplyValue(t *testing.T) {
	t.Run("negation preserves sparsity", func(t *testing.T) {
		a := csrOf(mat.NewDense(2, 2, []float64{1, 0, 0, 2}))
		got := applyValue(FromCSR(a), func(x float64) float64 { return -x })
		assert.True(t, got.IsSparse())
		assert.Equal(t, -1.0, denseOf(t, got).At(0, 0))
	})

	t.Run("zero-moving map densifies", func(t *testing.T) {
		a := csrOf(mat.NewDense(2, 2, []float64{1, 0, 0, 2}))
		got := applyValue(FromCSR(a), math.Exp)
		assert.False(t, got.IsSparse())
		assert.Equal(t, 1.0, denseOf(t, got).At(0, 1), "exp(0) must appear")
	})
}
