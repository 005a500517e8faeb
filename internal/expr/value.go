package expr

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Value is the numeric result of evaluating a node: a scalar, a dense
// matrix (column vectors are n-by-1), or a CSR sparse matrix. The three
// cases form a closed set; combinators dispatch on the kind pair.
//
// Numeric policy: operations follow IEEE-754 without trapping. Division
// by zero yields signed infinity, invalid powers and comparisons yield
// NaN or false, and none of these are errors.
type Value struct {
	kind valueKind
	num  float64
	den  *mat.Dense
	csr  *sparse.CSR
}

type valueKind uint8

const (
	scalarValue valueKind = iota
	denseValue
	sparseValue
)

// Num returns a scalar Value.
func Num(f float64) Value {
	return Value{kind: scalarValue, num: f}
}

// FromDense wraps a dense matrix as a Value.
func FromDense(m *mat.Dense) Value {
	return Value{kind: denseValue, den: m}
}

// FromVec wraps a slice as an n-by-1 dense column.
func FromVec(data []float64) Value {
	col := make([]float64, len(data))
	copy(col, data)
	return FromDense(mat.NewDense(len(data), 1, col))
}

// FromCSR wraps a compressed sparse row matrix as a Value.
func FromCSR(m *sparse.CSR) Value {
	return Value{kind: sparseValue, csr: m}
}

// IsScalar reports whether v holds a single number.
func (v Value) IsScalar() bool { return v.kind == scalarValue }

// IsSparse reports whether v holds a CSR matrix.
func (v Value) IsSparse() bool { return v.kind == sparseValue }

// Float returns the scalar payload. It is only meaningful when
// IsScalar is true.
func (v Value) Float() float64 { return v.num }

// Dims returns the shape; scalars report 1x1.
func (v Value) Dims() (rows, cols int) {
	switch v.kind {
	case denseValue:
		return v.den.Dims()
	case sparseValue:
		return v.csr.Dims()
	default:
		return 1, 1
	}
}

// Size returns the element count.
func (v Value) Size() int {
	r, c := v.Dims()
	return r * c
}

// ToDense materializes v as a dense matrix; scalars become 1x1.
func (v Value) ToDense() *mat.Dense {
	switch v.kind {
	case denseValue:
		return v.den
	case sparseValue:
		return v.csr.ToDense()
	default:
		return mat.NewDense(1, 1, []float64{v.num})
	}
}

// CSR returns the sparse payload, or nil for other kinds.
func (v Value) CSR() *sparse.CSR { return v.csr }

// at reads element (i, j), broadcasting scalars to every position.
func (v Value) at(i, j int) float64 {
	switch v.kind {
	case denseValue:
		return v.den.At(i, j)
	case sparseValue:
		return v.csr.At(i, j)
	default:
		return v.num
	}
}

// bat reads element (i, j) with size-one dimensions stretched, the
// indexing counterpart of broadcastDims. A column vector repeats its
// column; a row vector repeats its row.
func (v Value) bat(i, j int) float64 {
	r, c := v.Dims()
	if r == 1 {
		i = 0
	}
	if c == 1 {
		j = 0
	}
	return v.at(i, j)
}

// matrix exposes the non-scalar payload through gonum's interface.
func (v Value) matrix() mat.Matrix {
	if v.kind == sparseValue {
		return v.csr
	}
	return v.ToDense()
}

func (v Value) String() string {
	if v.IsScalar() {
		return fmt.Sprintf("%g", v.num)
	}
	r, c := v.Dims()
	return fmt.Sprintf("[%dx%d]", r, c)
}

// broadcastDims picks the output shape of an elementwise combination.
// Non-scalar operands must agree; models are shape-checked upstream via
// EvaluateForShape before any real state is evaluated.
func broadcastDims(l, r Value) (rows, cols int, err error) {
	lr, lc := l.Dims()
	rr, rc := r.Dims()
	rows, err = broadcastDim(lr, rr)
	if err == nil {
		cols, err = broadcastDim(lc, rc)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("elementwise shape mismatch %dx%d vs %dx%d", lr, lc, rr, rc)
	}
	return rows, cols, nil
}

// broadcastDim resolves one dimension: equal extents match, and an
// extent of one stretches to the other side.
func broadcastDim(a, b int) (int, error) {
	switch {
	case a == b:
		return a, nil
	case a == 1:
		return b, nil
	case b == 1:
		return a, nil
	default:
		return 0, fmt.Errorf("incompatible extents %d and %d", a, b)
	}
}

// elementwise applies f over both operands with scalar broadcasting.
func elementwise(l, r Value, f func(a, b float64) float64) (Value, error) {
	if l.IsScalar() && r.IsScalar() {
		return Num(f(l.num, r.num)), nil
	}
	rows, cols, err := broadcastDims(l, r)
	if err != nil {
		return Value{}, err
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, f(l.bat(i, j), r.bat(i, j)))
		}
	}
	return FromDense(out), nil
}

// sparseHadamard multiplies a sparse operand elementwise by any other
// operand, visiting only stored entries, and normalizes to CSR.
func sparseHadamard(s *sparse.CSR, other Value) (Value, error) {
	rows, cols := s.Dims()
	if or, oc, err := broadcastDims(FromCSR(s), other); err != nil || or != rows || oc != cols {
		return Value{}, fmt.Errorf("elementwise shape mismatch with sparse %dx%d operand", rows, cols)
	}
	out := sparse.NewDOK(rows, cols)
	s.DoNonZero(func(i, j int, v float64) {
		out.Set(i, j, v*other.bat(i, j))
	})
	return FromCSR(out.ToCSR()), nil
}

func addValues(l, r Value) (Value, error) {
	return elementwise(l, r, func(a, b float64) float64 { return a + b })
}

func subValues(l, r Value) (Value, error) {
	return elementwise(l, r, func(a, b float64) float64 { return a - b })
}

// mulValues is the Hadamard product. Sparse operands keep their
// sparsity; the Hadamard product commutes, so a sparse right operand is
// handled by swapping.
func mulValues(l, r Value) (Value, error) {
	if l.IsSparse() {
		return sparseHadamard(l.csr, r)
	}
	if r.IsSparse() {
		return sparseHadamard(r.csr, l)
	}
	return elementwise(l, r, func(a, b float64) float64 { return a * b })
}

// divValues is the elementwise quotient. A right operand that is the
// exact scalar zero multiplies the left by +Inf instead, so the result
// carries signed infinities (and NaN at zero entries) rather than
// failing. A sparse left operand is scaled entry by entry.
func divValues(l, r Value) (Value, error) {
	if r.IsScalar() && r.num == 0 {
		return mulValues(l, Num(math.Inf(1)))
	}
	if l.IsSparse() {
		rows, cols := l.csr.Dims()
		if rr, rc, err := broadcastDims(l, r); err != nil || rr != rows || rc != cols {
			return Value{}, fmt.Errorf("elementwise shape mismatch with sparse %dx%d operand", rows, cols)
		}
		out := sparse.NewDOK(rows, cols)
		l.csr.DoNonZero(func(i, j int, v float64) {
			out.Set(i, j, v/r.bat(i, j))
		})
		return FromCSR(out.ToCSR()), nil
	}
	return elementwise(l, r, func(a, b float64) float64 { return a / b })
}

func powValues(l, r Value) (Value, error) {
	return elementwise(l, r, math.Pow)
}

// modValues is the floored remainder (sign follows the divisor),
// matching the floor-quotient form used by the Modulo derivative rule.
func modValues(l, r Value) (Value, error) {
	return elementwise(l, r, flooredMod)
}

func flooredMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func minValues(l, r Value) (Value, error) {
	return elementwise(l, r, math.Min)
}

func maxValues(l, r Value) (Value, error) {
	return elementwise(l, r, math.Max)
}

// leqValues evaluates l <= r as 0/1. NaN compares false on both sides.
func leqValues(l, r Value) (Value, error) {
	return elementwise(l, r, func(a, b float64) float64 {
		if a <= b {
			return 1
		}
		return 0
	})
}

// ltValues evaluates l < r as 0/1.
func ltValues(l, r Value) (Value, error) {
	return elementwise(l, r, func(a, b float64) float64 {
		if a < b {
			return 1
		}
		return 0
	})
}

// matMulValues is the true matrix product. Scalar operands scale the
// other side; a sparse operand on either side produces a CSR result.
func matMulValues(l, r Value) (Value, error) {
	if l.IsScalar() || r.IsScalar() {
		return mulValues(l, r)
	}
	lr, lc := l.Dims()
	rr, rc := r.Dims()
	if lc != rr {
		return Value{}, fmt.Errorf("matmul inner dimension mismatch %dx%d @ %dx%d", lr, lc, rr, rc)
	}
	if l.IsSparse() || r.IsSparse() {
		out := &sparse.CSR{}
		out.Mul(l.matrix(), r.matrix())
		return FromCSR(out), nil
	}
	out := mat.NewDense(lr, rc, nil)
	out.Mul(l.den, r.den)
	return FromDense(out), nil
}

// applyValue maps f over every element. Only negation preserves
// sparsity; other unary maps move zeros, so the result densifies.
func applyValue(v Value, f func(float64) float64) Value {
	switch v.kind {
	case scalarValue:
		return Num(f(v.num))
	case sparseValue:
		if f(0) == 0 {
			rows, cols := v.csr.Dims()
			out := sparse.NewDOK(rows, cols)
			v.csr.DoNonZero(func(i, j int, x float64) {
				out.Set(i, j, f(x))
			})
			return FromCSR(out.ToCSR())
		}
		fallthrough
	default:
		rows, cols := v.Dims()
		out := mat.NewDense(rows, cols, nil)
		out.Apply(func(_, _ int, x float64) float64 { return f(x) }, v.ToDense())
		return FromDense(out)
	}
}

// allZero reports whether every element of v is exactly zero.
func allZero(v Value) bool {
	switch v.kind {
	case scalarValue:
		return v.num == 0
	case sparseValue:
		zero := true
		v.csr.DoNonZero(func(_, _ int, x float64) {
			if x != 0 {
				zero = false
			}
		})
		return zero
	default:
		rows, cols := v.den.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v.den.At(i, j) != 0 {
					return false
				}
			}
		}
		return true
	}
}

// zeroLike returns a zero-filled value with the shape of v.
func zeroLike(v Value) Value {
	if v.IsScalar() {
		return Num(0)
	}
	rows, cols := v.Dims()
	return FromDense(mat.NewDense(rows, cols, nil))
}

// nanFill returns a NaN-filled dense value, used by shape inference.
func nanFill(rows, cols int) Value {
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, math.NaN())
		}
	}
	return FromDense(out)
}

// toCSR converts any value to CSR form, used when wrapping a constant
// operand as a sparse matrix for jacobian propagation.
func toCSR(v Value) *sparse.CSR {
	if v.IsSparse() {
		return v.csr
	}
	d := v.ToDense()
	rows, cols := d.Dims()
	out := sparse.NewDOK(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if x := d.At(i, j); x != 0 {
				out.Set(i, j, x)
			}
		}
	}
	return out.ToCSR()
}
