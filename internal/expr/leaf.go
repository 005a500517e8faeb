package expr

import (
	"fmt"
	"math"
	"strconv"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Scalar is a constant numeric leaf. Raw numbers handed to operator
// constructors are coerced into Scalars.
type Scalar struct {
	baseSymbol
	value float64
}

// NewScalar returns a constant scalar leaf.
func NewScalar(v float64) *Scalar {
	return &Scalar{baseSymbol: newBase(strconv.FormatFloat(v, 'g', -1, 64), nil, nil), value: v}
}

// Value returns the scalar's constant.
func (s *Scalar) Value() float64 { return s.value }

func (s *Scalar) Children() []Symbol { return nil }

func (s *Scalar) Evaluate(_ float64, _, _ *mat.VecDense, _ Inputs, _ KnownEvals) (Value, error) {
	return Num(s.value), nil
}

func (s *Scalar) EvaluateForShape() (Value, error) { return Num(s.value), nil }

func (s *Scalar) Diff(variable Symbol) (Symbol, error) {
	if variable.ID() == s.id {
		return NewScalar(1), nil
	}
	return NewScalar(0), nil
}

func (s *Scalar) NewCopy() Symbol {
	out := &Scalar{value: s.value}
	out.baseSymbol = newBase(s.name, nil, nil)
	out.copyMetadataFrom(s)
	return out
}

func (s *Scalar) Simplify() Symbol                { return s }
func (s *Scalar) IsConstant() bool                { return true }
func (s *Scalar) EvaluatesToConstantNumber() bool { return true }
func (s *Scalar) EvaluatesOnEdges(string) bool    { return false }
func (s *Scalar) String() string                  { return s.name }

// Vector is a constant dense column leaf.
type Vector struct {
	baseSymbol
	value Value
}

// NewVector returns a constant column-vector leaf.
func NewVector(data []float64, domain ...string) *Vector {
	return &Vector{
		baseSymbol: newBase(fmt.Sprintf("vector[%d]", len(data)), domain, nil),
		value:      FromVec(data),
	}
}

func (v *Vector) Children() []Symbol { return nil }

func (v *Vector) Evaluate(_ float64, _, _ *mat.VecDense, _ Inputs, _ KnownEvals) (Value, error) {
	return v.value, nil
}

func (v *Vector) EvaluateForShape() (Value, error) { return v.value, nil }

func (v *Vector) Diff(variable Symbol) (Symbol, error) {
	if variable.ID() == v.id {
		return NewScalar(1), nil
	}
	return NewScalar(0), nil
}

func (v *Vector) NewCopy() Symbol {
	out := &Vector{value: v.value}
	out.baseSymbol = newBase(v.name, nil, nil)
	out.copyMetadataFrom(v)
	return out
}

func (v *Vector) Simplify() Symbol                { return v }
func (v *Vector) IsConstant() bool                { return true }
func (v *Vector) EvaluatesToConstantNumber() bool { return v.value.Size() == 1 }
func (v *Vector) EvaluatesOnEdges(string) bool    { return false }
func (v *Vector) String() string                  { return v.name }

// Matrix is a constant matrix leaf, dense or CSR.
type Matrix struct {
	baseSymbol
	value Value
}

// NewMatrix returns a constant dense-matrix leaf.
func NewMatrix(m *mat.Dense, domain ...string) *Matrix {
	return newMatrixFromValue(FromDense(m), domain)
}

// NewSparseMatrix returns a constant CSR-matrix leaf.
func NewSparseMatrix(m *sparse.CSR, domain ...string) *Matrix {
	return newMatrixFromValue(FromCSR(m), domain)
}

func newMatrixFromValue(v Value, domain []string) *Matrix {
	r, c := v.Dims()
	return &Matrix{
		baseSymbol: newBase(fmt.Sprintf("matrix[%dx%d]", r, c), domain, nil),
		value:      v,
	}
}

func (m *Matrix) Children() []Symbol { return nil }

func (m *Matrix) Evaluate(_ float64, _, _ *mat.VecDense, _ Inputs, _ KnownEvals) (Value, error) {
	return m.value, nil
}

func (m *Matrix) EvaluateForShape() (Value, error) { return m.value, nil }

func (m *Matrix) Diff(variable Symbol) (Symbol, error) {
	if variable.ID() == m.id {
		return NewScalar(1), nil
	}
	return NewScalar(0), nil
}

func (m *Matrix) NewCopy() Symbol {
	out := &Matrix{value: m.value}
	out.baseSymbol = newBase(m.name, nil, nil)
	out.copyMetadataFrom(m)
	return out
}

func (m *Matrix) Simplify() Symbol                { return m }
func (m *Matrix) IsConstant() bool                { return true }
func (m *Matrix) EvaluatesToConstantNumber() bool { return m.value.Size() == 1 }
func (m *Matrix) EvaluatesOnEdges(string) bool    { return false }
func (m *Matrix) String() string                  { return m.name }

// Variable is a named input leaf, evaluated from the inputs map. Two
// Variables with the same name denote the same quantity for
// differentiation even when built separately.
type Variable struct {
	baseSymbol
}

// NewVariable returns a named input leaf, optionally with a domain.
func NewVariable(name string, domain ...string) *Variable {
	return &Variable{baseSymbol: newBase(name, domain, nil)}
}

func (v *Variable) Children() []Symbol { return nil }

func (v *Variable) Evaluate(_ float64, _, _ *mat.VecDense, inputs Inputs, _ KnownEvals) (Value, error) {
	val, ok := inputs[v.name]
	if !ok {
		return Value{}, fmt.Errorf("no input supplied for variable %q", v.name)
	}
	return Num(val), nil
}

func (v *Variable) EvaluateForShape() (Value, error) { return Num(math.NaN()), nil }

func (v *Variable) Diff(variable Symbol) (Symbol, error) {
	if matchesVariable(v, variable) {
		return NewScalar(1), nil
	}
	return NewScalar(0), nil
}

func (v *Variable) NewCopy() Symbol {
	out := &Variable{}
	out.baseSymbol = newBase(v.name, nil, nil)
	out.copyMetadataFrom(v)
	return out
}

func (v *Variable) Simplify() Symbol                { return v }
func (v *Variable) IsConstant() bool                { return false }
func (v *Variable) EvaluatesToConstantNumber() bool { return false }
func (v *Variable) EvaluatesOnEdges(string) bool    { return false }
func (v *Variable) String() string                  { return v.name }

// Time is the independent time variable.
type Time struct {
	baseSymbol
}

// NewTime returns the time leaf.
func NewTime() *Time {
	return &Time{baseSymbol: newBase("t", nil, nil)}
}

func (t *Time) Children() []Symbol { return nil }

func (t *Time) Evaluate(tv float64, _, _ *mat.VecDense, _ Inputs, _ KnownEvals) (Value, error) {
	return Num(tv), nil
}

func (t *Time) EvaluateForShape() (Value, error) { return Num(0), nil }

func (t *Time) Diff(variable Symbol) (Symbol, error) {
	if matchesVariable(t, variable) {
		return NewScalar(1), nil
	}
	return NewScalar(0), nil
}

func (t *Time) NewCopy() Symbol {
	out := &Time{}
	out.baseSymbol = newBase(t.name, nil, nil)
	out.copyMetadataFrom(t)
	return out
}

func (t *Time) Simplify() Symbol                { return t }
func (t *Time) IsConstant() bool                { return false }
func (t *Time) EvaluatesToConstantNumber() bool { return false }
func (t *Time) EvaluatesOnEdges(string) bool    { return false }
func (t *Time) String() string                  { return t.name }

// StateVector is a slice [start, stop) of the state vector y.
type StateVector struct {
	baseSymbol
	start, stop int
}

// NewStateVector returns a leaf selecting rows [start, stop) of y.
func NewStateVector(start, stop int, domain ...string) *StateVector {
	return &StateVector{
		baseSymbol: newBase(fmt.Sprintf("y[%d:%d]", start, stop), domain, nil),
		start:      start,
		stop:       stop,
	}
}

// Size returns the number of selected state entries.
func (s *StateVector) Size() int { return s.stop - s.start }

// Slice returns the selected [start, stop) range.
func (s *StateVector) Slice() (start, stop int) { return s.start, s.stop }

func (s *StateVector) Children() []Symbol { return nil }

func (s *StateVector) Evaluate(_ float64, y, _ *mat.VecDense, _ Inputs, _ KnownEvals) (Value, error) {
	if y == nil {
		return Value{}, fmt.Errorf("state vector %s evaluated without a state", s.name)
	}
	if y.Len() < s.stop {
		return Value{}, fmt.Errorf("state vector %s out of range for state of length %d", s.name, y.Len())
	}
	out := make([]float64, s.Size())
	for i := range out {
		out[i] = y.AtVec(s.start + i)
	}
	return FromVec(out), nil
}

func (s *StateVector) EvaluateForShape() (Value, error) {
	return nanFill(s.Size(), 1), nil
}

func (s *StateVector) Diff(variable Symbol) (Symbol, error) {
	if variable.ID() == s.id {
		return NewScalar(1), nil
	}
	return NewScalar(0), nil
}

func (s *StateVector) NewCopy() Symbol {
	out := &StateVector{start: s.start, stop: s.stop}
	out.baseSymbol = newBase(s.name, nil, nil)
	out.copyMetadataFrom(s)
	return out
}

func (s *StateVector) Simplify() Symbol                { return s }
func (s *StateVector) IsConstant() bool                { return false }
func (s *StateVector) EvaluatesToConstantNumber() bool { return false }
func (s *StateVector) EvaluatesOnEdges(string) bool    { return false }
func (s *StateVector) String() string                  { return s.name }
