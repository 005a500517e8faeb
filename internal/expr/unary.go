package expr

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// UnaryOp tags the closed set of one-child operators the engine needs:
// the functions appearing in derivative and smoothing rules, plus the
// mass-matrix wrappers consumed by Source. The full unary grammar of
// the pipeline lives elsewhere.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryLog
	UnaryExp
	UnaryTanh
	UnaryFloor
	UnaryMass
	UnaryBoundaryMass
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNeg:
		return "-"
	case UnaryLog:
		return "log"
	case UnaryExp:
		return "exp"
	case UnaryTanh:
		return "tanh"
	case UnaryFloor:
		return "floor"
	case UnaryMass:
		return "mass"
	case UnaryBoundaryMass:
		return "boundary mass"
	}
	return "?"
}

// UnaryOperator is a one-child operator node. The child's domain
// metadata carries over unchanged.
type UnaryOperator struct {
	baseSymbol
	op    UnaryOp
	child Symbol
}

// NewNegate returns the elementwise negation of child.
func NewNegate(child interface{}) (*UnaryOperator, error) { return newUnary(UnaryNeg, child) }

// NewLog returns the elementwise natural logarithm of child.
func NewLog(child interface{}) (*UnaryOperator, error) { return newUnary(UnaryLog, child) }

// NewExp returns the elementwise exponential of child.
func NewExp(child interface{}) (*UnaryOperator, error) { return newUnary(UnaryExp, child) }

// NewTanh returns the elementwise hyperbolic tangent of child.
func NewTanh(child interface{}) (*UnaryOperator, error) { return newUnary(UnaryTanh, child) }

// NewFloor returns the elementwise floor of child.
func NewFloor(child interface{}) (*UnaryOperator, error) { return newUnary(UnaryFloor, child) }

// NewMass wraps child in a bulk mass-matrix node, resolved by the
// discretization stage against child's boundary conditions.
func NewMass(child Symbol) *UnaryOperator {
	m, _ := newUnary(UnaryMass, child)
	return m
}

// NewBoundaryMass wraps child in a boundary mass-matrix node.
func NewBoundaryMass(child Symbol) *UnaryOperator {
	m, _ := newUnary(UnaryBoundaryMass, child)
	return m
}

func newUnary(op UnaryOp, child interface{}) (*UnaryOperator, error) {
	c, err := toSymbol(child)
	if err != nil {
		return nil, err
	}
	return &UnaryOperator{
		baseSymbol: newBase(op.String(), c.Domain(), c.AuxiliaryDomains()),
		op:         op,
		child:      c,
	}, nil
}

// Op returns the operator tag.
func (u *UnaryOperator) Op() UnaryOp { return u.op }

// Child returns the single child.
func (u *UnaryOperator) Child() Symbol { return u.child }

func (u *UnaryOperator) Children() []Symbol { return []Symbol{u.child} }

func (u *UnaryOperator) Evaluate(t float64, y, ydot *mat.VecDense, inputs Inputs, known KnownEvals) (Value, error) {
	if known != nil {
		if v, ok := known[u.id]; ok {
			return v, nil
		}
	}
	c, err := u.child.Evaluate(t, y, ydot, inputs, known)
	if err != nil {
		return Value{}, err
	}
	v, err := u.apply(c)
	if err != nil {
		return Value{}, err
	}
	if known != nil {
		known[u.id] = v
	}
	return v, nil
}

func (u *UnaryOperator) EvaluateForShape() (Value, error) {
	c, err := u.child.EvaluateForShape()
	if err != nil {
		return Value{}, err
	}
	return u.apply(c)
}

func (u *UnaryOperator) apply(c Value) (Value, error) {
	switch u.op {
	case UnaryNeg:
		return applyValue(c, func(x float64) float64 { return -x }), nil
	case UnaryLog:
		return applyValue(c, math.Log), nil
	case UnaryExp:
		return applyValue(c, math.Exp), nil
	case UnaryTanh:
		return applyValue(c, math.Tanh), nil
	case UnaryFloor:
		return applyValue(c, math.Floor), nil
	default:
		// Mass matrices are assembled by the discretization stage.
		return Value{}, unsupportedErrorf("evaluate %q before discretization", u.op)
	}
}

func (u *UnaryOperator) Diff(variable Symbol) (out Symbol, err error) {
	defer catch(&err)

	if variable.ID() == u.id {
		return NewScalar(1), nil
	}
	if !occursIn(u, variable) {
		return NewScalar(0), nil
	}
	switch u.op {
	case UnaryNeg:
		return neg(diff(u.child, variable)), nil
	case UnaryLog:
		return div(diff(u.child, variable), u.child), nil
	case UnaryExp:
		return mul(expOf(u.child), diff(u.child, variable)), nil
	case UnaryTanh:
		return mul(sub(num(1), pow(tanhOf(u.child), num(2))), diff(u.child, variable)), nil
	case UnaryFloor:
		return NewScalar(0), nil
	default:
		return nil, unsupportedErrorf("diff of %q", u.op)
	}
}

// unaryJac propagates the child's jacobian through the operator.
func (u *UnaryOperator) unaryJac(childJac Symbol) (out Symbol, err error) {
	defer catch(&err)

	switch u.op {
	case UnaryNeg:
		return neg(childJac), nil
	case UnaryLog:
		return mul(div(num(1), u.child), childJac), nil
	case UnaryExp:
		return mul(expOf(u.child), childJac), nil
	case UnaryTanh:
		return mul(sub(num(1), pow(tanhOf(u.child), num(2))), childJac), nil
	case UnaryFloor:
		return NewScalar(0), nil
	default:
		return nil, unsupportedErrorf("jacobian of %q", u.op)
	}
}

func (u *UnaryOperator) NewCopy() Symbol {
	out := &UnaryOperator{op: u.op, child: u.child.NewCopy()}
	out.baseSymbol = newBase(u.name, nil, nil)
	out.copyMetadataFrom(u)
	return out
}

func (u *UnaryOperator) Simplify() Symbol {
	c := u.child.Simplify()
	out := &UnaryOperator{op: u.op, child: c}
	out.baseSymbol = newBase(u.name, u.domain, u.aux)
	return SimplifyIfConstant(out, false)
}

func (u *UnaryOperator) IsConstant() bool { return u.child.IsConstant() }

func (u *UnaryOperator) EvaluatesToConstantNumber() bool {
	return u.IsConstant() && u.child.EvaluatesToConstantNumber()
}

func (u *UnaryOperator) EvaluatesOnEdges(dimension string) bool {
	return u.child.EvaluatesOnEdges(dimension)
}

func (u *UnaryOperator) String() string {
	if u.op == UnaryNeg {
		if _, ok := u.child.(*BinaryOperator); ok {
			return "-(" + u.child.String() + ")"
		}
		return "-" + u.child.String()
	}
	return u.op.String() + "(" + u.child.String() + ")"
}
