package expr

import (
	"go.uber.org/zap"
)

// Factories over the raw operator constructors: smooth approximations
// to min/max/heaviside, the inner-product short-circuits, and the
// source-term convenience constructor.

// Minimum returns the smaller of two operands. With exact settings (or
// two constant operands, where smoothing buys nothing) it builds the
// non-smooth Minimum node; otherwise the softminus approximation with
// the configured coefficient. The result is constant-folded.
func Minimum(left, right interface{}, settings Settings) (Symbol, error) {
	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	var out Symbol
	if settings.minExact() || (l.IsConstant() && r.IsConstant()) {
		out, err = NewMinimum(l, r)
	} else {
		log.Debug("smoothing minimum", zap.Float64("k", settings.MinSmoothing))
		out, err = Softminus(l, r, settings.MinSmoothing)
	}
	if err != nil {
		return nil, err
	}
	return SimplifyIfConstant(out, false), nil
}

// Maximum mirrors Minimum with the softplus approximation.
func Maximum(left, right interface{}, settings Settings) (Symbol, error) {
	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	var out Symbol
	if settings.maxExact() || (l.IsConstant() && r.IsConstant()) {
		out, err = NewMaximum(l, r)
	} else {
		log.Debug("smoothing maximum", zap.Float64("k", settings.MaxSmoothing))
		out, err = Softplus(l, r, settings.MaxSmoothing)
	}
	if err != nil {
		return nil, err
	}
	return SimplifyIfConstant(out, false), nil
}

// Softminus is the log-sum-exp approximation to the minimum,
// -log(exp(-k*l) + exp(-k*r)) / k. It converges to the exact minimum
// as k grows; k around 10 is a reasonable trade of smoothness against
// steepness.
func Softminus(left, right interface{}, k float64) (out Symbol, err error) {
	defer catch(&err)

	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	return div(logOf(add(expOf(mul(num(-k), l)), expOf(mul(num(-k), r)))), num(-k)), nil
}

// Softplus is the log-sum-exp approximation to the maximum,
// log(exp(k*l) + exp(k*r)) / k.
func Softplus(left, right interface{}, k float64) (out Symbol, err error) {
	defer catch(&err)

	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	return div(logOf(add(expOf(mul(num(k), l)), expOf(mul(num(k), r)))), num(k)), nil
}

// Sigmoid is the tanh approximation to the step function left < right,
// (1 + tanh(k*(r - l))) / 2. Unlike the exact Heaviside it does not
// pick a side at equality: the value there is exactly one half.
func Sigmoid(left, right interface{}, k float64) (out Symbol, err error) {
	defer catch(&err)

	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	return div(add(num(1), tanhOf(mul(num(k), sub(r, l)))), num(2)), nil
}

// Inner returns the inner product of two operands with algebraic
// short-circuits: a scalar-zero operand yields zeros shaped like the
// other side without building an Inner node at all, zero matrices
// yield zeros shaped like the product (shape-preserving), and a
// scalar-one operand yields the other operand unchanged.
func Inner(left, right interface{}) (Symbol, error) {
	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}

	if IsScalarZero(l) {
		log.Debug("inner product short-circuit", zap.String("reason", "zero left"))
		return ZerosLike(r), nil
	}
	if IsScalarZero(r) {
		log.Debug("inner product short-circuit", zap.String("reason", "zero right"))
		return ZerosLike(l), nil
	}
	if IsMatrixZero(l) || IsMatrixZero(r) {
		// A zero matrix still fixes the output shape, so build the
		// node first and zero-fill its shape.
		n, err := NewInner(l, r)
		if err != nil {
			return nil, err
		}
		return ZerosLike(n), nil
	}
	if IsScalarOne(l) {
		return r, nil
	}
	if IsScalarOne(r) {
		return l, nil
	}

	n, err := NewInner(l, r)
	if err != nil {
		return nil, err
	}
	return SimplifyIfConstant(n, false), nil
}

// Source builds (part of) a source-term expression: the mass matrix of
// the equation variable right (boundary or bulk, accounting for
// right's boundary conditions at discretization) applied to the source
// expression left. Both operands must live in the settings' designated
// source domain; a bare number on the left is broadcast there first.
func Source(left, right interface{}, boundary bool, settings Settings) (Symbol, error) {
	want := []string{settings.SourceDomain}

	if _, ok := left.(Symbol); !ok {
		sc, err := toSymbol(left)
		if err != nil {
			return nil, err
		}
		left, err = NewPrimaryBroadcast(sc, want)
		if err != nil {
			return nil, err
		}
	}
	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	if !equalDomains(l.Domain(), want) || !equalDomains(r.Domain(), want) {
		return nil, domainErrorf("source is only defined in the %v domain, got %v and %v",
			want, l.Domain(), r.Domain())
	}

	mass := NewMass(r)
	if boundary {
		mass = NewBoundaryMass(r)
	}
	return NewMatrixMultiplication(mass, l)
}
