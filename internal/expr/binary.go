package expr

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Op tags the closed set of binary operators. Every operator's
// evaluation, derivative, jacobian and simplification rules dispatch on
// this tag, so the compiler can check the set is handled exhaustively.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpMatMul
	OpDiv
	OpPow
	OpMod
	OpMin
	OpMax
	OpLeq
	OpLt
	OpInner
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpMatMul:
		return "@"
	case OpDiv:
		return "/"
	case OpPow:
		return "**"
	case OpMod:
		return "%"
	case OpMin:
		return "minimum"
	case OpMax:
		return "maximum"
	case OpLeq:
		return "<="
	case OpLt:
		return "<"
	case OpInner:
		return "inner product"
	}
	return "?"
}

// BinaryOperator is a two-child operator node. Left/right order is
// preserved structurally even for numerically commutative operators.
type BinaryOperator struct {
	baseSymbol
	op    Op
	left  Symbol
	right Symbol
}

// NewAddition returns left + right (elementwise).
func NewAddition(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpAdd, left, right)
}

// NewSubtraction returns left - right (elementwise).
func NewSubtraction(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpSub, left, right)
}

// NewMultiplication returns the Hadamard (elementwise) product.
func NewMultiplication(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpMul, left, right)
}

// NewMatrixMultiplication returns the true matrix product.
func NewMatrixMultiplication(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpMatMul, left, right)
}

// NewDivision returns left / right (elementwise).
func NewDivision(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpDiv, left, right)
}

// NewPower returns left ** right (elementwise).
func NewPower(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpPow, left, right)
}

// NewModulo returns the elementwise floored remainder of left by right.
func NewModulo(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpMod, left, right)
}

// NewMinimum returns the exact (non-smooth) elementwise minimum. Most
// callers want the Minimum factory, which can smooth.
func NewMinimum(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpMin, left, right)
}

// NewMaximum returns the exact (non-smooth) elementwise maximum.
func NewMaximum(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpMax, left, right)
}

// NewEqualHeaviside returns the step function left <= right (1 when
// equal).
func NewEqualHeaviside(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpLeq, left, right)
}

// NewNotEqualHeaviside returns the step function left < right (0 when
// equal).
func NewNotEqualHeaviside(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpLt, left, right)
}

// NewInner returns the inner product of two mathematical vectors. It
// evaluates like the Hadamard product but projects onto the scalar
// grid: it never evaluates on mesh edges.
func NewInner(left, right interface{}) (*BinaryOperator, error) {
	return newBinary(OpInner, left, right)
}

// newBinary is the single construction path for all binary operators:
// coerce operands, resolve secondary-domain broadcasts, merge domains.
func newBinary(op Op, left, right interface{}) (*BinaryOperator, error) {
	l, err := toSymbol(left)
	if err != nil {
		return nil, err
	}
	r, err := toSymbol(right)
	if err != nil {
		return nil, err
	}
	l, r, err = resolveBroadcast(l, r)
	if err != nil {
		return nil, err
	}

	domain, err := combineDomains(l.Domain(), r.Domain())
	if err != nil {
		return nil, err
	}
	aux, err := mergeAuxDomains(l, r)
	if err != nil {
		return nil, err
	}

	return &BinaryOperator{
		baseSymbol: baseSymbol{id: newID(), name: op.String(), domain: domain, aux: aux},
		op:         op,
		left:       l,
		right:      r,
	}, nil
}

// resolveBroadcast wraps an operand in a PrimaryBroadcast when its
// domain equals the other operand's "secondary" auxiliary domain. This
// handles combining a per-primary-domain quantity with the
// per-secondary-domain quantity it was broadcast from, without callers
// broadcasting by hand.
func resolveBroadcast(l, r Symbol) (Symbol, Symbol, error) {
	if len(l.Domain()) == 0 || len(r.Domain()) == 0 {
		return l, r, nil
	}
	if !equalDomains(l.Domain(), r.Domain()) {
		if sec, ok := r.AuxiliaryDomains()["secondary"]; ok && equalDomains(l.Domain(), sec) {
			log.Debug("broadcasting left operand",
				zap.String("operand", l.Name()),
				zap.Strings("domain", r.Domain()))
			wrapped, err := NewPrimaryBroadcast(l, r.Domain())
			if err != nil {
				return nil, nil, err
			}
			l = wrapped
		}
	}
	if !equalDomains(r.Domain(), l.Domain()) {
		if sec, ok := l.AuxiliaryDomains()["secondary"]; ok && equalDomains(r.Domain(), sec) {
			log.Debug("broadcasting right operand",
				zap.String("operand", r.Name()),
				zap.Strings("domain", l.Domain()))
			wrapped, err := NewPrimaryBroadcast(r, l.Domain())
			if err != nil {
				return nil, nil, err
			}
			r = wrapped
		}
	}
	return l, r, nil
}

// combineDomains merges child domains: equal stays, one empty takes
// the other, anything else is a mismatch.
func combineDomains(ldomain, rdomain []string) ([]string, error) {
	switch {
	case equalDomains(ldomain, rdomain):
		return cloneDomain(ldomain), nil
	case len(ldomain) == 0:
		return cloneDomain(rdomain), nil
	case len(rdomain) == 0:
		return cloneDomain(ldomain), nil
	default:
		return nil, domainErrorf("children must have the same (or empty) domains, got %v and %v", ldomain, rdomain)
	}
}

// Op returns the operator tag.
func (b *BinaryOperator) Op() Op { return b.op }

// Left returns the left child.
func (b *BinaryOperator) Left() Symbol { return b.left }

// Right returns the right child.
func (b *BinaryOperator) Right() Symbol { return b.right }

func (b *BinaryOperator) Children() []Symbol { return []Symbol{b.left, b.right} }

// Evaluate evaluates left, then right, then the operator's numeric
// rule. With a memo table each distinct node id is computed at most
// once per call, which keeps evaluation linear on DAGs with heavy
// subexpression sharing.
func (b *BinaryOperator) Evaluate(t float64, y, ydot *mat.VecDense, inputs Inputs, known KnownEvals) (Value, error) {
	if known != nil {
		if v, ok := known[b.id]; ok {
			return v, nil
		}
	}
	l, err := b.left.Evaluate(t, y, ydot, inputs, known)
	if err != nil {
		return Value{}, err
	}
	r, err := b.right.Evaluate(t, y, ydot, inputs, known)
	if err != nil {
		return Value{}, err
	}
	v, err := b.binaryEvaluate(l, r)
	if err != nil {
		return Value{}, err
	}
	if known != nil {
		known[b.id] = v
	}
	return v, nil
}

func (b *BinaryOperator) EvaluateForShape() (Value, error) {
	l, err := b.left.EvaluateForShape()
	if err != nil {
		return Value{}, err
	}
	r, err := b.right.EvaluateForShape()
	if err != nil {
		return Value{}, err
	}
	return b.binaryEvaluate(l, r)
}

// rebuild constructs a node of the same kind around new children,
// keeping the original's domain metadata instead of recomputing it
// from children that may have simplified differently.
func (b *BinaryOperator) rebuild(left, right Symbol) *BinaryOperator {
	return &BinaryOperator{
		baseSymbol: baseSymbol{id: newID(), name: b.name, domain: cloneDomain(b.domain), aux: cloneAux(b.aux)},
		op:         b.op,
		left:       left,
		right:      right,
	}
}

// NewCopy deep-copies both children and rebuilds. Domain metadata and
// identity come from the original: a copy denotes the same expression.
func (b *BinaryOperator) NewCopy() Symbol {
	out := b.rebuild(b.left.NewCopy(), b.right.NewCopy())
	out.id = b.id
	return out
}

func (b *BinaryOperator) Simplify() Symbol {
	return b.binarySimplify(b.left.Simplify(), b.right.Simplify())
}

func (b *BinaryOperator) IsConstant() bool {
	return b.left.IsConstant() && b.right.IsConstant()
}

func (b *BinaryOperator) EvaluatesToConstantNumber() bool {
	return b.left.EvaluatesToConstantNumber() && b.right.EvaluatesToConstantNumber()
}

func (b *BinaryOperator) EvaluatesOnEdges(dimension string) bool {
	// The inner product projects vector quantities onto the scalar
	// grid, so it is never edge-valued regardless of its children.
	if b.op == OpInner {
		return false
	}
	return b.left.EvaluatesOnEdges(dimension) || b.right.EvaluatesOnEdges(dimension)
}

func (b *BinaryOperator) String() string {
	switch b.op {
	case OpMin, OpMax:
		return b.name + "(" + b.left.String() + ", " + b.right.String() + ")"
	case OpMod:
		return b.left.String() + " mod " + b.right.String()
	case OpLeq, OpLt:
		return b.left.String() + " " + b.name + " " + b.right.String()
	}

	leftStr := b.left.String()
	if lb, ok := b.left.(*BinaryOperator); ok && b.needsLeftParens(lb) {
		leftStr = "(" + leftStr + ")"
	}
	rightStr := b.right.String()
	if rb, ok := b.right.(*BinaryOperator); ok && b.needsRightParens(rb) {
		rightStr = "(" + rightStr + ")"
	}
	return leftStr + " " + b.name + " " + rightStr
}

// needsLeftParens reports whether omitting parentheses around the left
// child would change the parse: same operator, a*b/c, a+b-c and any
// child under + are safe.
func (b *BinaryOperator) needsLeftParens(left *BinaryOperator) bool {
	if left.op == b.op ||
		(left.op == OpMul && b.op == OpDiv) ||
		(left.op == OpAdd && b.op == OpSub) ||
		b.op == OpAdd {
		return false
	}
	return true
}

// needsRightParens mirrors needsLeftParens for the non-associative
// side: only a*(b*c), a*(b/c) and any child under + stay bare.
func (b *BinaryOperator) needsRightParens(right *BinaryOperator) bool {
	if (b.op == OpMul && (right.op == OpMul || right.op == OpDiv)) || b.op == OpAdd {
		return false
	}
	return true
}
