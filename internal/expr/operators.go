package expr

// Per-operator numeric, derivative, jacobian and simplification rules.
// Evaluation semantics and the constant short-circuits follow the
// classical calculus rules; dropping the jacobian contribution of a
// provably-constant side keeps derivative trees small on the big
// discretized systems this feeds.

func (b *BinaryOperator) binaryEvaluate(l, r Value) (Value, error) {
	switch b.op {
	case OpAdd:
		return addValues(l, r)
	case OpSub:
		return subValues(l, r)
	case OpMul, OpInner:
		return mulValues(l, r)
	case OpMatMul:
		return matMulValues(l, r)
	case OpDiv:
		return divValues(l, r)
	case OpPow:
		return powValues(l, r)
	case OpMod:
		return modValues(l, r)
	case OpMin:
		return minValues(l, r)
	case OpMax:
		return maxValues(l, r)
	case OpLeq:
		return leqValues(l, r)
	case OpLt:
		return ltValues(l, r)
	}
	return Value{}, unsupportedErrorf("evaluate operator %q", b.name)
}

// Diff returns the symbolic derivative with respect to variable.
// Matrix multiplication has no derivative rule: asking for one is a
// modeling error upstream. Heaviside steps differentiate to zero on
// the assumption they multiply something else.
func (b *BinaryOperator) Diff(variable Symbol) (out Symbol, err error) {
	defer catch(&err)

	switch b.op {
	case OpMatMul:
		return nil, unsupportedErrorf("diff of matrix multiplication")
	case OpLeq, OpLt:
		return NewScalar(0), nil
	}
	if variable.ID() == b.id {
		return NewScalar(1), nil
	}
	if !occursIn(b, variable) {
		return NewScalar(0), nil
	}

	l, r := b.left, b.right
	switch b.op {
	case OpAdd:
		return add(diff(l, variable), diff(r, variable)), nil
	case OpSub:
		return sub(diff(l, variable), diff(r, variable)), nil
	case OpMul, OpInner:
		// product rule
		return add(mul(diff(l, variable), r), mul(l, diff(r, variable))), nil
	case OpDiv:
		// quotient rule
		return div(sub(mul(diff(l, variable), r), mul(l, diff(r, variable))), pow(r, num(2))), nil
	case OpPow:
		// chain and power rules; the exponent term is rare, so it is
		// only built when the variable actually occurs there
		d := mul(mul(r, pow(l, sub(r, num(1)))), diff(l, variable))
		if occursIn(r, variable) {
			d = add(d, mul(mul(pow(l, r), logOf(l)), diff(r, variable)))
		}
		return d, nil
	case OpMod:
		d := diff(l, variable)
		if occursIn(r, variable) {
			d = add(d, mul(neg(floorOf(div(l, r))), diff(r, variable)))
		}
		return d, nil
	case OpMin:
		// subgradient: the smaller side's derivative is selected
		return add(mul(leq(l, r), diff(l, variable)), mul(lt(r, l), diff(r, variable))), nil
	case OpMax:
		return add(mul(leq(r, l), diff(l, variable)), mul(lt(l, r), diff(r, variable))), nil
	}
	return nil, unsupportedErrorf("diff of operator %q", b.name)
}

// binaryJac combines the children's already-computed jacobians per the
// operator's differentiation rule. Contributions from a side that
// evaluates to a constant number are dropped outright instead of being
// built and simplified away.
func (b *BinaryOperator) binaryJac(leftJac, rightJac Symbol) (out Symbol, err error) {
	defer catch(&err)

	l, r := b.left, b.right
	lconst := l.EvaluatesToConstantNumber()
	rconst := r.EvaluatesToConstantNumber()

	switch b.op {
	case OpAdd:
		return add(leftJac, rightJac), nil
	case OpSub:
		return sub(leftJac, rightJac), nil
	case OpMul, OpInner:
		switch {
		case lconst && rconst:
			return NewScalar(0), nil
		case lconst:
			return mul(l, rightJac), nil
		case rconst:
			return mul(r, leftJac), nil
		default:
			return add(mul(r, leftJac), mul(l, rightJac)), nil
		}
	case OpDiv:
		switch {
		case lconst && rconst:
			return NewScalar(0), nil
		case lconst:
			return mul(div(neg(l), pow(r, num(2))), rightJac), nil
		case rconst:
			return div(leftJac, r), nil
		default:
			return div(sub(mul(r, leftJac), mul(l, rightJac)), pow(r, num(2))), nil
		}
	case OpPow:
		switch {
		case lconst && rconst:
			return NewScalar(0), nil
		case rconst:
			return mul(mul(r, pow(l, sub(r, num(1)))), leftJac), nil
		case lconst:
			return mul(mul(pow(l, r), logOf(l)), rightJac), nil
		default:
			return mul(pow(l, sub(r, num(1))), add(mul(r, leftJac), mul(mul(l, logOf(l)), rightJac))), nil
		}
	case OpMod:
		switch {
		case lconst && rconst:
			return NewScalar(0), nil
		case rconst:
			return leftJac, nil
		case lconst:
			return mul(neg(rightJac), floorOf(div(l, r))), nil
		default:
			return sub(leftJac, mul(rightJac, floorOf(div(l, r)))), nil
		}
	case OpMin:
		return add(mul(leq(l, r), leftJac), mul(lt(r, l), rightJac)), nil
	case OpMax:
		return add(mul(leq(r, l), leftJac), mul(lt(l, r), rightJac)), nil
	case OpLeq, OpLt:
		return NewScalar(0), nil
	case OpMatMul:
		return b.matMulJac(rightJac)
	}
	return nil, unsupportedErrorf("jacobian of operator %q", b.name)
}

// matMulJac handles the one supported matrix-multiplication case: a
// constant array (or its negation) on the left, as produced by
// discretized spatial operators of the form D @ u. The left operand is
// wrapped as a CSR matrix and applied to the right jacobian. Anything
// else fails; the restriction is deliberate.
func (b *BinaryOperator) matMulJac(rightJac Symbol) (Symbol, error) {
	l := b.left
	if !isConstantArray(l) && !isNegatedArray(l) {
		return nil, unsupportedErrorf("jacobian of matrix multiplication with left operand %q", l.Name())
	}
	v, err := evalConstant(l)
	if err != nil {
		return nil, err
	}
	return NewMatrixMultiplication(NewSparseMatrix(toCSR(v)), rightJac)
}

func isConstantArray(s Symbol) bool {
	switch s.(type) {
	case *Matrix, *Vector:
		return true
	}
	return false
}

func isNegatedArray(s Symbol) bool {
	u, ok := s.(*UnaryOperator)
	return ok && u.op == UnaryNeg && isConstantArray(u.child)
}

// binarySimplify combines freshly simplified children. Additive and
// multiplicative operators fold chained constants; matrix products
// fold scalar factors out without reordering the matrices; everything
// else rebuilds and constant-folds. If the algebra cannot rebuild (a
// bug guard, not an expected path) the plain rebuild wins.
func (b *BinaryOperator) binarySimplify(left, right Symbol) (out Symbol) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(buildError); !ok {
				panic(rec)
			}
			out = SimplifyIfConstant(b.rebuild(left, right), false)
		}
	}()

	switch b.op {
	case OpAdd, OpSub:
		return simplifyAddSub(b.op, left, right)
	case OpMul, OpDiv:
		return simplifyMulDiv(b.op, left, right)
	case OpMatMul:
		return simplifyMatMul(left, right)
	default:
		return SimplifyIfConstant(b.rebuild(left, right), false)
	}
}
