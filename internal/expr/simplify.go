package expr

// SimplifyIfConstant collapses a constant subtree into a single Scalar
// or Matrix leaf. Unless clearDomains is set, the collapsed leaf keeps
// the original's domain metadata. Subtrees that cannot be evaluated
// yet (mass-matrix wrappers) are returned unchanged.
func SimplifyIfConstant(s Symbol, clearDomains bool) Symbol {
	switch s.(type) {
	case *Scalar, *Vector, *Matrix:
		return s
	}
	if !s.IsConstant() {
		return s
	}
	v, err := evalConstant(s)
	if err != nil {
		return s
	}
	if v.IsScalar() {
		out := NewScalar(v.Float())
		if !clearDomains {
			out.domain = cloneDomain(s.Domain())
			out.aux = cloneAux(s.AuxiliaryDomains())
		}
		return out
	}
	out := newMatrixFromValue(v, nil)
	if !clearDomains {
		out.domain = cloneDomain(s.Domain())
		out.aux = cloneAux(s.AuxiliaryDomains())
	}
	return out
}

// ZerosLike returns a constant zero node shaped like s, keeping its
// domain metadata.
func ZerosLike(s Symbol) Symbol {
	v, err := s.EvaluateForShape()
	if err != nil || v.IsScalar() {
		out := NewScalar(0)
		out.domain = cloneDomain(s.Domain())
		out.aux = cloneAux(s.AuxiliaryDomains())
		return out
	}
	out := newMatrixFromValue(zeroLike(v), nil)
	out.domain = cloneDomain(s.Domain())
	out.aux = cloneAux(s.AuxiliaryDomains())
	return out
}

// IsScalarZero reports whether s is the literal scalar zero.
func IsScalarZero(s Symbol) bool {
	sc, ok := s.(*Scalar)
	return ok && sc.value == 0
}

// IsScalarOne reports whether s is the literal scalar one.
func IsScalarOne(s Symbol) bool {
	sc, ok := s.(*Scalar)
	return ok && sc.value == 1
}

// IsMatrixZero reports whether s is a constant vector or matrix with
// every element zero.
func IsMatrixZero(s Symbol) bool {
	switch m := s.(type) {
	case *Vector:
		return allZero(m.value)
	case *Matrix:
		return allZero(m.value)
	}
	return false
}

type signedTerm struct {
	sym      Symbol
	negative bool
}

// simplifyAddSub flattens a chain of additions and subtractions, folds
// the scalar-constant terms into one coefficient, and rebuilds
// left-associatively with the folded constant last. Matrix-shaped
// constants are left alone so shapes and domains survive.
func simplifyAddSub(op Op, left, right Symbol) Symbol {
	var terms []signedTerm
	var collect func(s Symbol, negated bool)
	collect = func(s Symbol, negated bool) {
		if bo, ok := s.(*BinaryOperator); ok && (bo.op == OpAdd || bo.op == OpSub) {
			collect(bo.left, negated)
			collect(bo.right, negated != (bo.op == OpSub))
			return
		}
		terms = append(terms, signedTerm{s, negated})
	}
	collect(left, false)
	collect(right, op == OpSub)

	constant := 0.0
	rest := make([]signedTerm, 0, len(terms))
	for _, t := range terms {
		if t.sym.EvaluatesToConstantNumber() {
			if v, err := evalConstant(t.sym); err == nil && v.IsScalar() {
				if t.negative {
					constant -= v.Float()
				} else {
					constant += v.Float()
				}
				continue
			}
		}
		rest = append(rest, t)
	}

	if len(rest) == 0 {
		return NewScalar(constant)
	}
	var out Symbol
	for i, t := range rest {
		switch {
		case i == 0 && t.negative:
			out = neg(t.sym)
		case i == 0:
			out = t.sym
		case t.negative:
			out = sub(out, t.sym)
		default:
			out = add(out, t.sym)
		}
	}
	switch {
	case constant > 0:
		out = add(out, num(constant))
	case constant < 0:
		out = sub(out, num(-constant))
	}
	return SimplifyIfConstant(out, false)
}

// simplifyMatMul flattens a matrix-product chain and folds scalar
// factors into one leading coefficient. The matrix factors keep their
// order: the product does not commute, so only scalars move.
func simplifyMatMul(left, right Symbol) Symbol {
	var factors []Symbol
	var collect func(s Symbol)
	collect = func(s Symbol) {
		if bo, ok := s.(*BinaryOperator); ok && bo.op == OpMatMul {
			collect(bo.left)
			collect(bo.right)
			return
		}
		factors = append(factors, s)
	}
	collect(left)
	collect(right)

	coeff := 1.0
	rest := make([]Symbol, 0, len(factors))
	for _, f := range factors {
		if f.EvaluatesToConstantNumber() {
			if v, err := evalConstant(f); err == nil && v.IsScalar() {
				coeff *= v.Float()
				continue
			}
		}
		rest = append(rest, f)
	}

	if len(rest) == 0 {
		return NewScalar(coeff)
	}
	out := rest[0]
	for _, f := range rest[1:] {
		out = matmul(out, f)
	}
	if coeff != 1 {
		out = mul(num(coeff), out)
	}
	return SimplifyIfConstant(out, false)
}

type factor struct {
	sym     Symbol
	inverse bool
}

// simplifyMulDiv flattens a chain of Hadamard multiplications and
// divisions, folds scalar constants into a leading coefficient, and
// rebuilds as coefficient * numerator / denominator. Matrix
// multiplication is excluded: its chains do not commute.
func simplifyMulDiv(op Op, left, right Symbol) Symbol {
	var factors []factor
	var collect func(s Symbol, inverse bool)
	collect = func(s Symbol, inverse bool) {
		if bo, ok := s.(*BinaryOperator); ok && (bo.op == OpMul || bo.op == OpDiv) {
			collect(bo.left, inverse)
			collect(bo.right, inverse != (bo.op == OpDiv))
			return
		}
		factors = append(factors, factor{s, inverse})
	}
	collect(left, false)
	collect(right, op == OpDiv)

	coeff := 1.0
	rest := make([]factor, 0, len(factors))
	for _, f := range factors {
		if f.sym.EvaluatesToConstantNumber() {
			if v, err := evalConstant(f.sym); err == nil && v.IsScalar() {
				if f.inverse {
					coeff /= v.Float()
				} else {
					coeff *= v.Float()
				}
				continue
			}
		}
		rest = append(rest, f)
	}

	if len(rest) == 0 {
		return NewScalar(coeff)
	}

	var numTerm, denTerm Symbol
	for _, f := range rest {
		target := &numTerm
		if f.inverse {
			target = &denTerm
		}
		if *target == nil {
			*target = f.sym
		} else {
			*target = mul(*target, f.sym)
		}
	}
	switch {
	case numTerm == nil:
		numTerm = num(coeff)
	case coeff != 1:
		numTerm = mul(num(coeff), numTerm)
	}
	out := numTerm
	if denTerm != nil {
		out = div(numTerm, denTerm)
	}
	return SimplifyIfConstant(out, false)
}
