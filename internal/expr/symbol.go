package expr

import (
	"gonum.org/v1/gonum/mat"
)

// Inputs supplies values for named Variable leaves during evaluation.
type Inputs map[string]float64

// KnownEvals memoizes evaluation results by node identity within one
// top-level Evaluate call. A nil map disables memoization. The map is
// mutated in place and must not be shared across concurrent
// evaluations: cached values are only valid for one (t, y, ydot,
// inputs) tuple.
type KnownEvals map[ID]Value

// Symbol is one node in the expression DAG. Nodes are immutable after
// construction; transformations return new nodes. Children may be
// shared between parents, so traversals must not assume a strict tree.
type Symbol interface {
	// ID is the node's stable identity, the memoization key and the
	// basis of variable-occurrence checks.
	ID() ID

	// Name is the display name: an operator tag for operators, a
	// label for leaves.
	Name() string

	// Domain lists the spatial domains the node is defined over.
	// Callers must not mutate the returned slice.
	Domain() []string

	// AuxiliaryDomains maps domain roles (e.g. "secondary") to domain
	// lists, used to detect implicit broadcast opportunities.
	AuxiliaryDomains() map[string][]string

	// Children returns the node's direct children.
	Children() []Symbol

	// Evaluate computes the node's numeric value at time t with state
	// y and its time derivative ydot. If known is non-nil, shared
	// subexpressions are evaluated at most once per call.
	Evaluate(t float64, y, ydot *mat.VecDense, inputs Inputs, known KnownEvals) (Value, error)

	// EvaluateForShape evaluates with placeholder operands to infer
	// the output shape without a numeric state.
	EvaluateForShape() (Value, error)

	// Diff returns the symbolic derivative with respect to variable.
	Diff(variable Symbol) (Symbol, error)

	// NewCopy deep-copies the node. Domain metadata (and identity) of
	// the original is preserved rather than recomputed.
	NewCopy() Symbol

	// Simplify returns an equivalent, possibly smaller tree.
	Simplify() Symbol

	// IsConstant reports whether the subtree is independent of time,
	// state and inputs.
	IsConstant() bool

	// EvaluatesToConstantNumber reports whether the subtree is
	// constant and scalar-shaped.
	EvaluatesToConstantNumber() bool

	// EvaluatesOnEdges reports whether the subtree evaluates on the
	// mesh edges in the given dimension.
	EvaluatesOnEdges(dimension string) bool

	String() string
}

// baseSymbol carries the state shared by every node type.
type baseSymbol struct {
	id     ID
	name   string
	domain []string
	aux    map[string][]string
}

func newBase(name string, domain []string, aux map[string][]string) baseSymbol {
	return baseSymbol{id: newID(), name: name, domain: cloneDomain(domain), aux: cloneAux(aux)}
}

func (b *baseSymbol) ID() ID                                { return b.id }
func (b *baseSymbol) Name() string                          { return b.name }
func (b *baseSymbol) Domain() []string                      { return b.domain }
func (b *baseSymbol) AuxiliaryDomains() map[string][]string { return b.aux }

// copyMetadataFrom forces id, domain and auxiliary domains to match
// another node, used by structural copies.
func (b *baseSymbol) copyMetadataFrom(s Symbol) {
	b.id = s.ID()
	b.domain = cloneDomain(s.Domain())
	b.aux = cloneAux(s.AuxiliaryDomains())
}

func cloneDomain(d []string) []string {
	if len(d) == 0 {
		return nil
	}
	out := make([]string, len(d))
	copy(out, d)
	return out
}

func cloneAux(aux map[string][]string) map[string][]string {
	if len(aux) == 0 {
		return nil
	}
	out := make(map[string][]string, len(aux))
	for role, doms := range aux {
		out[role] = cloneDomain(doms)
	}
	return out
}

func equalDomains(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// mergeAuxDomains combines the auxiliary domains of children, failing
// on conflicting entries for the same role.
func mergeAuxDomains(children ...Symbol) (map[string][]string, error) {
	var out map[string][]string
	for _, c := range children {
		for role, doms := range c.AuxiliaryDomains() {
			if out == nil {
				out = map[string][]string{}
			}
			if existing, ok := out[role]; ok {
				if !equalDomains(existing, doms) {
					return nil, domainErrorf("conflicting %q auxiliary domains %v and %v", role, existing, doms)
				}
				continue
			}
			out[role] = cloneDomain(doms)
		}
	}
	return out, nil
}

// PreOrder returns the node and every descendant in pre-order. Shared
// children appear once per parent, matching the traversal used for
// occurrence checks.
func PreOrder(s Symbol) []Symbol {
	out := []Symbol{s}
	for _, c := range s.Children() {
		out = append(out, PreOrder(c)...)
	}
	return out
}

// matchesVariable reports whether node n denotes the differentiation
// variable: the same node instance, a Variable with the same name, or
// time. Named inputs and time are quantities, not instances, so two
// separately built leaves for them still match; everything else
// matches by identity only.
func matchesVariable(n, variable Symbol) bool {
	if n.ID() == variable.ID() {
		return true
	}
	switch v := variable.(type) {
	case *Variable:
		o, ok := n.(*Variable)
		return ok && o.name == v.name
	case *Time:
		_, ok := n.(*Time)
		return ok
	}
	return false
}

// occursIn reports whether the differentiation variable appears
// anywhere in the subtree rooted at s, under the same matching rule
// the leaves use.
func occursIn(s, variable Symbol) bool {
	for _, n := range PreOrder(s) {
		if matchesVariable(n, variable) {
			return true
		}
	}
	return false
}

// toSymbol normalizes an operand: numbers become Scalar leaves, symbols
// pass through, anything else is a type mismatch. This is the single
// entry point for numeric-to-node coercion.
func toSymbol(v interface{}) (Symbol, error) {
	switch x := v.(type) {
	case Symbol:
		return x, nil
	case float64:
		return NewScalar(x), nil
	case float32:
		return NewScalar(float64(x)), nil
	case int:
		return NewScalar(float64(x)), nil
	case int64:
		return NewScalar(float64(x)), nil
	default:
		return nil, typeErrorf("operand %T", v)
	}
}

// evalConstant evaluates a constant subtree with no state.
func evalConstant(s Symbol) (Value, error) {
	return s.Evaluate(0, nil, nil, nil, nil)
}

// Builder helpers for derivative and simplification rules. Operands at
// these call sites come from already-validated nodes, so construction
// cannot fail on domains; a failure escapes via mustSym and is
// recovered at the public entry point.

func add(l, r Symbol) Symbol    { return mustSym(NewAddition(l, r)) }
func sub(l, r Symbol) Symbol    { return mustSym(NewSubtraction(l, r)) }
func mul(l, r Symbol) Symbol    { return mustSym(NewMultiplication(l, r)) }
func div(l, r Symbol) Symbol    { return mustSym(NewDivision(l, r)) }
func pow(l, r Symbol) Symbol    { return mustSym(NewPower(l, r)) }
func matmul(l, r Symbol) Symbol { return mustSym(NewMatrixMultiplication(l, r)) }
func leq(l, r Symbol) Symbol    { return mustSym(NewEqualHeaviside(l, r)) }
func lt(l, r Symbol) Symbol     { return mustSym(NewNotEqualHeaviside(l, r)) }
func neg(c Symbol) Symbol       { return mustSym(NewNegate(c)) }
func logOf(c Symbol) Symbol     { return mustSym(NewLog(c)) }
func expOf(c Symbol) Symbol     { return mustSym(NewExp(c)) }
func tanhOf(c Symbol) Symbol    { return mustSym(NewTanh(c)) }
func floorOf(c Symbol) Symbol   { return mustSym(NewFloor(c)) }
func diff(s, v Symbol) Symbol   { return mustSym(s.Diff(v)) }
func num(f float64) Symbol      { return NewScalar(f) }
