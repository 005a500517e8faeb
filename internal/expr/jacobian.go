package expr

import (
	"github.com/james-bowman/sparse"
)

// Jacobian returns the symbolic jacobian of s with respect to the
// state vector variable, built bottom-up from the children's jacobians
// with each operator's rule. Shared subexpressions are walked once:
// the memo is keyed by node identity, like evaluation.
func Jacobian(s Symbol, variable *StateVector) (Symbol, error) {
	w := &jacobianWalk{variable: variable, memo: map[ID]Symbol{}}
	return w.walk(s)
}

type jacobianWalk struct {
	variable *StateVector
	memo     map[ID]Symbol
}

func (w *jacobianWalk) walk(s Symbol) (Symbol, error) {
	if out, ok := w.memo[s.ID()]; ok {
		return out, nil
	}

	var out Symbol
	var err error
	switch n := s.(type) {
	case *StateVector:
		out = n.jacAgainst(w.variable)
	case *BinaryOperator:
		var lj, rj Symbol
		if lj, err = w.walk(n.left); err == nil {
			if rj, err = w.walk(n.right); err == nil {
				out, err = n.binaryJac(lj, rj)
			}
		}
	case *UnaryOperator:
		var cj Symbol
		if cj, err = w.walk(n.child); err == nil {
			out, err = n.unaryJac(cj)
		}
	case *PrimaryBroadcast:
		var cj Symbol
		if cj, err = w.walk(n.child); err == nil {
			out, err = NewPrimaryBroadcast(cj, n.broadcastDomain)
		}
	default:
		// Leaves independent of the state differentiate to zero.
		out = NewScalar(0)
	}
	if err != nil {
		return nil, err
	}
	w.memo[s.ID()] = out
	return out, nil
}

// jacAgainst builds the selection matrix relating this slice of the
// state to the differentiation slice: identity where the two ranges
// overlap, zero elsewhere.
func (s *StateVector) jacAgainst(variable *StateVector) Symbol {
	rows, cols := s.Size(), variable.Size()
	dok := sparse.NewDOK(rows, cols)
	for i := 0; i < rows; i++ {
		global := s.start + i
		if global >= variable.start && global < variable.stop {
			dok.Set(i, global-variable.start, 1)
		}
	}
	return NewSparseMatrix(dok.ToCSR())
}
