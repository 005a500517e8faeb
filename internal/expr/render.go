package expr

import (
	"github.com/bytedance/sonic"
)

// ToJSON renders a tree as JSON for the pipeline's caching and debug
// tooling. Identities are included so shared subexpressions can be
// reconciled by the reader.
func ToJSON(s Symbol) ([]byte, error) {
	return sonic.Marshal(treeNode(s))
}

func treeNode(s Symbol) map[string]interface{} {
	out := map[string]interface{}{
		"type": nodeType(s),
		"name": s.Name(),
		"id":   string(s.ID()),
	}
	if d := s.Domain(); len(d) > 0 {
		out["domain"] = d
	}
	if a := s.AuxiliaryDomains(); len(a) > 0 {
		out["auxiliary_domains"] = a
	}
	if children := s.Children(); len(children) > 0 {
		arr := make([]interface{}, len(children))
		for i, c := range children {
			arr[i] = treeNode(c)
		}
		out["children"] = arr
	}
	return out
}

func nodeType(s Symbol) string {
	switch s.(type) {
	case *BinaryOperator:
		return "binary"
	case *UnaryOperator:
		return "unary"
	case *PrimaryBroadcast:
		return "broadcast"
	case *Scalar:
		return "scalar"
	case *Vector:
		return "vector"
	case *Matrix:
		return "matrix"
	case *Variable:
		return "variable"
	case *Time:
		return "time"
	case *StateVector:
		return "state"
	default:
		return "symbol"
	}
}
