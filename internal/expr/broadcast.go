package expr

import (
	"gonum.org/v1/gonum/mat"
)

// PrimaryBroadcast replicates a child across a new primary domain. The
// child's own domain moves to the "secondary" auxiliary role, which is
// what lets the binary-operator constructor detect and undo the
// dimensionality gap when the two meet again.
//
// Numeric replication across the mesh happens at discretization; until
// then the node passes the child's value through and only carries the
// metadata.
type PrimaryBroadcast struct {
	baseSymbol
	child           Symbol
	broadcastDomain []string
}

// NewPrimaryBroadcast wraps child for the given primary domain.
func NewPrimaryBroadcast(child interface{}, domain []string) (*PrimaryBroadcast, error) {
	c, err := toSymbol(child)
	if err != nil {
		return nil, err
	}
	if len(domain) == 0 {
		return nil, domainErrorf("broadcast to an empty domain")
	}
	if equalDomains(c.Domain(), domain) {
		return nil, domainErrorf("broadcast of %q onto its own domain %v", c.Name(), domain)
	}
	aux := map[string][]string{}
	if len(c.Domain()) > 0 {
		aux["secondary"] = cloneDomain(c.Domain())
	}
	for role, doms := range c.AuxiliaryDomains() {
		if role == "secondary" {
			continue
		}
		aux[role] = cloneDomain(doms)
	}
	return &PrimaryBroadcast{
		baseSymbol:      baseSymbol{id: newID(), name: "broadcast", domain: cloneDomain(domain), aux: aux},
		child:           c,
		broadcastDomain: cloneDomain(domain),
	}, nil
}

// Child returns the wrapped node.
func (b *PrimaryBroadcast) Child() Symbol { return b.child }

// BroadcastDomain returns the target primary domain.
func (b *PrimaryBroadcast) BroadcastDomain() []string { return b.broadcastDomain }

func (b *PrimaryBroadcast) Children() []Symbol { return []Symbol{b.child} }

func (b *PrimaryBroadcast) Evaluate(t float64, y, ydot *mat.VecDense, inputs Inputs, known KnownEvals) (Value, error) {
	return b.child.Evaluate(t, y, ydot, inputs, known)
}

func (b *PrimaryBroadcast) EvaluateForShape() (Value, error) {
	return b.child.EvaluateForShape()
}

func (b *PrimaryBroadcast) Diff(variable Symbol) (Symbol, error) {
	if variable.ID() == b.id {
		return NewScalar(1), nil
	}
	if !occursIn(b, variable) {
		return NewScalar(0), nil
	}
	d, err := b.child.Diff(variable)
	if err != nil {
		return nil, err
	}
	return NewPrimaryBroadcast(d, b.broadcastDomain)
}

func (b *PrimaryBroadcast) NewCopy() Symbol {
	out := &PrimaryBroadcast{child: b.child.NewCopy(), broadcastDomain: cloneDomain(b.broadcastDomain)}
	out.baseSymbol = newBase(b.name, nil, nil)
	out.copyMetadataFrom(b)
	return out
}

func (b *PrimaryBroadcast) Simplify() Symbol { return b }

func (b *PrimaryBroadcast) IsConstant() bool { return b.child.IsConstant() }

func (b *PrimaryBroadcast) EvaluatesToConstantNumber() bool {
	// A broadcast is never a bare number: its extent depends on the
	// mesh it is discretized over.
	return false
}

func (b *PrimaryBroadcast) EvaluatesOnEdges(dimension string) bool {
	return b.child.EvaluatesOnEdges(dimension)
}

func (b *PrimaryBroadcast) String() string {
	return "broadcast(" + b.child.String() + ")"
}
