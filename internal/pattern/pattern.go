// Package pattern implements matching of patterns (terms with
// metavariables) against an e-graph, and the Rewrite/Applier machinery
// that turns a match into a union.
package pattern

import (
	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/sx"
)

// Pattern is a term that may contain metavariable leaves ("?a"). It is
// exactly an sx.Node restricted to that shape; Parse (internal/sx) already
// produces this shape for any source containing "?name" leaves.
type Pattern struct {
	Node *sx.Node
}

func New(n *sx.Node) Pattern { return Pattern{Node: n} }

func (p Pattern) String() string { return p.Node.String() }

func (p Pattern) Vars() []string { return p.Node.Vars() }

// CostUnder satisfies cost.Costed: metavariables are priced as a single
// leaf of arity 0 under the sentinel op "?", so a model can give every
// unbound hole a uniform cost regardless of what it's eventually bound to.
func (p Pattern) CostUnder(m cost.Model) (cost.Cost, error) {
	return costOf(p.Node, m)
}

const MetaOp = "?"

func costOf(n *sx.Node, m cost.Model) (cost.Cost, error) {
	if n.IsMeta {
		return m.OpCost(MetaOp, 0), nil
	}
	if n.IsLeaf() {
		return m.OpCost(n.Leaf, 0), nil
	}
	total := m.OpCost(n.Op, len(n.Children))
	for _, c := range n.Children {
		cc, err := costOf(c, m)
		if err != nil {
			return 0, err
		}
		total += cc
	}
	return total, nil
}

// Subst maps metavariable name to the e-class id it was bound to by a
// successful match.
type Subst map[string]egraph.ClassID

// Match is one substitution found while searching pat against an e-graph,
// together with the class it matched in.
type Match struct {
	EClass egraph.ClassID
	Subst  Subst
}
