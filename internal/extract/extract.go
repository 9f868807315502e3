// Package extract selects a minimum-cost representative term from each
// e-class via bottom-up dynamic programming, per spec.md §4.4.
package extract

import (
	"fmt"

	"eqsat/internal/cost"
	"eqsat/internal/egraph"
)

type best struct {
	cost cost.Cost
	node egraph.ENode
}

// Extractor memoizes the best (cost, node) choice per class so repeated
// Extract calls against the same e-graph don't redo the DP.
type Extractor[V any] struct {
	g     *egraph.EGraph[V]
	model cost.Model
	memo  map[egraph.ClassID]best
}

func New[V any](g *egraph.EGraph[V], model cost.Model) *Extractor[V] {
	return &Extractor[V]{g: g, model: model, memo: map[egraph.ClassID]best{}}
}

// Extract returns the minimum-cost RecExpr rooted at root's class, and its
// total cost.
func (e *Extractor[V]) Extract(root egraph.ClassID) (egraph.RecExpr, cost.Cost, error) {
	if err := e.solve(); err != nil {
		return egraph.RecExpr{}, 0, err
	}
	root = e.g.Find(root)
	b, ok := e.memo[root]
	if !ok {
		return egraph.RecExpr{}, 0, fmt.Errorf("extract: class %d has no extractable node (cost model may be ill-founded)", root)
	}
	var expr egraph.RecExpr
	index := map[egraph.ClassID]int{}
	e.build(root, &expr, index)
	return expr, b.cost, nil
}

// solve runs the bottom-up DP to a fixed point: repeatedly relax each
// class's best choice from its current children costs until nothing
// improves. This converges because costs are non-negative and the
// relaxation is monotone, exactly analogous to a Bellman-Ford shortest
// path over the (possibly cyclic, through congruence) e-class graph.
func (e *Extractor[V]) solve() error {
	changed := true
	for changed {
		changed = false
		for id, class := range e.g.Classes() {
			candidate, ok := e.bestNode(class.Nodes)
			if !ok {
				continue
			}
			current, has := e.memo[id]
			if !has || candidate.cost < current.cost {
				e.memo[id] = candidate
				changed = true
			}
		}
	}
	for id := range e.g.Classes() {
		if _, ok := e.memo[id]; !ok {
			return fmt.Errorf("extract: class %d is unreachable from any costed node", id)
		}
	}
	return nil
}

func (e *Extractor[V]) bestNode(nodes []egraph.ENode) (best, bool) {
	var chosen best
	found := false
	for _, n := range nodes {
		total := e.model.OpCost(n.Op, len(n.Children))
		ok := true
		for _, c := range n.Children {
			cb, has := e.memo[e.g.Find(c)]
			if !has {
				ok = false
				break
			}
			total += cb.cost
		}
		if !ok {
			continue
		}
		if !found || total < chosen.cost {
			chosen = best{cost: total, node: n}
			found = true
		}
	}
	return chosen, found
}

func (e *Extractor[V]) build(id egraph.ClassID, expr *egraph.RecExpr, index map[egraph.ClassID]int) int {
	id = e.g.Find(id)
	if i, ok := index[id]; ok {
		return i
	}
	n := e.memo[id].node
	children := make([]int, len(n.Children))
	for i, c := range n.Children {
		children[i] = e.build(c, expr, index)
	}
	expr.Nodes = append(expr.Nodes, egraph.RecNode{Op: n.Op, Children: children})
	idx := len(expr.Nodes) - 1
	index[id] = idx
	return idx
}
