package pattern

import (
	"eqsat/internal/egraph"
	"eqsat/internal/sx"
)

// Search finds every substitution of pat against every e-class in g.
// Per spec.md §5 "Ordering guarantees", a single Search call only ever
// reads the e-graph as it stood when called — callers collect all matches
// for one iteration before applying any of them.
func Search[V any](g *egraph.EGraph[V], pat Pattern) []Match {
	var matches []Match
	seen := map[egraph.ClassID]bool{}
	for id := range g.Classes() {
		root := g.Find(id)
		if seen[root] {
			continue
		}
		seen[root] = true
		for _, subst := range matchClass(g, pat.Node, root) {
			matches = append(matches, Match{EClass: root, Subst: subst})
		}
	}
	return matches
}

func matchClass[V any](g *egraph.EGraph[V], pat *sx.Node, id egraph.ClassID) []Subst {
	if pat.IsMeta {
		return []Subst{{pat.Leaf: id}}
	}
	if pat.IsLeaf() {
		for _, n := range g.Class(id).Nodes {
			if len(n.Children) == 0 && n.Op == pat.Leaf {
				return []Subst{{}}
			}
		}
		return nil
	}

	var results []Subst
	for _, n := range g.Class(id).Nodes {
		if n.Op != pat.Op || len(n.Children) != len(pat.Children) {
			continue
		}
		perNode := []Subst{{}}
		ok := true
		for i, childPat := range pat.Children {
			childMatches := matchClass(g, childPat, n.Children[i])
			if len(childMatches) == 0 {
				ok = false
				break
			}
			perNode = combine(perNode, childMatches)
			if len(perNode) == 0 {
				ok = false
				break
			}
		}
		if ok {
			results = append(results, perNode...)
		}
	}
	return results
}

// combine cross-joins two sets of partial substitutions, keeping only
// consistent merges (a metavariable bound differently in each side is
// rejected).
func combine(a, b []Subst) []Subst {
	var out []Subst
	for _, sa := range a {
		for _, sb := range b {
			merged, ok := mergeSubst(sa, sb)
			if ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

func mergeSubst(a, b Subst) (Subst, bool) {
	out := make(Subst, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok && existing != v {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}
