package pattern

import "eqsat/internal/egraph"

// Rewrite is a named rule: search for Searcher, apply Applier at each
// match, union the result with the matched class.
type Rewrite[V any] struct {
	Name     string
	Searcher Pattern
	Applier  Applier[V]
}

// NewRewrite builds the common case: LHS => RHS, applied by plain
// instantiation.
func NewRewrite[V any](name string, lhs, rhs Pattern) Rewrite[V] {
	return Rewrite[V]{Name: name, Searcher: lhs, Applier: PatternApplier[V]{RHS: rhs}}
}

// RunOne searches r.Searcher against g and applies r.Applier at every
// match found, unioning results with their matched class. It returns the
// number of matches for which at least one union actually merged classes.
// Per spec.md §5, callers must collect matches for ALL rules before
// applying ANY of them in a given iteration — use Search directly plus
// ApplyMatches for that; RunOne is provided for single-rule callers (e.g.
// synthesis's saturate-to-collapse step) where that ordering guarantee is
// unnecessary.
func (r Rewrite[V]) RunOne(g *egraph.EGraph[V]) (int, error) {
	matches := Search(g, r.Searcher)
	return ApplyMatches(g, r.Applier, matches)
}

// ApplyMatches applies applier at each match and unions the result with
// the matched class, skipping (not failing the whole batch on) matches
// where Apply declines via ErrEmptyCvec/ErrCvecDivergence.
func ApplyMatches[V any](g *egraph.EGraph[V], applier Applier[V], matches []Match) (int, error) {
	merged := 0
	for _, m := range matches {
		results, err := applier.Apply(g, m.EClass, m.Subst)
		if err == ErrEmptyCvec || err == ErrCvecDivergence {
			continue
		}
		if err != nil {
			return merged, err
		}
		for _, r := range results {
			didMerge, err := g.Union(m.EClass, r)
			if err != nil {
				return merged, err
			}
			if didMerge {
				merged++
			}
		}
	}
	return merged, nil
}
