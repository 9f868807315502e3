package pattern

import (
	"errors"

	"eqsat/internal/egraph"
	"eqsat/internal/sx"
)

// Applier turns a successful match (the matched e-class plus its
// substitution) into zero or more new classes to union with the match.
type Applier[V any] interface {
	Apply(g *egraph.EGraph[V], eclass egraph.ClassID, subst Subst) ([]egraph.ClassID, error)
}

// Instantiate builds n's term within g, binding metavariables from subst.
func Instantiate[V any](g *egraph.EGraph[V], n *sx.Node, subst Subst) egraph.ClassID {
	if n.IsMeta {
		return subst[n.Leaf]
	}
	if n.IsLeaf() {
		return g.Add(egraph.ENode{Op: n.Leaf})
	}
	children := make([]egraph.ClassID, len(n.Children))
	for i, c := range n.Children {
		children[i] = Instantiate(g, c, subst)
	}
	return g.Add(egraph.ENode{Op: n.Op, Children: children})
}

// PatternApplier instantiates an RHS pattern within the matched class's
// e-graph and returns the resulting class, to be unioned with the match.
type PatternApplier[V any] struct {
	RHS Pattern
}

func (a PatternApplier[V]) Apply(g *egraph.EGraph[V], eclass egraph.ClassID, subst Subst) ([]egraph.ClassID, error) {
	return []egraph.ClassID{Instantiate(g, a.RHS.Node, subst)}, nil
}

var (
	// ErrEmptyCvec is returned by DefinedOnlyApplier when the matched
	// class's cvec has no defined samples at all.
	ErrEmptyCvec = errors.New("pattern: matched class has an empty/all-undefined cvec")
	// ErrCvecDivergence is returned when, after applying, the resulting
	// class's cvec disagrees with the matched class at a jointly defined
	// sample — the rule does not hold under observation.
	ErrCvecDivergence = errors.New("pattern: applied result diverges from matched class under cvec")
)

// DefinedOnlyApplier wraps an RHS applier with the cvec-definedness guard
// of spec.md §4.2: it refuses to fire on a class with an empty/undefined
// cvec, and after applying, re-checks that the new class's cvec agrees
// with the matched class everywhere both are defined.
type DefinedOnlyApplier[V any] struct {
	Inner   Applier[V]
	Cvec    func(g *egraph.EGraph[V], id egraph.ClassID) []egraph.Option[V]
	Equal   func(a, b V) bool
}

func (a DefinedOnlyApplier[V]) Apply(g *egraph.EGraph[V], eclass egraph.ClassID, subst Subst) ([]egraph.ClassID, error) {
	before := a.Cvec(g, eclass)
	if !hasDefinedSample(before) {
		return nil, ErrEmptyCvec
	}

	results, err := a.Inner.Apply(g, eclass, subst)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		after := a.Cvec(g, r)
		if !cvecsAgreeWhereDefined(before, after, a.Equal) {
			return nil, ErrCvecDivergence
		}
	}
	return results, nil
}

func hasDefinedSample[V any](cvec []egraph.Option[V]) bool {
	for _, v := range cvec {
		if v.Valid {
			return true
		}
	}
	return false
}

func cvecsAgreeWhereDefined[V any](a, b []egraph.Option[V], equal func(a, b V) bool) bool {
	for i := range a {
		if a[i].Valid && b[i].Valid && !equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
