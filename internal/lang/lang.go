// Package lang defines the capability set a surface language must supply
// to plug into the shared e-graph/synthesis engine, per spec.md's
// "Polymorphism over languages": {eval, to_var, mk_var, to_constant,
// mk_constant, is_valid, init_synth, make_layer}.
package lang

import (
	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/sx"
)

// Sample is one variable's assignment across all cvec sample points, used
// to seed a synthesis e-graph.
type Sample[V any] struct {
	Name string
	Cvec []egraph.Option[V]
}

// Layer is one candidate e-node proposed by MakeLayer, described in terms
// of existing class ids plus the operator to apply over them.
type Layer struct {
	Op       string
	Children []egraph.ClassID
}

// Language is the full capability set the engine needs from a surface
// language: e-graph analysis (eval/equal/is_variable), cost model
// (op_cost), literal construction/recognition, validity filtering, and
// the synthesis-only hooks (init_synth/make_layer).
type Language[V any] interface {
	egraph.Analysis[V]
	cost.Model

	// Name identifies the language, used in report/config plumbing.
	Name() string

	// MkVar renders a variable leaf's printed form from its index (ToVar's
	// inverse): variable 0 might print as "x0".
	MkVar(index int) *sx.Node
	// ToVar reports the variable index a leaf op denotes, if it is one.
	ToVar(op string) (index int, ok bool)

	// MkConstant parses a leaf's printed form into a concrete value.
	MkConstant(op string) (V, bool)
	// ToConstant renders a concrete value as a leaf's printed form.
	ToConstant(v V) string

	// IsValid rejects RecExprs/patterns the language considers malformed
	// (e.g. division by a literal zero), used to filter layer candidates
	// and synthesis output before validation is even attempted.
	IsValid(n *sx.Node) bool

	// InitSynth returns the initial variable cvec samples (spec.md §4.7
	// "Initialization": small integers, vectors, structured samples) for a
	// synthesis run asking for numVars distinct variables.
	InitSynth(numVars int) []Sample[V]

	// MakeLayer proposes the next layer of candidate e-nodes over the
	// given existing classes — all binary/ternary operator applications,
	// domain-specific, per spec.md §4.7 "Layer enumeration". The returned
	// sequence is produced lazily so callers can stop early (e.g. once a
	// chunk boundary is hit).
	MakeLayer(classes []egraph.ClassID, exact map[egraph.ClassID]bool) func(yield func(Layer) bool)
}

// EvalPattern evaluates a pattern tree directly against an environment
// binding each metavariable to an (optional) concrete value, without
// needing an e-graph at all — used by the fuzz validator, which checks
// two patterns pointwise rather than by insertion into any e-graph.
func EvalPattern[V any](a egraph.Analysis[V], n *sx.Node, env map[string]egraph.Option[V]) egraph.Option[V] {
	if n.IsMeta {
		if v, ok := env[n.Leaf]; ok {
			return v
		}
		return egraph.None[V]()
	}
	if n.IsLeaf() {
		return a.Eval(n.Leaf, nil)
	}
	args := make([]egraph.Option[V], len(n.Children))
	for i, c := range n.Children {
		args[i] = EvalPattern(a, c, env)
	}
	return a.Eval(n.Op, args)
}
