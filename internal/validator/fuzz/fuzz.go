// Package fuzz implements the second validator backend: sampled
// differential testing of a candidate equation's two sides, per spec.md
// §4.8 "Fuzz backend".
package fuzz

import (
	"fmt"
	"sort"

	"eqsat/internal/egraph"
	"eqsat/internal/lang"
	"eqsat/internal/pattern"
)

// ErrVariableMismatch is returned when the two sides of a candidate
// equation don't share the same set of metavariables — spec.md's
// "prevents trivially under-constrained rules" guard.
var ErrVariableMismatch = fmt.Errorf("fuzz: lhs and rhs reference different variable sets")

// Validate checks lhs == rhs pointwise over the sample environments
// l.InitSynth produces for the pattern's variables, accepting iff the two
// sides' cvecs are "defined-compatible": defined at the same samples,
// equal wherever both are defined, and defined together at least once.
func Validate[V any](l lang.Language[V], lhs, rhs pattern.Pattern) (bool, error) {
	lv := sortedCopy(lhs.Vars())
	rv := sortedCopy(rhs.Vars())
	if !equalSlices(lv, rv) {
		return false, ErrVariableMismatch
	}

	samples := l.InitSynth(len(lv))
	envAt := func(i int) map[string]egraph.Option[V] {
		env := make(map[string]egraph.Option[V], len(lv))
		for vi, name := range lv {
			env[name] = samples[vi].Cvec[i]
		}
		return env
	}

	definedBoth := false
	for i := 0; i < l.SampleCount(); i++ {
		env := envAt(i)
		lval := lang.EvalPattern[V](l, lhs.Node, env)
		rval := lang.EvalPattern[V](l, rhs.Node, env)
		if lval.Valid != rval.Valid {
			// Asymmetric definedness (one side undefined, the other total)
			// is a disagreement, not a don't-care sample.
			return false, nil
		}
		if lval.Valid && rval.Valid {
			definedBoth = true
			if !l.Equal(lval.Value, rval.Value) {
				return false, nil
			}
		}
	}
	return definedBoth, nil
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func equalSlices(a, b []string) bool {
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
