package synth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/egraph"
	"eqsat/internal/lang/scalar"
	"eqsat/internal/pattern"
	"eqsat/internal/rules"
	"eqsat/internal/sx"
)

// alwaysValid accepts every candidate, so this file can drive chooseEqs
// directly without depending on the validator package.
func alwaysValid(lhs, rhs pattern.Pattern) (bool, bool, error) { return true, false, nil }

// TestChooseEqs_UnionsAcceptedPairImmediately is the maintainer's fix for
// spec.md §4.7 step 6: accepting a candidate must union its originating
// class pair right away, not wait for the next chunk's saturation run.
func TestChooseEqs_UnionsAcceptedPairImmediately(t *testing.T) {
	l := scalar.New(8)
	s := New[float64](l, DefaultParams(), alwaysValid, nil)

	a := s.g.Add(egraph.ENode{Op: "x0"})
	b := s.g.Add(egraph.ENode{Op: "x1"})
	// a and b must carry an identical cvec: chooseEqs is only ever handed
	// candidates whose classes already cvec-agree (groupExact's precondition
	// for proposing a pair at all), so their union must never fault.
	cvec := l.InitSynth(1)[0].Cvec
	s.g.Class(a).Cvec = cvec
	s.g.Class(b).Cvec = cvec

	eq := rules.CanonicalizeClasses(sx.Leaf("x0"), sx.Leaf("x1"), a, b, true)

	require.NotEqual(t, s.g.Find(a), s.g.Find(b))

	smtUnknown := 0
	accepted, err := s.chooseEqs([]rules.Equation{eq}, &smtUnknown, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	assert.Equal(t, s.g.Find(a), s.g.Find(b), "accepting the pair must union it in the same chooseEqs call")
}

// TestChooseEqs_DropsRedundantCandidateAfterUnion is spec.md §4.7 step 5:
// once a pair is unioned by an earlier acceptance in the same call, a later
// candidate whose two sides reference that now-unioned pair must be skipped
// rather than re-validated.
func TestChooseEqs_DropsRedundantCandidateAfterUnion(t *testing.T) {
	l := scalar.New(8)
	validated := 0
	countingValidate := func(lhs, rhs pattern.Pattern) (bool, bool, error) {
		validated++
		return true, false, nil
	}
	s := New[float64](l, DefaultParams(), countingValidate, nil)

	a := s.g.Add(egraph.ENode{Op: "x0"})
	b := s.g.Add(egraph.ENode{Op: "x1"})

	eq1 := rules.CanonicalizeClasses(sx.Leaf("x0"), sx.Leaf("x1"), a, b, true)
	// A second, identical candidate over the SAME pair (as cvec matching could
	// propose more than once across groups): once eq1 is accepted and a/b are
	// unioned, this one must be dropped without a second Validate call.
	eq2 := rules.CanonicalizeClasses(sx.Leaf("x0"), sx.Leaf("x1"), a, b, true)

	smtUnknown := 0
	accepted, err := s.chooseEqs([]rules.Equation{eq1, eq2}, &smtUnknown, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, accepted, "the redundant duplicate must not be separately accepted")
	assert.Equal(t, 1, validated, "the redundant duplicate must be dropped before reaching Validate")
}
