package synth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/lang/scalar"
	"eqsat/internal/rules"
	"eqsat/internal/synth"
	"eqsat/internal/validator"
)

// hasCommutativity reports whether eqs contains an equation whose two sides
// are exactly "(op ?a ?b)" and "(op ?b ?a)" in either order.
func hasCommutativity(eqs []rules.Equation, op string) bool {
	ab := "(" + op + " ?a ?b)"
	ba := "(" + op + " ?b ?a)"
	for _, eq := range eqs {
		l, r := eq.LHS.String(), eq.RHS.String()
		if (l == ab && r == ba) || (l == ba && r == ab) {
			return true
		}
	}
	return false
}

// TestSynth_ScenarioE_DiscoversCommutativity is spec.md §8 Scenario E: with
// variables a,b and operators {+,*} over integers, synthesis with iters=2,
// cvec length >= 10 must produce (among others) the commutativity of both
// + and *.
func TestSynth_ScenarioE_DiscoversCommutativity(t *testing.T) {
	l := scalar.New(10)
	params := synth.Params{
		Variables:          2,
		Iters:              2,
		EqsatNodeLimit:     20_000,
		EqsatIterLimit:     8,
		EqsatTimeLimitSecs: 10,
		AbsTimeoutSecs:     30,
		RulesToTake:        100,
		ChunkSize:          1_000,
		NoConditionals:     true,
		DoFinalRun:         true,
	}

	s := synth.New[float64](l, params, validator.AsSynthValidator[float64](l), nil)
	result, err := s.Run()
	require.NoError(t, err)

	assert.True(t, hasCommutativity(result.Eqs, "+"), "synthesis must discover (+ ?a ?b) <=> (+ ?b ?a)")
	assert.True(t, hasCommutativity(result.Eqs, "*"), "synthesis must discover (* ?a ?b) <=> (* ?b ?a)")
}
