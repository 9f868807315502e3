package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/egraph"
	"eqsat/internal/lang"
	"eqsat/internal/lang/scalar"
	"eqsat/internal/pattern"
	"eqsat/internal/sx"
	"eqsat/internal/validator"
)

func parsePattern(t *testing.T, s string) pattern.Pattern {
	t.Helper()
	n, err := sx.Parse("test", s)
	require.NoError(t, err)
	return pattern.New(n)
}

// TestValidator_Soundness is spec.md §8 invariant 5: if the validator
// accepts L=>R, every well-typed environment has the language evaluator
// agree on L and R wherever both are defined.
func TestValidator_Soundness(t *testing.T) {
	l := scalar.New(16)
	lhs := parsePattern(t, "(+ ?a ?b)")
	rhs := parsePattern(t, "(+ ?b ?a)")

	out, err := validator.Validate[float64](l, lhs, rhs)
	require.NoError(t, err)
	require.True(t, out.Valid)

	vars := lhs.Vars()
	samples := l.InitSynth(len(vars))
	for i := 0; i < l.SampleCount(); i++ {
		env := make(map[string]egraph.Option[float64], len(vars))
		for vi, name := range vars {
			env[name] = samples[vi].Cvec[i]
		}
		lval := lang.EvalPattern[float64](l, lhs.Node, env)
		rval := lang.EvalPattern[float64](l, rhs.Node, env)
		if lval.Valid && rval.Valid {
			assert.True(t, l.Equal(lval.Value, rval.Value), "accepted equation must agree at sample %d", i)
		}
	}
}

// TestValidator_ScenarioD_RejectsUnsoundRule is spec.md §8 Scenario D:
// proposing "(/ ?a ?a) => 1" with ?a sampled including 0 must be rejected;
// the synth loop's chooseEqs adds a rejected candidate to its poison set.
func TestValidator_ScenarioD_RejectsUnsoundRule(t *testing.T) {
	l := scalar.New(16)
	lhs := parsePattern(t, "(/ ?a ?a)")
	rhs := parsePattern(t, "1")

	out, err := validator.Validate[float64](l, lhs, rhs)
	require.NoError(t, err)
	assert.False(t, out.Valid, "a/a = 1 does not hold at a = 0")
}

func TestValidator_AsSynthValidatorAdapts(t *testing.T) {
	l := scalar.New(16)
	fn := validator.AsSynthValidator[float64](l)

	valid, _, err := fn(parsePattern(t, "(* ?a ?b)"), parsePattern(t, "(* ?b ?a)"))
	require.NoError(t, err)
	assert.True(t, valid)

	valid, _, err = fn(parsePattern(t, "(+ ?a 1)"), parsePattern(t, "(+ ?a 2)"))
	require.NoError(t, err)
	assert.False(t, valid)
}
