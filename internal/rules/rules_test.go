package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/rules"
	"eqsat/internal/sx"
)

func mustParse(t *testing.T, s string) *sx.Node {
	t.Helper()
	n, err := sx.Parse("test", s)
	require.NoError(t, err)
	return n
}

// TestRules_RoundTrip is spec.md §8 invariant 6: serialize -> deserialize
// on the rule store is the identity on canonical form, for both the JSON
// and the YAML extension dispatch.
func TestRules_RoundTrip(t *testing.T) {
	eqs := []rules.Equation{
		rules.Canonicalize(mustParse(t, "(+ ?a ?b)"), mustParse(t, "(+ ?b ?a)")),
		rules.Canonicalize(mustParse(t, "(* ?a 2)"), mustParse(t, "(+ ?a ?a)")),
	}
	eqs[0].Bidirectional = true

	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules"+ext)
			require.NoError(t, rules.Save(path, eqs))

			loaded, err := rules.Load(path)
			require.NoError(t, err)
			require.Len(t, loaded, len(eqs))

			for i, want := range eqs {
				got := loaded[i]
				assert.Equal(t, want.Name(), got.Name(), "canonical name must survive the round trip")
				assert.Equal(t, want.Bidirectional, got.Bidirectional)
				assert.True(t, want.LHS.Equal(got.LHS))
				assert.True(t, want.RHS.Equal(got.RHS))
			}
		})
	}
}

func TestRules_RoundTrip_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"eqs": [{"lhs": "(+ ?a", "rhs": "?a"}]}`), 0o644))

	_, err := rules.Load(path)
	assert.Error(t, err)
}

func TestRules_CanonicalizeOrdersBySizeThenLex(t *testing.T) {
	// generalize renames every leaf (including literal "0") to a fresh
	// metavariable, so the larger side comes out as "(+ ?a ?b)".
	eq := rules.Canonicalize(mustParse(t, "?a"), mustParse(t, "(+ ?a 0)"))
	assert.Equal(t, "(+ ?a ?b) => ?a", eq.Name())
}

func TestRules_CanonicalizeSharesNamesAcrossSides(t *testing.T) {
	// The same original variable used on both sides (here in a swapped
	// position) must get the same meta name on both sides — this is what
	// lets synthesis recover a real commutativity equation instead of a
	// vacuous "pattern equals itself" one.
	eq := rules.Canonicalize(mustParse(t, "(+ x0 x1)"), mustParse(t, "(+ x1 x0)"))
	// termOrder breaks the size tie lexicographically, so "(+ ?b ?a)" (whose
	// printed form sorts last) ends up as LHS.
	assert.Equal(t, "(+ ?b ?a) => (+ ?a ?b)", eq.Name())
}

func TestRules_Dedup(t *testing.T) {
	a := rules.Canonicalize(mustParse(t, "(+ ?a ?b)"), mustParse(t, "(+ ?b ?a)"))
	b := rules.Canonicalize(mustParse(t, "(+ ?x ?y)"), mustParse(t, "(+ ?y ?x)"))
	c := rules.Canonicalize(mustParse(t, "(* ?a ?b)"), mustParse(t, "(* ?b ?a)"))

	deduped := rules.Dedup([]rules.Equation{a, b, c})
	require.Len(t, deduped, 2)
}
