package phase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/lang/scalar"
	"eqsat/internal/pattern"
	"eqsat/internal/phase"
	"eqsat/internal/sx"
)

// flatModel is a cost.Model with fixed per-operator/literal prices,
// independent of scalar.Language's own OpCost table, so each spec.md §8
// scenario can be tested under its own literal cost constants.
type flatModel struct {
	op  cost.Cost
	lit cost.Cost

	prices map[string]cost.Cost
}

func (m flatModel) OpCost(op string, arity int) cost.Cost {
	if arity == 0 {
		return m.lit
	}
	if m.prices != nil {
		if c, ok := m.prices[op]; ok {
			return c
		}
	}
	return m.op
}

func mustParseNode(t *testing.T, s string) *sx.Node {
	t.Helper()
	n, err := sx.Parse("test", s)
	require.NoError(t, err)
	return n
}

func mustPattern2(t *testing.T, s string) pattern.Pattern {
	t.Helper()
	return pattern.New(mustParseNode(t, s))
}

// TestPhase_ScenarioA_CommutativityDoesNotWorsenCost is spec.md §8
// Scenario A: seed "(+ ?a ?b) <=> (+ ?b ?a)", input "(+ 1 (+ 2 3))", cost
// op=2/lit=0.001, compile must produce a term of cost <= 4.003 equivalent
// to the input under the evaluator.
func TestPhase_ScenarioA_CommutativityDoesNotWorsenCost(t *testing.T) {
	l := scalar.New(8)
	model := flatModel{op: 2, lit: 0.001}

	fwd := phase.NamedRule[float64]{
		Rule: pattern.NewRewrite[float64]("add-comm", mustPattern2(t, "(+ ?a ?b)"), mustPattern2(t, "(+ ?b ?a)")),
	}
	rev := phase.NamedRule[float64]{
		Rule: pattern.NewRewrite[float64]("add-comm-rev", mustPattern2(t, "(+ ?b ?a)"), mustPattern2(t, "(+ ?a ?b)")),
	}

	prog, err := egraph.FromNode(mustParseNode(t, "(+ 1 (+ 2 3))"))
	require.NoError(t, err)

	newEGraph := func(init *egraph.RecExpr) *egraph.EGraph[float64] {
		g := egraph.New[float64](l)
		if init != nil {
			g.AddRecExpr(*init)
		}
		return g
	}

	cfg := phase.Config{
		TotalNodeLimit: 200,
		TotalIterLimit: 10,
		Phases:         []phase.Phase{phase.Single{Name: "saturate"}},
	}

	result, err := phase.Compile[float64](prog, "scenario-a", []phase.NamedRule[float64]{fwd, rev}, model, cfg, newEGraph, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, float64(result.Cost), 4.003+1e-9)

	want := evalGround(l, mustParseNode(t, "(+ 1 (+ 2 3))"))
	got := evalGround(l, result.Prog.ToNode(result.Prog.Root()))
	require.True(t, want.Valid)
	require.True(t, got.Valid)
	assert.InDelta(t, want.Value, got.Value, 1e-9)
}

// evalGround evaluates a ground (variable/metavariable-free) sx.Node via
// the language's own Eval, bottom-up.
func evalGround(l *scalar.Language, n *sx.Node) egraph.Option[float64] {
	if n.IsLeaf() {
		return l.Eval(n.Leaf, nil)
	}
	args := make([]egraph.Option[float64], len(n.Children))
	for i, c := range n.Children {
		args[i] = evalGround(l, c)
	}
	return l.Eval(n.Op, args)
}

// TestPhase_ScenarioB_StrengthReductionStrictlyImproves is spec.md §8
// Scenario B: seed "(* ?a 2) => (+ ?a ?a)", cost mul=10/add=2/lit=0.1,
// input "(* x0 2)" compiles to "(+ x0 x0)" with strictly lower cost.
func TestPhase_ScenarioB_StrengthReductionStrictlyImproves(t *testing.T) {
	l := scalar.New(8)
	model := flatModel{op: 1, lit: 0.1, prices: map[string]cost.Cost{"*": 10, "+": 2}}

	rule := phase.NamedRule[float64]{
		Rule: pattern.NewRewrite[float64]("strength-reduction", mustPattern2(t, "(* ?a 2)"), mustPattern2(t, "(+ ?a ?a)")),
	}

	prog, err := egraph.FromNode(mustParseNode(t, "(* x0 2)"))
	require.NoError(t, err)
	initialCost := model.OpCost("*", 2) + model.OpCost("x0", 0) + model.OpCost("2", 0)

	newEGraph := func(init *egraph.RecExpr) *egraph.EGraph[float64] {
		g := egraph.New[float64](l)
		if init != nil {
			g.AddRecExpr(*init)
		}
		return g
	}

	cfg := phase.Config{
		TotalNodeLimit: 200,
		TotalIterLimit: 10,
		Phases:         []phase.Phase{phase.Single{Name: "reduce"}},
	}

	result, err := phase.Compile[float64](prog, "scenario-b", []phase.NamedRule[float64]{rule}, model, cfg, newEGraph, nil)
	require.NoError(t, err)

	assert.Equal(t, "(+ x0 x0)", result.Prog.String())
	assert.Less(t, float64(result.Cost), float64(initialCost))
}

// TestPhase_ScenarioF_PhaseGatingByCostDifferential is spec.md §8
// Scenario F: a rule with cd=0.5 is included in a phase selecting
// cd ∈ (0, 1] and excluded from a phase selecting cd ∈ (1, 3].
func TestPhase_ScenarioF_PhaseGatingByCostDifferential(t *testing.T) {
	l := scalar.New(8)
	model := flatModel{op: 1, lit: 1}

	rule := phase.NamedRule[float64]{
		Rule: pattern.NewRewrite[float64]("add-zero", mustPattern2(t, "(+ ?a 0)"), mustPattern2(t, "?a")),
		CD:   0.5,
		CA:   1,
	}

	prog, err := egraph.FromNode(mustParseNode(t, "(+ x0 0)"))
	require.NoError(t, err)
	initialCost := model.OpCost("+", 2) + model.OpCost("x0", 0) + model.OpCost("0", 0)

	newEGraph := func(init *egraph.RecExpr) *egraph.EGraph[float64] {
		g := egraph.New[float64](l)
		if init != nil {
			g.AddRecExpr(*init)
		}
		return g
	}

	includingPhase := phase.Config{
		TotalNodeLimit: 100,
		TotalIterLimit: 10,
		Phases: []phase.Phase{phase.Single{
			Name:   "low-cd",
			Select: func(cd, ca cost.Cost) bool { return cd > 0 && cd <= 1 },
		}},
	}
	excludingPhase := phase.Config{
		TotalNodeLimit: 100,
		TotalIterLimit: 10,
		Phases: []phase.Phase{phase.Single{
			Name:   "high-cd",
			Select: func(cd, ca cost.Cost) bool { return cd > 1 && cd <= 3 },
		}},
	}

	included, err := phase.Compile[float64](prog, "scenario-f-include", []phase.NamedRule[float64]{rule}, model, includingPhase, newEGraph, nil)
	require.NoError(t, err)
	assert.Equal(t, "x0", included.Prog.String(), "a cd=0.5 rule must fire in a (0,1] phase")

	excluded, err := phase.Compile[float64](prog, "scenario-f-exclude", []phase.NamedRule[float64]{rule}, model, excludingPhase, newEGraph, nil)
	require.NoError(t, err)
	assert.Equal(t, "(+ x0 0)", excluded.Prog.String(), "a cd=0.5 rule must not fire in a (1,3] phase")
	assert.Equal(t, initialCost, excluded.Cost)
}

// TestPhase_TimeBudget is spec.md §8 invariant 7: total wall time of
// compile/run does not exceed timeout + epsilon by more than one runner
// iteration. An effectively-zero timeout must make Compile return almost
// immediately rather than run its full iteration/node budget.
func TestPhase_TimeBudget(t *testing.T) {
	l := scalar.New(8)
	model := flatModel{op: 1, lit: 1}

	rule := phase.NamedRule[float64]{
		Rule: pattern.NewRewrite[float64]("add-comm", mustPattern2(t, "(+ ?a ?b)"), mustPattern2(t, "(+ ?b ?a)")),
	}

	prog, err := egraph.FromNode(mustParseNode(t, "(+ x0 x1)"))
	require.NoError(t, err)

	newEGraph := func(init *egraph.RecExpr) *egraph.EGraph[float64] {
		g := egraph.New[float64](l)
		if init != nil {
			g.AddRecExpr(*init)
		}
		return g
	}

	cfg := phase.Config{
		TotalNodeLimit: 1_000_000,
		TotalIterLimit: 1_000_000,
		Timeout:        1 * time.Nanosecond,
		Phases:         []phase.Phase{phase.Single{Name: "saturate"}},
	}

	start := time.Now()
	_, err = phase.Compile[float64](prog, "time-budget", []phase.NamedRule[float64]{rule}, model, cfg, newEGraph, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 3*time.Second, "an exhausted time budget must not let the runner proceed through its full node/iter limit")
}
