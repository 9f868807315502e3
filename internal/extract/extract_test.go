package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/extract"
	"eqsat/internal/lang/scalar"
)

// TestExtract_Correctness is spec.md §8 invariant 3: for every class, the
// extracted term has cost equal to the bottom-up DP minimum, and re-adding
// the extracted term returns the same class.
func TestExtract_Correctness(t *testing.T) {
	l := scalar.New(4)
	g := egraph.New[float64](l)

	x0 := g.Add(egraph.ENode{Op: "x0"})
	zero := g.Add(egraph.ENode{Op: "0"})
	sum := g.Add(egraph.ENode{Op: "+", Children: []egraph.ClassID{x0, zero}})

	// Simulate accepting "(+ ?a 0) <=> ?a": x0 and (+ x0 0) land in the same
	// class, one of cost 1 (a bare leaf) and one of cost 3 (op + two leaves).
	merged, err := g.Union(sum, x0)
	require.NoError(t, err)
	require.True(t, merged)
	require.NoError(t, g.Rebuild())

	ex := extract.New[float64](g, l)
	expr, c, err := ex.Extract(g.Find(sum))
	require.NoError(t, err)

	assert.Equal(t, "x0", expr.String(), "extraction must pick the cheaper representative")
	assert.Equal(t, cost.Cost(1), c)

	reAdded := g.AddRecExpr(expr)
	assert.Equal(t, g.Find(sum), g.Find(reAdded), "re-adding the extracted term must land back in the same class")
}

// TestExtract_PicksMinimumAmongManyRepresentatives exercises the DP over a
// class with three differently-priced representations, confirming the
// extractor always settles on the global minimum rather than a local one.
func TestExtract_PicksMinimumAmongManyRepresentatives(t *testing.T) {
	l := scalar.New(4)
	g := egraph.New[float64](l)

	x0 := g.Add(egraph.ENode{Op: "x0"})
	one := g.Add(egraph.ENode{Op: "1"})

	// (* x0 1) costs 2(op, priced at 2 for "*") + 1(x0) + 1(1) = 4; (/ x0 1)
	// costs 4(op, priced at 4 for "/") + 1(x0) + 1(1) = 6, a strictly worse route to the same
	// value; x0 alone costs 1 and should win over both.
	mul := g.Add(egraph.ENode{Op: "*", Children: []egraph.ClassID{x0, one}})
	div := g.Add(egraph.ENode{Op: "/", Children: []egraph.ClassID{x0, one}})

	_, err := g.Union(mul, div)
	require.NoError(t, err)
	_, err = g.Union(mul, x0)
	require.NoError(t, err)
	require.NoError(t, g.Rebuild())

	ex := extract.New[float64](g, l)
	expr, c, err := ex.Extract(g.Find(mul))
	require.NoError(t, err)

	assert.Equal(t, "x0", expr.String())
	assert.Equal(t, cost.Cost(1), c)
}
