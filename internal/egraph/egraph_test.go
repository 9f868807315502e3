package egraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsat/internal/egraph"
	"eqsat/internal/lang/scalar"
)

func newGraph() *egraph.EGraph[float64] {
	return egraph.New[float64](scalar.New(4))
}

// TestEGraph_Congruence is spec.md §8 invariant 1: after add/union/rebuild,
// two e-nodes with the same operator and pointwise-equivalent children end
// up in the same class.
func TestEGraph_Congruence(t *testing.T) {
	g := newGraph()
	a := g.Add(egraph.ENode{Op: "x0"})
	b := g.Add(egraph.ENode{Op: "x1"})
	c := g.Add(egraph.ENode{Op: "x2"})

	n1 := g.Add(egraph.ENode{Op: "+", Children: []egraph.ClassID{a, b}})
	n2 := g.Add(egraph.ENode{Op: "+", Children: []egraph.ClassID{c, b}})
	require.NotEqual(t, g.Find(n1), g.Find(n2), "distinct children should start in distinct classes")

	merged, err := g.Union(a, c)
	require.NoError(t, err)
	require.True(t, merged)
	require.NoError(t, g.Rebuild())

	assert.Equal(t, g.Find(n1), g.Find(n2), "congruence: (+ a b) and (+ c b) must collapse once a and c are unioned")
}

// TestEGraph_AddIdempotence is spec.md §8 invariant 2: add(t) twice returns
// the same class id.
func TestEGraph_AddIdempotence(t *testing.T) {
	g := newGraph()
	a := g.Add(egraph.ENode{Op: "x0"})
	b := g.Add(egraph.ENode{Op: "x1"})

	n1 := g.Add(egraph.ENode{Op: "*", Children: []egraph.ClassID{a, b}})
	n2 := g.Add(egraph.ENode{Op: "*", Children: []egraph.ClassID{a, b}})
	assert.Equal(t, n1, n2)

	// Idempotence also holds across an intervening rebuild with no unions.
	require.NoError(t, g.Rebuild())
	n3 := g.Add(egraph.ENode{Op: "*", Children: []egraph.ClassID{a, b}})
	assert.Equal(t, g.Find(n1), g.Find(n3))
}

// TestEGraph_UnionFaultOnCvecDisagreement exercises the Fault path Union
// returns when two classes' cvecs disagree at a defined sample.
func TestEGraph_UnionFaultOnCvecDisagreement(t *testing.T) {
	g := newGraph()
	one := g.Add(egraph.ENode{Op: "1"})
	two := g.Add(egraph.ENode{Op: "2"})

	_, err := g.Union(one, two)
	require.Error(t, err)
	var fault egraph.Fault
	require.ErrorAs(t, err, &fault)
}
