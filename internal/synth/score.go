package synth

import (
	"eqsat/internal/rules"
	"eqsat/internal/sx"
)

// score is the lexicographic rule-scoring tuple of spec.md §4.7, higher
// is better in every component.
type score struct {
	distinctVars     int
	negConstants     int
	negMaxSize       int
	negTotalSize     int
	negDistinctOps   int
}

func less(a, b score) bool {
	switch {
	case a.distinctVars != b.distinctVars:
		return a.distinctVars < b.distinctVars
	case a.negConstants != b.negConstants:
		return a.negConstants < b.negConstants
	case a.negMaxSize != b.negMaxSize:
		return a.negMaxSize < b.negMaxSize
	case a.negTotalSize != b.negTotalSize:
		return a.negTotalSize < b.negTotalSize
	default:
		return a.negDistinctOps < b.negDistinctOps
	}
}

func scoreOf(eq rules.Equation) score {
	vars := map[string]bool{}
	for _, v := range eq.LHS.Vars() {
		vars[v] = true
	}
	for _, v := range eq.RHS.Vars() {
		vars[v] = true
	}

	constants := countConstants(eq.LHS) + countConstants(eq.RHS)
	ops := map[string]bool{}
	countOps(eq.LHS, ops)
	countOps(eq.RHS, ops)

	lsize, rsize := eq.LHS.Size(), eq.RHS.Size()
	maxSize := lsize
	if rsize > maxSize {
		maxSize = rsize
	}

	return score{
		distinctVars:   len(vars),
		negConstants:   -constants,
		negMaxSize:     -maxSize,
		negTotalSize:   -(lsize + rsize),
		negDistinctOps: -len(ops),
	}
}

func countConstants(n *sx.Node) int {
	if n.IsLeaf() {
		if n.IsMeta {
			return 0
		}
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += countConstants(c)
	}
	return total
}

func countOps(n *sx.Node, ops map[string]bool) {
	if n.IsLeaf() {
		return
	}
	ops[n.Op] = true
	for _, c := range n.Children {
		countOps(c, ops)
	}
}

// higherScoreFirst orders eqs by descending score, for shrink-and-select's
// "best candidates first" step.
func higherScoreFirst(eqs []rules.Equation) {
	insertionSortDesc(eqs)
}

func insertionSortDesc(eqs []rules.Equation) {
	scores := make([]score, len(eqs))
	for i, eq := range eqs {
		scores[i] = scoreOf(eq)
	}
	for i := 1; i < len(eqs); i++ {
		j := i
		for j > 0 && less(scores[j-1], scores[j]) {
			scores[j-1], scores[j] = scores[j], scores[j-1]
			eqs[j-1], eqs[j] = eqs[j], eqs[j-1]
			j--
		}
	}
}
