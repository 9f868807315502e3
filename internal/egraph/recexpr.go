package egraph

import (
	"fmt"
	"strings"

	"eqsat/internal/sx"
)

// RecNode is one node of a RecExpr: an operator plus indices of its
// children within the same RecExpr, each index strictly less than the
// node's own position (spec.md §3 "topologically sorted sequence").
type RecNode struct {
	Op       string
	Children []int
}

// RecExpr is a flattened term, used as input to and output from the
// engine. The root is conventionally the last node.
type RecExpr struct {
	Nodes []RecNode
}

func (e RecExpr) Root() int { return len(e.Nodes) - 1 }

func (e RecExpr) String() string {
	if len(e.Nodes) == 0 {
		return "()"
	}
	return e.nodeString(e.Root())
}

func (e RecExpr) nodeString(i int) string {
	n := e.Nodes[i]
	if len(n.Children) == 0 {
		return n.Op
	}
	parts := make([]string, len(n.Children))
	for j, c := range n.Children {
		parts[j] = e.nodeString(c)
	}
	return fmt.Sprintf("(%s %s)", n.Op, strings.Join(parts, " "))
}

// FromNode flattens a parsed S-expression into a RecExpr via post-order
// traversal, assigning every subterm occurrence the next free index
// (repeated subterms are not shared). Leaves
// carrying a metavariable are rejected — a RecExpr is ground.
func FromNode(root *sx.Node) (RecExpr, error) {
	var e RecExpr
	_, err := appendNode(&e, root)
	return e, err
}

func appendNode(e *RecExpr, n *sx.Node) (int, error) {
	if n.IsMeta {
		return 0, fmt.Errorf("metavariable ?%s is not allowed in a ground term", n.Leaf)
	}
	if n.IsLeaf() {
		e.Nodes = append(e.Nodes, RecNode{Op: n.Leaf})
		return len(e.Nodes) - 1, nil
	}
	children := make([]int, len(n.Children))
	for i, c := range n.Children {
		idx, err := appendNode(e, c)
		if err != nil {
			return 0, err
		}
		children[i] = idx
	}
	e.Nodes = append(e.Nodes, RecNode{Op: n.Op, Children: children})
	return len(e.Nodes) - 1, nil
}

// ToNode expands a RecExpr back into a tree-shaped sx.Node, rooted at i.
func (e RecExpr) ToNode(i int) *sx.Node {
	n := e.Nodes[i]
	if len(n.Children) == 0 {
		return sx.Leaf(n.Op)
	}
	children := make([]*sx.Node, len(n.Children))
	for j, c := range n.Children {
		children[j] = e.ToNode(c)
	}
	return sx.App(n.Op, children...)
}

// AddRecExpr inserts every node of expr into the e-graph and returns the
// class of its root.
func (g *EGraph[V]) AddRecExpr(expr RecExpr) ClassID {
	ids := make([]ClassID, len(expr.Nodes))
	for i, n := range expr.Nodes {
		children := make([]ClassID, len(n.Children))
		for j, c := range n.Children {
			children[j] = ids[c]
		}
		ids[i] = g.Add(ENode{Op: n.Op, Children: children})
	}
	return ids[expr.Root()]
}
