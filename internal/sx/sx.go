// Package sx implements the S-expression surface syntax shared by pattern
// equations and RecExprs: "(op child1 child2)" for an operator application,
// a bare identifier for a constant or variable leaf, and "?name" for a
// pattern metavariable.
package sx

import "strings"

// Node is one parsed S-expression: either an operator application with
// children, or a leaf (constant, variable, or metavariable).
type Node struct {
	Op       string // "" for leaves
	Children []*Node
	Leaf     string // identifier/number text, set when Op == ""
	IsMeta   bool   // leaf is a pattern metavariable ("?a")
}

func Leaf(text string) *Node { return &Node{Leaf: text} }

func Meta(name string) *Node { return &Node{Leaf: name, IsMeta: true} }

func App(op string, children ...*Node) *Node { return &Node{Op: op, Children: children} }

func (n *Node) IsLeaf() bool { return n.Op == "" }

func (n *Node) String() string {
	if n.IsLeaf() {
		if n.IsMeta {
			return "?" + n.Leaf
		}
		return n.Leaf
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(n.Op)
	for _, c := range n.Children {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Vars returns the set of metavariable names appearing in n, in
// first-appearance order.
func (n *Node) Vars() []string {
	seen := map[string]bool{}
	var order []string
	var walk func(*Node)
	walk = func(m *Node) {
		if m.IsLeaf() {
			if m.IsMeta && !seen[m.Leaf] {
				seen[m.Leaf] = true
				order = append(order, m.Leaf)
			}
			return
		}
		for _, c := range m.Children {
			walk(c)
		}
	}
	walk(n)
	return order
}

// Size returns the number of nodes (operators + leaves) in n.
func (n *Node) Size() int {
	if n.IsLeaf() {
		return 1
	}
	total := 1
	for _, c := range n.Children {
		total += c.Size()
	}
	return total
}

// Equal reports structural equality, including metavariable identity.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.IsLeaf() != o.IsLeaf() {
		return false
	}
	if n.IsLeaf() {
		return n.Leaf == o.Leaf && n.IsMeta == o.IsMeta
	}
	if n.Op != o.Op || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Op: n.Op, Leaf: n.Leaf, IsMeta: n.IsMeta}
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return cp
}
