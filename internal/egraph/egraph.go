// Package egraph implements a congruence-closed e-graph with a pluggable
// "cvec" (characteristic vector) analysis. It is the foundation both the
// pattern matcher/rewriter and the rule-synthesis loop are built on top of.
//
// The data is held in flat arenas keyed by ClassID, following the "indexed
// data in arenas" design note: there are no back-pointers inside analysis
// data, so the union-find, hashcons, and class table can all be mutated
// freely by add/union/rebuild without aliasing concerns.
package egraph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ClassID identifies an e-class. IDs are never reused or invalidated by
// union — find resolves a stale ID to its current canonical class.
type ClassID int

// ENode is an operator symbol together with its ordered child class ids.
// A leaf (constant or variable) has Op set to the constant/variable's
// printed form and no children.
type ENode struct {
	Op       string
	Children []ClassID
}

func (n ENode) key() string {
	var b strings.Builder
	b.WriteString(n.Op)
	for _, c := range n.Children {
		b.WriteByte('\x00')
		b.WriteString(strconv.Itoa(int(c)))
	}
	return b.String()
}

func (n ENode) String() string {
	if len(n.Children) == 0 {
		return n.Op
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = strconv.Itoa(int(c))
	}
	return fmt.Sprintf("(%s %s)", n.Op, strings.Join(parts, " "))
}

// Option is an optional sample value: Valid=false models spec.md's "None"
// — undefined/unknown at that sample point.
type Option[V any] struct {
	Value V
	Valid bool
}

func Some[V any](v V) Option[V] { return Option[V]{Value: v, Valid: true} }
func None[V any]() Option[V]    { var zero V; return Option[V]{Value: zero, Valid: false} }

// EClass is an equivalence class of e-nodes plus its analysis data.
type EClass[V any] struct {
	ID    ClassID
	Nodes []ENode
	Cvec  []Option[V]
	Exact bool
	Vars  map[string]int
}

// Analysis supplies the language-specific pieces the e-graph needs to
// maintain cvec/exactness/vars: evaluating one operator at one sample
// point given already-evaluated child samples, comparing two values for
// cvec-compatibility, and recognizing variable leaves.
type Analysis[V any] interface {
	// SampleCount is the fixed cvec length for this egraph instance.
	SampleCount() int
	// Eval evaluates op at a single sample index given each child's value
	// at that same index (None if the child is undefined there).
	Eval(op string, args []Option[V]) Option[V]
	// Equal reports whether two concrete values are the same, for
	// cvec-compatibility checks at union time.
	Equal(a, b V) bool
	// IsVariable reports whether a leaf op denotes a variable (as opposed
	// to a constant).
	IsVariable(op string) bool
}

// Fault is returned by union when two classes' cvecs disagree at a
// concrete sample index — spec.md §4.1's "fatal internal invariant
// violation". Union leaves both classes unmerged and returns it; the runner
// stops with StoppedByError and returns it. The synthesis loop does not add
// any rule to its poison set for a Fault.
type Fault struct {
	ClassA, ClassB ClassID
	SampleIndex    int
}

func (f Fault) Error() string {
	return fmt.Sprintf("cvec disagreement merging e-class %d and %d at sample %d", f.ClassA, f.ClassB, f.SampleIndex)
}

type ufEntry struct {
	parent ClassID
	rank   int
}

// EGraph is a union-find of e-classes over e-nodes, with a hashcons
// mapping canonical e-nodes to their class and a cvec analysis threaded
// through add/union/rebuild.
type EGraph[V any] struct {
	analysis Analysis[V]
	uf       map[ClassID]*ufEntry
	classes  map[ClassID]*EClass[V]
	hashcons map[string]ClassID
	worklist []ClassID
	nextID   ClassID
}

func New[V any](analysis Analysis[V]) *EGraph[V] {
	return &EGraph[V]{
		analysis: analysis,
		uf:       map[ClassID]*ufEntry{},
		classes:  map[ClassID]*EClass[V]{},
		hashcons: map[string]ClassID{},
	}
}

func (g *EGraph[V]) NumClasses() int { return len(g.classes) }

func (g *EGraph[V]) NumNodes() int {
	n := 0
	for _, c := range g.classes {
		n += len(c.Nodes)
	}
	return n
}

// Find returns the canonical class id for id, compressing the path.
func (g *EGraph[V]) Find(id ClassID) ClassID {
	entry, ok := g.uf[id]
	if !ok {
		return id
	}
	if entry.parent == id {
		return id
	}
	root := g.Find(entry.parent)
	entry.parent = root
	return root
}

// Class returns the (canonical) e-class for id.
func (g *EGraph[V]) Class(id ClassID) *EClass[V] {
	return g.classes[g.Find(id)]
}

func (g *EGraph[V]) Classes() map[ClassID]*EClass[V] { return g.classes }

// canonicalNode rewrites a node's children to their current canonical ids.
func (g *EGraph[V]) canonicalNode(n ENode) ENode {
	children := make([]ClassID, len(n.Children))
	for i, c := range n.Children {
		children[i] = g.Find(c)
	}
	return ENode{Op: n.Op, Children: children}
}

// Add canonicalizes n's children and returns its class, creating a fresh
// one (with freshly computed cvec/exact/vars analysis data) if n is not
// already present.
func (g *EGraph[V]) Add(n ENode) ClassID {
	n = g.canonicalNode(n)
	key := n.key()
	if id, ok := g.hashcons[key]; ok {
		return g.Find(id)
	}

	id := g.nextID
	g.nextID++

	cvec := g.evalCvec(n)
	exact := g.computeExact(n)
	vars := g.computeVars(n)

	g.classes[id] = &EClass[V]{ID: id, Nodes: []ENode{n}, Cvec: cvec, Exact: exact, Vars: vars}
	g.uf[id] = &ufEntry{parent: id, rank: 0}
	g.hashcons[key] = id
	return id
}

func (g *EGraph[V]) evalCvec(n ENode) []Option[V] {
	samples := g.analysis.SampleCount()
	cvec := make([]Option[V], samples)
	childCvecs := make([][]Option[V], len(n.Children))
	for i, c := range n.Children {
		childCvecs[i] = g.classes[c].Cvec
	}
	for i := 0; i < samples; i++ {
		args := make([]Option[V], len(n.Children))
		for j := range n.Children {
			args[j] = childCvecs[j][i]
		}
		cvec[i] = g.analysis.Eval(n.Op, args)
	}
	return cvec
}

func (g *EGraph[V]) computeExact(n ENode) bool {
	if g.analysis.IsVariable(n.Op) {
		return false
	}
	for _, c := range n.Children {
		if !g.classes[c].Exact {
			return false
		}
	}
	return true
}

func (g *EGraph[V]) computeVars(n ENode) map[string]int {
	if len(n.Children) == 0 {
		if g.analysis.IsVariable(n.Op) {
			return map[string]int{n.Op: 1}
		}
		return map[string]int{}
	}
	out := map[string]int{}
	for _, c := range n.Children {
		for k, v := range g.classes[c].Vars {
			if v > out[k] {
				out[k] = v
			}
		}
	}
	return out
}

// Union merges the classes of a and b. Returns true if they were not
// already in the same class. Deferred canonicalization work is queued for
// Rebuild. A cvec disagreement at a defined sample index is a Fault.
func (g *EGraph[V]) Union(a, b ClassID) (bool, error) {
	ra, rb := g.Find(a), g.Find(b)
	if ra == rb {
		return false, nil
	}

	ca, cb := g.classes[ra], g.classes[rb]
	mergedCvec, err := g.mergeCvecs(ra, rb, ca.Cvec, cb.Cvec)
	if err != nil {
		return false, err
	}

	// Union by rank.
	entryA, entryB := g.uf[ra], g.uf[rb]
	var winner, loser ClassID
	if entryA.rank < entryB.rank {
		winner, loser = rb, ra
	} else {
		winner, loser = ra, rb
		if entryA.rank == entryB.rank {
			entryA.rank++
		}
	}
	g.uf[loser].parent = winner

	wc, lc := g.classes[winner], g.classes[loser]
	wc.Nodes = append(wc.Nodes, lc.Nodes...)
	wc.Cvec = mergedCvec
	wc.Exact = wc.Exact || lc.Exact
	wc.Vars = mergeVarsMax(wc.Vars, lc.Vars)
	delete(g.classes, loser)

	g.worklist = append(g.worklist, winner)
	return true, nil
}

func mergeVarsMax(a, b map[string]int) map[string]int {
	out := map[string]int{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

// mergeCvecs checks pointwise compatibility (spec.md §3 "Cvec
// compatibility") and returns the union of defined samples.
func (g *EGraph[V]) mergeCvecs(ra, rb ClassID, a, b []Option[V]) ([]Option[V], error) {
	out := make([]Option[V], len(a))
	for i := range a {
		switch {
		case a[i].Valid && b[i].Valid:
			if !g.analysis.Equal(a[i].Value, b[i].Value) {
				return nil, Fault{ClassA: ra, ClassB: rb, SampleIndex: i}
			}
			out[i] = a[i]
		case a[i].Valid:
			out[i] = a[i]
		default:
			out[i] = b[i]
		}
	}
	return out, nil
}

// Rebuild drains the union worklist: while it is non-empty, every class's
// e-nodes are recanonicalized and re-hashed (classes keep no parent lists,
// so a node whose child was merged can sit in any class), until the
// hashcons is stable — the post-rebuild e-graph is congruence-closed.
func (g *EGraph[V]) Rebuild() error {
	for len(g.worklist) > 0 {
		ids := make([]ClassID, 0, len(g.classes))
		for id := range g.classes {
			ids = append(ids, id)
		}
		todo := dedupeRoots(g, ids)
		g.worklist = nil

		for _, id := range todo {
			root := g.Find(id)
			class, ok := g.classes[root]
			if !ok {
				continue // merged away by an earlier entry in this batch
			}
			if err := g.repair(class); err != nil {
				return err
			}
		}
	}
	return nil
}

func dedupeRoots[V any](g *EGraph[V], ids []ClassID) []ClassID {
	seen := map[ClassID]bool{}
	var out []ClassID
	for _, id := range ids {
		r := g.Find(id)
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// repair re-canonicalizes class's nodes, re-inserting them into the
// hashcons; a collision with a node already claimed by a different class
// triggers a union between the two, queuing further work.
func (g *EGraph[V]) repair(class *EClass[V]) error {
	newNodes := make([]ENode, 0, len(class.Nodes))
	seen := map[string]bool{}
	for _, n := range class.Nodes {
		cn := g.canonicalNode(n)
		key := cn.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		newNodes = append(newNodes, cn)

		if existing, ok := g.hashcons[key]; ok {
			existingRoot := g.Find(existing)
			if existingRoot != class.ID && existingRoot != g.Find(class.ID) {
				if _, err := g.Union(class.ID, existingRoot); err != nil {
					return err
				}
			}
		}
		g.hashcons[key] = class.ID
	}

	root := g.Find(class.ID)
	current := g.classes[root]
	if current != nil {
		current.Nodes = dedupeNodes(append(current.Nodes, newNodes...))
	}
	return nil
}

func dedupeNodes(nodes []ENode) []ENode {
	seen := map[string]bool{}
	out := make([]ENode, 0, len(nodes))
	for _, n := range nodes {
		k := n.key()
		if !seen[k] {
			seen[k] = true
			out = append(out, n)
		}
	}
	return out
}
