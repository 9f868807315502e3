// Package rules implements the rule store: persistable equations with a
// canonical textual form, per spec.md §4.7 "Rule naming" and §4.9 "Rule
// store".
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"eqsat/internal/egraph"
	"eqsat/internal/sx"
)

// Equation is a canonically-named pair of patterns, materializable as one
// or two directed rewrites. LeftClass/RightClass optionally record the
// e-graph classes the equation was matched from (set by synth's cvec
// matching, zero-valued for rules loaded from a rule store) so the
// synthesis loop can union the originating pair immediately on acceptance
// per spec.md §4.7 step 6, instead of waiting for the next saturation run.
type Equation struct {
	LHS           *sx.Node
	RHS           *sx.Node
	Bidirectional bool

	LeftClass  egraph.ClassID
	RightClass egraph.ClassID
	HasClasses bool
}

// Doc is the rule file format's per-equation shape, spec.md §6:
// { lhs, rhs, bidirectional }. It's also what report.Report.Eqs holds,
// since a Report embeds the equations it produced in the same format.
type Doc struct {
	LHS           string `json:"lhs" yaml:"lhs"`
	RHS           string `json:"rhs" yaml:"rhs"`
	Bidirectional bool   `json:"bidirectional" yaml:"bidirectional"`
}

// ToDoc renders eq in the persistable string form.
func (eq Equation) ToDoc() Doc {
	return Doc{LHS: eq.LHS.String(), RHS: eq.RHS.String(), Bidirectional: eq.Bidirectional}
}

type storeDoc struct {
	Eqs []Doc `json:"eqs" yaml:"eqs"`
}

// Name renders the equation's canonical name, "L => R" or "L <=> R".
func (eq Equation) Name() string {
	arrow := "=>"
	if eq.Bidirectional {
		arrow = "<=>"
	}
	return fmt.Sprintf("%s %s %s", eq.LHS.String(), arrow, eq.RHS.String())
}

// Canonicalize generalizes both sides by renaming leaves to ?a, ?b, ... in
// first-appearance order, with one name map shared across the two sides
// (see CanonicalizeClasses), then swaps sides if needed so
// that lhs >= rhs under termOrder — a deterministic total order, so
// duplicate equations discovered independently collapse to one name.
func Canonicalize(lhs, rhs *sx.Node) Equation {
	return CanonicalizeClasses(lhs, rhs, 0, 0, false)
}

// CanonicalizeClasses is Canonicalize, additionally threading through the
// e-graph classes lhs/rhs were extracted from so the caller can union them
// on acceptance (spec.md §4.7 step 6). The pair is swapped alongside the
// patterns if termOrder swaps sides, so LeftClass always corresponds to
// the returned LHS and RightClass to the returned RHS.
//
// lhs and rhs share one name map across both sides (not one each): a leaf
// that appears on both sides — e.g. the same variable used on both sides
// of a discovered commutativity equation — must get the same meta name on
// both sides, or the equation loses the correspondence that made it true
// in the first place.
func CanonicalizeClasses(lhs, rhs *sx.Node, leftClass, rightClass egraph.ClassID, hasClasses bool) Equation {
	names := map[string]string{}
	next := 0
	l := generalize(lhs, names, &next)
	r := generalize(rhs, names, &next)
	if termOrder(l, r) < 0 {
		l, r = r, l
		leftClass, rightClass = rightClass, leftClass
	}
	return Equation{LHS: l, RHS: r, LeftClass: leftClass, RightClass: rightClass, HasClasses: hasClasses}
}

// generalize renames every leaf, metavariables included, to
// ?a, ?b, ... in first-appearance order (pre-order traversal) against the
// shared names/next state, turning a ground or mixed term into a pattern.
func generalize(n *sx.Node, names map[string]string, next *int) *sx.Node {
	var walk func(*sx.Node) *sx.Node
	walk = func(n *sx.Node) *sx.Node {
		if n.IsLeaf() {
			key := n.Leaf
			if n.IsMeta {
				key = "?" + key
			}
			name, ok := names[key]
			if !ok {
				name = metaName(*next)
				*next++
				names[key] = name
			}
			return &sx.Node{Leaf: name, IsMeta: true}
		}
		children := make([]*sx.Node, len(n.Children))
		for i, c := range n.Children {
			children[i] = walk(c)
		}
		return &sx.Node{Op: n.Op, Children: children}
	}
	return walk(n)
}

// metaName produces ?a, ?b, ..., ?z, ?a1, ?b1, ... for indices beyond 26.
func metaName(i int) string {
	letter := rune('a' + i%26)
	suffix := i / 26
	if suffix == 0 {
		return string(letter)
	}
	return fmt.Sprintf("%c%d", letter, suffix)
}

// termOrder is a total order on terms: larger size first, then
// lexicographic on the printed form, so the comparison is deterministic
// and independent of how the terms were constructed.
func termOrder(a, b *sx.Node) int {
	if a.Size() != b.Size() {
		return a.Size() - b.Size()
	}
	return strings.Compare(a.String(), b.String())
}

// Load reads a rule store from path, dispatching on extension: ".yaml" or
// ".yml" uses yaml.v3, everything else is treated as JSON. An item whose
// lhs or rhs fails to parse is rejected with an error naming its index.
func Load(path string) ([]Equation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: reading %s: %w", path, err)
	}

	var doc storeDoc
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("rules: parsing %s: %w", path, err)
	}

	eqs := make([]Equation, 0, len(doc.Eqs))
	for i, e := range doc.Eqs {
		lhs, err := sx.Parse(path, e.LHS)
		if err != nil {
			return nil, fmt.Errorf("rules: eqs[%d].lhs: %w", i, err)
		}
		rhs, err := sx.Parse(path, e.RHS)
		if err != nil {
			return nil, fmt.Errorf("rules: eqs[%d].rhs: %w", i, err)
		}
		eqs = append(eqs, Equation{LHS: lhs, RHS: rhs, Bidirectional: e.Bidirectional})
	}
	return eqs, nil
}

// Save writes eqs to path in their canonical serialized form, dispatching
// on extension the same way Load does.
func Save(path string, eqs []Equation) error {
	doc := storeDoc{Eqs: make([]Doc, len(eqs))}
	for i, eq := range eqs {
		doc.Eqs[i] = eq.ToDoc()
	}

	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("rules: serializing %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Dedup removes equations whose canonical Name() has already been seen,
// keeping the first occurrence and preserving order.
func Dedup(eqs []Equation) []Equation {
	seen := map[string]bool{}
	out := make([]Equation, 0, len(eqs))
	for _, eq := range eqs {
		name := eq.Name()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, eq)
	}
	return out
}

// SortByName orders eqs by canonical name, for deterministic output.
func SortByName(eqs []Equation) {
	sort.Slice(eqs, func(i, j int) bool { return eqs[i].Name() < eqs[j].Name() })
}
