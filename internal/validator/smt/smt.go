// Package smt implements the validator's first backend: a translation of
// two patterns into integer-theory formulas and a check of
// ¬(LHS = RHS), per spec.md §4.8 "SMT backend".
//
// No SMT/constraint-solver library exists anywhere in the retrieved
// example pack (see DESIGN.md), so this is a bounded decision procedure
// built on math/big rather than an actual solver: it brute-forces every
// variable assignment in [-bound, bound] and checks the negation exactly.
// Unsat means no counterexample exists within the bound; a counterexample
// outside [-bound, bound] is not found. Unknown is reported for sqrt,
// vector-typed formulas, more than maxVars variables, or when no
// assignment defines both sides — the "unknown/timeout" case spec.md asks
// the validator to fall back to fuzzing on.
package smt

import (
	"math/big"
	"sort"

	"eqsat/internal/sx"
)

// Result is the three-way outcome spec.md §4.8 defines.
type Result int

const (
	Unsat Result = iota
	Sat
	Unknown
)

// Type is the simple type-compatibility lattice spec.md §4.8 gates
// translation on: {Scalar, Vector, Variable}, with Variable joining to
// whatever the other side is.
type Type int

const (
	Variable Type = iota
	ScalarT
	VectorT
)

func inferType(n *sx.Node) Type {
	if n.IsMeta {
		return Variable
	}
	if n.IsLeaf() {
		return ScalarT
	}
	switch n.Op {
	case "dot":
		return ScalarT
	case "sqrt", "sgn", "neg", "+", "-", "*", "/", "mac":
		t := Variable
		for _, c := range n.Children {
			ct := inferType(c)
			joined, ok := join(t, ct)
			if !ok {
				return ct // conflict already upstream; caller re-derives via TypeCompatible
			}
			t = joined
		}
		return t
	default:
		return ScalarT
	}
}

func join(a, b Type) (Type, bool) {
	if a == Variable {
		return b, true
	}
	if b == Variable {
		return a, true
	}
	if a != b {
		return 0, false
	}
	return a, true
}

// TypeCompatible reports whether lhs and rhs can even be offered to the
// translator: their inferred types must join without conflict, and the
// joined type must not be Vector (this bounded integer procedure has no
// vector theory).
func TypeCompatible(lhs, rhs *sx.Node) bool {
	lt, rt := inferType(lhs), inferType(rhs)
	joined, ok := join(lt, rt)
	if !ok {
		return false
	}
	return joined != VectorT
}

// maxVars bounds the brute-force search space: (2*bound+1)^vars grows
// fast, so beyond this many distinct variables the procedure gives up and
// reports Unknown rather than taking unbounded time.
const maxVars = 4

// Check attempts to prove lhs == rhs over every integer assignment to
// their shared variables in [-bound, bound]. A formula mentioning "sqrt"
// is refused (Unknown) since this procedure has no function theory for
// it, matching spec.md's note that sqrt is only usable as an uninterpreted
// symbol in a real solver.
func Check(lhs, rhs *sx.Node, bound int64) (Result, map[string]int64) {
	if mentionsSqrt(lhs) || mentionsSqrt(rhs) {
		return Unknown, nil
	}
	if !TypeCompatible(lhs, rhs) {
		return Unknown, nil
	}

	vars := unionVars(lhs, rhs)
	if len(vars) > maxVars {
		return Unknown, nil
	}

	definedBoth := false
	env := make(map[string]*big.Int, len(vars))
	var assign func(i int) (Result, map[string]int64, bool)
	assign = func(i int) (Result, map[string]int64, bool) {
		if i == len(vars) {
			lv, lok := eval(lhs, env)
			rv, rok := eval(rhs, env)
			if lok != rok {
				// One side is defined and the other isn't at this assignment
				// (e.g. "a/a" undefined at a=0 while "1" is total) — that
				// asymmetry is itself a counterexample, not a don't-care.
				model := make(map[string]int64, len(vars))
				for k, v := range env {
					model[k] = v.Int64()
				}
				return Sat, model, true
			}
			if !lok {
				return Unsat, nil, false
			}
			definedBoth = true
			if lv.Cmp(rv) != 0 {
				model := make(map[string]int64, len(vars))
				for k, v := range env {
					model[k] = v.Int64()
				}
				return Sat, model, true
			}
			return Unsat, nil, false
		}
		for v := -bound; v <= bound; v++ {
			env[vars[i]] = big.NewInt(v)
			if res, model, done := assign(i + 1); done {
				delete(env, vars[i])
				return res, model, true
			}
		}
		delete(env, vars[i])
		return Unsat, nil, false
	}

	if res, model, done := assign(0); done {
		return res, model
	}
	if !definedBoth {
		return Unknown, nil
	}
	return Unsat, nil
}

func mentionsSqrt(n *sx.Node) bool {
	if n.IsLeaf() {
		return false
	}
	if n.Op == "sqrt" {
		return true
	}
	for _, c := range n.Children {
		if mentionsSqrt(c) {
			return true
		}
	}
	return false
}

func unionVars(a, b *sx.Node) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range append(append([]string{}, a.Vars()...), b.Vars()...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// eval evaluates n over env using integer-theory semantics; the second
// return is false when the expression is undefined (division/modulo by
// zero) at this assignment.
func eval(n *sx.Node, env map[string]*big.Int) (*big.Int, bool) {
	if n.IsMeta {
		v, ok := env[n.Leaf]
		return v, ok
	}
	if n.IsLeaf() {
		v, ok := new(big.Int).SetString(n.Leaf, 10)
		return v, ok
	}

	args := make([]*big.Int, len(n.Children))
	for i, c := range n.Children {
		v, ok := eval(c, env)
		if !ok {
			return nil, false
		}
		args[i] = v
	}

	switch n.Op {
	case "neg":
		return new(big.Int).Neg(args[0]), true
	case "!":
		return boolInt(args[0].Sign() == 0), true
	case "+":
		return new(big.Int).Add(args[0], args[1]), true
	case "-":
		return new(big.Int).Sub(args[0], args[1]), true
	case "*":
		return new(big.Int).Mul(args[0], args[1]), true
	case "/":
		if args[1].Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Quo(args[0], args[1]), true
	case "%":
		if args[1].Sign() == 0 {
			return nil, false
		}
		return new(big.Int).Rem(args[0], args[1]), true
	case "==":
		return boolInt(args[0].Cmp(args[1]) == 0), true
	case "!=":
		return boolInt(args[0].Cmp(args[1]) != 0), true
	case "<":
		return boolInt(args[0].Cmp(args[1]) < 0), true
	case "<=":
		return boolInt(args[0].Cmp(args[1]) <= 0), true
	case ">":
		return boolInt(args[0].Cmp(args[1]) > 0), true
	case ">=":
		return boolInt(args[0].Cmp(args[1]) >= 0), true
	case "&&":
		return boolInt(args[0].Sign() != 0 && args[1].Sign() != 0), true
	case "||":
		return boolInt(args[0].Sign() != 0 || args[1].Sign() != 0), true
	case "ite":
		if args[0].Sign() != 0 {
			return args[1], true
		}
		return args[2], true
	default:
		return nil, false
	}
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
