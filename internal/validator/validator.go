// Package validator implements the two-backend oracle of spec.md §4.8:
// try the bounded SMT-style procedure first, fall back to fuzzing on
// Unknown.
package validator

import (
	"eqsat/internal/lang"
	"eqsat/internal/pattern"
	"eqsat/internal/validator/fuzz"
	"eqsat/internal/validator/smt"
)

// Outcome is the result of validating one candidate equation.
type Outcome struct {
	Valid      bool
	SMTUnknown bool // true if the SMT backend had to fall back to fuzzing
	Counter    map[string]int64
}

// SMTBound is the integer range [-SMTBound, SMTBound] the bounded
// procedure searches before giving up.
const SMTBound = 6

// Validate checks lhs == rhs using the SMT backend when the two sides are
// type-compatible, falling back to the fuzz backend on Unknown (or when
// the sides aren't SMT-type-compatible at all).
func Validate[V any](l lang.Language[V], lhs, rhs pattern.Pattern) (Outcome, error) {
	res, model := smt.Check(lhs.Node, rhs.Node, SMTBound)
	switch res {
	case smt.Unsat:
		return Outcome{Valid: true}, nil
	case smt.Sat:
		return Outcome{Valid: false, Counter: model}, nil
	}

	ok, err := fuzz.Validate(l, lhs, rhs)
	if err != nil {
		return Outcome{Valid: false, SMTUnknown: true}, err
	}
	return Outcome{Valid: ok, SMTUnknown: true}, nil
}

// AsSynthValidator adapts Validate to the function shape
// internal/synth.Validator expects, so callers can write
// synth.New(l, params, validator.AsSynthValidator(l), rec).
func AsSynthValidator[V any](l lang.Language[V]) func(lhs, rhs pattern.Pattern) (bool, bool, error) {
	return func(lhs, rhs pattern.Pattern) (bool, bool, error) {
		out, err := Validate(l, lhs, rhs)
		return out.Valid, out.SMTUnknown, err
	}
}
