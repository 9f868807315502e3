// Package synth implements the rule-synthesis loop of spec.md §4.7: seed
// an e-graph with variables and constants, grow it layer by layer,
// propose candidate equations from cvec-equivalent classes, validate and
// accept them, and repeat until the iteration budget or global deadline
// is spent.
package synth

import (
	"sort"
	"strings"
	"time"

	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/extract"
	"eqsat/internal/lang"
	"eqsat/internal/pattern"
	"eqsat/internal/rules"
	"eqsat/internal/runner"
	"eqsat/internal/telemetry"
)

// Result is everything a synth run produces, ready to hand to
// internal/report.
type Result struct {
	Eqs        []rules.Equation
	SMTUnknown int
	Elapsed    time.Duration
}

// Validator is the narrow interface synth needs from internal/validator,
// kept as a function value so this package doesn't have to depend on a
// concrete validator implementation.
type Validator[V any] func(lhs, rhs pattern.Pattern) (valid bool, smtUnknown bool, err error)

// Synthesizer drives one synthesis run for language L over value type V.
type Synthesizer[V any] struct {
	Lang     lang.Language[V]
	Params   Params
	Validate Validator[V]
	Rec      telemetry.Recorder

	g       *egraph.EGraph[V]
	ruleset []pattern.Rewrite[V]
	eqs     []rules.Equation
	poison  map[string]bool
	varName map[egraph.ClassID]string
}

// New builds a Synthesizer ready to Run.
func New[V any](l lang.Language[V], params Params, validate Validator[V], rec telemetry.Recorder) *Synthesizer[V] {
	if rec == nil {
		rec = telemetry.NoopRecorder{}
	}
	return &Synthesizer[V]{
		Lang:     l,
		Params:   params,
		Validate: validate,
		Rec:      rec,
		g:        egraph.New[V](l),
		poison:   map[string]bool{},
		varName:  map[egraph.ClassID]string{},
	}
}

// Run executes the main loop and returns the accepted equations.
func (s *Synthesizer[V]) Run() (Result, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(s.Params.AbsTimeoutSecs * float64(time.Second)))
	smtUnknown := 0

	s.seed()

	for iter := 1; iter <= s.Params.Iters; iter++ {
		if s.Params.AbsTimeoutSecs > 0 && time.Now().After(deadline) {
			break
		}
		s.Rec.Progress("synth: iteration %d/%d, %d classes", iter, s.Params.Iters, s.g.NumClasses())

		classes := s.liveClasses()
		exact := s.exactSet(classes)

		chunk := make([]lang.Layer, 0, s.Params.ChunkSize)
		flush := func() error {
			if len(chunk) == 0 {
				return nil
			}
			for _, l := range chunk {
				children := make([]egraph.ClassID, len(l.Children))
				copy(children, l.Children)
				s.g.Add(egraph.ENode{Op: l.Op, Children: children})
			}
			chunk = chunk[:0]

			run := runner.New[V]()
			run.NodeLimit = s.Params.EqsatNodeLimit
			run.IterLimit = s.Params.EqsatIterLimit
			run.TimeLimit = remaining(deadline, s.Params.EqsatTimeLimitSecs)
			if err := run.Run(s.g, s.ruleset); err != nil && run.StopReason != runner.StoppedByError {
				return err
			}

			n, err := s.proposeAndAccept(&smtUnknown, deadline)
			if err != nil {
				return err
			}
			if n > 0 {
				s.Rec.Progress("synth: accepted %d rule(s), total %d", n, len(s.eqs))
			}
			return nil
		}

		timedOut := false
		for l := range s.Lang.MakeLayer(classes, exact) {
			chunk = append(chunk, l)
			if len(chunk) >= s.Params.ChunkSize {
				if err := flush(); err != nil {
					return Result{}, err
				}
				if s.Params.AbsTimeoutSecs > 0 && time.Now().After(deadline) {
					timedOut = true
					break
				}
			}
		}
		if !timedOut {
			if err := flush(); err != nil {
				return Result{}, err
			}
		}
	}

	if s.Params.DoFinalRun {
		run := runner.New[V]()
		run.NodeLimit = s.Params.EqsatNodeLimit
		run.IterLimit = s.Params.EqsatIterLimit
		run.TimeLimit = remaining(deadline, s.Params.EqsatTimeLimitSecs)
		_ = run.Run(s.g, s.ruleset)
	}

	eqs := rules.Dedup(s.eqs)
	rules.SortByName(eqs)

	return Result{Eqs: eqs, SMTUnknown: smtUnknown, Elapsed: time.Since(start)}, nil
}

func remaining(deadline time.Time, capSecs float64) time.Duration {
	left := time.Until(deadline)
	cap := time.Duration(capSecs * float64(time.Second))
	if cap > 0 && (left <= 0 || cap < left) {
		return cap
	}
	if left < 0 {
		return 0
	}
	return left
}

// seed populates the e-graph with Params.Variables distinct variables
// (each assigned the language's sampled cvec directly, since a variable's
// value can't be derived by evaluation the way a constant's can) plus a
// handful of interesting small-integer constants.
func (s *Synthesizer[V]) seed() {
	samples := s.Lang.InitSynth(s.Params.Variables)
	for i, sample := range samples {
		id := s.g.Add(egraph.ENode{Op: s.Lang.MkVar(i).Leaf})
		class := s.g.Class(id)
		class.Cvec = sample.Cvec
		s.varName[id] = sample.Name
	}
	for _, c := range []string{"0", "1", "-1", "2"} {
		s.g.Add(egraph.ENode{Op: c})
	}
}

func (s *Synthesizer[V]) liveClasses() []egraph.ClassID {
	ids := make([]egraph.ClassID, 0, s.g.NumClasses())
	for id := range s.g.Classes() {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Synthesizer[V]) exactSet(classes []egraph.ClassID) map[egraph.ClassID]bool {
	out := make(map[egraph.ClassID]bool, len(classes))
	for _, id := range classes {
		if s.g.Class(id).Exact {
			out[id] = true
		}
	}
	return out
}

// proposeAndAccept groups live classes by cvec (spec.md §4.7 "Cvec
// matching"), filters the poison set, and runs shrink-and-select over
// what remains.
func (s *Synthesizer[V]) proposeAndAccept(smtUnknown *int, deadline time.Time) (int, error) {
	classes := s.liveClasses()
	var candidates []rules.Equation

	if s.Params.NoConditionals {
		candidates = s.groupExact(classes)
	} else {
		candidates = s.groupConditional(classes)
	}

	var filtered []rules.Equation
	for _, eq := range candidates {
		if !s.poison[eq.Name()] {
			filtered = append(filtered, eq)
		}
	}

	return s.chooseEqs(filtered, smtUnknown, deadline)
}

type extracted struct {
	id   egraph.ClassID
	expr egraph.RecExpr
	cost cost.Cost
}

// groupExact implements no-conditional cvec matching: classes share a
// group iff their cvecs are identical and fully defined; within a group,
// the cheapest representative is paired against every other member.
func (s *Synthesizer[V]) groupExact(classes []egraph.ClassID) []rules.Equation {
	groups := map[string][]egraph.ClassID{}
	for _, id := range classes {
		class := s.g.Class(id)
		if !allDefined(class.Cvec) {
			continue
		}
		groups[s.cvecKey(class.Cvec)] = append(groups[s.cvecKey(class.Cvec)], id)
	}

	ex := extract.New(s.g, s.Lang)
	var eqs []rules.Equation
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		all := make([]extracted, 0, len(ids))
		for _, id := range ids {
			expr, c, err := ex.Extract(id)
			if err != nil {
				continue
			}
			all = append(all, extracted{id: id, expr: expr, cost: c})
		}
		if len(all) < 2 {
			continue
		}
		sort.Slice(all, func(i, j int) bool { return all[i].cost < all[j].cost })
		lhs := all[0].expr.ToNode(all[0].expr.Root())
		for _, other := range all[1:] {
			rhs := other.expr.ToNode(other.expr.Root())
			eqs = append(eqs, rules.CanonicalizeClasses(lhs, rhs, all[0].id, other.id, true))
		}
	}
	return eqs
}

// groupConditional implements conditional cvec matching: an O(n^2)
// pairwise comparison accepting a candidate pair when their cvecs agree
// at every jointly-defined index and at least one such index exists.
func (s *Synthesizer[V]) groupConditional(classes []egraph.ClassID) []rules.Equation {
	ex := extract.New(s.g, s.Lang)
	var eqs []rules.Equation
	for i := 0; i < len(classes); i++ {
		for j := i + 1; j < len(classes); j++ {
			a, b := s.g.Class(classes[i]), s.g.Class(classes[j])
			if !compatibleConditional(a.Cvec, b.Cvec, s.Lang.Equal) {
				continue
			}
			lExpr, _, err1 := ex.Extract(classes[i])
			rExpr, _, err2 := ex.Extract(classes[j])
			if err1 != nil || err2 != nil {
				continue
			}
			eqs = append(eqs, rules.CanonicalizeClasses(
				lExpr.ToNode(lExpr.Root()), rExpr.ToNode(rExpr.Root()),
				classes[i], classes[j], true,
			))
		}
	}
	return eqs
}

func compatibleConditional[V any](a, b []egraph.Option[V], equal func(a, b V) bool) bool {
	jointDefined := false
	for i := range a {
		if a[i].Valid && b[i].Valid {
			jointDefined = true
			if !equal(a[i].Value, b[i].Value) {
				return false
			}
		}
	}
	return jointDefined
}

func allDefined[V any](cvec []egraph.Option[V]) bool {
	for _, v := range cvec {
		if !v.Valid {
			return false
		}
	}
	return true
}

func (s *Synthesizer[V]) cvecKey(cvec []egraph.Option[V]) string {
	var b strings.Builder
	for _, v := range cvec {
		if v.Valid {
			b.WriteString(s.Lang.ToConstant(v.Value))
		} else {
			b.WriteString("_")
		}
		b.WriteByte('|')
	}
	return b.String()
}

// chooseEqs is shrink-and-select: repeatedly take the best-scoring
// candidates in batches of 100, 10, 1, validating each. An accepted rule
// is committed into the active ruleset and its originating class pair is
// unioned into the main e-graph immediately (spec.md §4.7 step 6), rather
// than waiting for the next chunk's saturation run; step 5's "eliminate
// candidates redundant with accepted ones" is then realized by dropping
// any later candidate in this same call whose two sides have already been
// unioned, since validating it again would only reconfirm what the
// now-accepted rule already proved.
func (s *Synthesizer[V]) chooseEqs(candidates []rules.Equation, smtUnknown *int, deadline time.Time) (int, error) {
	higherScoreFirst(candidates)
	accepted := 0

	for _, step := range []int{100, 10, 1} {
		for len(candidates) > 0 {
			if s.Params.AbsTimeoutSecs > 0 && time.Now().After(deadline) {
				return accepted, nil
			}
			n := step
			if n > len(candidates) {
				n = len(candidates)
			}
			batch := candidates[:n]
			candidates = candidates[n:]

			for _, eq := range batch {
				if eq.HasClasses && s.g.Find(eq.LeftClass) == s.g.Find(eq.RightClass) {
					continue
				}

				lhsP, rhsP := pattern.New(eq.LHS), pattern.New(eq.RHS)
				valid, unknown, err := s.Validate(lhsP, rhsP)
				if err != nil {
					return accepted, err
				}
				if unknown {
					*smtUnknown++
				}
				if !valid {
					s.poison[eq.Name()] = true
					continue
				}
				s.eqs = append(s.eqs, eq)
				s.ruleset = append(s.ruleset, pattern.NewRewrite[V](eq.Name(), lhsP, rhsP))
				if eq.Bidirectional {
					s.ruleset = append(s.ruleset, pattern.NewRewrite[V](eq.Name()+"-rev", rhsP, lhsP))
				}
				accepted++

				if eq.HasClasses {
					if _, err := s.g.Union(eq.LeftClass, eq.RightClass); err != nil {
						return accepted, err
					}
					if err := s.g.Rebuild(); err != nil {
						return accepted, err
					}
				}
			}

			candidates = dropUnioned(candidates, s.g)
		}
	}
	return accepted, nil
}

// dropUnioned filters out any remaining candidate whose two sides have
// already been unioned by an acceptance earlier in this shrink-and-select
// pass, per spec.md §4.7 step 5.
func dropUnioned[V any](candidates []rules.Equation, g *egraph.EGraph[V]) []rules.Equation {
	out := candidates[:0]
	for _, eq := range candidates {
		if eq.HasClasses && g.Find(eq.LeftClass) == g.Find(eq.RightClass) {
			continue
		}
		out = append(out, eq)
	}
	return out
}
