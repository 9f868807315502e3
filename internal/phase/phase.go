// Package phase implements the phased compiler: a sequence (and/or nested
// loops) of saturation phases, each selecting a rule subset by cost
// metrics, threading the e-graph and best-so-far term through phases while
// respecting a global time budget. Spec.md §4.6.
package phase

import (
	"time"

	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/extract"
	"eqsat/internal/pattern"
	"eqsat/internal/runner"
	"eqsat/internal/telemetry"
)

// Phase is a Single saturation step or a bounded Loop over child phases.
type Phase interface{ phaseNode() }

type Single struct {
	Name        string
	Select      func(cd, ca cost.Cost) bool
	FreshEGraph bool
	NodeLimit   *int
	IterLimit   *int
	Timeout     *time.Duration
	Disabled    bool
}

func (Single) phaseNode() {}

type Loop struct {
	Name     string
	Children []Phase
	Loops    int
}

func (Loop) phaseNode() {}

// NamedRule pairs a rewrite with the cost metrics used to decide which
// phases it belongs to.
type NamedRule[V any] struct {
	Rule pattern.Rewrite[V]
	CD   cost.Cost
	CA   cost.Cost
}

// Config is the top-level compile configuration, spec.md §6.
type Config struct {
	TotalNodeLimit int
	TotalIterLimit int
	Timeout        time.Duration
	DryRun         bool
	ReuseEGraphs   bool
	Phases         []Phase
	SchedulerName  string // "Simple" or "Backoff"
}

// State threads the e-graph and best-so-far term through the phase tree.
type State[V any] struct {
	Cost    cost.Cost
	Prog    egraph.RecExpr
	EGraph  *egraph.EGraph[V]
	RunID   string
}

// Result is the driver's final output.
type Result[V any] struct {
	Cost   cost.Cost
	Prog   egraph.RecExpr
	EGraph *egraph.EGraph[V]
}

// NewEGraphFunc constructs a fresh e-graph, optionally pre-seeded with an
// init term (init == nil means no seeding).
type NewEGraphFunc[V any] func(init *egraph.RecExpr) *egraph.EGraph[V]

func recExprCost(expr egraph.RecExpr, model cost.Model) cost.Cost {
	var total cost.Cost
	for _, n := range expr.Nodes {
		total += model.OpCost(n.Op, len(n.Children))
	}
	return total
}

func newScheduler(name string) runner.Scheduler {
	if name == "Backoff" {
		return runner.NewBackoffScheduler()
	}
	return runner.SimpleScheduler{}
}

// Compile runs the driver algorithm of spec.md §4.6: initialize state from
// prog, walk the phase tree applying each Single phase's rule subset with
// phase-scoped (time-clamped) limits, extract under model after each
// phase, and keep the old term whenever the new cost is unchanged (the
// anti-churn rule that prevents semantically-irrelevant reorderings from
// breaking downstream determinism).
func Compile[V any](
	prog egraph.RecExpr,
	runID string,
	rules []NamedRule[V],
	model cost.Model,
	cfg Config,
	newEGraph NewEGraphFunc[V],
	rec telemetry.Recorder,
) (Result[V], error) {
	if rec == nil {
		rec = telemetry.NoopRecorder{}
	}

	state := &State[V]{
		Cost:   recExprCost(prog, model),
		Prog:   prog,
		EGraph: newEGraph(&prog),
		RunID:  runID,
	}
	timeLeft := cfg.Timeout

	for _, p := range cfg.Phases {
		var err error
		timeLeft, err = runPhase(p, state, rules, model, cfg, newEGraph, rec, timeLeft)
		if err != nil {
			return Result[V]{}, err
		}
		if cfg.Timeout > 0 && timeLeft <= 0 {
			break
		}
	}

	return Result[V]{Cost: state.Cost, Prog: state.Prog, EGraph: state.EGraph}, nil
}

func runPhase[V any](
	p Phase,
	state *State[V],
	rules []NamedRule[V],
	model cost.Model,
	cfg Config,
	newEGraph NewEGraphFunc[V],
	rec telemetry.Recorder,
	timeLeft time.Duration,
) (time.Duration, error) {
	switch ph := p.(type) {
	case Single:
		return runSingle(ph, state, rules, model, cfg, newEGraph, rec, timeLeft)
	case Loop:
		return runLoop(ph, state, rules, model, cfg, newEGraph, rec, timeLeft)
	default:
		return timeLeft, nil
	}
}

func runLoop[V any](
	l Loop,
	state *State[V],
	rules []NamedRule[V],
	model cost.Model,
	cfg Config,
	newEGraph NewEGraphFunc[V],
	rec telemetry.Recorder,
	timeLeft time.Duration,
) (time.Duration, error) {
	for i := 0; i < l.Loops; i++ {
		costBefore := state.Cost
		for _, child := range l.Children {
			var err error
			timeLeft, err = runPhase(child, state, rules, model, cfg, newEGraph, rec, timeLeft)
			if err != nil {
				return timeLeft, err
			}
			if cfg.Timeout > 0 && timeLeft <= 0 {
				return timeLeft, nil
			}
		}
		if state.Cost == costBefore {
			break
		}
	}
	return timeLeft, nil
}

func runSingle[V any](
	s Single,
	state *State[V],
	rules []NamedRule[V],
	model cost.Model,
	cfg Config,
	newEGraph NewEGraphFunc[V],
	rec telemetry.Recorder,
	timeLeft time.Duration,
) (time.Duration, error) {
	if s.Disabled {
		return timeLeft, nil
	}

	start := time.Now()
	rec.Progress("phase %s: starting", s.Name)

	var selected []pattern.Rewrite[V]
	for _, r := range rules {
		if s.Select == nil || s.Select(r.CD, r.CA) {
			selected = append(selected, r.Rule)
		}
	}

	if s.FreshEGraph || !cfg.ReuseEGraphs {
		state.EGraph = newEGraph(&state.Prog)
	}
	root := state.EGraph.AddRecExpr(state.Prog)

	run := runner.New[V]()
	run.Scheduler = newScheduler(cfg.SchedulerName)
	if s.NodeLimit != nil {
		run.NodeLimit = *s.NodeLimit
	} else if cfg.TotalNodeLimit > 0 {
		run.NodeLimit = cfg.TotalNodeLimit
	}
	if s.IterLimit != nil {
		run.IterLimit = *s.IterLimit
	} else if cfg.TotalIterLimit > 0 {
		run.IterLimit = cfg.TotalIterLimit
	}
	phaseBudget := timeLeft
	if s.Timeout != nil && (*s.Timeout < phaseBudget || phaseBudget <= 0) {
		phaseBudget = *s.Timeout
	}
	run.TimeLimit = phaseBudget

	if err := run.Run(state.EGraph, selected); err != nil && run.StopReason != runner.StoppedByError {
		return timeLeft, err
	}

	ex := extract.New(state.EGraph, model)
	newProg, newCost, err := ex.Extract(root)
	if err != nil {
		return timeLeft, err
	}

	costBefore := state.Cost
	if newCost != state.Cost {
		state.Prog = newProg
		state.Cost = newCost
	}

	elapsed := time.Since(start)
	if cfg.Timeout > 0 {
		timeLeft -= elapsed
	}

	rec.PhaseSummary(telemetry.PhaseSummary{
		RunID:      state.RunID,
		Phase:      s.Name,
		StopReason: run.StopReason.String(),
		Iterations: len(run.Reports),
		CostBefore: float64(costBefore),
		CostAfter:  float64(newCost),
	})
	for _, ir := range run.Reports {
		rec.IterStat(telemetry.IterStat{
			RunID:      state.RunID,
			Phase:      s.Name,
			Iteration:  ir.Iteration,
			NumNodes:   ir.NumNodes,
			NumClasses: ir.NumClasses,
		})
	}

	return timeLeft, nil
}
