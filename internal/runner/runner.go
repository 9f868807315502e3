// Package runner drives equality saturation to a fixed point or a resource
// limit, per spec.md §4.3.
package runner

import (
	"time"

	"eqsat/internal/egraph"
	"eqsat/internal/pattern"
)

type StopReason int

const (
	Saturated StopReason = iota
	IterLimitReached
	NodeLimitReached
	TimeLimitReached
	StoppedByError
)

func (r StopReason) String() string {
	switch r {
	case Saturated:
		return "saturated"
	case IterLimitReached:
		return "iter-limit"
	case NodeLimitReached:
		return "node-limit"
	case TimeLimitReached:
		return "time-limit"
	default:
		return "other"
	}
}

// IterReport is the per-iteration timing/size record spec.md §4.3 asks for.
type IterReport struct {
	Iteration    int
	SearchTime   time.Duration
	ApplyTime    time.Duration
	RebuildTime  time.Duration
	RebuildCount int
	NumNodes     int
	NumClasses   int
}

// Hook observes the runner between iterations; returning an error requests
// an early stop with StopReason = StoppedByError.
type Hook[V any] func(g *egraph.EGraph[V], iteration int) error

// Scheduler decides, for a given iteration, which of the candidate rules
// are allowed to run.
type Scheduler interface {
	// Select filters ruleNames down to the ones permitted to search this
	// iteration, and is notified afterward of how many matches each
	// produced so it can adjust future bans.
	Select(iteration int, ruleNames []string) []string
	Report(ruleName string, numMatches int)
}

// SimpleScheduler runs every rule every iteration.
type SimpleScheduler struct{}

func (SimpleScheduler) Select(iteration int, ruleNames []string) []string { return ruleNames }
func (SimpleScheduler) Report(ruleName string, numMatches int)            {}

// BackoffScheduler throttles rules that match explosively via exponential
// backoff on ban-length, the way egg's BackoffScheduler works: a rule that
// fires more than Threshold times in one iteration is banned for a number
// of iterations that doubles each time it's banned again.
type BackoffScheduler struct {
	Threshold    int
	InitialBan   int
	bannedUntil  map[string]int
	banLength    map[string]int
	iteration    int
}

func NewBackoffScheduler() *BackoffScheduler {
	return &BackoffScheduler{
		Threshold:   1000,
		InitialBan:  5,
		bannedUntil: map[string]int{},
		banLength:   map[string]int{},
	}
}

func (s *BackoffScheduler) Select(iteration int, ruleNames []string) []string {
	s.iteration = iteration
	var out []string
	for _, name := range ruleNames {
		if s.bannedUntil[name] > iteration {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (s *BackoffScheduler) Report(ruleName string, numMatches int) {
	if numMatches <= s.Threshold {
		return
	}
	ban := s.banLength[ruleName]
	if ban == 0 {
		ban = s.InitialBan
	} else {
		ban *= 2
	}
	s.banLength[ruleName] = ban
	s.bannedUntil[ruleName] = s.iteration + 1 + ban
}

// Runner configures and drives one saturation run.
type Runner[V any] struct {
	IterLimit int
	NodeLimit int
	TimeLimit time.Duration
	Scheduler Scheduler
	Hook      Hook[V]

	Reports    []IterReport
	StopReason StopReason
	StopError  error
}

func New[V any]() *Runner[V] {
	return &Runner[V]{IterLimit: 30, NodeLimit: 10_000, Scheduler: SimpleScheduler{}}
}

// Run saturates g under rules until a stop condition is reached. Per
// spec.md §5, within one iteration all rules search against the
// pre-iteration e-graph before any applier mutates it, so rule order
// within an iteration never affects the result; rebuild runs once per
// iteration after every rule has applied.
func (r *Runner[V]) Run(g *egraph.EGraph[V], rules []pattern.Rewrite[V]) error {
	start := time.Now()
	names := make([]string, len(rules))
	byName := map[string]pattern.Rewrite[V]{}
	for i, rule := range rules {
		names[i] = rule.Name
		byName[rule.Name] = rule
	}

	for iter := 0; ; iter++ {
		if r.IterLimit > 0 && iter >= r.IterLimit {
			r.StopReason = IterLimitReached
			return nil
		}
		if r.TimeLimit > 0 && time.Since(start) >= r.TimeLimit {
			r.StopReason = TimeLimitReached
			return nil
		}
		if r.NodeLimit > 0 && g.NumNodes() >= r.NodeLimit {
			r.StopReason = NodeLimitReached
			return nil
		}

		active := r.Scheduler.Select(iter, names)

		searchStart := time.Now()
		type pending struct {
			rule    pattern.Rewrite[V]
			matches []pattern.Match
		}
		var batch []pending
		for _, name := range active {
			rule := byName[name]
			batch = append(batch, pending{rule: rule, matches: pattern.Search(g, rule.Searcher)})
		}
		searchTime := time.Since(searchStart)

		applyStart := time.Now()
		totalMerged := 0
		for _, p := range batch {
			merged, err := pattern.ApplyMatches(g, p.rule.Applier, p.matches)
			r.Scheduler.Report(p.rule.Name, len(p.matches))
			if err != nil {
				r.StopReason = StoppedByError
				r.StopError = err
				return err
			}
			totalMerged += merged
		}
		applyTime := time.Since(applyStart)

		rebuildStart := time.Now()
		if err := g.Rebuild(); err != nil {
			r.StopReason = StoppedByError
			r.StopError = err
			return err
		}
		rebuildTime := time.Since(rebuildStart)

		r.Reports = append(r.Reports, IterReport{
			Iteration:    iter,
			SearchTime:   searchTime,
			ApplyTime:    applyTime,
			RebuildTime:  rebuildTime,
			RebuildCount: 1,
			NumNodes:     g.NumNodes(),
			NumClasses:   g.NumClasses(),
		})

		if r.Hook != nil {
			if err := r.Hook(g, iter); err != nil {
				r.StopReason = StoppedByError
				r.StopError = err
				return err
			}
		}

		if totalMerged == 0 {
			r.StopReason = Saturated
			return nil
		}
	}
}
