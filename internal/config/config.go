// Package config loads the compiler's JSON configuration file and builds
// the phase.Config it describes, per spec.md §6 "Configuration".
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"eqsat/internal/cost"
	"eqsat/internal/phase"
)

// Interval is a half-open [Low, High) range; a zero-value Interval (both
// fields zero) means "no bound on this side" and is treated as (-inf, +inf).
type Interval struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

func (iv Interval) contains(v float64) bool {
	if iv.Low != nil && v < *iv.Low {
		return false
	}
	if iv.High != nil && v >= *iv.High {
		return false
	}
	return true
}

// PhaseSpec is one entry of the "phases" array. A Single phase has no
// Children; a Loop phase has Children and a positive Loops count. This
// extends the flat schema spec.md shows with optional nesting so the same
// file format can express both Single and Loop phases (§4.6).
type PhaseSpec struct {
	Name        string      `json:"name"`
	CD          *Interval   `json:"cd,omitempty"`
	CA          *Interval   `json:"ca,omitempty"`
	FreshEGraph bool        `json:"fresh_egraph,omitempty"`
	NodeLimit   *int        `json:"node_limit,omitempty"`
	IterLimit   *int        `json:"iter_limit,omitempty"`
	TimeoutSecs *float64    `json:"timeout,omitempty"`
	Disabled    bool        `json:"disabled,omitempty"`
	Loops       int         `json:"loops,omitempty"`
	Children    []PhaseSpec `json:"children,omitempty"`
}

// Config is the compiler configuration document, spec.md §6.
type Config struct {
	TotalNodeLimit int         `json:"total_node_limit"`
	TotalIterLimit int         `json:"total_iter_limit"`
	TimeoutSecs    float64     `json:"timeout"`
	DryRun         bool        `json:"dry_run"`
	DumpRules      bool        `json:"dump_rules"`
	ReuseEGraphs   bool        `json:"reuse_egraphs"`
	CDFilter       bool        `json:"cd_filter"`
	Phases         []PhaseSpec `json:"phases"`
	Scheduler      string      `json:"scheduler"`
	Stats          string      `json:"stats,omitempty"`
}

// Default returns the configuration used when no file is given: a single
// unconditional phase, generous limits, simple scheduling.
func Default() Config {
	return Config{
		TotalNodeLimit: 50_000,
		TotalIterLimit: 30,
		TimeoutSecs:    30,
		ReuseEGraphs:   true,
		Scheduler:      "Simple",
		Phases:         []PhaseSpec{{Name: "main"}},
	}
}

// Load reads and parses a configuration file from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return c, nil
}

// ToPhaseConfig translates the loaded document into the engine-facing
// phase.Config, building the Select predicates cd_filter governs.
func (c Config) ToPhaseConfig() phase.Config {
	phases := make([]phase.Phase, len(c.Phases))
	for i, p := range c.Phases {
		phases[i] = c.buildPhase(p)
	}
	return phase.Config{
		TotalNodeLimit: c.TotalNodeLimit,
		TotalIterLimit: c.TotalIterLimit,
		Timeout:        time.Duration(c.TimeoutSecs * float64(time.Second)),
		DryRun:         c.DryRun,
		ReuseEGraphs:   c.ReuseEGraphs,
		Phases:         phases,
		SchedulerName:  c.Scheduler,
	}
}

func (c Config) buildPhase(p PhaseSpec) phase.Phase {
	if len(p.Children) > 0 {
		children := make([]phase.Phase, len(p.Children))
		for i, ch := range p.Children {
			children[i] = c.buildPhase(ch)
		}
		loops := p.Loops
		if loops <= 0 {
			loops = 1
		}
		return phase.Loop{Name: p.Name, Children: children, Loops: loops}
	}

	var sel func(cd, ca cost.Cost) bool
	if c.CDFilter && (p.CD != nil || p.CA != nil) {
		cd, ca := p.CD, p.CA
		sel = func(d, a cost.Cost) bool {
			if cd != nil && !cd.contains(float64(d)) {
				return false
			}
			if ca != nil && !ca.contains(float64(a)) {
				return false
			}
			return true
		}
	}

	var nodeLimit, iterLimit *int
	if p.NodeLimit != nil {
		nodeLimit = p.NodeLimit
	}
	if p.IterLimit != nil {
		iterLimit = p.IterLimit
	}
	var timeout *time.Duration
	if p.TimeoutSecs != nil {
		d := time.Duration(*p.TimeoutSecs * float64(time.Second))
		timeout = &d
	}

	return phase.Single{
		Name:        p.Name,
		Select:      sel,
		FreshEGraph: p.FreshEGraph,
		NodeLimit:   nodeLimit,
		IterLimit:   iterLimit,
		Timeout:     timeout,
		Disabled:    p.Disabled,
	}
}
