// Command eqsat-compile parses a program, runs phased compilation against
// an external rule store, and prints the rewritten program and its cost.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"eqsat/internal/config"
	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/lang"
	"eqsat/internal/lang/scalar"
	"eqsat/internal/lang/vector"
	"eqsat/internal/pattern"
	"eqsat/internal/phase"
	"eqsat/internal/rules"
	"eqsat/internal/sx"
	"eqsat/internal/telemetry"

	"github.com/google/uuid"
)

var (
	rulesPath  string
	configPath string
	langName   string
	syntax     string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "eqsat-compile <input>",
		Short: "parse a program and run phased equality-saturation compilation",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	root.Flags().StringVar(&rulesPath, "rules", "", "path to a rule store (required)")
	root.Flags().StringVar(&configPath, "config", "", "path to a compiler config file")
	root.Flags().StringVar(&langName, "lang", "scalar", "language of the input program: scalar|vector")
	root.Flags().StringVar(&syntax, "syntax", "sexpr", "input syntax: sexpr|imperative (imperative requires --lang scalar)")
	root.Flags().BoolVar(&verbose, "verbose", false, "log per-phase progress")
	_ = root.MarkFlagRequired("rules")

	if err := root.Execute(); err != nil {
		color.Red("eqsat-compile: %s", err)
		os.Exit(exitCode(err))
	}
}

type invariantError struct{ error }

func exitCode(err error) int {
	if _, ok := err.(invariantError); ok {
		return 2
	}
	return 1
}

func runCompile(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var root *sx.Node
	switch syntax {
	case "sexpr":
		root, err = sx.Parse(inputPath, string(source))
		if err != nil {
			return fmt.Errorf("parsing input: %w", err)
		}
	case "imperative":
		if langName != "scalar" {
			return fmt.Errorf("--syntax imperative only supports --lang scalar")
		}
		p, err := scalar.ParseProgram(string(source))
		if err != nil {
			return fmt.Errorf("parsing imperative input: %w", err)
		}
		root, err = p.Lower()
		if err != nil {
			return fmt.Errorf("lowering imperative input: %w", err)
		}
	default:
		return fmt.Errorf("unknown syntax %q (want sexpr or imperative)", syntax)
	}

	prog, err := egraph.FromNode(root)
	if err != nil {
		return fmt.Errorf("input is not a ground term: %w", err)
	}

	eqs, err := rules.Load(rulesPath)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	rec, err := telemetry.NewLogRecorder(verbose, cfg.Stats)
	if err != nil {
		return err
	}
	defer rec.Close()

	switch langName {
	case "scalar":
		return compileFor(scalar.New(1), prog, eqs, cfg, rec)
	case "vector":
		return compileFor(vector.New(1, 4), prog, eqs, cfg, rec)
	default:
		return fmt.Errorf("unknown language %q (want scalar or vector)", langName)
	}
}

func compileFor[V any](l lang.Language[V], prog egraph.RecExpr, eqs []rules.Equation, cfg config.Config, rec telemetry.Recorder) error {
	named, err := namedRules[V](l, eqs)
	if err != nil {
		return invariantError{err}
	}

	newEGraph := func(init *egraph.RecExpr) *egraph.EGraph[V] {
		g := egraph.New[V](l)
		if init != nil {
			g.AddRecExpr(*init)
		}
		return g
	}

	result, err := phase.Compile(prog, uuid.NewString(), named, l, cfg.ToPhaseConfig(), newEGraph, rec)
	if err != nil {
		return invariantError{err}
	}

	fmt.Println(result.Prog.String())
	color.Green("cost: %v", result.Cost)
	return nil
}

func namedRules[V any](l lang.Language[V], eqs []rules.Equation) ([]phase.NamedRule[V], error) {
	out := make([]phase.NamedRule[V], 0, len(eqs)*2)
	for _, eq := range eqs {
		lhs, rhs := pattern.New(eq.LHS), pattern.New(eq.RHS)
		cr := cost.Rule{LHS: lhs, RHS: rhs}
		cd, err := cost.Differential(cr, l)
		if err != nil {
			return nil, err
		}
		ca, err := cost.Average(cr, l)
		if err != nil {
			return nil, err
		}

		out = append(out, phase.NamedRule[V]{Rule: pattern.NewRewrite[V](eq.Name(), lhs, rhs), CD: cd, CA: ca})
		if eq.Bidirectional {
			out = append(out, phase.NamedRule[V]{Rule: pattern.NewRewrite[V](eq.Name()+"-rev", rhs, lhs), CD: -cd, CA: ca})
		}
	}
	return out, nil
}
