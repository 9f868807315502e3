// Command eqsat-synth runs the rule-synthesis loop and writes its Report.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"eqsat/internal/lang"
	"eqsat/internal/lang/scalar"
	"eqsat/internal/lang/vector"
	"eqsat/internal/report"
	"eqsat/internal/synth"
	"eqsat/internal/telemetry"
	"eqsat/internal/validator"
)

var (
	configPath string
	langName   string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "eqsat-synth <output.json>",
		Short: "discover rewrite rules by equality-saturating a growing e-graph",
		Args:  cobra.ExactArgs(1),
		RunE:  runSynth,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a JSON synth.Params file")
	root.Flags().StringVar(&langName, "lang", "scalar", "language to synthesize rules for: scalar|vector")
	root.Flags().BoolVar(&verbose, "verbose", false, "log synth progress")

	if err := root.Execute(); err != nil {
		color.Red("eqsat-synth: %s", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if _, ok := err.(invariantError); ok {
		return 2
	}
	return 1
}

type invariantError struct{ error }

func runSynth(cmd *cobra.Command, args []string) error {
	outPath := args[0]

	params := synth.DefaultParams()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if err := json.Unmarshal(data, &params); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	rec, err := telemetry.NewLogRecorder(verbose, "")
	if err != nil {
		return err
	}
	defer rec.Close()

	switch langName {
	case "scalar":
		return runFor(scalar.New(64), params, outPath, rec)
	case "vector":
		return runFor(vector.New(64, 4), params, outPath, rec)
	default:
		return fmt.Errorf("unknown language %q (want scalar or vector)", langName)
	}
}

func runFor[V any](l lang.Language[V], params synth.Params, outPath string, rec telemetry.Recorder) error {
	s := synth.New(l, params, validator.AsSynthValidator(l), rec)
	res, err := s.Run()
	if err != nil {
		return invariantError{err}
	}

	rep := report.New(params, res.Elapsed.Seconds(), res.Eqs, res.SMTUnknown)
	if err := rep.Save(outPath); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	color.Green("wrote %d rule(s) to %s (%d smt-unknown, %.2fs)", len(res.Eqs), outPath, res.SMTUnknown, res.Elapsed.Seconds())
	return nil
}
