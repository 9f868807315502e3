// Package telemetry records per-iteration and per-phase statistics to logs
// and, optionally, a CSV file (NDJSONLine renders a single record as one
// JSON line), per spec.md §4.6 "Side effects" and
// §6 "Persisted statistics". No third-party structured-logging library
// appears anywhere in the retrieved example pack, so this is built on
// stdlib log/encoding/csv/encoding/json rather than zap/logrus/zerolog —
// see DESIGN.md.
package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
)

// IterStat is one saturation iteration's size and density summary.
type IterStat struct {
	RunID        string  `json:"run_id"`
	Phase        string  `json:"phase"`
	Iteration    int     `json:"iteration"`
	NumNodes     int     `json:"num_nodes"`
	NumClasses   int     `json:"num_classes"`
	DensityMean  float64 `json:"density_mean"`
	DensityStdev float64 `json:"density_stddev"`
}

// PhaseSummary is one phase's aggregate outcome.
type PhaseSummary struct {
	RunID      string  `json:"run_id"`
	Phase      string  `json:"phase"`
	StopReason string  `json:"stop_reason"`
	Iterations int     `json:"iterations"`
	CostBefore float64 `json:"cost_before"`
	CostAfter  float64 `json:"cost_after"`
}

// Recorder is the narrow interface the phased compiler and synth loop
// depend on, so callers can swap in a no-op recorder for tests.
type Recorder interface {
	Progress(format string, args ...any)
	IterStat(s IterStat)
	PhaseSummary(s PhaseSummary)
	Close() error
}

// LogRecorder logs progress lines with log.Printf, in the caller's format,
// when Verbose is set, and optionally appends iteration/phase rows to a
// CSV file.
type LogRecorder struct {
	Verbose bool
	csv     *csv.Writer
	file    *os.File
}

// NewLogRecorder opens statsPath for CSV output if non-empty.
func NewLogRecorder(verbose bool, statsPath string) (*LogRecorder, error) {
	r := &LogRecorder{Verbose: verbose}
	if statsPath == "" {
		return r, nil
	}
	f, err := os.Create(statsPath)
	if err != nil {
		return nil, fmt.Errorf("telemetry: opening stats file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"kind", "run_id", "phase", "iteration", "num_nodes", "num_classes", "density_mean", "density_stddev", "stop_reason", "cost_before", "cost_after"}); err != nil {
		f.Close()
		return nil, err
	}
	r.file, r.csv = f, w
	return r, nil
}

func (r *LogRecorder) Progress(format string, args ...any) {
	if r.Verbose {
		log.Printf(format, args...)
	}
}

func (r *LogRecorder) IterStat(s IterStat) {
	if r.csv == nil {
		return
	}
	r.csv.Write([]string{
		"iter", s.RunID, s.Phase, strconv.Itoa(s.Iteration),
		strconv.Itoa(s.NumNodes), strconv.Itoa(s.NumClasses),
		strconv.FormatFloat(s.DensityMean, 'f', -1, 64),
		strconv.FormatFloat(s.DensityStdev, 'f', -1, 64),
		"", "", "",
	})
}

func (r *LogRecorder) PhaseSummary(s PhaseSummary) {
	if r.csv == nil {
		return
	}
	r.csv.Write([]string{
		"phase", s.RunID, s.Phase, "",
		"", "", "", "",
		s.StopReason,
		strconv.FormatFloat(s.CostBefore, 'f', -1, 64),
		strconv.FormatFloat(s.CostAfter, 'f', -1, 64),
	})
}

func (r *LogRecorder) Close() error {
	if r.csv != nil {
		r.csv.Flush()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// NoopRecorder discards everything; used by tests and library callers
// that don't want log output.
type NoopRecorder struct{}

func (NoopRecorder) Progress(string, ...any)    {}
func (NoopRecorder) IterStat(IterStat)          {}
func (NoopRecorder) PhaseSummary(PhaseSummary)  {}
func (NoopRecorder) Close() error               { return nil }

// NDJSONLine marshals v as one NDJSON record, used when a caller wants the
// richer structured form instead of CSV.
func NDJSONLine(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
