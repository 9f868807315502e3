// Package report implements the synthesis run's output document, spec.md
// §6 "Report file format".
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"eqsat/internal/rules"
)

// Report is the JSON document a synth run writes: { params, time,
// num_rules, smt_unknown, eqs }.
type Report struct {
	RunID      string      `json:"run_id"`
	Params     any         `json:"params"`
	TimeSecs   float64     `json:"time"`
	NumRules   int         `json:"num_rules"`
	SMTUnknown int         `json:"smt_unknown"`
	Eqs        []rules.Doc `json:"eqs"`
}

// New assigns a fresh run id via google/uuid, the way the teacher's
// tooling stamps build/request identifiers.
func New(params any, timeSecs float64, eqs []rules.Equation, smtUnknown int) Report {
	docs := make([]rules.Doc, len(eqs))
	for i, eq := range eqs {
		docs[i] = eq.ToDoc()
	}
	return Report{
		RunID:      uuid.NewString(),
		Params:     params,
		TimeSecs:   timeSecs,
		NumRules:   len(eqs),
		SMTUnknown: smtUnknown,
		Eqs:        docs,
	}
}

// Save writes r as indented JSON to path.
func (r Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: serializing: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
