package synth

// Params mirrors spec.md §4.7's synthesis parameter list.
type Params struct {
	Variables          int     `json:"variables"`
	Iters              int     `json:"iters"`
	EqsatNodeLimit     int     `json:"eqsat_node_limit"`
	EqsatIterLimit     int     `json:"eqsat_iter_limit"`
	EqsatTimeLimitSecs float64 `json:"eqsat_time_limit"`
	AbsTimeoutSecs     float64 `json:"abs_timeout"`
	RulesToTake        int     `json:"rules_to_take"`
	ChunkSize          int     `json:"chunk_size"`
	NoConditionals     bool    `json:"no_conditionals"`
	Minimize           bool    `json:"minimize"`
	LinearCvecMatching bool    `json:"linear_cvec_matching"`
	DoFinalRun         bool    `json:"do_final_run"`
}

// DefaultParams returns a small, fast configuration suitable for tests and
// as a CLI default.
func DefaultParams() Params {
	return Params{
		Variables:          3,
		Iters:              3,
		EqsatNodeLimit:     5_000,
		EqsatIterLimit:     10,
		EqsatTimeLimitSecs: 5,
		AbsTimeoutSecs:     60,
		RulesToTake:        100,
		ChunkSize:          200,
		NoConditionals:     true,
		LinearCvecMatching: true,
		DoFinalRun:         true,
	}
}
