// Package hypothesis defines the client-visible hypothesis records. The
// server never stores these; callers resubmit them for synthesis.
package hypothesis

// Hypothesis is one machine-generated candidate claim about a dataset.
type Hypothesis struct {
	Title   string `json:"hypothesis"`
	Benefit string `json:"benefit"`
}

// Outcome captures the result of testing a single hypothesis.
type Outcome struct {
	Success  bool    `json:"success"`
	PValue   float64 `json:"p_value"`
	Analysis string  `json:"analysis"`
	Summary  string  `json:"summary"`
}

// Record is the triple a caller submits for synthesis. Outcome is the
// plain-text result of a previous test; records without one are ignored.
type Record struct {
	Title   string `json:"title"`
	Benefit string `json:"benefit"`
	Outcome string `json:"outcome"`
}
