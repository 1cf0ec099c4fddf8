package model

// Verdict is the outcome of judging a single test case or a whole submission.
type Verdict string

const (
	VerdictAccepted          Verdict = "AC"
	VerdictWrongAnswer       Verdict = "WA"
	VerdictTimeLimitExceeded Verdict = "TLE"
	VerdictMemoryLimit       Verdict = "MLE"
	VerdictRuntimeError      Verdict = "RE"
	VerdictCompilationError  Verdict = "CE"
	VerdictSystemError       Verdict = "SE"
)

// IsAccepted reports whether the verdict passed the test case.
func (v Verdict) IsAccepted() bool { return v == VerdictAccepted }

// Terminal reports whether the verdict should stop the judging loop.
// Everything except AC is terminal under fail-fast judging.
func (v Verdict) Terminal() bool { return v != VerdictAccepted }

// ExecutionResult describes one test case execution.
type ExecutionResult struct {
	CaseID      string  `json:"case_id"`
	Verdict     Verdict `json:"verdict"`
	TimeMs      float64 `json:"time_ms"`
	MemoryBytes int64   `json:"memory_bytes"`

	// Stdout and Stderr are truncated program output, kept for
	// diagnostics on WA/RE results. Expected carries the reference
	// output alongside Stdout on WA so mismatches can be inspected.
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// JudgeReport is the aggregate result of judging one submission.
type JudgeReport struct {
	SubmissionID string            `json:"submission_id"`
	Verdict      Verdict           `json:"verdict"`
	Passed       int               `json:"passed"`
	Total        int               `json:"total"`
	Details      []ExecutionResult `json:"details"`

	// CompileOutput carries compiler diagnostics when Verdict is CE.
	CompileOutput string `json:"compile_output,omitempty"`
}

// ProblemLimits are the per-problem resource limits.
type ProblemLimits struct {
	TimeLimitMs      int64 `json:"time_limit_ms"`
	MemoryLimitBytes int64 `json:"memory_limit_bytes"`
}
