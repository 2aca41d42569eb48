package executor

import "time"

// ExecutionResult is the outcome of one attempted statement. It is created
// when execution starts and finalized exactly once (success, failure, or
// timeout); the engine never mutates it after finalization.
//
// Invariant: exactly one of Succeeded == true / Error != "" holds.
type ExecutionResult struct {
	// Name correlates the result back to its StatementSpec.
	Name string `json:"name"`

	// Succeeded reports whether the statement completed without error.
	Succeeded bool `json:"succeeded"`

	// StartedAt and CompletedAt are UTC timestamps bracketing execution.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// DurationSeconds is CompletedAt - StartedAt in seconds, never negative.
	DurationSeconds float64 `json:"duration_seconds"`

	// RowsAffected is the number of returned rows for queries, or the
	// driver-reported affected-row count for commands.
	RowsAffected int64 `json:"rows_affected"`

	// Rows holds the materialized result set for row-returning statements.
	Rows []Row `json:"rows,omitempty"`

	// Error carries the failure message when Succeeded is false.
	Error string `json:"error,omitempty"`
}

// newResult creates an in-flight result with the start timestamp stamped.
func newResult(name string) *ExecutionResult {
	return &ExecutionResult{
		Name:      name,
		StartedAt: time.Now().UTC(),
	}
}

// finalize stamps the completion timestamp and duration. It runs on every
// exit path, success or failure.
func (r *ExecutionResult) finalize() {
	r.CompletedAt = time.Now().UTC()
	d := r.CompletedAt.Sub(r.StartedAt).Seconds()
	if d < 0 {
		d = 0
	}
	r.DurationSeconds = d
}

// fail records the failure message and marks the result finalized-unsuccessful.
func (r *ExecutionResult) fail(msg string) {
	r.Succeeded = false
	r.Error = msg
}

// failedResult builds a fully finalized failed result for a statement that
// never reached the executor (pool exhaustion, defensive panic recovery).
func failedResult(name, msg string) *ExecutionResult {
	r := newResult(name)
	r.fail(msg)
	r.finalize()
	return r
}

// BatchReport aggregates the results of one run, ordered by submission.
type BatchReport struct {
	// RunID identifies this run in logs and reports.
	RunID string `json:"run_id"`

	// Results are per-statement outcomes in submission order.
	Results []ExecutionResult `json:"results"`

	// SuccessCount is the number of succeeded statements.
	SuccessCount int `json:"success_count"`

	// TotalCount is the number of submitted statements.
	TotalCount int `json:"total_count"`
}
