// pkg/pipeline/result.go
package pipeline

import (
	"time"
)

// RunResult captures the outcome of one entity run for the summary phase
// and the caller.
type RunResult struct {
	RunID  string
	Entity string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	TotalRows       int
	SkippedLines    int
	CleanRows       int
	QuarantinedRows int
	LoadedRows      int
	FailedUploads   int

	CleanPath      string
	QuarantinePath string
	RunLogPath     string

	Errors   []string
	Warnings []string

	Success bool
}

// NewRunResult initializes a result for a starting run.
func NewRunResult(runID, entity string) *RunResult {
	return &RunResult{
		RunID:     runID,
		Entity:    entity,
		StartTime: time.Now(),
		Errors:    make([]string, 0),
		Warnings:  make([]string, 0),
	}
}

// AddError records a non-fatal error message.
func (r *RunResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a warning message.
func (r *RunResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Complete finalizes the result. Partial load failures do not flip Success;
// only a run that produced no meaningful output is unsuccessful.
func (r *RunResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// LoadSuccessRate returns the fraction of clean rows that reached the
// staging table, in percent.
func (r *RunResult) LoadSuccessRate() float64 {
	if r.CleanRows == 0 {
		return 100.0
	}
	return float64(r.LoadedRows) / float64(r.CleanRows) * 100.0
}
