// pkg/model/run.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// RunContext carries the identity of one entity run. It is constructed once
// by the orchestrator and passed explicitly; nothing in the pipeline keeps
// run state in package globals.
type RunContext struct {
	RunID        string
	Entity       string
	StagingTable string
	StartedAt    time.Time
	Phase        string
}

// NewRunContext creates the context for a single entity run.
func NewRunContext(entity, stagingTable string) *RunContext {
	return &RunContext{
		RunID:        uuid.New().String(),
		Entity:       entity,
		StagingTable: stagingTable,
		StartedAt:    time.Now(),
	}
}

// CleaningResult is the outcome of classifying one input table. Every input
// row lands in exactly one of the two tables.
type CleaningResult struct {
	Clean      *Table
	Quarantine *Table

	// Reasons holds one entry per quarantined row, aligned with
	// Quarantine.Rows, naming the first failed rule.
	Reasons []string

	// Warnings records non-fatal structural repairs (synthesized columns,
	// defaulted values) applied before validation.
	Warnings []string
}

// Total returns the number of input rows accounted for.
func (r *CleaningResult) Total() int {
	return r.Clean.Len() + r.Quarantine.Len()
}
