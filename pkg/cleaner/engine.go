// pkg/cleaner/engine.go

// Package cleaner implements the cleaning/validation/quarantine engine. One
// generic engine runs every entity; the per-entity differences live in small
// RuleSet descriptors (airports.go, airlines.go, flights.go, passengers.go,
// transactions.go).
package cleaner

import (
	"errors"
	"fmt"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/refdata"
)

// ReasonColumn is added to quarantine output naming the first rule each row
// failed.
const ReasonColumn = "quarantine_reason"

// Refs is the read-only reference state a rule set may consult. Nil key sets
// mean the reference data was unavailable; resolution then passes values
// through unchanged.
type Refs struct {
	Resolver *refdata.Resolver
	Airports *refdata.KeySet
	Airlines *refdata.KeySet
}

// RuleSet describes how one entity is cleaned. Prepare runs once against the
// working copy and may fail for structural problems; Normalize mutates rows
// in place; Validate returns one reason per row (empty string = clean);
// Finalize reshapes the surviving clean table.
type RuleSet struct {
	Entity string

	// QuarantineRaw selects pre-normalization values for quarantine output,
	// for entities whose review process needs the untouched source rows.
	QuarantineRaw bool

	Prepare   func(t *model.Table) ([]string, error)
	Normalize func(t *model.Table, refs *Refs)
	Validate  func(t *model.Table) []string
	Finalize  func(clean *model.Table)
}

// Clean runs a rule set over one input table and partitions it. The input
// table is never mutated. Bad rows are quarantined, never returned as an
// error; the only error path is a structural one (a required column missing
// and not synthesizable).
func Clean(input *model.Table, rules *RuleSet, refs *Refs) (*model.CleaningResult, error) {
	if input == nil {
		return nil, errors.New("input table is required")
	}
	if rules == nil {
		return nil, errors.New("rule set is required")
	}
	if refs == nil {
		refs = &Refs{}
	}

	original := input.Clone()
	work := input.Clone()

	var warnings []string
	if rules.Prepare != nil {
		w, err := rules.Prepare(work)
		if err != nil {
			return nil, fmt.Errorf("cleaning %s: %w", rules.Entity, err)
		}
		warnings = w
	}

	if rules.Normalize != nil {
		rules.Normalize(work, refs)
	}

	reasons := make([]string, work.Len())
	if rules.Validate != nil {
		reasons = rules.Validate(work)
		if len(reasons) != work.Len() {
			return nil, fmt.Errorf("cleaning %s: validator returned %d reasons for %d rows",
				rules.Entity, len(reasons), work.Len())
		}
	}

	mask := make([]bool, len(reasons))
	for i, r := range reasons {
		mask[i] = r == ""
	}

	clean, _, err := Partition(work, mask)
	if err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", rules.Entity, err)
	}

	// Quarantine rows come from the working copy by default, or from the
	// untouched original where the entity requires audit fidelity.
	quarantineSource := work
	if rules.QuarantineRaw {
		quarantineSource = original
	}
	inverted := make([]bool, len(mask))
	for i, m := range mask {
		inverted[i] = !m
	}
	quarantine, _, err := Partition(quarantineSource, inverted)
	if err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", rules.Entity, err)
	}

	quarantineReasons := make([]string, 0, quarantine.Len())
	for _, r := range reasons {
		if r != "" {
			quarantineReasons = append(quarantineReasons, r)
		}
	}
	quarantine.AddColumn(ReasonColumn, "")
	for i, row := range quarantine.Rows {
		row[ReasonColumn] = quarantineReasons[i]
	}

	if rules.Finalize != nil {
		rules.Finalize(clean)
	}

	return &model.CleaningResult{
		Clean:      clean,
		Quarantine: quarantine,
		Reasons:    quarantineReasons,
		Warnings:   warnings,
	}, nil
}

// requireColumns verifies structurally required columns are present.
func requireColumns(t *model.Table, names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("required column %q is missing", n)
		}
	}
	return nil
}
