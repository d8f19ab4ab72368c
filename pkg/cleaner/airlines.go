// pkg/cleaner/airlines.go
package cleaner

import (
	"fmt"
	"regexp"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/normalize"
)

var (
	airlineKeyPattern  = regexp.MustCompile(`^[A-Z0-9]{2,3}$`)
	airlineNamePattern = regexp.MustCompile(`^[A-Za-z0-9\s.\-&]+$`)
)

// Airlines returns the rule set for the airlines reference file. A missing
// name or alliance column is synthesized with a warning; a missing key
// column is a structural failure.
func Airlines() *RuleSet {
	return &RuleSet{
		Entity: "airlines",
		Prepare: func(t *model.Table) ([]string, error) {
			t.LowerColumns()
			if !t.HasColumn("airlinekey") {
				return nil, fmt.Errorf("required column %q is missing", "airlinekey")
			}

			var warnings []string
			if !t.HasColumn("airlinename") {
				t.AddColumn("airlinename", "")
				for _, row := range t.Rows {
					row["airlinename"] = row["airlinekey"]
				}
				warnings = append(warnings, "airlinename column missing, synthesized from airlinekey")
			}
			if !t.HasColumn("alliance") {
				t.AddColumn("alliance", normalize.AllianceNone)
				warnings = append(warnings, "alliance column missing, defaulted to None")
			}
			return warnings, nil
		},
		Normalize: func(t *model.Table, refs *Refs) {
			for _, row := range t.Rows {
				row["airlinekey"] = normalize.Key(row["airlinekey"])
				row["airlinename"] = normalize.Name(row["airlinename"])
				row["alliance"] = normalize.AllianceForKey(row["airlinekey"], row["alliance"])
			}
		},
		Validate: func(t *model.Table) []string {
			dup := markDuplicates(t, func(row model.Row) string {
				return row["airlinekey"]
			})
			reasons := make([]string, t.Len())
			for i, row := range t.Rows {
				switch {
				case model.IsMissing(row["airlinekey"]):
					reasons[i] = "missing airlinekey"
				case !airlineKeyPattern.MatchString(row["airlinekey"]):
					reasons[i] = "invalid airlinekey format"
				case model.IsMissing(row["airlinename"]):
					reasons[i] = "missing airlinename"
				case !airlineNamePattern.MatchString(row["airlinename"]):
					reasons[i] = "invalid airlinename format"
				case dup[i]:
					reasons[i] = "duplicate airlinekey"
				}
			}
			return reasons
		},
	}
}
