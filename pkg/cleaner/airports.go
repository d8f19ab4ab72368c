// pkg/cleaner/airports.go
package cleaner

import (
	"regexp"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/normalize"
)

var airportKeyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Airports returns the rule set for the airports reference file. Duplicate
// keys are not quarantined here; the loader dedups by key (keep-first)
// before its chunked insert.
func Airports() *RuleSet {
	return &RuleSet{
		Entity: "airports",
		Prepare: func(t *model.Table) ([]string, error) {
			t.LowerColumns()
			return nil, requireColumns(t, "airportkey", "airportname", "city", "country")
		},
		Normalize: func(t *model.Table, refs *Refs) {
			for _, row := range t.Rows {
				row["airportkey"] = normalize.Key(row["airportkey"])
				row["airportname"] = normalize.Name(row["airportname"])
				row["city"] = normalize.Name(row["city"])
				row["country"] = normalize.Country(row["country"])
			}
		},
		Validate: func(t *model.Table) []string {
			reasons := make([]string, t.Len())
			for i, row := range t.Rows {
				switch {
				case model.IsMissing(row["airportkey"]):
					reasons[i] = "missing airportkey"
				case !airportKeyPattern.MatchString(row["airportkey"]):
					reasons[i] = "invalid airportkey format"
				case model.IsMissing(row["airportname"]):
					reasons[i] = "missing airportname"
				case model.IsMissing(row["city"]):
					reasons[i] = "missing city"
				case model.IsMissing(row["country"]):
					reasons[i] = "missing country"
				}
			}
			return reasons
		},
	}
}
