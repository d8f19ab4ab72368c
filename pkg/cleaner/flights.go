// pkg/cleaner/flights.go
package cleaner

import (
	"regexp"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/normalize"
)

var (
	flightKeyPattern  = regexp.MustCompile(`^[A-Za-z0-9]{2}\d+$`)
	airportRefPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// Flights returns the rule set for the flights file. Origin and destination
// are fuzzy-corrected against known airport keys, and the airline-code
// prefix of the flight key against known airline keys, when reference data
// is available.
func Flights() *RuleSet {
	return &RuleSet{
		Entity: "flights",
		Prepare: func(t *model.Table) ([]string, error) {
			t.LowerColumns()
			// Upstream exports label the airports OriginAirportKey and
			// DestinationAirportKey.
			t.RenameColumn("originairportkey", "origin")
			t.RenameColumn("destinationairportkey", "destination")
			return nil, requireColumns(t, "flightkey", "origin", "destination", "aircrafttype")
		},
		Normalize: func(t *model.Table, refs *Refs) {
			for _, row := range t.Rows {
				row["flightkey"] = normalize.Key(row["flightkey"])
				row["origin"] = normalize.Key(row["origin"])
				row["destination"] = normalize.Key(row["destination"])
				row["aircrafttype"] = normalize.Name(row["aircrafttype"])

				if refs.Resolver != nil {
					row["origin"] = refs.Resolver.Resolve(row["origin"], refs.Airports)
					row["destination"] = refs.Resolver.Resolve(row["destination"], refs.Airports)
					row["flightkey"] = refs.Resolver.FixFlightPrefix(row["flightkey"], refs.Airlines)
				}
			}
		},
		Validate: func(t *model.Table) []string {
			dup := markDuplicates(t, func(row model.Row) string {
				return row["flightkey"]
			})
			reasons := make([]string, t.Len())
			for i, row := range t.Rows {
				switch {
				case model.IsMissing(row["flightkey"]):
					reasons[i] = "missing flightkey"
				case !flightKeyPattern.MatchString(row["flightkey"]):
					reasons[i] = "invalid flightkey format"
				case model.IsMissing(row["origin"]):
					reasons[i] = "missing origin"
				case !airportRefPattern.MatchString(row["origin"]):
					reasons[i] = "invalid origin format"
				case model.IsMissing(row["destination"]):
					reasons[i] = "missing destination"
				case !airportRefPattern.MatchString(row["destination"]):
					reasons[i] = "invalid destination format"
				case row["origin"] == row["destination"]:
					reasons[i] = "origin equals destination"
				case model.IsMissing(row["aircrafttype"]):
					reasons[i] = "missing aircrafttype"
				case dup[i]:
					reasons[i] = "duplicate flightkey"
				}
			}
			return reasons
		},
	}
}
