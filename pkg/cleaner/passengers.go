// pkg/cleaner/passengers.go
package cleaner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/normalize"
)

var (
	fullNamePattern = regexp.MustCompile(`^[A-Za-z]+(?:\s+[A-Za-z]+)+$`)
	emailPattern    = regexp.MustCompile(`^[a-z0-9]+(?:[._][a-z0-9]+)*@example\.com$`)
)

var loyaltyTiers = map[string]struct{}{
	"Bronze":   {},
	"Silver":   {},
	"Gold":     {},
	"Platinum": {},
}

// passengerKeyStart seeds the regenerated synthetic keys: the first clean
// row becomes P1001.
const passengerKeyStart = 1001

// Passengers returns the rule set for the passengers file. Quarantine
// output keeps the raw pre-clean rows for review; surviving clean rows get
// fresh sequential synthetic keys, deliberately discarding the source key.
func Passengers() *RuleSet {
	return &RuleSet{
		Entity:        "passengers",
		QuarantineRaw: true,
		Prepare: func(t *model.Table) ([]string, error) {
			t.LowerColumns()
			return nil, requireColumns(t, "passengerkey", "fullname", "email", "loyaltystatus")
		},
		Normalize: func(t *model.Table, refs *Refs) {
			for _, row := range t.Rows {
				key := strings.TrimSpace(row["passengerkey"])
				row["passengerkey"] = key
				row["fullname"] = normalize.Name(row["fullname"])
				row["email"] = normalize.EmailForKey(row["email"], key)
				row["loyaltystatus"] = normalize.Loyalty(row["loyaltystatus"])
			}
		},
		Validate: func(t *model.Table) []string {
			dup := markDuplicates(t, func(row model.Row) string {
				return row["fullname"] + "\x00" + row["email"] + "\x00" + row["loyaltystatus"]
			})
			reasons := make([]string, t.Len())
			for i, row := range t.Rows {
				_, validTier := loyaltyTiers[row["loyaltystatus"]]
				switch {
				case model.IsMissing(row["passengerkey"]):
					reasons[i] = "missing passengerkey"
				case model.IsMissing(row["fullname"]):
					reasons[i] = "missing fullname"
				case !fullNamePattern.MatchString(row["fullname"]):
					reasons[i] = "invalid fullname format"
				case model.IsMissing(row["email"]):
					reasons[i] = "missing email"
				case !emailPattern.MatchString(row["email"]):
					reasons[i] = "invalid email format"
				case !validTier:
					reasons[i] = "invalid loyaltystatus"
				case dup[i]:
					reasons[i] = "duplicate passenger"
				}
			}
			return reasons
		},
		Finalize: func(clean *model.Table) {
			for i, row := range clean.Rows {
				row["passengerkey"] = fmt.Sprintf("P%d", passengerKeyStart+i)
			}
			projectColumns(clean, "passengerkey", "fullname", "email", "loyaltystatus")
		},
	}
}

// projectColumns restricts a table to the named columns, in that order.
func projectColumns(t *model.Table, names ...string) {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}
	for _, row := range t.Rows {
		for c := range row {
			if _, ok := keep[c]; !ok {
				delete(row, c)
			}
		}
	}
	t.Columns = append([]string(nil), names...)
}
