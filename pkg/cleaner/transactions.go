// pkg/cleaner/transactions.go
package cleaner

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/normalize"
)

var (
	transactionIDPattern = regexp.MustCompile(`^4\d{4}$`)
	passengerIDPattern   = regexp.MustCompile(`^P[0-8]\d{4}$`)
	flightIDPattern      = regexp.MustCompile(`^[A-Z]{1,2}\d{1,5}$`)
)

// transactionIDSeed is the first repaired ID when a bad value appears before
// any good numeric one.
const transactionIDSeed = 40000

var transactionAmountColumns = []string{"ticketprice", "taxes", "baggagefees", "totalamount"}

// Transactions returns the rule set for travel-agency sales transactions.
func Transactions() *RuleSet {
	return &RuleSet{
		Entity: "facttravel",
		Prepare: func(t *model.Table) ([]string, error) {
			t.LowerColumns()
			required := append([]string{"transactionid", "passengerid", "flightid", "transactiondate"},
				transactionAmountColumns...)
			return nil, requireColumns(t, required...)
		},
		Normalize: func(t *model.Table, refs *Refs) {
			backfillTransactionIDs(t)
			for _, row := range t.Rows {
				row["passengerid"] = normalize.Key(row["passengerid"])
				row["flightid"] = normalize.Key(row["flightid"])
				row["transactiondate"] = normalize.Date(row["transactiondate"])
				for _, col := range transactionAmountColumns {
					row[col] = normalize.Money(row[col])
				}
			}
		},
		Validate: func(t *model.Table) []string {
			// Backfill leaves every row with a numeric transactionid, so an
			// exact full-row duplicate always shares its id and the id check
			// alone catches both.
			idDup := markDuplicates(t, func(row model.Row) string {
				return row["transactionid"]
			})
			reasons := make([]string, t.Len())
			for i, row := range t.Rows {
				switch {
				case idDup[i]:
					reasons[i] = "duplicate transaction"
				case !transactionIDPattern.MatchString(row["transactionid"]):
					reasons[i] = "invalid transactionid format"
				case !passengerIDPattern.MatchString(row["passengerid"]):
					reasons[i] = "invalid passengerid format"
				case !flightIDPattern.MatchString(row["flightid"]):
					reasons[i] = "invalid flightid format"
				case model.IsMissing(row["transactiondate"]):
					reasons[i] = "unparseable transactiondate"
				case !totalsMatch(row):
					reasons[i] = "totalamount mismatch"
				}
			}
			return reasons
		},
	}
}

// backfillTransactionIDs repairs non-numeric transaction IDs sequentially:
// each bad value becomes the last good-or-repaired value plus one, so a run
// of bad IDs yields an incrementing sequence seeded from the last good value
// before it.
func backfillTransactionIDs(t *model.Table) {
	last := transactionIDSeed - 1
	for _, row := range t.Rows {
		id := strings.TrimSpace(row["transactionid"])
		if n, err := strconv.Atoi(id); err == nil && n >= 0 {
			row["transactionid"] = id
			last = n
			continue
		}
		last++
		row["transactionid"] = strconv.Itoa(last)
	}
}

// totalsMatch checks that ticket price, taxes and baggage fees sum exactly
// to the total amount at two-decimal rounding. No tolerance: a one-cent
// discrepancy quarantines the row. Missing component amounts count as zero;
// a missing total amount always fails.
func totalsMatch(row model.Row) bool {
	total, ok := normalize.ParseMoney(row["totalamount"])
	if !ok {
		return false
	}
	sum := decimal.Zero
	for _, col := range []string{"ticketprice", "taxes", "baggagefees"} {
		if model.IsMissing(row[col]) {
			continue
		}
		amount, ok := normalize.ParseMoney(row[col])
		if !ok {
			return false
		}
		sum = sum.Add(amount)
	}
	return sum.Round(2).Equal(total.Round(2))
}
