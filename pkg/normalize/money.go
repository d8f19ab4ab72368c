// pkg/normalize/money.go
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/skydata/staging-ingress/pkg/model"
)

// maxAmount is the ceiling applied to currency fields. Source systems have
// been seen emitting garbage magnitudes; anything above is clamped.
var maxAmount = decimal.RequireFromString("99999999.99")

// ParseMoney strips currency formatting ("$", thousands separators) and
// parses the value as a decimal rounded to two places and clamped at
// 99,999,999.99. ok is false when the input is missing or unparseable.
func ParseMoney(s string) (decimal.Decimal, bool) {
	if model.IsMissing(s) {
		return decimal.Zero, false
	}
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	d = d.Round(2)
	if d.GreaterThan(maxAmount) {
		d = maxAmount
	}
	return d, true
}

// Money normalizes a currency field to a canonical two-decimal string.
// Unparseable input maps to the empty string, which reads as missing.
func Money(s string) string {
	d, ok := ParseMoney(s)
	if !ok {
		return ""
	}
	return d.StringFixed(2)
}
