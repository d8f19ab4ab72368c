// pkg/normalize/date.go
package normalize

import (
	"strings"
	"time"

	"github.com/skydata/staging-ingress/pkg/model"
)

// DateLayout is the canonical output form for every date field this pipeline
// emits. One form per instance; never mixed within a table.
const DateLayout = "2006-01-02"

// primaryDateLayouts match the year/abbreviated-month/day convention the
// upstream exports use once dashes are normalized to slashes and the month
// token is title-cased.
var primaryDateLayouts = []string{
	"2006/Jan/02",
	"2006/Jan/2",
}

// fallbackDateLayouts cover the other spellings observed in source files.
var fallbackDateLayouts = []string{
	"2006/01/02",
	"2006/1/2",
	"02/Jan/2006",
	"2/Jan/2006",
	"Jan/02/2006",
	"01/02/2006",
	"2006/01/02 15:04:05",
}

// Date parses a raw date value and renders it in the canonical YYYY-MM-DD
// form. Dashes are normalized to slashes and the month abbreviation is
// title-cased before the primary format is tried; a list of fallback formats
// is attempted next. Unparseable input maps to the empty string.
func Date(s string) string {
	if model.IsMissing(s) {
		return ""
	}
	v := titleCase(strings.ReplaceAll(strings.TrimSpace(s), "-", "/"))
	for _, layout := range primaryDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout)
		}
	}
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(DateLayout)
		}
	}
	return ""
}
