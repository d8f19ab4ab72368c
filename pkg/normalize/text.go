// pkg/normalize/text.go
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/skydata/staging-ingress/pkg/model"
)

// Every normalizer in this package is a total function: it never fails, and
// unparseable input maps to a documented fallback (usually the empty string,
// which the pipeline treats as missing).

var whitespaceRun = regexp.MustCompile(`\s+`)

// Key normalizes identifier fields: trim and uppercase.
func Key(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// collapseSpaces trims and squeezes internal whitespace runs to one space.
func collapseSpaces(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

// titleCase capitalizes any letter that follows a non-letter and lowercases
// the rest, so "o'neill intl" becomes "O'Neill Intl". The apostrophe rule is
// deliberate: possessives get re-fixed by Name afterwards.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// connectives are words kept lowercase inside a title-cased name when they
// are not the leading token.
var connectives = []string{"And", "Of", "The", "At", "In"}

// lowerConnectives re-lowercases connective words in non-leading positions.
func lowerConnectives(s string) string {
	for _, w := range connectives {
		s = strings.ReplaceAll(s, " "+w+" ", " "+strings.ToLower(w)+" ")
	}
	return s
}

var possessive = regexp.MustCompile(`'S\b`)

// Name normalizes human-readable text fields (airport names, cities,
// passenger names): collapse whitespace, title-case, keep connective words
// lowercase mid-string, and restore possessive "'s" broken by title-casing.
func Name(s string) string {
	s = titleCase(collapseSpaces(s))
	s = possessive.ReplaceAllString(s, "'s")
	return lowerConnectives(s)
}

// countrySynonyms maps title-cased country spellings to their canonical
// form. Keys cover the forms title-casing can produce from common input.
var countrySynonyms = map[string]string{
	"Usa":                      "United States",
	"Us":                       "United States",
	"U.S.A.":                   "United States",
	"U.S.":                     "United States",
	"United States Of America": "United States",
	"United States of America": "United States",
	"Uk":                       "United Kingdom",
	"U.K.":                     "United Kingdom",
}

// Country normalizes a country field: title-case, then map known synonyms
// of United States and United Kingdom onto one canonical spelling.
func Country(s string) string {
	c := titleCase(collapseSpaces(s))
	if canonical, ok := countrySynonyms[c]; ok {
		return canonical
	}
	if canonical, ok := countrySynonyms[lowerConnectives(c)]; ok {
		return canonical
	}
	return lowerConnectives(c)
}

// Canonical airline alliance values. "None" is a real value here, not a
// missing sentinel: unaligned carriers are loaded with alliance None.
const (
	AllianceOneworld     = "Oneworld"
	AllianceSkyTeam      = "SkyTeam"
	AllianceStarAlliance = "Star Alliance"
	AllianceNone         = "None"
)

var allianceSynonyms = map[string]string{
	"oneworld":      AllianceOneworld,
	"one world":     AllianceOneworld,
	"skyteam":       AllianceSkyTeam,
	"sky team":      AllianceSkyTeam,
	"star alliance": AllianceStarAlliance,
	"staralliance":  AllianceStarAlliance,
	"none":          AllianceNone,
}

// allianceOverrides force a carrier's alliance regardless of source value.
// These are manual corrections for known-bad upstream data.
var allianceOverrides = map[string]string{
	"VS": AllianceSkyTeam,
	"AZ": AllianceNone,
}

// Alliance maps a raw alliance value onto the closed canonical set
// {Oneworld, SkyTeam, Star Alliance, None}. Anything unrecognized,
// including missing values, coerces to None.
func Alliance(s string) string {
	if model.IsMissing(s) {
		return AllianceNone
	}
	key := strings.ToLower(collapseSpaces(s))
	if canonical, ok := allianceSynonyms[key]; ok {
		return canonical
	}
	return AllianceNone
}

// AllianceForKey applies the synonym mapping and then the per-carrier
// overrides, which always win.
func AllianceForKey(airlineKey, alliance string) string {
	if forced, ok := allianceOverrides[Key(airlineKey)]; ok {
		return forced
	}
	return Alliance(alliance)
}

var nonAlpha = regexp.MustCompile(`[^a-zA-Z]`)

// Loyalty normalizes a loyalty status: strip non-alphabetic characters and
// capitalize. The result is not coerced into the canonical tier set; the
// validation step rejects anything outside it.
func Loyalty(s string) string {
	s = nonAlpha.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

var digitRun = regexp.MustCompile(`\d+`)

// EmailForKey lowercases and trims an email address, then removes the digit
// sequences of the passenger's own key from it. Upstream synthetic data
// embedded the key digits in the address; both the raw run and the same
// integer without leading zeros are stripped.
func EmailForKey(email, passengerKey string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	for _, run := range digitRun.FindAllString(passengerKey, -1) {
		e = strings.ReplaceAll(e, run, "")
		if trimmed := strings.TrimLeft(run, "0"); trimmed != "" && trimmed != run {
			e = strings.ReplaceAll(e, trimmed, "")
		}
	}
	return e
}
