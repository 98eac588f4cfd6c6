// Package normalize converts raw extracted text into typed values.
//
// Every function is total: no input, including empty strings and nil
// pointers, produces an error or panic. Failed parses degrade to nil so a
// half-broken page still yields a usable record.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// CleanText collapses whitespace runs (including non-breaking spaces) to a
// single space and trims both ends.
func CleanText(raw string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))
}

// CleanTextPtr is CleanText for optional input; nil yields "" rather than
// an error, so absent selector matches flow through unchanged.
func CleanTextPtr(raw *string) string {
	if raw == nil {
		return ""
	}
	return CleanText(*raw)
}

// frenchMonths maps localized month names to English so the generic parser
// can handle long-form dates like "18 avril 2024".
var frenchMonths = []struct{ french, english string }{
	{"janvier", "january"},
	{"février", "february"},
	{"fevrier", "february"},
	{"mars", "march"},
	{"avril", "april"},
	{"mai", "may"},
	{"juin", "june"},
	{"juillet", "july"},
	{"août", "august"},
	{"aout", "august"},
	{"septembre", "september"},
	{"octobre", "october"},
	{"novembre", "november"},
	{"décembre", "december"},
	{"decembre", "december"},
}

var ordinalDay = regexp.MustCompile(`\b(\d{1,2})(er|re|e|ème)\b`)

// dateLayouts are tried before the fuzzy parser. dd/mm/yyyy comes first
// because the sources are francophone and dateparse assumes mm/dd.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate parses a deadline from free text. It accepts ISO-8601, numeric
// dd/mm/yyyy, and long-form French or English dates. The result is a date at
// UTC midnight; unparsable or empty input yields nil.
func ParseDate(raw string) *time.Time {
	s := strings.ToLower(CleanText(raw))
	if s == "" {
		return nil
	}

	s = ordinalDay.ReplaceAllString(s, "$1")
	for _, m := range frenchMonths {
		s = strings.ReplaceAll(s, m.french, m.english)
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return dateOnly(t)
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	return dateOnly(t)
}

func dateOnly(t time.Time) *time.Time {
	y, m, d := t.UTC().Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}

// amountToken matches the first numeric token, allowing spaces, dots, and
// commas as interior separators.
var amountToken = regexp.MustCompile(`\d(?:[\d .,]*\d)?`)

var nbspReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\u2009", " ")

// ParseAmount extracts the first numeric token from free text as an
// arbitrary-precision decimal. Spaces and non-breaking spaces are treated as
// thousands separators; either "." or "," may be the decimal separator (the
// rightmost wins when both appear). Currency symbols and words are ignored.
// No match or a failed parse yields nil.
func ParseAmount(raw string) *decimal.Decimal {
	s := nbspReplacer.Replace(raw)
	token := amountToken.FindString(s)
	if token == "" {
		return nil
	}

	normalized := normalizeSeparators(strings.ReplaceAll(token, " ", ""))
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return nil
	}
	return &amount
}

// normalizeSeparators rewrites a numeric token to use "." as the decimal
// separator and no grouping characters.
func normalizeSeparators(token string) string {
	lastDot := strings.LastIndex(token, ".")
	lastComma := strings.LastIndex(token, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the rightmost is the decimal separator.
		if lastDot > lastComma {
			token = strings.ReplaceAll(token, ",", "")
		} else {
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		}
	case lastComma >= 0:
		if strings.Count(token, ",") == 1 && decimalDigits(token, lastComma) <= 2 {
			token = strings.Replace(token, ",", ".", 1)
		} else {
			// Grouping commas, e.g. "15,000,000".
			token = strings.ReplaceAll(token, ",", "")
		}
	case strings.Count(token, ".") > 1:
		// Grouping dots, e.g. "15.000.000".
		token = strings.ReplaceAll(token, ".", "")
	}
	return token
}

func decimalDigits(token string, sep int) int {
	return len(token) - sep - 1
}

// sectorKeywords is the placeholder keyword classifier from the reference
// behavior. Iteration order is fixed; the first sector with any keyword
// present in title+description wins.
var sectorKeywords = []struct {
	sector   string
	keywords []string
}{
	{"agri", []string{"agriculture", "agro", "farm"}},
	{"tech", []string{"tech", "numérique", "digital", "informatique"}},
	{"health", []string{"santé", "health", "medical"}},
}

// DeriveSector tags an opportunity with a sector by case-insensitive
// keyword membership over the concatenated title and description. Returns
// nil when nothing matches.
func DeriveSector(title, description string) *string {
	text := strings.ToLower(title + " " + description)
	for _, entry := range sectorKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				sector := entry.sector
				return &sector
			}
		}
	}
	return nil
}
