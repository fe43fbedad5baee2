package listscraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/maplist/internal/models"
)

const (
	minEntryTextLength  = 10
	titledTextMinLength = 15
	titledTextMinWords  = 2
	ratingGlyph         = "★"
)

var (
	ratingWithCountPattern = regexp.MustCompile(`\d\.\d.*\([\d,]+\)`)
	ratingPattern          = regexp.MustCompile(`\d\.\d.*\(`)
	capitalizedWordPattern = regexp.MustCompile(`[A-Z][a-z]+`)
	numericOnlyPattern     = regexp.MustCompile(`^\d+[\s\d,.-]*$`)
	datePattern            = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}`)
	tabLabelPattern        = regexp.MustCompile(`^(Overview|Reviews|Photos|About)$`)
	actionLabelPattern     = regexp.MustCompile(`^(Share|Save|Directions|Nearby)$`)
)

// entryFilter rejects an element before any acceptance rule is tried
type entryFilter struct {
	name string
	keep func(el models.ElementSnapshot) bool
}

// entryRule accepts an element's text as a list entry
type entryRule struct {
	name  string
	match func(text string) bool
}

var entryFilters = []entryFilter{
	{"visible", func(el models.ElementSnapshot) bool { return el.Width > 0 && el.Height > 0 }},
	{"min-length", func(el models.ElementSnapshot) bool {
		return utf8.RuneCountInString(strings.TrimSpace(el.Text)) >= minEntryTextLength
	}},
	{"tab-label", func(el models.ElementSnapshot) bool {
		return !tabLabelPattern.MatchString(strings.TrimSpace(el.Text))
	}},
	{"action-label", func(el models.ElementSnapshot) bool {
		return !actionLabelPattern.MatchString(strings.TrimSpace(el.Text))
	}},
	{"in-container", func(el models.ElementSnapshot) bool { return el.InContainer }},
}

// entryRules are tried in order; the first match wins
var entryRules = []entryRule{
	{"rating-with-count", ratingWithCountPattern.MatchString},
	{"rating", ratingPattern.MatchString},
	{"rating-glyph", func(text string) bool {
		return capitalizedWordPattern.MatchString(text) && strings.Contains(text, ratingGlyph)
	}},
	{"titled-text", isTitledText},
}

func isTitledText(text string) bool {
	if !capitalizedWordPattern.MatchString(text) {
		return false
	}
	trimmed := strings.TrimSpace(text)
	if len(strings.Fields(trimmed)) < titledTextMinWords && utf8.RuneCountInString(trimmed) < titledTextMinLength {
		return false
	}
	return !numericOnlyPattern.MatchString(trimmed) && !datePattern.MatchString(trimmed)
}

// MatchEntry reports whether el looks like a list entry and, if so, which rule accepted it
func MatchEntry(el models.ElementSnapshot) (string, bool) {
	for _, f := range entryFilters {
		if !f.keep(el) {
			return "", false
		}
	}
	for _, r := range entryRules {
		if r.match(el.Text) {
			return r.name, true
		}
	}
	return "", false
}

// Classify keeps the snapshots that look like list entries, preserving document order
func Classify(snapshots []models.ElementSnapshot) []models.ElementSnapshot {
	entries := make([]models.ElementSnapshot, 0, len(snapshots))
	for _, el := range snapshots {
		if _, ok := MatchEntry(el); ok {
			entries = append(entries, el)
		}
	}
	return entries
}
