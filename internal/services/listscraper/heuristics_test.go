package listscraper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/maplist/internal/models"
)

func visible(text string) models.ElementSnapshot {
	return models.ElementSnapshot{Text: text, Width: 200, Height: 40, InContainer: true}
}

func TestMatchEntry(t *testing.T) {
	tests := []struct {
		name     string
		el       models.ElementSnapshot
		wantRule string
		wantOK   bool
	}{
		{"rating with count", visible("Joe's Pizza 4.5 (120)"), "rating-with-count", true},
		{"rating with grouped count", visible("Blue Bottle Coffee 4.7 (1,204) · Cafe"), "rating-with-count", true},
		{"rating without closing count", visible("Corner Bakery 4.2 (no reviews"), "rating", true},
		{"rating glyph", visible("Tartine ★★★★ bakery"), "rating-glyph", true},
		{"titled text by words", visible("Golden Gate Park"), "titled-text", true},
		{"titled text by length", visible("Alcatrazisland!!"), "titled-text", true},
		{"tab label", visible("Photos"), "", false},
		{"action label", visible("Directions"), "", false},
		{"numeric only", visible("123456 7890"), "", false},
		{"short text", visible("123456"), "", false},
		{"date", visible("12/03/2024 Visited"), "", false},
		{"lowercase only", visible("just some lowercase words"), "", false},
		{"zero size", models.ElementSnapshot{Text: "Joe's Pizza 4.5 (120)", InContainer: true}, "", false},
		{"outside container", models.ElementSnapshot{Text: "Joe's Pizza 4.5 (120)", Width: 10, Height: 10}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := MatchEntry(tt.el)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestClassifyPreservesOrder(t *testing.T) {
	snapshots := []models.ElementSnapshot{
		{Ref: 1, Text: "Overview", Width: 1, Height: 1, InContainer: true},
		{Ref: 2, Text: "Joe's Pizza 4.5 (120)", Width: 1, Height: 1, InContainer: true},
		{Ref: 3, Text: "Share", Width: 1, Height: 1, InContainer: true},
		{Ref: 4, Text: "Golden Gate Park", Width: 1, Height: 1, InContainer: true},
	}

	entries := Classify(snapshots)

	if assert.Len(t, entries, 2) {
		assert.Equal(t, 2, entries[0].Ref)
		assert.Equal(t, 4, entries[1].Ref)
	}
}
