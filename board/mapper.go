// Package board implements the card service and the mapping between cards
// and the flat 12-column rows the backing stores persist.
package board

import (
	"strconv"
	"strings"

	"moodboard/core"
	"moodboard/imagepipe"
)

// ToRow flattens a card into the fixed storage layout: id, text, mood, style,
// header, fragment0..2, x, y, r, createdAt. Absent optional fields become
// empty strings, never nulls. Card text is neutralized against formula
// injection on the way in; the transform is one-directional.
func ToRow(c *core.Card) []string {
	fragments := [imagepipe.FragmentCount]string{}
	for i := 0; i < len(c.Fragments) && i < imagepipe.FragmentCount; i++ {
		fragments[i] = c.Fragments[i]
	}
	return []string{
		c.ID,
		escapeFormula(c.Text),
		strconv.Itoa(c.Mood),
		c.Style,
		c.Header,
		fragments[0],
		fragments[1],
		fragments[2],
		formatCoord(c.X),
		formatCoord(c.Y),
		formatCoord(c.R),
		c.CreatedAt,
	}
}

// FromRow maps one stored row back to a card. It returns nil for the header
// row (first field exactly "id" or "ID") and for empty or absent rows;
// callers use the nil to filter, not as a failure. Numeric fields parse
// leniently: unparseable mood becomes 1, unparseable coordinates become 0.
// Fragments are the non-empty fragment cells in order, so a legitimately
// empty middle fragment loses its position on reload. The stores never
// produce one today because Split only leaves trailing fragments empty.
func FromRow(fields []string) *core.Card {
	if len(fields) == 0 {
		return nil
	}
	id := at(fields, 0)
	if id == "" || id == "id" || id == "ID" {
		return nil
	}

	var fragments []string
	for i := 5; i <= 7; i++ {
		if f := at(fields, i); f != "" {
			fragments = append(fragments, f)
		}
	}

	return &core.Card{
		ID:        id,
		Text:      at(fields, 1),
		Mood:      parseMood(at(fields, 2)),
		Style:     at(fields, 3),
		Header:    at(fields, 4),
		Fragments: fragments,
		X:         parseCoord(at(fields, 8)),
		Y:         parseCoord(at(fields, 9)),
		R:         parseCoord(at(fields, 10)),
		CreatedAt: at(fields, 11),
	}
}

// at tolerates short rows: spreadsheet reads trim trailing empty cells.
func at(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

func parseMood(s string) int {
	mood, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return mood
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeFormula prefixes text that a spreadsheet formula engine would
// otherwise evaluate. The neutralizer stays in the stored text and is not
// stripped on read.
func escapeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
