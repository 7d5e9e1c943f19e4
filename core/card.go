package core

import (
	"context"
	"strings"
)

// ColumnNames is the fixed storage layout of one card row. Every backend
// reads and writes rows in exactly this order, header row included.
var ColumnNames = []string{
	"id", "text", "mood", "style", "header",
	"fragment0", "fragment1", "fragment2",
	"x", "y", "r", "createdAt",
}

type (
	// Card represents one mood entry pinned to the shared board.
	Card struct {
		ID        string   `json:"id"`
		Text      string   `json:"text"`
		Mood      int      `json:"mood"`
		Style     string   `json:"style"`
		Header    string   `json:"header"`
		Fragments []string `json:"fragments"`
		X         float64  `json:"x"`
		Y         float64  `json:"y"`
		R         float64  `json:"r"`
		CreatedAt string   `json:"createdAt"`
	}

	// RowStore is the four-operation contract every backend implements.
	// ListRows returns the full grid including the header row; the index
	// arguments of UpdateRow and DeleteRow address that listing. Indices are
	// positional, not identity-stable: a delete shifts every following row up
	// by one, so callers must rescan before the next indexed mutation.
	RowStore interface {
		ListRows(ctx context.Context) ([][]string, error)
		AppendRow(ctx context.Context, fields []string) error
		UpdateRow(ctx context.Context, index int, fields []string) error
		DeleteRow(ctx context.Context, index int) error
	}
)

// ImageSrc reassembles the full image source for the rendering layer. Empty
// when the card carries no image; the renderer substitutes a placeholder.
func (c *Card) ImageSrc() string {
	if len(c.Fragments) == 0 {
		return ""
	}
	return c.Header + strings.Join(c.Fragments, "")
}
