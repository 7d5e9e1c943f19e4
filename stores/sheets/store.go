package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// columnRange spans the 12 columns of the card row layout.
const columnRange = "A:L"

// sheetStore persists board rows in the first worksheet of a Google
// spreadsheet. The worksheet title and numeric sheet id are resolved once on
// first use and memoized for the process lifetime; renaming the worksheet
// requires a restart.
type sheetStore struct {
	svc           *gsheets.Service
	spreadsheetID string

	metaOnce sync.Once
	metaErr  error
	title    string
	sheetID  int64
}

// NewStore builds a Sheets-backed store using Application Default
// Credentials. A missing credential source fails here, once, so the factory
// can degrade instead of every call erroring later.
func NewStore(spreadsheetID string) (*sheetStore, error) {
	ctx := context.Background()
	creds, err := google.FindDefaultCredentials(ctx, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("find default credentials: %w", err)
	}

	svc, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &sheetStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
	}, nil
}

// meta resolves the first worksheet's title and sheet id, exactly once.
func (s *sheetStore) meta(ctx context.Context) (string, int64, error) {
	s.metaOnce.Do(func() {
		resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
			Fields("sheets(properties(sheetId,title))").
			Context(ctx).Do()
		if err != nil {
			s.metaErr = fmt.Errorf("fetch spreadsheet metadata: %w", err)
			return
		}
		if len(resp.Sheets) == 0 {
			s.metaErr = fmt.Errorf("spreadsheet %s has no worksheets", s.spreadsheetID)
			return
		}
		props := resp.Sheets[0].Properties
		s.title = props.Title
		s.sheetID = props.SheetId
		logrus.WithFields(logrus.Fields{
			"title":   s.title,
			"sheetId": s.sheetID,
		}).Info("Resolved worksheet metadata")
	})
	return s.title, s.sheetID, s.metaErr
}

// ListRows fetches the full grid, header row included. Trailing empty cells
// are trimmed by the API; the row mapper tolerates short rows.
func (s *sheetStore) ListRows(ctx context.Context) ([][]string, error) {
	title, _, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, title+"!"+columnRange).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, 0, len(values))
		for _, v := range values {
			row = append(row, fmt.Sprint(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow adds one row after the current grid. The backing API appends
// atomically, so concurrent appends both land, each on its own row.
func (s *sheetStore) AppendRow(ctx context.Context, fields []string) error {
	title, _, err := s.meta(ctx)
	if err != nil {
		return err
	}

	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, title+"!"+columnRange, valueRange(fields)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// UpdateRow overwrites the full logical row at index. The index addresses
// the listing ListRows returned (header at 0), which maps to the sheet's
// 1-indexed row addressing as index+1.
func (s *sheetStore) UpdateRow(ctx context.Context, index int, fields []string) error {
	title, _, err := s.meta(ctx)
	if err != nil {
		return err
	}

	rangeRef := fmt.Sprintf("%s!A%d:L%d", title, index+1, index+1)
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rangeRef, valueRange(fields)).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", index, err)
	}
	return nil
}

// DeleteRow removes one row; every following row shifts up by one, so any
// previously resolved index is stale afterwards.
func (s *sheetStore) DeleteRow(ctx context.Context, index int) error {
	_, sheetID, err := s.meta(ctx)
	if err != nil {
		return err
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(index),
					EndIndex:   int64(index + 1),
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", index, err)
	}
	return nil
}

func valueRange(fields []string) *gsheets.ValueRange {
	values := make([]interface{}, len(fields))
	for i, f := range fields {
		values[i] = f
	}
	return &gsheets.ValueRange{Values: [][]interface{}{values}}
}
