package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"moodboard/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// sqliteStore persists the grid in a positional rows table. The pos column
// only orders rows; row addressing stays positional like every other
// backend, so the i-th row of ListRows is the i-th row by pos.
type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store and seeds the header row.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	tableStmt := `CREATE TABLE IF NOT EXISTS board_rows (pos INTEGER PRIMARY KEY, fields TEXT NOT NULL);`
	if _, err = db.Exec(tableStmt); err != nil {
		log.Fatalf("failed to create board_rows table: %v", err)
	}

	header, err := json.Marshal(core.ColumnNames)
	if err != nil {
		log.Fatalf("failed to marshal header row: %v", err)
	}
	seedStmt := `INSERT INTO board_rows (pos, fields) SELECT 0, ? WHERE NOT EXISTS (SELECT 1 FROM board_rows);`
	if _, err = db.Exec(seedStmt, string(header)); err != nil {
		log.Fatalf("failed to seed header row: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) ListRows(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT fields FROM board_rows ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grid [][]string
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, err
		}
		var fields []string
		if err := json.Unmarshal([]byte(encoded), &fields); err != nil {
			logrus.WithError(err).Warn("Skipping undecodable row")
			continue
		}
		grid = append(grid, fields)
	}
	return grid, rows.Err()
}

func (s *sqliteStore) AppendRow(ctx context.Context, fields []string) error {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO board_rows (pos, fields) VALUES ((SELECT COALESCE(MAX(pos), -1) + 1 FROM board_rows), ?)",
		string(encoded))
	if err != nil {
		logrus.WithError(err).Error("Failed to append row")
		return err
	}
	return nil
}

func (s *sqliteStore) UpdateRow(ctx context.Context, index int, fields []string) error {
	pos, err := s.posAt(ctx, index)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "UPDATE board_rows SET fields = ? WHERE pos = ?", string(encoded), pos)
	return err
}

func (s *sqliteStore) DeleteRow(ctx context.Context, index int) error {
	pos, err := s.posAt(ctx, index)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM board_rows WHERE pos = ?", pos)
	return err
}

// posAt translates a listing index to the pos key of that row. Gaps left by
// deletes make the two differ, so the translation always queries.
func (s *sqliteStore) posAt(ctx context.Context, index int) (int64, error) {
	var pos int64
	err := s.db.QueryRowContext(ctx,
		"SELECT pos FROM board_rows ORDER BY pos LIMIT 1 OFFSET ?", index).Scan(&pos)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("row index %d out of range", index)
		}
		return 0, err
	}
	return pos, nil
}
