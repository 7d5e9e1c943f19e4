package filesystem

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"moodboard/core"

	"github.com/sirupsen/logrus"
)

// fsStore keeps the whole board in one CSV file, header line first. Appends
// extend the file; indexed mutations rewrite it. A mutex serializes access
// within the process; the file itself is the board, so it is human-editable
// with any spreadsheet tool.
type fsStore struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a new CSV-file-based store, seeding the header row when
// the file does not exist yet.
func NewStore(path string) *fsStore {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("failed to create storage directory: %v", err)
	}
	s := &fsStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write([][]string{core.ColumnNames}); err != nil {
			log.Fatalf("failed to seed board file: %v", err)
		}
		logrus.WithField("path", path).Info("Created new board file")
	}
	return s
}

func (s *fsStore) ListRows(ctx context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *fsStore) AppendRow(ctx context.Context, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read()
	if err != nil {
		return err
	}
	return s.write(append(rows, fields))
}

func (s *fsStore) UpdateRow(ctx context.Context, index int, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	rows[index] = fields
	return s.write(rows)
}

func (s *fsStore) DeleteRow(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	rows = append(rows[:index], rows[index+1:]...)
	return s.write(rows)
}

func (s *fsStore) read() ([][]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read board file: %w", err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse board file: %w", err)
	}
	return rows, nil
}

// write rewrites the file via a temp file and rename, so a crash mid-write
// never leaves a truncated board behind.
func (s *fsStore) write(rows [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("encode board file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write board file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace board file: %w", err)
	}
	return nil
}
