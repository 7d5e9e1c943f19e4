package memory

import (
	"context"
	"fmt"
	"sync"

	"moodboard/core"

	"github.com/sirupsen/logrus"
)

// memStore keeps the full grid in process memory, header row included. It is
// the default backend and the one the tests exercise the service against.
type memStore struct {
	mu   sync.RWMutex
	rows [][]string
}

// NewStore creates a new in-memory store seeded with the header row.
func NewStore() *memStore {
	return &memStore{
		rows: [][]string{append([]string(nil), core.ColumnNames...)},
	}
}

func (s *memStore) ListRows(ctx context.Context) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([][]string, len(s.rows))
	for i, row := range s.rows {
		rows[i] = append([]string(nil), row...)
	}
	return rows, nil
}

func (s *memStore) AppendRow(ctx context.Context, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, append([]string(nil), fields...))
	logrus.WithField("rows", len(s.rows)).Debug("Row appended")
	return nil
}

func (s *memStore) UpdateRow(ctx context.Context, index int, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	s.rows[index] = append([]string(nil), fields...)
	return nil
}

func (s *memStore) DeleteRow(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	s.rows = append(s.rows[:index], s.rows[index+1:]...)
	return nil
}
