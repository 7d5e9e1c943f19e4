package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"moodboard/core"
)

// fakeRowStore is an in-memory grid that counts calls, so tests can assert
// which operations actually reached the store.
type fakeRowStore struct {
	rows [][]string

	listCalls   int
	appendCalls int
	updateCalls int
	deleteCalls int

	listErr   error
	appendErr error
}

func newFakeRowStore() *fakeRowStore {
	return &fakeRowStore{rows: [][]string{append([]string(nil), core.ColumnNames...)}}
}

func (f *fakeRowStore) ListRows(ctx context.Context) ([][]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	rows := make([][]string, len(f.rows))
	copy(rows, f.rows)
	return rows, nil
}

func (f *fakeRowStore) AppendRow(ctx context.Context, fields []string) error {
	f.appendCalls++
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, fields)
	return nil
}

func (f *fakeRowStore) UpdateRow(ctx context.Context, index int, fields []string) error {
	f.updateCalls++
	if index < 0 || index >= len(f.rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	f.rows[index] = fields
	return nil
}

func (f *fakeRowStore) DeleteRow(ctx context.Context, index int) error {
	f.deleteCalls++
	if index < 0 || index >= len(f.rows) {
		return fmt.Errorf("row index %d out of range", index)
	}
	f.rows = append(f.rows[:index], f.rows[index+1:]...)
	return nil
}

func (f *fakeRowStore) mutations() int {
	return f.appendCalls + f.updateCalls + f.deleteCalls
}

func newTestService(store core.RowStore, maxCards, maxImageKB int) *Service {
	return NewService(store, Config{MaxCards: maxCards, MaxImageKB: maxImageKB})
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	card, err := service.Create(context.Background(), CreateInput{Text: "hi", Mood: 3, X: 5, Y: 6, R: 7})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if card.ID == "" {
		t.Error("Card ID was not assigned")
	}
	if card.CreatedAt == "" {
		t.Error("CreatedAt was not assigned")
	}
	if store.appendCalls != 1 {
		t.Errorf("Append calls mismatch: got %d, want 1", store.appendCalls)
	}
}

func TestCreateKeepsClientID(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	card, err := service.Create(context.Background(), CreateInput{ID: "1756116000000", Mood: 5})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if card.ID != "1756116000000" {
		t.Errorf("ID mismatch: got %q, want client-generated id", card.ID)
	}
}

func TestCreateRejectsLongTextWithoutStoreAccess(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	_, err := service.Create(context.Background(), CreateInput{Text: strings.Repeat("a", 501)})
	if !errors.Is(err, core.ErrTextTooLong) {
		t.Fatalf("Error mismatch: got %v, want ErrTextTooLong", err)
	}
	if store.listCalls != 0 || store.mutations() != 0 {
		t.Error("Validation failure must not contact the store")
	}
}

func TestCreateAcceptsTextAtLimit(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	if _, err := service.Create(context.Background(), CreateInput{Text: strings.Repeat("a", 500)}); err != nil {
		t.Fatalf("Create failed at the 500 character boundary: %v", err)
	}
}

func TestCreateCapacityBoundary(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 3, 300)

	// Fill to MAX_CARDS-1: the next create is the MAX_CARDS-th card and
	// must succeed.
	for i := 0; i < 2; i++ {
		if _, err := service.Create(context.Background(), CreateInput{Text: fmt.Sprintf("card %d", i)}); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}
	if _, err := service.Create(context.Background(), CreateInput{Text: "last one in"}); err != nil {
		t.Fatalf("Creating the final card should succeed: %v", err)
	}

	appendsBefore := store.appendCalls
	_, err := service.Create(context.Background(), CreateInput{Text: "over capacity"})
	if !errors.Is(err, core.ErrBoardFull) {
		t.Fatalf("Error mismatch: got %v, want ErrBoardFull", err)
	}
	if store.appendCalls != appendsBefore {
		t.Error("Rejected create must not append")
	}
}

func TestCreateCapacityIgnoresInvalidRows(t *testing.T) {
	store := newFakeRowStore()
	store.rows = append(store.rows, []string{""}, []string{"id", "text"})
	service := newTestService(store, 1, 300)

	if _, err := service.Create(context.Background(), CreateInput{Text: "fits"}); err != nil {
		t.Fatalf("Header and empty rows must not count against capacity: %v", err)
	}
}

func TestCreateImageEstimateBoundary(t *testing.T) {
	// budget = 15 KiB = 15360 bytes; limit = 16896 bytes; the estimate is
	// chars * 0.75, so 22528 base64 chars sit exactly on the limit.
	store := newFakeRowStore()
	service := newTestService(store, 10, 15)

	atLimit := CreateInput{Fragments: []string{strings.Repeat("A", 22528)}}
	if _, err := service.Create(context.Background(), atLimit); err != nil {
		t.Fatalf("Estimate exactly at budget*1.1 must be accepted: %v", err)
	}

	overLimit := CreateInput{Fragments: []string{strings.Repeat("A", 22532)}}
	_, err := service.Create(context.Background(), overLimit)
	if !errors.Is(err, core.ErrImageTooLarge) {
		t.Fatalf("Error mismatch: got %v, want ErrImageTooLarge", err)
	}
}

func TestCreateCoercesMoodIntoRange(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	for _, mood := range []int{-1, 0, 6, 99} {
		card, err := service.Create(context.Background(), CreateInput{Mood: mood})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if card.Mood != 1 {
			t.Errorf("Mood %d should coerce to 1, got %d", mood, card.Mood)
		}
	}
}

func TestListMapsAndFiltersRows(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	for _, text := range []string{"one", "two"} {
		if _, err := service.Create(context.Background(), CreateInput{Text: text, Mood: 2}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	cards, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Card count mismatch: got %d, want 2", len(cards))
	}
	if cards[0].Text != "one" || cards[1].Text != "two" {
		t.Errorf("Card order mismatch: got %q, %q", cards[0].Text, cards[1].Text)
	}
}

func TestListDegradesToEmptyOnReadFailure(t *testing.T) {
	store := newFakeRowStore()
	store.listErr = errors.New("network down")
	service := newTestService(store, 10, 300)

	cards, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("List must degrade, not fail: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("Expected empty board, got %d cards", len(cards))
	}
}

func TestUpdatePositionChangesOnlyCoordinates(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	created, err := service.Create(context.Background(), CreateInput{
		Text: "movable", Mood: 4, Style: "polaroid",
		Header: "data:image/jpeg;base64,", Fragments: []string{"AA", "BB", "CC"},
		X: 1, Y: 2, R: 3,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := service.UpdatePosition(context.Background(), created.ID, 10, 20, -5)
	if err != nil {
		t.Fatalf("UpdatePosition failed: %v", err)
	}
	if updated.X != 10 || updated.Y != 20 || updated.R != -5 {
		t.Errorf("Position mismatch: got %v/%v/%v", updated.X, updated.Y, updated.R)
	}

	cards, _ := service.List(context.Background())
	if len(cards) != 1 {
		t.Fatalf("Card count mismatch: got %d, want 1", len(cards))
	}
	got := cards[0]
	if got.Text != "movable" || got.Mood != 4 || got.Style != "polaroid" {
		t.Errorf("Non-position fields changed: %+v", got)
	}
	if len(got.Fragments) != 3 {
		t.Errorf("Fragments changed: %v", got.Fragments)
	}
	if got.X != 10 || got.Y != 20 || got.R != -5 {
		t.Errorf("Stored position mismatch: got %v/%v/%v", got.X, got.Y, got.R)
	}
}

func TestUpdatePositionNotFound(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	_, err := service.UpdatePosition(context.Background(), "ghost", 1, 2, 3)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Error mismatch: got %v, want ErrNotFound", err)
	}
	if store.mutations() != 0 {
		t.Error("Missing card must not mutate the store")
	}
}

func TestDeleteNotFoundPerformsNoMutation(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	if _, err := service.Create(context.Background(), CreateInput{Text: "keep me"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mutationsBefore := store.mutations()

	err := service.Delete(context.Background(), "ghost")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Error mismatch: got %v, want ErrNotFound", err)
	}
	if store.mutations() != mutationsBefore {
		t.Error("Missing card must not mutate the store")
	}
}

// Delete "a", then move "b": the second operation must resolve b's new row
// index after the compaction.
func TestDeleteThenUpdateScenario(t *testing.T) {
	store := newFakeRowStore()
	service := newTestService(store, 10, 300)

	for _, id := range []string{"a", "b"} {
		if _, err := service.Create(context.Background(), CreateInput{ID: id, Text: "card " + id}); err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}

	if err := service.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := service.UpdatePosition(context.Background(), "b", 10, 20, 0); err != nil {
		t.Fatalf("UpdatePosition after delete failed: %v", err)
	}

	cards, _ := service.List(context.Background())
	if len(cards) != 1 {
		t.Fatalf("Card count mismatch: got %d, want 1", len(cards))
	}
	if cards[0].ID != "b" {
		t.Errorf("Remaining card mismatch: got %q, want b", cards[0].ID)
	}
	if cards[0].X != 10 || cards[0].Y != 20 || cards[0].R != 0 {
		t.Errorf("Position mismatch: got %v/%v/%v", cards[0].X, cards[0].Y, cards[0].R)
	}
}

func TestWritePathsSurfaceStorageUnavailable(t *testing.T) {
	store := newFakeRowStore()
	store.listErr = core.ErrStorageUnavailable
	service := newTestService(store, 10, 300)

	if _, err := service.Create(context.Background(), CreateInput{Text: "hi"}); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("Create error mismatch: got %v, want ErrStorageUnavailable", err)
	}
	if _, err := service.UpdatePosition(context.Background(), "x", 0, 0, 0); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("UpdatePosition error mismatch: got %v, want ErrStorageUnavailable", err)
	}
	if err := service.Delete(context.Background(), "x"); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("Delete error mismatch: got %v, want ErrStorageUnavailable", err)
	}
}
