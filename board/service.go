package board

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"moodboard/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const maxTextLength = 500

// sizeTolerance is the slack allowed over the image byte budget at write
// time; the estimate from base64 lengths is approximate.
const sizeTolerance = 1.1

type (
	// Config carries the two operational limits of a board.
	Config struct {
		MaxCards   int
		MaxImageKB int
	}

	// CreateInput is a card as submitted by a client, before the service
	// assigns identity and creation time.
	CreateInput struct {
		ID        string   `json:"id"`
		Text      string   `json:"text"`
		Mood      int      `json:"mood"`
		Style     string   `json:"style"`
		Header    string   `json:"header"`
		Fragments []string `json:"fragments"`
		X         float64  `json:"x"`
		Y         float64  `json:"y"`
		R         float64  `json:"r"`
	}

	// Service orchestrates card operations over a RowStore. It is stateless
	// between requests; every operation that needs row positions rescans the
	// store, because indices do not survive concurrent mutations.
	Service struct {
		store       core.RowStore
		maxCards    int
		imageBudget int64
	}
)

func NewService(store core.RowStore, cfg Config) *Service {
	if cfg.MaxCards < 1 {
		cfg.MaxCards = 1
	}
	if cfg.MaxImageKB < 1 {
		cfg.MaxImageKB = 1
	}
	return &Service{
		store:       store,
		maxCards:    cfg.MaxCards,
		imageBudget: int64(cfg.MaxImageKB) * 1024,
	}
}

// ImageBudget is the configured image byte budget, exposed for the ingestion
// endpoint so upload and create enforce the same limit.
func (s *Service) ImageBudget() int64 {
	return s.imageBudget
}

// Create validates and stores a new card. Validation happens before any
// store access; the capacity check and the append are not atomic with
// respect to concurrent writers, so racing creates can transiently exceed
// the maximum.
func (s *Service) Create(ctx context.Context, in CreateInput) (*core.Card, error) {
	if utf8.RuneCountInString(in.Text) > maxTextLength {
		return nil, core.ErrTextTooLong
	}

	cards, _, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(cards) >= s.maxCards {
		return nil, fmt.Errorf("%w (%d cards, max %d)", core.ErrBoardFull, len(cards), s.maxCards)
	}

	if err := s.checkImageEstimate(in.Fragments); err != nil {
		return nil, err
	}

	card := &core.Card{
		ID:        in.ID,
		Text:      in.Text,
		Mood:      in.Mood,
		Style:     in.Style,
		Header:    in.Header,
		Fragments: in.Fragments,
		X:         in.X,
		Y:         in.Y,
		R:         in.R,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if card.ID == "" {
		card.ID = ulid.Make().String()
	}
	if card.Mood < 1 || card.Mood > 5 {
		card.Mood = 1
	}

	if err := s.store.AppendRow(ctx, ToRow(card)); err != nil {
		return nil, fmt.Errorf("append card: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"card_id": card.ID,
		"mood":    card.Mood,
		"image":   len(card.Fragments) > 0,
	}).Info("Card created")
	return card, nil
}

// List returns every valid card on the board. Read failures degrade to an
// empty board: the failure is logged and the client sees nothing rather
// than an error.
func (s *Service) List(ctx context.Context) ([]*core.Card, error) {
	rows, err := s.store.ListRows(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to list rows, returning empty board")
		return []*core.Card{}, nil
	}
	cards := make([]*core.Card, 0, len(rows))
	for _, row := range rows {
		if card := FromRow(row); card != nil {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// UpdatePosition moves a card after a drag: only x, y and r change, every
// other field is carried over from the stored card. The row index is
// resolved by a fresh scan immediately before the write.
func (s *Service) UpdatePosition(ctx context.Context, id string, x, y, r float64) (*core.Card, error) {
	card, index, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	card.X = x
	card.Y = y
	card.R = r
	if err := s.store.UpdateRow(ctx, index, ToRow(card)); err != nil {
		return nil, fmt.Errorf("update card %s: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{
		"card_id": id,
		"x":       x,
		"y":       y,
		"r":       r,
	}).Debug("Card position updated")
	return card, nil
}

// Delete removes a card by id and compacts the store's row list. There is
// no tombstone; all following rows shift up by one.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, index, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRow(ctx, index); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	logrus.WithField("card_id", id).Info("Card deleted")
	return nil
}

// scan lists the raw grid and maps it, keeping the raw listing so callers
// can translate a card back to its row index. Unlike List, errors propagate:
// a mutation must not proceed on a failed read.
func (s *Service) scan(ctx context.Context) ([]*core.Card, [][]string, error) {
	rows, err := s.store.ListRows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list rows: %w", err)
	}
	cards := make([]*core.Card, 0, len(rows))
	for _, row := range rows {
		if card := FromRow(row); card != nil {
			cards = append(cards, card)
		}
	}
	return cards, rows, nil
}

// locate finds the first row holding id and returns the mapped card with
// the row's index in the current listing.
func (s *Service) locate(ctx context.Context, id string) (*core.Card, int, error) {
	_, rows, err := s.scan(ctx)
	if err != nil {
		return nil, 0, err
	}
	for i, row := range rows {
		card := FromRow(row)
		if card != nil && card.ID == id {
			return card, i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", core.ErrNotFound, id)
}

// checkImageEstimate bounds the decoded image size from the base64 fragment
// lengths (bytes ≈ chars × 0.75). Exactly at budget × tolerance is accepted.
func (s *Service) checkImageEstimate(fragments []string) error {
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	if total == 0 {
		return nil
	}
	estimated := float64(total) * 0.75
	limit := float64(s.imageBudget) * sizeTolerance
	if estimated > limit {
		return fmt.Errorf("%w (estimated %.0f bytes, limit %.0f)", core.ErrImageTooLarge, estimated, limit)
	}
	return nil
}
