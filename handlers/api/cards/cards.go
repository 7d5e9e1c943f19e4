package cards

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"moodboard/board"
	"moodboard/core"
	"moodboard/imagepipe"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	// CardService is the slice of the board service the handlers need.
	CardService interface {
		Create(ctx context.Context, in board.CreateInput) (*core.Card, error)
		List(ctx context.Context) ([]*core.Card, error)
		UpdatePosition(ctx context.Context, id string, x, y, r float64) (*core.Card, error)
		Delete(ctx context.Context, id string) error
	}

	PositionRequest struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		R float64 `json:"r"`
	}

	// CardResponse is a stored card plus the reassembled image source the
	// rendering layer consumes directly.
	CardResponse struct {
		*core.Card
		Src string `json:"src"`
	}

	EncodeImageResponse struct {
		Header    string   `json:"header"`
		Fragments []string `json:"fragments"`
	}
)

func toResponse(card *core.Card) CardResponse {
	return CardResponse{Card: card, Src: card.ImageSrc()}
}

// HandleListCards returns every card on the board. An empty board is an
// empty array, never null.
func HandleListCards(service CardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := service.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list cards")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list cards"})
			return
		}

		responses := make([]CardResponse, 0, len(cards))
		for _, card := range cards {
			responses = append(responses, toResponse(card))
		}
		render.JSON(w, r, responses)
	}
}

// HandleCreateCard stores a new card and returns it with its assigned id
// and creation time.
func HandleCreateCard(service CardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in board.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		card, err := service.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err, "Failed to create card")
			return
		}

		render.JSON(w, r, toResponse(card))
	}
}

// HandleEncodeImage runs the ingestion pipeline on an uploaded file: fit,
// recompress under the byte budget, base64, split into the three storage
// fragments. The client sends the result back verbatim on card create.
func HandleEncodeImage(budget int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("image")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "image file is required"})
			return
		}
		defer file.Close()

		encoded, err := imagepipe.Encode(file, budget)
		if err != nil {
			if errors.Is(err, imagepipe.ErrSizeExceeded) {
				render.Status(r, http.StatusRequestEntityTooLarge)
				render.JSON(w, r, map[string]string{"error": imagepipe.ErrSizeExceeded.Error()})
				return
			}
			logrus.WithError(err).Warn("Failed to encode uploaded image")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "could not decode image"})
			return
		}

		render.JSON(w, r, EncodeImageResponse{
			Header:    encoded.Header,
			Fragments: imagepipe.Split(encoded.Body, imagepipe.FragmentCount),
		})
	}
}

// HandleUpdatePosition moves a card after a drag; only x, y and r change.
func HandleUpdatePosition(service CardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Card id is required"})
			return
		}

		var req PositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		card, err := service.UpdatePosition(r.Context(), id, req.X, req.Y, req.R)
		if err != nil {
			writeServiceError(w, r, err, "Failed to update card position")
			return
		}

		render.JSON(w, r, toResponse(card))
	}
}

// HandleDeleteCard removes a card by id.
func HandleDeleteCard(service CardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Card id is required"})
			return
		}

		if err := service.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, err, "Failed to delete card")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// writeServiceError maps the service's sentinel errors to their statuses;
// anything unrecognized is a transport failure and stays generic.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, core.ErrTextTooLong):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": core.ErrTextTooLong.Error()})
	case errors.Is(err, core.ErrBoardFull):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]string{"error": core.ErrBoardFull.Error()})
	case errors.Is(err, core.ErrImageTooLarge):
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, map[string]string{"error": core.ErrImageTooLarge.Error()})
	case errors.Is(err, core.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": core.ErrNotFound.Error()})
	case errors.Is(err, core.ErrStorageUnavailable):
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"error": core.ErrStorageUnavailable.Error()})
	default:
		logrus.WithError(err).Error(msg)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": msg})
	}
}
