package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/domain/explore"
	"github.com/matiasleandrokruk/explorer/internal/domain/history"
	"github.com/matiasleandrokruk/explorer/internal/domain/normalize"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
)

// Explorer is the slice of explore.Service the handlers call.
type Explorer interface {
	Search(ctx context.Context, req explore.SearchRequest) ([]normalize.SearchRecord, error)
	GenerateImage(ctx context.Context, req explore.ImageRequest) (normalize.ImageRecord, error)
}

// HistoryWriter persists results the caller asked to keep.
type HistoryWriter interface {
	SaveSearch(ctx context.Context, e history.SearchEntry) (*history.SearchEntry, error)
	SaveImage(ctx context.Context, e history.ImageEntry) (*history.ImageEntry, error)
}

// Request defaults.
const (
	defaultMaxResults = 10
	defaultDimension  = 512
	defaultSteps      = 20
)

// ExploreHandler serves POST /search and POST /image.
type ExploreHandler struct {
	explorer Explorer
	history  HistoryWriter
	logger   *zap.Logger
	now      func() time.Time
}

func NewExploreHandler(explorer Explorer, history HistoryWriter, logger *zap.Logger) *ExploreHandler {
	return &ExploreHandler{explorer: explorer, history: history, logger: logging.OrNop(logger), now: time.Now}
}

// SearchRequest is the body of POST /search. Omitted fields take their defaults.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results"`
	SaveResult *bool  `json:"save_result"`
}

// SearchResponse is returned by POST /search. ID is set only when the result was saved.
type SearchResponse struct {
	ID        *string                  `json:"id"`
	Query     string                   `json:"query"`
	Results   []normalize.SearchRecord `json:"results"`
	Timestamp time.Time                `json:"timestamp"`
	Saved     bool                     `json:"saved"`
}

// ImageRequest is the body of POST /image.
type ImageRequest struct {
	Prompt     string `json:"prompt"`
	Width      *int   `json:"width"`
	Height     *int   `json:"height"`
	Steps      *int   `json:"steps"`
	SaveResult *bool  `json:"save_result"`
}

// ImageResponse is returned by POST /image.
type ImageResponse struct {
	ID         *string                 `json:"id"`
	Prompt     string                  `json:"prompt"`
	ImageURL   *string                 `json:"image_url"`
	ImageData  *string                 `json:"image_data"`
	Status     normalize.ImageStatus   `json:"status"`
	Error      string                  `json:"error,omitempty"`
	Parameters history.ImageParameters `json:"parameters"`
	Timestamp  time.Time               `json:"timestamp"`
	Saved      bool                    `json:"saved"`
}

// Search handles POST /search.
//
// Provider failures are not HTTP errors: they come back as a single record
// carrying an "error" key. Only invalid input (400) and storage failures (500) are.
func (h *ExploreHandler) Search(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := explore.SearchRequest{Query: req.Query, MaxResults: intOr(req.MaxResults, defaultMaxResults)}
	records, err := h.explorer.Search(r.Context(), in)
	if err != nil {
		h.writeExploreError(w, err)
		return
	}

	resp := SearchResponse{
		Query:     in.Query,
		Results:   records,
		Timestamp: h.now().UTC(),
		Saved:     boolOr(req.SaveResult, true),
	}
	if resp.Saved {
		entry, err := h.history.SaveSearch(r.Context(), history.SearchEntry{
			UserID:     id.UserID,
			Query:      in.Query,
			Results:    records,
			MaxResults: in.MaxResults,
			Timestamp:  resp.Timestamp,
		})
		if err != nil {
			h.logger.Error("save search failed", zap.Error(err), zap.String("user_id", id.UserID))
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		resp.ID = &entry.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

// GenerateImage handles POST /image.
func (h *ExploreHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req ImageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := explore.ImageRequest{
		Prompt: req.Prompt,
		Width:  intOr(req.Width, defaultDimension),
		Height: intOr(req.Height, defaultDimension),
		Steps:  intOr(req.Steps, defaultSteps),
	}
	rec, err := h.explorer.GenerateImage(r.Context(), in)
	if err != nil {
		h.writeExploreError(w, err)
		return
	}

	resp := ImageResponse{
		Prompt:     in.Prompt,
		ImageURL:   nonEmpty(rec.ImageURL),
		ImageData:  nonEmpty(rec.ImageData),
		Status:     rec.Status,
		Error:      rec.Error,
		Parameters: history.ImageParameters{Width: in.Width, Height: in.Height, Steps: in.Steps},
		Timestamp:  h.now().UTC(),
		Saved:      boolOr(req.SaveResult, true),
	}
	if resp.Saved {
		entry, err := h.history.SaveImage(r.Context(), history.ImageEntry{
			UserID:     id.UserID,
			Prompt:     in.Prompt,
			ImageURL:   resp.ImageURL,
			ImageData:  resp.ImageData,
			Parameters: resp.Parameters,
			Timestamp:  resp.Timestamp,
		})
		if err != nil {
			h.logger.Error("save image failed", zap.Error(err), zap.String("user_id", id.UserID))
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		resp.ID = &entry.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ExploreHandler) writeExploreError(w http.ResponseWriter, err error) {
	if sentinel := validationError(err); sentinel != nil {
		h.logger.Debug("explore request rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, sentinel.Error())
		return
	}
	h.logger.Error("explore request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// validationError returns the input-validation sentinel err wraps, or nil.
// Clients get the sentinel text; the offending value only goes to the log.
func validationError(err error) error {
	for _, target := range []error{
		explore.ErrInvalidQuery,
		explore.ErrInvalidMaxResults,
		explore.ErrInvalidPrompt,
		explore.ErrInvalidDimensions,
		explore.ErrInvalidSteps,
	} {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
