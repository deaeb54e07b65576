package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/domain/history"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
)

// HistoryReader is what the dashboard reads and deletes.
type HistoryReader interface {
	RecentSearches(ctx context.Context, userID string, limit int) ([]*history.SearchEntry, error)
	RecentImages(ctx context.Context, userID string, limit int) ([]*history.ImageEntry, error)
	UserStats(ctx context.Context, userID string, today time.Time) (*history.UserStats, error)
	DeleteSearch(ctx context.Context, userID, id string) error
	DeleteImage(ctx context.Context, userID, id string) error
}

// UserGetter loads the caller's account.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*domainauth.User, error)
}

// DashboardHandler serves the per-user dashboard and history deletion.
type DashboardHandler struct {
	history HistoryReader
	users   UserGetter
	logger  *zap.Logger
	now     func() time.Time
}

func NewDashboardHandler(h HistoryReader, users UserGetter, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{history: h, users: users, logger: logging.OrNop(logger), now: time.Now}
}

// DashboardStats is history.UserStats plus the account creation time.
type DashboardStats struct {
	history.UserStats
	MemberSince time.Time `json:"member_since"`
}

// DashboardResponse is the body of GET /dashboard.
type DashboardResponse struct {
	Stats          DashboardStats         `json:"stats"`
	RecentSearches []*history.SearchEntry `json:"recent_searches"`
	RecentImages   []*history.ImageEntry  `json:"recent_images"`
}

// Get handles GET /dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	user, err := h.users.GetUser(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domainauth.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		h.fail(w, "load user", err)
		return
	}
	stats, err := h.history.UserStats(ctx, id.UserID, h.now())
	if err != nil {
		h.fail(w, "user stats", err)
		return
	}
	searches, err := h.history.RecentSearches(ctx, id.UserID, history.RecentLimit)
	if err != nil {
		h.fail(w, "recent searches", err)
		return
	}
	images, err := h.history.RecentImages(ctx, id.UserID, history.RecentLimit)
	if err != nil {
		h.fail(w, "recent images", err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		Stats:          DashboardStats{UserStats: *stats, MemberSince: user.CreatedAt},
		RecentSearches: searches,
		RecentImages:   images,
	})
}

// DeleteSearch handles DELETE /dashboard/search/{id}.
func (h *DashboardHandler) DeleteSearch(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.history.DeleteSearch, "Search entry")
}

// DeleteImage handles DELETE /dashboard/image/{id}.
func (h *DashboardHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.history.DeleteImage, "Image entry")
}

func (h *DashboardHandler) delete(w http.ResponseWriter, r *http.Request, del func(context.Context, string, string) error, noun string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if err := del(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, noun+" not found")
			return
		}
		h.fail(w, "delete "+noun, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": noun + " deleted successfully"})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("dashboard: "+what, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}
