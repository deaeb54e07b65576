package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	domainaudit "github.com/matiasleandrokruk/explorer/internal/domain/audit"
	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/domain/history"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
)

// AdminStore is the system-wide view used by the admin routes.
type AdminStore interface {
	ListUsers(ctx context.Context) ([]*domainauth.User, error)
	SystemStats(ctx context.Context, today time.Time) (*history.SystemStats, error)
}

// AuditReader lists the audit trail.
type AuditReader interface {
	ListRecent(ctx context.Context, limit, offset int) ([]*domainaudit.AuditEvent, int, error)
}

// AdminHandler serves /admin/*. The router gates it with RequireAdmin.
type AdminHandler struct {
	store  AdminStore
	audit  AuditReader
	logger *zap.Logger
	now    func() time.Time
}

func NewAdminHandler(store AdminStore, audit AuditReader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, audit: audit, logger: logging.OrNop(logger), now: time.Now}
}

// AuditPage is the body of GET /admin/audit.
type AuditPage struct {
	Events []*domainaudit.AuditEvent `json:"events"`
	Total  int                       `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	if users == nil {
		users = []*domainauth.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.SystemStats(r.Context(), h.now())
	if err != nil {
		h.fail(w, "system stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Audit handles GET /admin/audit?limit=&offset=.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)
	events, total, err := h.audit.ListRecent(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, "list audit events", err)
		return
	}
	writeJSON(w, http.StatusOK, AuditPage{Events: events, Total: total, Limit: page.Limit, Offset: page.Offset})
}

func (h *AdminHandler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("admin: "+what, zap.Error(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}
