package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports database health. sqlite.Healthy wrapped in a closure satisfies it.
type Pinger func(ctx context.Context) bool

// HealthHandler serves GET / and GET /health. Neither requires authentication.
type HealthHandler struct {
	version string
	mode    string
	ping    Pinger
	now     func() time.Time
}

// NewHealthHandler takes the binary version and the provider mode ("live" or "fallback").
func NewHealthHandler(version, mode string, ping Pinger) *HealthHandler {
	return &HealthHandler{version: version, mode: mode, ping: ping, now: time.Now}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Database     string    `json:"database"`
	Mode         string    `json:"mode"`
	MCPAvailable bool      `json:"mcp_available"`
}

// Health always answers 200; a failing database is reported in the body.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	db := "healthy"
	if h.ping == nil || !h.ping(ctx) {
		db = "unavailable"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Timestamp:    h.now().UTC(),
		Version:      h.version,
		Database:     db,
		Mode:         h.mode,
		MCPAvailable: h.mode == "live",
	})
}

// Root describes the API.
func (h *HealthHandler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "AI Content Explorer",
		"version":     h.version,
		"description": "Platform for AI-powered search and image generation",
		"endpoints": map[string]string{
			"authentication": "/auth/*",
			"search":         "/search",
			"images":         "/image",
			"dashboard":      "/dashboard",
			"admin":          "/admin/* (admin only)",
			"health":         "/health",
			"metrics":        "/metrics",
		},
		"features": []string{
			"JWT authentication with role-based access",
			"Web search through a remote tool provider",
			"AI image generation through a remote tool provider",
			"Personal dashboard and history",
			"Audit trail of authenticated requests",
		},
	})
}
