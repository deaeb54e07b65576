package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Health(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	tests := []struct {
		name     string
		mode     string
		ping     Pinger
		database string
		mcp      bool
	}{
		{"live and healthy", "live", func(context.Context) bool { return true }, "healthy", true},
		{"fallback", "fallback", func(context.Context) bool { return true }, "healthy", false},
		{"database down", "live", func(context.Context) bool { return false }, "unavailable", true},
		{"no pinger", "fallback", nil, "unavailable", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler("1.2.3", tc.mode, tc.ping)
			h.now = func() time.Time { return fixed }

			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[HealthResponse](t, w)
			assert.Equal(t, HealthResponse{
				Status:       "healthy",
				Timestamp:    fixed,
				Version:      "1.2.3",
				Database:     tc.database,
				Mode:         tc.mode,
				MCPAvailable: tc.mcp,
			}, resp)
		})
	}
}

func TestHealthHandler_Health_RealDB(t *testing.T) {
	t.Parallel()
	db := mustOpenDB(t)

	h := NewHealthHandler("dev", "fallback", func(ctx context.Context) bool { return db.PingContext(ctx) == nil })
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "healthy", decode[HealthResponse](t, w).Database)
}

func TestHealthHandler_Root(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	NewHealthHandler("1.2.3", "live", nil).Root(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "1.2.3", body["version"])
	endpoints := body["endpoints"].(map[string]any)
	assert.Equal(t, "/search", endpoints["search"])
	assert.Equal(t, "/health", endpoints["health"])
}
