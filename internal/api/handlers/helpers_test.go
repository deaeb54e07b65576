package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/explorer/internal/api/ctxkeys"
	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/explorer/pkg/auth"
)

const testSecret = "test-secret-key-32-chars-min!!!"

// mustOpenDB opens in-memory SQLite with all migrations applied.
func mustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.MigrateUp(context.Background(), db))
	return db
}

func newAuthService(t *testing.T, db *sql.DB) (domainauth.AuthService, *pkgauth.Issuer) {
	t.Helper()
	issuer, err := pkgauth.NewIssuer(testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)
	return domainauth.NewAuthService(db, issuer, nil), issuer
}

// mustRegister creates a basic user and returns it.
func mustRegister(t *testing.T, svc domainauth.AuthService, username string) *domainauth.User {
	t.Helper()
	res, err := svc.Register(context.Background(), domainauth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-pass",
	})
	require.NoError(t, err)
	return res.User
}

// jsonRequest builds a request with a JSON body (nil body for none).
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// as attaches the identity AuthMiddleware would inject.
func as(r *http.Request, u *domainauth.User) *http.Request {
	return r.WithContext(ctxkeys.WithIdentity(r.Context(), ctxkeys.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, msg, decode[map[string]string](t, w)["error"])
}

func TestParsePaginationParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", defaultPaginationLimit, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=1000", maxPaginationLimit, 0},
		{"?limit=-1&offset=-5", defaultPaginationLimit, 0},
		{"?limit=abc", defaultPaginationLimit, 0},
	}
	for _, tc := range tests {
		p := parsePaginationParams(httptest.NewRequest(http.MethodGet, "/admin/audit"+tc.query, nil))
		assert.Equal(t, tc.limit, p.Limit, tc.query)
		assert.Equal(t, tc.offset, p.Offset, tc.query)
	}
}

func TestIdentity_Missing(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	_, ok := identity(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assertError(t, w, http.StatusUnauthorized, "Not authenticated")
}
