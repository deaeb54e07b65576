package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/domain/history"
	"github.com/matiasleandrokruk/explorer/internal/domain/normalize"
)

type dashboardFixture struct {
	handler *DashboardHandler
	history *history.Service
	alice   *domainauth.User
	bob     *domainauth.User
}

func newDashboardFixture(t *testing.T) dashboardFixture {
	t.Helper()
	db := mustOpenDB(t)
	authSvc, _ := newAuthService(t, db)
	hist := history.NewService(db)
	return dashboardFixture{
		handler: NewDashboardHandler(hist, authSvc, nil),
		history: hist,
		alice:   mustRegister(t, authSvc, "alice"),
		bob:     mustRegister(t, authSvc, "bob"),
	}
}

// withURLParam sets a chi route parameter without going through a router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func (f dashboardFixture) saveSearch(t *testing.T, user *domainauth.User, query string) *history.SearchEntry {
	t.Helper()
	e, err := f.history.SaveSearch(context.Background(), history.SearchEntry{
		UserID:     user.ID,
		Query:      query,
		Results:    []normalize.SearchRecord{{Title: query}},
		MaxResults: 10,
	})
	require.NoError(t, err)
	return e
}

func (f dashboardFixture) saveImage(t *testing.T, user *domainauth.User, prompt string) *history.ImageEntry {
	t.Helper()
	e, err := f.history.SaveImage(context.Background(), history.ImageEntry{
		UserID:     user.ID,
		Prompt:     prompt,
		Parameters: history.ImageParameters{Width: 512, Height: 512, Steps: 20},
	})
	require.NoError(t, err)
	return e
}

func TestDashboardHandler_Get(t *testing.T) {
	t.Parallel()
	f := newDashboardFixture(t)

	for _, q := range []string{"one", "two", "three", "four", "five", "six"} {
		f.saveSearch(t, f.alice, q)
	}
	f.saveImage(t, f.alice, "a fox")
	f.saveSearch(t, f.bob, "bob's query")

	w := httptest.NewRecorder()
	f.handler.Get(w, as(httptest.NewRequest(http.MethodGet, "/dashboard", nil), f.alice))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[DashboardResponse](t, w)
	assert.Equal(t, 6, resp.Stats.TotalSearches)
	assert.Equal(t, 1, resp.Stats.TotalImages)
	assert.Equal(t, 6, resp.Stats.SearchesToday)
	assert.NotNil(t, resp.Stats.LastActivity)
	assert.Equal(t, f.alice.CreatedAt.Unix(), resp.Stats.MemberSince.Unix())

	require.Len(t, resp.RecentSearches, history.RecentLimit)
	assert.Equal(t, "six", resp.RecentSearches[0].Query)
	for _, s := range resp.RecentSearches {
		assert.NotEqual(t, "bob's query", s.Query)
	}
	require.Len(t, resp.RecentImages, 1)
	assert.Equal(t, "a fox", resp.RecentImages[0].Prompt)
}

func TestDashboardHandler_Get_Empty(t *testing.T) {
	t.Parallel()
	f := newDashboardFixture(t)

	w := httptest.NewRecorder()
	f.handler.Get(w, as(httptest.NewRequest(http.MethodGet, "/dashboard", nil), f.alice))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, []any{}, body["recent_searches"])
	assert.Equal(t, []any{}, body["recent_images"])
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(0), stats["total_searches"])
	assert.Nil(t, stats["last_activity"])
}

func TestDashboardHandler_Get_UnknownUser(t *testing.T) {
	t.Parallel()
	f := newDashboardFixture(t)

	ghost := &domainauth.User{ID: "missing", Username: "ghost", Role: domainauth.RoleBasic}
	w := httptest.NewRecorder()
	f.handler.Get(w, as(httptest.NewRequest(http.MethodGet, "/dashboard", nil), ghost))
	assertError(t, w, http.StatusUnauthorized, "User not found")
}

func TestDashboardHandler_DeleteSearch(t *testing.T) {
	t.Parallel()
	f := newDashboardFixture(t)
	entry := f.saveSearch(t, f.alice, "golang")

	// Someone else's entry is indistinguishable from a missing one.
	w := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/dashboard/search/"+entry.ID, nil), "id", entry.ID)
	f.handler.DeleteSearch(w, as(req, f.bob))
	assertError(t, w, http.StatusNotFound, "Search entry not found")

	w = httptest.NewRecorder()
	f.handler.DeleteSearch(w, as(req, f.alice))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Search entry deleted successfully", decode[map[string]string](t, w)["message"])

	w = httptest.NewRecorder()
	f.handler.DeleteSearch(w, as(req, f.alice))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardHandler_DeleteImage(t *testing.T) {
	t.Parallel()
	f := newDashboardFixture(t)
	entry := f.saveImage(t, f.alice, "a fox")

	w := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/dashboard/image/"+entry.ID, nil), "id", entry.ID)
	f.handler.DeleteImage(w, as(req, f.alice))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Image entry deleted successfully", decode[map[string]string](t, w)["message"])

	images, err := f.history.RecentImages(context.Background(), f.alice.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, images)

	w = httptest.NewRecorder()
	f.handler.DeleteImage(w, as(withURLParam(httptest.NewRequest(http.MethodDelete, "/dashboard/image/nope", nil), "id", "nope"), f.alice))
	assertError(t, w, http.StatusNotFound, "Image entry not found")
}
