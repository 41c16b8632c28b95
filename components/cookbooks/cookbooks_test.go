package cookbooks

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/cookworld/internal/webtest"
)

const dinners = `{"id":4,"title":"Weeknight Dinners","description":"Fast",
 "owner":{"id":2,"username":"bob"},"collaborators":[{"id":3,"username":"carol"}],
 "recipes":[{"id":7,"title":"Tomato Soup"}]}`

func newApp(t *testing.T) (*webtest.App, *webtest.Backend) {
	t.Helper()
	be := webtest.NewBackend(t)
	be.AllowUser("tok")
	be.HandleFunc("GET /api/cookbooks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[` + dinners + `,{"id":5,"title":"Orphan"}]`))
	})
	be.HandleFunc("GET /api/cookbooks/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") == "bob" {
			_, _ = w.Write([]byte(`[` + dinners + `]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	be.HandleFunc("GET /api/cookbooks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "4" {
			webtest.JSON(w, http.StatusNotFound, map[string]string{"error": "Cookbook not found"})
			return
		}
		_, _ = w.Write([]byte(dinners))
	})
	return webtest.NewApp(t, be, &Component{}), be
}

func TestList(t *testing.T) {
	app, _ := newApp(t)
	rec := app.Get("/cookbooks", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Weeknight Dinners")
	assert.Contains(t, body, "Owner: Unknown")
	assert.Contains(t, body, "Recipes: 1")
}

func TestSearch(t *testing.T) {
	app, be := newApp(t)

	rec := app.Get("/cookbooks/search?username=bob", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Weeknight Dinners")
	assert.NotContains(t, rec.Body.String(), "Orphan")
	sent, ok := be.Last(http.MethodGet, "/api/cookbooks/search")
	require.True(t, ok)
	assert.Equal(t, "bob", sent.Query.Get("username"))
	assert.False(t, sent.Query.Has("title"))

	rec = app.Get("/cookbooks/search?title=zzz", "tok")
	assert.Contains(t, rec.Body.String(), "No cookbooks match your search.")

	rec = app.Get("/cookbooks/search", "tok")
	assert.Contains(t, rec.Body.String(), "Orphan")
}

func TestDetail(t *testing.T) {
	app, _ := newApp(t)
	rec := app.Get("/cookbooks/4", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<a href="/users/2">bob</a>`)
	assert.Contains(t, body, `<a href="/users/3">carol</a>`)
	assert.Contains(t, body, "Tomato Soup")

	assert.Equal(t, http.StatusNotFound, app.Get("/cookbooks/9", "tok").Code)
}

func TestDetail_Anonymous(t *testing.T) {
	app, be := newApp(t)
	rec := app.Get("/cookbooks/4", "")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, be.Count(http.MethodGet, "/api/cookbooks/4"))
}
