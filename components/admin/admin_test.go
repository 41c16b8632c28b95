package admin

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/cookworld/internal/webtest"
)

func newApp(t *testing.T) (*webtest.App, *webtest.Backend) {
	t.Helper()
	be := webtest.NewBackend(t)
	be.AllowUser("tok-both")
	be.AllowAdmin("tok-both")
	be.AllowAdmin("tok-admin")
	be.AllowUser("tok-user")

	adminOnly := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, admin := be.Authorized(r); !admin {
				webtest.Unauthorized(w)
				return
			}
			next(w, r)
		}
	}
	be.HandleFunc("GET /api/admin/users", adminOnly(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"username":"alice","role":"USER"},{"id":9,"username":"root","role":"ADMIN"}]`))
	}))
	be.HandleFunc("GET /api/admin/recipes", adminOnly(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":7,"title":"Soup","createdByUsername":null,
 "ingredients":[{"ingredientName":"Tomato"},{"ingredientName":"Salt"}]}]`))
	}))
	be.HandleFunc("DELETE /api/admin/users/{id}", adminOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "9" {
			webtest.JSON(w, http.StatusBadRequest, map[string]string{"error": "Cannot delete an admin"})
		}
	}))
	be.HandleFunc("DELETE /api/admin/recipes/{id}", adminOnly(func(w http.ResponseWriter, r *http.Request) {}))
	return webtest.NewApp(t, be, &Component{}), be
}

func TestDashboard(t *testing.T) {
	app, _ := newApp(t)
	for _, tok := range []string{"tok-both", "tok-admin"} {
		rec := app.Get(DashboardPath, tok)
		require.Equal(t, http.StatusOK, rec.Code, tok)
		body := rec.Body.String()
		assert.Contains(t, body, "<td>root</td>", tok)
		assert.Contains(t, body, "<td>Unknown</td>", tok)
		assert.Contains(t, body, "<td>Tomato, Salt</td>", tok)
	}
}

func TestDashboard_UserOnlyBounced(t *testing.T) {
	app, be := newApp(t)
	rec := app.Get(DashboardPath, "tok-user")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, be.Count(http.MethodGet, "/api/admin/users"))

	rec = app.Get(DashboardPath, "")
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestDelete(t *testing.T) {
	app, be := newApp(t)

	rec := app.Post("/admin/recipes/7/delete", "tok-admin", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
	assert.Equal(t, 1, be.Count(http.MethodDelete, "/api/admin/recipes/7"))

	rec = app.Post("/admin/users/9/delete", "tok-admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cannot delete an admin")
}

// Losing admin rights mid-session keeps the user bit for a token the
// backend still accepts as a user.
func TestRevokedAdmin_KeepsUser(t *testing.T) {
	app, be := newApp(t)
	require.Equal(t, http.StatusOK, app.Get(DashboardPath, "tok-both").Code)

	be.Revoke("tok-both")
	be.AllowUser("tok-both")

	rec := app.Get(DashboardPath, "tok-both")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	_, cleared := webtest.SessionCookie(rec)
	assert.False(t, cleared)

	rec = app.Get(DashboardPath, "tok-both")
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRevokedAdmin_NoUser(t *testing.T) {
	app, be := newApp(t)
	require.Equal(t, http.StatusOK, app.Get(DashboardPath, "tok-admin").Code)

	be.Revoke("tok-admin")
	rec := app.Get(DashboardPath, "tok-admin")
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	c, ok := webtest.SessionCookie(rec)
	require.True(t, ok)
	assert.Negative(t, c.MaxAge)
}
