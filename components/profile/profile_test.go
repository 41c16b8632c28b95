package profile

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/webtest"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newApp(t *testing.T) (*webtest.App, *webtest.Backend) {
	t.Helper()
	be := webtest.NewBackend(t)
	be.AllowUser("tok")
	be.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		webtest.JSON(w, http.StatusOK, api.UserProfile{ID: 1, Username: "alice", Bio: "Cooks"})
	})
	be.HandleFunc("PUT /api/users/profile", func(w http.ResponseWriter, r *http.Request) {
		var in api.ProfileUpdate
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Username == "bob" {
			webtest.JSON(w, http.StatusConflict, map[string]string{"error": "Username already taken"})
			return
		}
		webtest.JSON(w, http.StatusOK, api.UserProfile{ID: 1, Username: in.Username, Bio: in.Bio})
	})
	be.HandleFunc("POST /api/users/profile/image", func(w http.ResponseWriter, r *http.Request) {})
	be.HandleFunc("GET /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" {
			webtest.JSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
			return
		}
		webtest.JSON(w, http.StatusOK, api.UserProfile{ID: 2, Username: "bob", Bio: "Bakes"})
	})
	be.HandleFunc("GET /api/recipes/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":7,"title":"Rye Bread"}]`))
	})
	be.HandleFunc("GET /api/cookbooks/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":4,"title":"Baking"}]`))
	})
	be.HandleFunc("GET /api/users/{id}/image", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	})
	return webtest.NewApp(t, be, &Component{}), be
}

func TestMine(t *testing.T) {
	app, _ := newApp(t)
	rec := app.Get("/profile", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="alice"`)
	assert.Contains(t, rec.Body.String(), `src="/users/1/image"`)

	rec = app.Get("/profile?updated=image", "tok")
	assert.Contains(t, rec.Body.String(), "Profile image updated")
}

func TestUpdate(t *testing.T) {
	app, be := newApp(t)

	rec := app.Post("/profile", "tok", url.Values{"username": {" carol "}, "bio": {"Grills"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile?updated=profile", rec.Header().Get("Location"))
	sent, ok := be.Last(http.MethodPut, "/api/users/profile")
	require.True(t, ok)
	var in api.ProfileUpdate
	sent.Decode(t, &in)
	assert.Equal(t, api.ProfileUpdate{Username: "carol", Bio: "Grills"}, in)

	rec = app.Post("/profile", "tok", url.Values{"username": {"bob"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already taken")
	assert.Contains(t, rec.Body.String(), `value="bob"`)

	rec = app.Post("/profile", "tok", url.Values{"username": {""}})
	assert.Contains(t, rec.Body.String(), "Username cannot be empty")
	assert.Equal(t, 2, be.Count(http.MethodPut, "/api/users/profile"))
}

func TestUpload(t *testing.T) {
	app, be := newApp(t)

	rec := app.PostFile("/profile/image", "tok", "image", "me.png", pngHeader)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile?updated=image", rec.Header().Get("Location"))

	sent, ok := be.Last(http.MethodPost, "/api/users/profile/image")
	require.True(t, ok)
	_, params, err := mime.ParseMediaType(sent.ContentType)
	require.NoError(t, err)
	mr := multipart.NewReader(bytes.NewReader(sent.Body), params["boundary"])
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "image", part.FormName())
	assert.Equal(t, "me.png", part.FileName())
	assert.Equal(t, "image/png", part.Header.Get("Content-Type"))
	data, _ := io.ReadAll(part)
	assert.Equal(t, pngHeader, data)
}

func TestUpload_RejectedLocally(t *testing.T) {
	app, be := newApp(t)

	rec := app.PostFile("/profile/image", "tok", "image", "notes.txt", []byte("just text"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only JPG, PNG, WEBP allowed")

	big := append(append([]byte{}, pngHeader...), make([]byte, maxImageBytes)...)
	rec = app.PostFile("/profile/image", "tok", "image", "big.png", big)
	assert.Contains(t, rec.Body.String(), "Max size is 2MB")

	rec = app.PostFile("/profile/image", "tok", "other", "me.png", pngHeader)
	assert.Contains(t, rec.Body.String(), "Choose an image to upload")

	assert.Zero(t, be.Count(http.MethodPost, "/api/users/profile/image"))
}

func TestPublic(t *testing.T) {
	app, be := newApp(t)
	rec := app.Get("/users/2", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>bob</h1>")
	assert.Contains(t, body, "Rye Bread")
	assert.Contains(t, body, "Baking")
	assert.Equal(t, 1, be.Count(http.MethodGet, "/api/recipes/user/2"))
	assert.Equal(t, 1, be.Count(http.MethodGet, "/api/cookbooks/user/2"))

	assert.Equal(t, http.StatusNotFound, app.Get("/users/3", "tok").Code)
}

func TestImageProxy(t *testing.T) {
	app, _ := newApp(t)

	rec := app.Get("/users/2/image", "tok")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	rec = app.Get("/users/1/image", "tok")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, placeholder, rec.Header().Get("Location"))
}
