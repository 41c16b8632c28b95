package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/cookworld/internal/requestinfo"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	return c
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })
	return logs
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestBearerHeader(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.ValidateUser(context.Background()))
	require.NoError(t, c.WithToken("abc").ValidateUser(context.Background()))
	assert.Equal(t, []string{"", "Bearer abc"}, got)
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
	})
	ctx := requestinfo.WithRequestID(context.Background(), "req-1")
	require.NoError(t, c.ValidateAdmin(ctx))
	assert.Equal(t, "req-1", got)
}

func TestErrorNormalization(t *testing.T) {
	cases := []struct {
		name   string
		status int
		ctype  string
		body   string
		want   string
	}{
		{"json error", 401, "application/json", `{"error":"Unauthorized path"}`, "Unauthorized path"},
		{"json message", 404, "application/json", `{"message":"Recipe not found"}`, "Recipe not found"},
		{"plain text", 401, "text/plain", "Unauthorized or invalid token", "Unauthorized or invalid token"},
		{"empty", 500, "", "", "Internal Server Error"},
		{"html", 502, "text/html", "<html>bad gateway</html>", "Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := observeLogs(t)
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				if tc.ctype != "" {
					w.Header().Set("Content-Type", tc.ctype)
				}
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := c.Recipes(context.Background())
			require.Error(t, err)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, e.StatusCode)
			assert.Equal(t, tc.want, e.Message)

			entries := logs.FilterMessage("backend request failed").All()
			require.Len(t, entries, 1)
			assert.Equal(t, "/api/recipes", entries[0].ContextMap()["path"])
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	require.NoError(t, err)

	err = c.ValidateUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, NetworkMessage, Message(err, ""))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsUnauthorized(&Error{StatusCode: 401}))
	assert.True(t, IsUnauthorized(&Error{StatusCode: 403, Message: "Unauthorized path"}))
	assert.False(t, IsUnauthorized(&Error{StatusCode: 403, Message: "Forbidden"}))
	assert.True(t, IsConflict(&Error{StatusCode: 409}))
	assert.True(t, IsNotFound(&Error{StatusCode: 404}))
	assert.False(t, IsUnauthorized(io.EOF))
	assert.Equal(t, "fallback", Message(io.EOF, "fallback"))
}

func TestMalformedJSONIsNotAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":`)
	})
	_, err := c.Recipes(context.Background())
	require.Error(t, err)
	_, ok := AsError(err)
	assert.False(t, ok)
}

func TestSearchRecipes(t *testing.T) {
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	})

	out, err := c.SearchRecipes(context.Background(), RecipeQuery{
		Title: " pie ", Tags: []string{"Dessert", " ", "Vegan"},
	})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, "tags=Dessert%2CVegan&title=pie", query)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var cr Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cr))
		if cr.Username == "alice" && cr.Password == "secret1" {
			_, _ = io.WriteString(w, `{"id":1,"username":"alice","token":"abc"}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"Invalid credentials"}`)
	})

	res, err := c.Login(context.Background(), Credentials{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Token)

	_, err = c.Login(context.Background(), Credentials{Username: "alice", Password: "nope"})
	assert.Equal(t, "Invalid credentials", Message(err, ""))
}

func TestLogin_EmptyToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"username":"alice"}`)
	})
	_, err := c.AdminLogin(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.Error(t, err)
}

func TestPathExpansion(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	})
	ctx := context.Background()
	require.NoError(t, c.AddCookbookRecipe(ctx, 3, 9))
	require.NoError(t, c.RemoveCollaborator(ctx, 3, "bob"))
	require.NoError(t, c.AdminDeleteRecipe(ctx, 7))
	require.NoError(t, c.RemoveFavourite(ctx, 5))

	assert.Equal(t, []string{
		"POST /api/cookbooks/3/recipes/9?",
		"DELETE /api/cookbooks/3/collaborators?username=bob",
		"DELETE /api/admin/recipes/7?",
		"DELETE /api/recipes/5/favourite?",
	}, paths)
}

func TestUploadProfileImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(b))
	})
	require.NoError(t, c.WithToken("t").UploadProfileImage(context.Background(), "me.png", "image/png", strings.NewReader("PNGDATA")))
}

func TestUserImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/4/image", r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})
	img, err := c.UserImage(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Len(t, img.Data, 3)
}
