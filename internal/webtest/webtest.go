// Package webtest wires the full router against a fake CookWorld backend so
// component tests can drive real requests through the gate.
package webtest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/auth"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/gate"
	"github.com/yanizio/cookworld/internal/server"
	"github.com/yanizio/cookworld/internal/session"
	"github.com/yanizio/cookworld/internal/view"
)

// CookieName is the session cookie used by App.
const CookieName = "cookworld_token"

// Request is one call the fake backend received.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Token       string
	ContentType string
	Body        []byte
}

// Decode unmarshals the recorded JSON body into v.
func (r Request) Decode(t testing.TB, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v))
}

// Backend is a fake REST API.  Validation endpoints answer from the token
// sets; tests register the rest on the embedded ServeMux.
type Backend struct {
	*http.ServeMux
	URL string
	srv *httptest.Server

	mu       sync.Mutex
	users    map[string]bool
	admins   map[string]bool
	requests []Request
}

// NewBackend starts a fake backend torn down with t.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		ServeMux: http.NewServeMux(),
		users:    map[string]bool{},
		admins:   map[string]bool{},
	}
	b.HandleFunc("GET /api/users/validate", func(w http.ResponseWriter, r *http.Request) {
		if user, _ := b.Authorized(r); !user {
			Unauthorized(w)
		}
	})
	b.HandleFunc("GET /api/admin/validate", func(w http.ResponseWriter, r *http.Request) {
		if _, admin := b.Authorized(r); !admin {
			Unauthorized(w)
		}
	})

	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	b.URL = b.srv.URL
	return b
}

// Close stops the server early so calls fail at the transport.
func (b *Backend) Close() { b.srv.Close() }

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Token:       bearer(r),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	b.mu.Unlock()
	b.ServeMux.ServeHTTP(w, r)
}

// AllowUser makes tok pass user validation.
func (b *Backend) AllowUser(tok string) {
	b.mu.Lock()
	b.users[tok] = true
	b.mu.Unlock()
}

// AllowAdmin makes tok pass admin validation.
func (b *Backend) AllowAdmin(tok string) {
	b.mu.Lock()
	b.admins[tok] = true
	b.mu.Unlock()
}

// Revoke makes tok fail both validations.
func (b *Backend) Revoke(tok string) {
	b.mu.Lock()
	delete(b.users, tok)
	delete(b.admins, tok)
	b.mu.Unlock()
}

// Authorized reports which validations r's bearer token passes.
func (b *Backend) Authorized(r *http.Request) (user, admin bool) {
	tok := bearer(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.users[tok], b.admins[tok]
}

// Last returns the most recent request for method and path.
func (b *Backend) Last(method, path string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if rq := b.requests[i]; rq.Method == method && rq.Path == path {
			return rq, true
		}
	}
	return Request{}, false
}

// Count reports how many requests hit method and path.
func (b *Backend) Count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, rq := range b.requests {
		if rq.Method == method && rq.Path == path {
			n++
		}
	}
	return n
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Unauthorized writes the backend's rejection body.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized path"})
}

//
// App
//

// App is the router under test.
type App struct {
	Handler http.Handler
	Gate    *gate.Gate
	View    *view.Engine
}

// NewApp mounts comps (every registered component when none are given)
// behind a gate that talks to be.
func NewApp(t testing.TB, be *Backend, comps ...component.Component) *App {
	t.Helper()
	cli, err := api.New(api.Config{BaseURL: be.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	reg := gate.NewRegistry(auth.NewValidator(cli, 2*time.Second), gate.RegistryOptions{EvictInterval: time.Hour})
	t.Cleanup(reg.Close)

	v, err := view.New(view.Options{})
	require.NoError(t, err)

	g := gate.New(gate.Options{
		Registry:     reg,
		API:          cli,
		Session:      session.Options{Name: CookieName, MaxAge: time.Hour},
		ResolveWait:  2 * time.Second,
		MutationWait: 2 * time.Second,
		Loading:      v.Loading(),
	})
	v.OnError(g.Fail)

	h := server.Router(server.Options{Gate: g, View: v, AuthPerMinute: 1000, Components: comps})
	return &App{Handler: h, Gate: g, View: v}
}

// Get issues a GET with token as the session cookie ("" for none).
func (a *App) Get(path, token string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), token)
}

// Post submits vals as a urlencoded form with a valid CSRF token.
func (a *App) Post(path, token string, vals url.Values) *httptest.ResponseRecorder {
	if vals == nil {
		vals = url.Values{}
	}
	if !vals.Has(form.TokenField) {
		tok, _ := form.GenerateToken()
		vals.Set(form.TokenField, tok)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, token)
}

// PostFile submits a multipart form with one file field and a CSRF token.
func (a *App) PostFile(path, token, field, filename string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	csrf, _ := form.GenerateToken()
	_ = mw.WriteField(form.TokenField, csrf)
	fw, _ := mw.CreateFormFile(field, filename)
	_, _ = fw.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, token)
}

func (a *App) do(req *http.Request, token string) *httptest.ResponseRecorder {
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	return rec
}

// SessionCookie returns the session cookie rec set, if any.  A cleared
// cookie has MaxAge < 0.
func SessionCookie(rec *httptest.ResponseRecorder) (*http.Cookie, bool) {
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c, true
		}
	}
	return nil, false
}
