// internal/server/router.go
//
// Root handler assembly.
//
// Chain (outermost first)
// -----------------------
//
//	RequestID → requestinfo.Enrich → AccessLog → Recover → ForceHTTPS →
//	Security → { /healthz, /metrics }
//	                    └→ RateLimiter → Gate → components, /static/*
//
// Paths no component claims still pass through the gate, which sends them to
// the login page (or shows the loading view while the session is checked).
// A gated path that is allowed but unrouted gets the 404 page.

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/gate"
	"github.com/yanizio/cookworld/internal/middleware"
	"github.com/yanizio/cookworld/internal/requestinfo"
	"github.com/yanizio/cookworld/internal/view"
)

// Options configures Router.
type Options struct {
	Gate          *gate.Gate
	View          *view.Engine
	ForceHTTPS    bool
	AuthPerMinute int

	// Components to mount; nil mounts every registered one.
	Components []component.Component
}

// RateLimitedPaths are the credential endpoints throttled per client IP.
var RateLimitedPaths = []string{gate.LoginPath, "/register", gate.AdminLoginPath}

// Router builds the full handler.
func Router(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		requestinfo.Enrich,
		middleware.AccessLog,
		middleware.Recover(opts.View.ErrorPage()),
		middleware.ForceHTTPS(opts.ForceHTTPS),
		middleware.Security,
	)

	// Outside the gate.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	limiter := middleware.NewRateLimiter(opts.AuthPerMinute, RateLimitedPaths...)
	gated := func(h http.Handler) http.Handler { return limiter.Handler(opts.Gate.Middleware(h)) }

	r.Group(func(g chi.Router) {
		g.Use(limiter.Handler, opts.Gate.Middleware)
		g.Handle("/static/*", view.Static())
		component.MountAll(g, component.Deps{Gate: opts.Gate, View: opts.View}, opts.Components)
	})

	notFound := opts.View.Handle(func(http.ResponseWriter, *http.Request) error { return view.ErrNotFound })
	r.NotFound(gated(notFound).ServeHTTP)
	r.MethodNotAllowed(gated(notFound).ServeHTTP)

	return r
}
