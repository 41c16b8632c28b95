// Package gate is the only component allowed to decide navigability or to
// mutate the session token.
//
// Context
// -------
// Each navigation runs through Middleware:
//
//  1. The bearer token is read from the session cookie.
//  2. Routes classified `any` are served at once.
//  3. Otherwise the session's capability State is fetched from the Registry.
//     While it is Unknown, both validations run in the background and the
//     request waits up to ResolveWait.  A state still Unknown after that gets
//     the neutral loading view, whatever the path.
//  4. The committed set is checked against the static Table; the view runs
//     or the browser is redirected to the route's fallback.
//
// Views reach the backend through API(r) and report failures through Fail,
// which performs the reactive downgrade.  Login, AdminLogin, and Logout are
// the other transitions.
package gate

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/auth"
	"github.com/yanizio/cookworld/internal/metrics"
	"github.com/yanizio/cookworld/internal/session"
)

// ErrNoGate is returned by transitions called outside Middleware.
var ErrNoGate = errors.New("gate: request did not pass through the gate")

// Options configures New.
type Options struct {
	Table    *Table
	Registry *Registry
	API      *api.Client
	Session  session.Options

	// ResolveWait bounds how long a GET waits for an Unknown state.
	ResolveWait time.Duration
	// MutationWait bounds how long other methods wait for it.
	MutationWait time.Duration

	// Loading renders the neutral placeholder.  Nil uses a bare page.
	Loading http.Handler
}

// Gate is safe for concurrent use.
type Gate struct {
	table   *Table
	reg     *Registry
	api     *api.Client
	sess    session.Options
	wait    time.Duration
	mutWait time.Duration
	loading http.Handler
}

// New builds a Gate.
func New(opts Options) *Gate {
	if opts.Table == nil {
		opts.Table = DefaultTable()
	}
	if opts.Loading == nil {
		opts.Loading = http.HandlerFunc(defaultLoading)
	}
	if opts.MutationWait < opts.ResolveWait {
		opts.MutationWait = opts.ResolveWait
	}
	return &Gate{
		table:   opts.Table,
		reg:     opts.Registry,
		api:     opts.API,
		sess:    opts.Session,
		wait:    opts.ResolveWait,
		mutWait: opts.MutationWait,
		loading: opts.Loading,
	}
}

// Table exposes the route table.
func (g *Gate) Table() *Table { return g.table }

//
// Per-request context
//

type reqKey struct{}

type request struct {
	store *session.Cookie
	state *State
	route Route
	log   *zap.SugaredLogger
}

func fromRequest(r *http.Request) (*request, bool) {
	rq, ok := r.Context().Value(reqKey{}).(*request)
	return rq, ok
}

//
// Middleware
//

// Middleware gates every request it wraps.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := session.FromRequest(w, r, g.sess)
		rt, known := g.table.Match(r.URL.Path)
		rq := &request{store: store, route: rt, log: zap.S().With("component", "gate", "path", r.URL.Path)}

		token, _ := store.Token()

		if known && rt.Access == Any {
			st := g.reg.Get(token)
			rq.state = st
			caps, _ := st.Capabilities()
			metrics.GateDecisionsTotal.WithLabelValues("render").Inc()
			next.ServeHTTP(w, r.WithContext(g.attach(r.Context(), rq, caps)))
			return
		}

		st := g.reg.Get(token)
		rq.state = st
		if st.reopen() {
			rq.log.Debugw("revalidating session checked while backend was down")
		}
		caps, ok := st.Capabilities()
		if !ok {
			g.reg.Resolve(token, st)
			wait := g.wait
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				wait = g.mutWait
			}
			if !await(r.Context(), st, wait) {
				metrics.GateDecisionsTotal.WithLabelValues("loading").Inc()
				g.renderLoading(w, r)
				return
			}
			caps, _ = st.Capabilities()
		}

		d := g.table.Decide(r.URL.Path, caps)
		if !d.Allow {
			metrics.GateDecisionsTotal.WithLabelValues("redirect").Inc()
			rq.log.Debugw("navigation redirected", "caps", caps.String(), "to", d.Redirect, "known", d.Known)
			redirect(w, r, d.Redirect)
			return
		}

		metrics.GateDecisionsTotal.WithLabelValues("render").Inc()
		next.ServeHTTP(w, r.WithContext(g.attach(r.Context(), rq, caps)))
	})
}

func (g *Gate) attach(ctx context.Context, rq *request, caps auth.Capabilities) context.Context {
	ctx = context.WithValue(ctx, reqKey{}, rq)
	return auth.WithCapabilities(ctx, caps)
}

func (g *Gate) renderLoading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Session is still being checked, please retry.", http.StatusServiceUnavailable)
		return
	}
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Refresh", "1")
	g.loading.ServeHTTP(w, r)
}

func defaultLoading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!doctype html><title>CookWorld</title><p>Loading…</p>`))
}

// await blocks until st resolves, d elapses, or ctx ends.
func await(ctx context.Context, st *State, d time.Duration) bool {
	done := st.Done()
	select {
	case <-done:
		return true
	default:
	}
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	code := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	http.Redirect(w, r, to, code)
}

//
// View-facing helpers
//

// Capabilities returns the committed set for r.
func Capabilities(r *http.Request) auth.Capabilities { return auth.FromContext(r.Context()) }

// API returns a backend client bound to r's session token.
func (g *Gate) API(r *http.Request) *api.Client {
	if rq, ok := fromRequest(r); ok {
		return g.api.WithTokens(rq.store)
	}
	return g.api
}

//
// Transitions
//

// Login exchanges credentials for a user token, stores it, and commits
// {User} without another round trip since the login response already
// confirms identity.
func (g *Gate) Login(r *http.Request, cr api.Credentials) error {
	rq, ok := fromRequest(r)
	if !ok {
		return ErrNoGate
	}
	res, err := g.api.Login(r.Context(), cr)
	if err != nil {
		return err
	}
	g.replaceToken(rq, res.Token, auth.UserOnly)
	rq.log.Infow("user login", "username", cr.Username)
	return nil
}

// AdminLogin exchanges credentials for an admin token and commits {Admin}.
// The user bit is confirmed with one validation round trip because admin
// tokens are usually, but not always, accepted as user tokens.
func (g *Gate) AdminLogin(r *http.Request, cr api.Credentials) error {
	rq, ok := fromRequest(r)
	if !ok {
		return ErrNoGate
	}
	res, err := g.api.AdminLogin(r.Context(), cr)
	if err != nil {
		return err
	}
	caps := auth.AdminOnly
	caps.User = g.api.WithToken(res.Token).ValidateUser(r.Context()) == nil
	g.replaceToken(rq, res.Token, caps)
	rq.log.Infow("admin login", "username", cr.Username, "caps", caps.String())
	return nil
}

// Logout clears the token and forgets its state.  Idempotent.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) {
	rq, ok := fromRequest(r)
	if !ok {
		session.FromRequest(w, r, g.sess).Clear()
		return
	}
	if tok, had := rq.store.Token(); had {
		g.reg.Forget(tok)
		rq.log.Infow("logout")
	}
	rq.store.Clear()
	rq.state = resolvedState(auth.Anonymous)
}

// Fail performs the reactive downgrade when err is an authorization failure
// and reports whether it handled the response.  On an admin route with a
// user-valid token only the admin bit is dropped and the browser goes to the
// admin login.  Otherwise the token is cleared and the browser goes to the
// login page.  Other errors are left to the caller.
func (g *Gate) Fail(w http.ResponseWriter, r *http.Request, err error) bool {
	if !api.IsUnauthorized(err) {
		return false
	}
	rq, ok := fromRequest(r)
	if !ok {
		redirect(w, r, LoginPath)
		return true
	}

	caps, _ := rq.state.Capabilities()
	if rq.route.Access == Admin {
		if caps.User {
			rq.state.update(func(c *auth.Capabilities) { c.Admin = false })
			rq.log.Infow("admin capability revoked", "caps", auth.UserOnly.String())
		} else {
			g.dropToken(rq)
		}
		redirect(w, r, AdminLoginPath)
		return true
	}

	g.dropToken(rq)
	redirect(w, r, LoginPath)
	return true
}

func (g *Gate) replaceToken(rq *request, token string, caps auth.Capabilities) {
	if old, had := rq.store.Token(); had && old != token {
		g.reg.Forget(old)
	}
	rq.store.SetToken(token)
	rq.state = g.reg.Put(token, caps)
}

func (g *Gate) dropToken(rq *request) {
	if tok, had := rq.store.Token(); had {
		g.reg.Forget(tok)
	}
	rq.store.Clear()
	rq.state = resolvedState(auth.Anonymous)
	rq.log.Infow("session downgraded", "caps", auth.Anonymous.String())
}
