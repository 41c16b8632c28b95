// internal/session/session.go
//
// CookWorld – bearer-token session store.
//
// Context
//   The only client state CookWorld keeps is the backend bearer token.  It
//   lives in a browser cookie (default “cookworld_token”) so it survives
//   reloads until an explicit logout.  Store is the single access point:
//   the gate constructs one per request and is the only writer; views and
//   the API client only ever read through it.
//
// Implementation
//   • Cookie  – reads the request cookie, writes Set-Cookie on the response.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store holds at most one bearer token.
type Store interface {
	// Token returns the current token.  ok == false when none is held.
	Token() (token string, ok bool)
	// SetToken replaces the token.  Token returns it until Clear.
	SetToken(token string)
	// Clear drops the token.  Idempotent.
	Clear()
}

// Options shapes the cookie.
type Options struct {
	Name   string
	Secure bool
	MaxAge time.Duration // used when the token has no readable exp claim
}

//
// Cookie store
//

// Cookie is a request-scoped Store over a browser cookie.  Not safe for
// concurrent use; each request gets its own.
type Cookie struct {
	w    http.ResponseWriter
	opts Options

	token   string
	ok      bool
	cleared bool // expiry already written on this response
}

// FromRequest seeds a Cookie store from r.
func FromRequest(w http.ResponseWriter, r *http.Request, opts Options) *Cookie {
	s := &Cookie{w: w, opts: opts}
	if c, err := r.Cookie(opts.Name); err == nil && c.Value != "" {
		s.token, s.ok = c.Value, true
	}
	return s
}

// Token implements Store.
func (s *Cookie) Token() (string, bool) { return s.token, s.ok }

// SetToken implements Store.  The cookie expires with the token when its
// exp claim is readable, otherwise after Options.MaxAge.
func (s *Cookie) SetToken(token string) {
	if token == "" {
		s.Clear()
		return
	}
	s.token, s.ok, s.cleared = token, true, false
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.opts.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  Expiry(token, s.opts.MaxAge),
	})
}

// Clear implements Store.
func (s *Cookie) Clear() {
	s.token, s.ok = "", false
	if s.cleared {
		return
	}
	s.cleared = true
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Expiry returns when a cookie carrying token should expire.  The token is
// parsed without verification; the backend remains the authority.
func Expiry(token string, fallback time.Duration) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.After(time.Now()) {
			return exp.Time
		}
	}
	return time.Now().Add(fallback)
}
