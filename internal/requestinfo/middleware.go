// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits high in the chain, right after request ids and before the
access log, rate limiter, and gate.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Takes the client IP from `r.RemoteAddr`.  Forwarding headers count
     only when the peer is a configured trusted proxy; X-Forwarded-For is
     then walked from the right, skipping trusted hops.
  3. Performs a GeoLite2 lookup when InitGeo opened a database.
  4. Stores a `*RequestInfo` value in `request.Context` under an
     unexported key, so the access log and rate limiter can read UA, Geo,
     URL, and timestamp attributes without reparsing.

Instrumentation
---------------
When `log.level` is debug, each invocation logs a DEBUG span containing:

  • client IP, country ISO, city
  • browser family, device class, bot flag
  • request path and raw query string

Notes
-----
  • All look-ups are read-only and pool-based, so the middleware is safe
    under heavy concurrency.
*/
package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		info := &RequestInfo{
			UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(ip),
			URL:       r.URL, // pointer copy; safe for read-only access
			Timestamp: time.Now().UTC(),
		}

		zap.S().Debugw("request info",
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"city", info.Geo.City,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
			"path", r.URL.Path,
			"raw_query", r.URL.RawQuery,
		)

		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

var trusted atomic.Pointer[[]*net.IPNet]

// SetTrustedProxies replaces the proxy networks whose forwarding headers
// ClientIP believes.  An empty list trusts nobody.
func SetTrustedProxies(cidrs []string) error {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(strings.TrimSpace(c))
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", c, err)
		}
		nets = append(nets, n)
	}
	trusted.Store(&nets)
	return nil
}

func isTrusted(ip net.IP) bool {
	nets := trusted.Load()
	if ip == nil || nets == nil {
		return false
	}
	for _, n := range *nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address from r.RemoteAddr ("ip:port").  When the
// peer is a trusted proxy, the right-most untrusted X-Forwarded-For entry
// wins, then X-Real-IP.
func ClientIP(r *http.Request) net.IP {
	var peer net.IP
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = net.ParseIP(host)
	}
	if !isTrusted(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !isTrusted(ip) {
				return ip
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	return peer
}
