package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yanizio/cookworld/internal/requestinfo"
)

// limiterTTL is how long an idle per-IP bucket is kept.
const limiterTTL = 10 * time.Minute

// RateLimiter throttles credential POSTs per client IP with a token bucket.
type RateLimiter struct {
	limit rate.Limit
	burst int
	paths map[string]bool

	mu      sync.Mutex
	buckets map[string]*bucket
	sweep   time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter allows perMinute POSTs to each of paths per IP, with a
// burst of the same size.
func NewRateLimiter(perMinute int, paths ...string) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	rl := &RateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		paths:   make(map[string]bool, len(paths)),
		buckets: make(map[string]*bucket),
	}
	for _, p := range paths {
		rl.paths[p] = true
	}
	return rl
}

// Handler wraps next.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !rl.paths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		ip := "unknown"
		if addr := requestinfo.ClientIP(r); addr != nil {
			ip = addr.String()
		}
		lim := rl.get(ip, time.Now())
		if res := lim.Reserve(); res.OK() && res.Delay() == 0 {
			next.ServeHTTP(w, r)
			return
		} else if res.OK() {
			wait := res.Delay()
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		zap.S().Warnw("auth rate limit hit", "ip", ip, "path", r.URL.Path)
		http.Error(w, "Too many attempts, please wait a moment.", http.StatusTooManyRequests)
	})
}

func (rl *RateLimiter) get(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.sweep) > limiterTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) > limiterTTL {
				delete(rl.buckets, k)
			}
		}
		rl.sweep = now
	}

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[ip] = b
	}
	b.seen = now
	return b.lim
}
