package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/cookworld/internal/auth"
	"github.com/yanizio/cookworld/internal/metrics"
)

// Resolver turns a token into a capability set.  A non-nil error means the
// set was computed without a confirmed answer and must not be cached past
// the current navigation.  *auth.Validator satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (auth.Capabilities, error)
}

// RegistryOptions tunes NewRegistry.  Zero values fall back to the defaults
// in config.Defaults().
type RegistryOptions struct {
	IdleTTL       time.Duration
	MaxEntries    int
	EvictInterval time.Duration
}

// Registry lazily creates one State per token, keyed by the token's SHA-256
// digest, resolves it in the background, and evicts it on idle TTL or LRU
// pressure.  An evicted session simply re-validates on its next navigation.
type Registry struct {
	resolver   Resolver
	sfg        singleflight.Group
	m          sync.Map // digest → *State
	idleTTL    time.Duration
	maxEntries int

	evictTicker *time.Ticker
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRegistry constructs a Registry and starts the background evictor.
func NewRegistry(res Resolver, opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = 5 * time.Minute
	}
	r := &Registry{
		resolver:    res,
		idleTTL:     opts.IdleTTL,
		maxEntries:  opts.MaxEntries,
		evictTicker: time.NewTicker(opts.EvictInterval),
		stop:        make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Close stops the evictor.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		r.evictTicker.Stop()
		close(r.stop)
	})
}

// Get returns the State for token, creating an Unknown one on first sight.
// An empty token yields a resolved Anonymous state that is never stored.
func (r *Registry) Get(token string) *State {
	if token == "" {
		return resolvedState(auth.Anonymous)
	}
	key := digest(token)
	if v, ok := r.m.Load(key); ok {
		st := v.(*State)
		st.touch()
		return st
	}
	v, loaded := r.m.LoadOrStore(key, newState())
	if !loaded {
		metrics.ActiveSessions.Inc()
	}
	st := v.(*State)
	st.touch()
	return st
}

// Resolve starts background resolution of st unless it is already resolved
// or a resolution for the same token is in flight.
func (r *Registry) Resolve(token string, st *State) {
	if _, pending := st.begin(); !pending || token == "" {
		return
	}
	key := digest(token)
	_ = r.sfg.DoChan(key, func() (any, error) {
		gen, pending := st.begin()
		if !pending {
			return nil, nil
		}
		caps, err := r.resolver.Resolve(context.Background(), token)
		if err != nil {
			zap.S().Warnw("capabilities resolved without backend", "session", key[:12], "err", err)
		}
		r.sfg.Forget(key) // later calls start a new flight once this one commits
		if !st.commit(gen, caps, err != nil) {
			zap.S().Debugw("stale resolution discarded", "session", key[:12])
		}
		return nil, nil
	})
}

// Put stores a resolved State for token, replacing any previous one.
func (r *Registry) Put(token string, caps auth.Capabilities) *State {
	st := resolvedState(caps)
	if token == "" {
		return st
	}
	key := digest(token)
	r.sfg.Forget(key)
	if prev, loaded := r.m.Swap(key, st); loaded {
		prev.(*State).set(caps)
	} else {
		metrics.ActiveSessions.Inc()
	}
	return st
}

// Forget drops token's State.  Any in-flight resolution for it is discarded
// and waiters see Anonymous; a State created afterwards starts its own
// flight.
func (r *Registry) Forget(token string) {
	if token == "" {
		return
	}
	key := digest(token)
	r.sfg.Forget(key)
	if v, loaded := r.m.LoadAndDelete(key); loaded {
		v.(*State).set(auth.Anonymous)
		metrics.ActiveSessions.Dec()
	}
}

// Len counts stored states.
func (r *Registry) Len() int {
	n := 0
	r.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

//
// Eviction
//

func (r *Registry) evictLoop() {
	for {
		select {
		case <-r.stop:
			return
		case <-r.evictTicker.C:
			r.evict(time.Now())
		}
	}
}

// evict removes states idle longer than idleTTL, then the least recently
// used ones while the map exceeds maxEntries.
func (r *Registry) evict(now time.Time) {
	nanos := now.UnixNano()
	log := zap.S().With("component", "gate")

	type kv struct {
		key string
		at  int64
	}
	var live []kv

	r.m.Range(func(key, value any) bool {
		st := value.(*State)
		if idle := st.idle(nanos); idle > r.idleTTL {
			if r.m.CompareAndDelete(key, st) {
				r.sfg.Forget(key.(string))
				log.Debugw("session evicted", "idle", idle.Truncate(time.Second))
				metrics.SessionEvictTotal.WithLabelValues("idle").Inc()
				metrics.ActiveSessions.Dec()
			}
			return true
		}
		live = append(live, kv{key: key.(string), at: st.lastSeen.Load()})
		return true
	})

	if r.maxEntries <= 0 || len(live) <= r.maxEntries {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].at < live[j].at })
	for _, e := range live[:len(live)-r.maxEntries] {
		if _, ok := r.m.LoadAndDelete(e.key); ok {
			r.sfg.Forget(e.key)
			metrics.SessionEvictTotal.WithLabelValues("lru").Inc()
			metrics.ActiveSessions.Dec()
		}
	}
	log.Debugw("sessions evicted (LRU pressure)", "count", len(live)-r.maxEntries)
}
