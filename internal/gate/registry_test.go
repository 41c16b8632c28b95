package gate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/cookworld/internal/auth"
)

// blockingResolver returns caps (and err) once release is closed.
type blockingResolver struct {
	caps    auth.Capabilities
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingResolver) Resolve(_ context.Context, _ string) (auth.Capabilities, error) {
	b.calls.Add(1)
	<-b.release
	return b.caps, b.err
}

func waitDone(t *testing.T, st *State) {
	t.Helper()
	select {
	case <-st.Done():
	case <-time.After(time.Second):
		t.Fatal("state never resolved")
	}
}

func newTestRegistry(t *testing.T, res Resolver, opts RegistryOptions) *Registry {
	t.Helper()
	r := NewRegistry(res, opts)
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_EmptyTokenIsAnonymous(t *testing.T) {
	r := newTestRegistry(t, &blockingResolver{release: make(chan struct{})}, RegistryOptions{})
	caps, known := r.Get("").Capabilities()
	assert.True(t, known)
	assert.Equal(t, auth.Anonymous, caps)
	assert.Zero(t, r.Len())
}

func TestRegistry_ResolveOnceAndShare(t *testing.T) {
	res := &blockingResolver{caps: auth.UserOnly, release: make(chan struct{})}
	r := newTestRegistry(t, res, RegistryOptions{})

	st := r.Get("tok")
	assert.Same(t, st, r.Get("tok"))
	_, known := st.Capabilities()
	assert.False(t, known)

	r.Resolve("tok", st)
	r.Resolve("tok", st)
	close(res.release)

	waitDone(t, st)
	caps, known := st.Capabilities()
	assert.True(t, known)
	assert.Equal(t, auth.UserOnly, caps)
	assert.Equal(t, int32(1), res.calls.Load())

	r.Resolve("tok", st) // already resolved
	assert.Equal(t, int32(1), res.calls.Load())
}

// A resolution that finishes after a logout must not resurrect the session.
func TestRegistry_StaleResolutionDiscarded(t *testing.T) {
	res := &blockingResolver{caps: auth.UserAdmin, release: make(chan struct{})}
	r := newTestRegistry(t, res, RegistryOptions{})

	st := r.Get("tok")
	r.Resolve("tok", st)
	require.Eventually(t, func() bool { return res.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	r.Forget("tok")
	close(res.release)

	<-st.Done()
	time.Sleep(20 * time.Millisecond) // let the flight finish
	caps, _ := st.Capabilities()
	assert.Equal(t, auth.Anonymous, caps)
	assert.Zero(t, r.Len())
}

// A set computed without the backend serves once, then resolves again.
func TestRegistry_UnreachableResolutionReopens(t *testing.T) {
	res := &blockingResolver{caps: auth.Anonymous, err: auth.ErrUnreachable, release: make(chan struct{})}
	close(res.release)
	r := newTestRegistry(t, res, RegistryOptions{})

	st := r.Get("tok")
	r.Resolve("tok", st)
	waitDone(t, st)
	caps, known := st.Capabilities()
	assert.True(t, known)
	assert.Equal(t, auth.Anonymous, caps)

	require.True(t, st.reopen())
	assert.False(t, st.reopen(), "already Unknown")
	_, known = st.Capabilities()
	assert.False(t, known)

	r.Resolve("tok", st)
	waitDone(t, st)
	assert.Equal(t, int32(2), res.calls.Load())
}

func TestRegistry_ConfirmedResolutionStays(t *testing.T) {
	res := &blockingResolver{caps: auth.Anonymous, release: make(chan struct{})}
	close(res.release)
	r := newTestRegistry(t, res, RegistryOptions{})

	st := r.Get("tok")
	r.Resolve("tok", st)
	waitDone(t, st)
	assert.False(t, st.reopen())
}

// A State recreated while the old one's flight is running resolves on its own.
func TestRegistry_RecreatedStateGetsOwnFlight(t *testing.T) {
	res := &blockingResolver{caps: auth.UserOnly, release: make(chan struct{})}
	r := newTestRegistry(t, res, RegistryOptions{})

	first := r.Get("tok")
	r.Resolve("tok", first)
	require.Eventually(t, func() bool { return res.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	r.Forget("tok")
	second := r.Get("tok")
	require.NotSame(t, first, second)
	r.Resolve("tok", second)
	require.Eventually(t, func() bool { return res.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	close(res.release)
	waitDone(t, second)
	caps, known := second.Capabilities()
	assert.True(t, known)
	assert.Equal(t, auth.UserOnly, caps)
}

func TestRegistry_PutReplaces(t *testing.T) {
	r := newTestRegistry(t, &blockingResolver{release: make(chan struct{})}, RegistryOptions{})

	old := r.Get("tok")
	st := r.Put("tok", auth.AdminOnly)
	assert.Same(t, st, r.Get("tok"))
	assert.Equal(t, 1, r.Len())

	caps, known := old.Capabilities()
	assert.True(t, known)
	assert.Equal(t, auth.AdminOnly, caps)
}

func TestRegistry_ForgetIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, &blockingResolver{release: make(chan struct{})}, RegistryOptions{})
	r.Put("tok", auth.UserOnly)
	r.Forget("tok")
	r.Forget("tok")
	r.Forget("")
	assert.Zero(t, r.Len())
}

func TestRegistry_EvictIdle(t *testing.T) {
	r := newTestRegistry(t, &blockingResolver{release: make(chan struct{})}, RegistryOptions{IdleTTL: time.Minute, EvictInterval: time.Hour})
	r.Put("a", auth.UserOnly)
	r.Put("b", auth.UserOnly)

	r.evict(time.Now())
	assert.Equal(t, 2, r.Len())

	r.evict(time.Now().Add(2 * time.Minute))
	assert.Zero(t, r.Len())
}

func TestRegistry_EvictLRU(t *testing.T) {
	r := newTestRegistry(t, &blockingResolver{release: make(chan struct{})}, RegistryOptions{IdleTTL: time.Hour, MaxEntries: 2, EvictInterval: time.Hour})
	for _, tok := range []string{"oldest", "middle", "newest"} {
		r.Put(tok, auth.UserOnly)
		time.Sleep(2 * time.Millisecond)
	}
	r.Get("oldest") // touch

	r.evict(time.Now())
	assert.Equal(t, 2, r.Len())

	_, ok := r.m.Load(digest("middle"))
	assert.False(t, ok)
	_, ok = r.m.Load(digest("oldest"))
	assert.True(t, ok)
}

func TestDigest_HidesToken(t *testing.T) {
	d := digest("secret-token")
	assert.Len(t, d, 64)
	assert.NotContains(t, d, "secret")
}
