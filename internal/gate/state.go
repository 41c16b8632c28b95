package gate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanizio/cookworld/internal/auth"
)

// State is the capability machine for one session.  It starts unresolved
// (Unknown) and commits exactly one capability set once both validations
// finish.  Every transition bumps gen; a resolution that started under an
// older gen is discarded on commit.  A set committed while the backend was
// unreachable is stale: it serves the navigation that computed it and is
// reopened to Unknown on the next one.
type State struct {
	mu       sync.Mutex
	caps     auth.Capabilities
	resolved bool
	stale    bool
	gen      uint64
	done     chan struct{} // closed once resolved

	lastSeen atomic.Int64 // unix nanos
}

func newState() *State {
	s := &State{done: make(chan struct{})}
	s.touch()
	return s
}

func resolvedState(caps auth.Capabilities) *State {
	s := newState()
	s.caps, s.resolved = caps, true
	close(s.done)
	return s
}

// Capabilities returns the committed set.  known is false while Unknown.
func (s *State) Capabilities() (caps auth.Capabilities, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps, s.resolved
}

// Done is closed once a set is committed.
func (s *State) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// begin returns the generation a resolution must commit under, or false
// when there is nothing to resolve.
func (s *State) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, !s.resolved
}

// commit applies a finished resolution unless a newer transition happened.
func (s *State) commit(gen uint64, caps auth.Capabilities, stale bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.resolved {
		return false
	}
	s.caps, s.resolved, s.stale = caps, true, stale
	close(s.done)
	return true
}

// reopen turns a stale set back into Unknown and reports whether it did.
func (s *State) reopen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.resolved || !s.stale {
		return false
	}
	s.gen++
	s.resolved, s.stale = false, false
	s.done = make(chan struct{})
	return true
}

// set overwrites the committed set (login, downgrade).
func (s *State) set(caps auth.Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.caps, s.stale = caps, false
	if !s.resolved {
		s.resolved = true
		close(s.done)
	}
}

// update edits the committed set in place under the current generation.
func (s *State) update(fn func(*auth.Capabilities)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	fn(&s.caps)
	s.stale = false
	if !s.resolved {
		s.resolved = true
		close(s.done)
	}
}

func (s *State) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *State) idle(now int64) time.Duration {
	return time.Duration(now - s.lastSeen.Load())
}
