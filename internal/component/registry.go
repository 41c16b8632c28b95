// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  The server calls MountAll
// once at boot: every component's templates are attached to the view engine
// under its Name(), then its Mount() adds routes to the shared router.  The
// router already sits behind the gate, so handlers never check capabilities
// themselves.

package component

import (
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/gate"
	"github.com/yanizio/cookworld/internal/view"
)

// Deps are the shared services handed to every component.
type Deps struct {
	Gate *gate.Gate
	View *view.Engine
}

// Component contract.
//
// Templates() may return nil if the component renders nothing.  Mount adds
// page routes to r, e.g.
//
//	r.Get("/login", c.getLogin)
//	r.Post("/login", d.View.Handle(c.postLogin))
type Component interface {
	Name() string
	Templates() fs.FS
	Mount(r chi.Router, d Deps)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MountAll attaches comps to r; nil means every registered component.
func MountAll(r chi.Router, d Deps, comps []Component) {
	if comps == nil {
		comps = All()
	}
	for _, c := range comps {
		if t := c.Templates(); t != nil {
			d.View.Register(c.Name(), t)
		}
		c.Mount(r, d)
	}
}

/*──────────────────────────── handler helpers ──────────────────────────────*/

// ParamID parses the numeric URL parameter name.  A malformed value is
// view.ErrNotFound.
func ParamID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, chi.URLParam(r, name), view.ErrNotFound)
	}
	return id, nil
}

// SeeOther redirects after a successful POST.
func SeeOther(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// Inline returns the banner text for a backend failure a page can show next
// to its inputs.  Authorization failures, missing records, server faults,
// and non-backend errors report false and belong to the view boundary.
func Inline(err error, fallback string) (string, bool) {
	e, ok := api.AsError(err)
	switch {
	case !ok, api.IsUnauthorized(err), e.StatusCode == http.StatusNotFound, e.StatusCode >= http.StatusInternalServerError:
		return "", false
	case e.StatusCode == 0:
		return api.NetworkMessage, true
	}
	return api.Message(err, fallback), true
}
