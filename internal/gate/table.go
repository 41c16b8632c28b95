package gate

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/cookworld/internal/auth"
)

// Access classifies a route.
type Access string

const (
	Public    Access = "public"
	Anonymous Access = "anonymous"
	User      Access = "user"
	Admin     Access = "admin"
	Any       Access = "any"
)

// Fallback targets.
const (
	LoginPath      = "/login"
	AdminLoginPath = "/admin/login"
	HomePath       = "/"
)

//go:embed routes.yaml
var defaultRoutes string

// Route is one entry of the static table.
type Route struct {
	Path   string `yaml:"path"`
	Access Access `yaml:"access"`

	segs []string
}

// Table is immutable after load.
type Table struct {
	routes []Route
}

// Decision is the outcome of Decide.
type Decision struct {
	Route    Route
	Known    bool
	Allow    bool
	Redirect string // set when !Allow
}

// DefaultTable returns the embedded route table.
func DefaultTable() *Table {
	t, err := LoadTable(strings.NewReader(defaultRoutes))
	if err != nil {
		panic("gate: embedded routes.yaml: " + err.Error())
	}
	return t
}

// LoadTable parses a YAML route table.
func LoadTable(r io.Reader) (*Table, error) {
	var doc struct {
		Routes []Route `yaml:"routes"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}

	seen := make(map[string]bool, len(doc.Routes))
	t := &Table{routes: make([]Route, 0, len(doc.Routes))}
	for _, rt := range doc.Routes {
		switch rt.Access {
		case Public, Anonymous, User, Admin, Any:
		default:
			return nil, fmt.Errorf("route %q: unknown access %q", rt.Path, rt.Access)
		}
		if !strings.HasPrefix(rt.Path, "/") {
			return nil, fmt.Errorf("route %q: must start with /", rt.Path)
		}
		if seen[rt.Path] {
			return nil, fmt.Errorf("route %q: duplicate", rt.Path)
		}
		seen[rt.Path] = true
		rt.segs = split(rt.Path)
		for i, s := range rt.segs {
			if s == "*" && i != len(rt.segs)-1 {
				return nil, fmt.Errorf("route %q: * must be last", rt.Path)
			}
		}
		t.routes = append(t.routes, rt)
	}
	return t, nil
}

// Routes returns a copy of the table in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match finds the route for path.  Literal segments beat parameters, so the
// most specific route wins regardless of order.
func (t *Table) Match(path string) (Route, bool) {
	segs := split(path)
	best, bestScore := -1, -1
	for i := range t.routes {
		if score, ok := t.routes[i].match(segs); ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Route{}, false
	}
	return t.routes[best], true
}

// Decide applies the reachability rules to path under caps.
func (t *Table) Decide(path string, caps auth.Capabilities) Decision {
	rt, ok := t.Match(path)
	if !ok {
		return Decision{Redirect: LoginPath}
	}
	d := Decision{Route: rt, Known: true}
	d.Allow, d.Redirect = rt.Access.reachable(caps)
	return d
}

// reachable returns whether caps satisfies a, and where to go if not.
func (a Access) reachable(caps auth.Capabilities) (bool, string) {
	switch a {
	case Public, Any:
		return true, ""
	case Anonymous:
		if !caps.Authenticated() {
			return true, ""
		}
		return false, HomePath
	case User:
		if caps.User {
			return true, ""
		}
		if !caps.Authenticated() {
			return false, LoginPath
		}
		return false, HomePath
	case Admin:
		if caps.Admin {
			return true, ""
		}
		return false, HomePath
	}
	return false, LoginPath
}

// match scores a match by literal segment count.
func (r *Route) match(segs []string) (int, bool) {
	score := 0
	for i, pat := range r.segs {
		if pat == "*" {
			return score, true
		}
		if i >= len(segs) {
			return 0, false
		}
		switch {
		case isParam(pat):
			if segs[i] == "" {
				return 0, false
			}
		case pat == segs[i]:
			score++
		default:
			return 0, false
		}
	}
	if len(segs) != len(r.segs) {
		return 0, false
	}
	return score, true
}

func isParam(s string) bool {
	return len(s) > 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// split turns "/a/b/" into ["a","b"] and "/" into [].
func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
