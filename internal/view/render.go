// internal/view/render.go
//
// Central view engine: template lookup, func-map injection, an LRU of parsed
// *template.Template* sets, and the per-view error boundary.
//
// Public helpers
// --------------
//   - Register – attach a component's embedded templates.
//   - Render   – execute "<comp>/templates/<name>.html" inside the layout.
//   - Handle   – adapt an error-returning handler; errors reach the boundary.
//   - Loading  – neutral placeholder shown while a session is being checked.
//
// Set layout
// ----------
// Every set is the shared layout (templates/layout.html and any
// templates/_*.html partials here) cloned, plus the page file and the
// component's own `_*.html` partials.  Page files define "content" and may
// define "title".  Sets are cached per component and page.
//
// Style
// -----
// • Output is buffered, so a template error never leaves a half-written page.

package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/cookworld/internal/auth"
	"github.com/yanizio/cookworld/internal/cache"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/requestinfo"
)

//go:embed templates/*.html
var coreFS embed.FS

//go:embed static
var staticFS embed.FS

// core is the component name of the built-in pages (error, loading).
const core = "core"

// Page is the data every template receives.
type Page struct {
	Title  string
	Error  string      // banner shown above the content
	Notice string      // success banner
	Errors form.Errors // field-level problems
	Data   any         // view-specific payload
	Bare   bool        // hide navigation

	// Filled by Render.
	Path      string
	Caps      auth.Capabilities
	CSRF      string
	RequestID string
}

// ErrorHook may take over the response for err and reports whether it did.
// gate.Gate.Fail has this shape.
type ErrorHook func(w http.ResponseWriter, r *http.Request, err error) bool

// HandlerFunc is a view handler that returns its failures.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Options tunes New.
type Options struct {
	// CacheSize caps parsed sets; zero means 256.
	CacheSize int
}

// Engine renders pages.  Safe for concurrent use once components are
// registered.
type Engine struct {
	base  *template.Template
	sets  *cache.LRU[string, *template.Template]
	mu    sync.RWMutex
	comps map[string]fs.FS
	hooks []ErrorHook
}

// New parses the layout and built-in pages.
func New(opts Options) (*Engine, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	base, err := template.New("base").Funcs(funcMap()).ParseFS(coreFS, "templates/layout.html", "templates/_*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	e := &Engine{
		base:  base,
		sets:  cache.New[string, *template.Template](opts.CacheSize),
		comps: map[string]fs.FS{},
	}
	e.Register(core, coreFS)
	return e, nil
}

// Register attaches fsys, which must contain templates/<name>.html files, as
// component comp.  A second call for comp replaces the first.
func (e *Engine) Register(comp string, fsys fs.FS) {
	e.mu.Lock()
	e.comps[comp] = fsys
	e.mu.Unlock()
	e.sets.Purge()
}

// OnError appends a hook consulted by Handle before the error page.
func (e *Engine) OnError(h ErrorHook) { e.hooks = append(e.hooks, h) }

// Render writes page name of comp with status 200.
func (e *Engine) Render(w http.ResponseWriter, r *http.Request, comp, name string, p *Page) error {
	return e.RenderStatus(w, r, http.StatusOK, comp, name, p)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, r *http.Request, status int, comp, name string, p *Page) error {
	t, err := e.load(comp, name)
	if err != nil {
		return err
	}
	if p == nil {
		p = &Page{}
	}
	e.fill(r, p)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s/%s: %w", comp, name, err)
	}
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func (e *Engine) fill(r *http.Request, p *Page) {
	p.Path = r.URL.Path
	p.Caps = auth.FromContext(r.Context())
	p.RequestID = requestinfo.RequestID(r.Context())
	if p.CSRF == "" {
		if tok, err := form.GenerateToken(); err == nil {
			p.CSRF = tok
		}
	}
	if p.Error == "" && len(p.Errors) > 0 {
		p.Error = p.Errors.First()
	}
}

// load finds and (if necessary) parses the set for comp and name.
func (e *Engine) load(comp, name string) (*template.Template, error) {
	key := comp + "::" + name
	if t, ok := e.sets.Get(key); ok {
		return t, nil
	}

	e.mu.RLock()
	fsys, ok := e.comps[comp]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("view: component %q not registered", comp)
	}

	t, err := e.base.Clone()
	if err != nil {
		return nil, err
	}
	patterns := []string{path.Join("templates", name+".html")}
	if partials, _ := fs.Glob(fsys, "templates/_*.html"); len(partials) > 0 && comp != core {
		patterns = append(patterns, "templates/_*.html")
	}
	if _, err := t.ParseFS(fsys, patterns...); err != nil {
		return nil, fmt.Errorf("view %s/%s: %w", comp, name, err)
	}

	e.sets.Add(key, t)
	return t, nil
}

//
// func-map
//

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":   dict,
		"join":   strings.Join,
		"active": func(cur, prefix string) bool { return cur == prefix || strings.HasPrefix(cur, prefix+"/") },
		"lines":  lines,
	}
}

// lines splits multi-line text into trimmed, non-empty lines.
func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// Static serves the embedded assets under /static/.
func Static() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

func logRenderFailure(r *http.Request, err error) {
	zap.S().Errorw("render failed",
		"path", r.URL.Path,
		"request_id", requestinfo.RequestID(r.Context()),
		"err", err,
	)
}
