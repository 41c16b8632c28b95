// components/cookbooks/cookbooks.go
//
// Cookbooks component: browse, search, and read shared cookbooks.  Editing
// lives in components/manage.

package cookbooks

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/view"
)

//go:embed templates
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Component owns /cookbooks.
type Component struct{}

func (c *Component) Name() string     { return "cookbooks" }
func (c *Component) Templates() fs.FS { return templates }

// Mount adds the cookbook routes.
func (c *Component) Mount(r chi.Router, d component.Deps) {
	h := &handlers{Deps: d}
	r.Get("/cookbooks", d.View.Handle(h.list))
	r.Get("/cookbooks/search", d.View.Handle(h.search))
	r.Get("/cookbooks/{id}", d.View.Handle(h.detail))
}

func init() { component.Register(&Component{}) }

type handlers struct{ component.Deps }

// listPage feeds list.html for both the full list and search results.
type listPage struct {
	Query     api.CookbookQuery
	Searched  bool
	Cookbooks []api.Cookbook
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) error {
	list, err := h.Gate.API(r).Cookbooks(r.Context())
	if err != nil {
		return err
	}
	return h.View.Render(w, r, "cookbooks", "list", &view.Page{Title: "Cookbooks", Data: listPage{Cookbooks: list}})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) error {
	qs := r.URL.Query()
	p := listPage{Query: api.CookbookQuery{
		Title:    strings.TrimSpace(qs.Get("title")),
		Username: strings.TrimSpace(qs.Get("username")),
	}}
	p.Searched = p.Query.Title != "" || p.Query.Username != ""

	var err error
	if p.Searched {
		p.Cookbooks, err = h.Gate.API(r).SearchCookbooks(r.Context(), p.Query)
	} else {
		p.Cookbooks, err = h.Gate.API(r).Cookbooks(r.Context())
	}
	if err != nil {
		return err
	}
	return h.View.Render(w, r, "cookbooks", "list", &view.Page{Title: "Search cookbooks", Data: p})
}

func (h *handlers) detail(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	cb, err := h.Gate.API(r).Cookbook(r.Context(), id)
	if err != nil {
		return err
	}
	return h.View.Render(w, r, "cookbooks", "detail", &view.Page{Title: cb.Title, Data: cb})
}
