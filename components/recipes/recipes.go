// components/recipes/recipes.go
//
// Recipes component: list, detail, favourites, favourite toggle, and search.
//
// Handlers return backend failures to the view boundary, which hands
// authorization failures to the gate and renders everything else.

package recipes

import (
	"embed"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/view"
)

//go:embed templates
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Component owns the /recipes, /favorites, and /search pages.
type Component struct{}

func (c *Component) Name() string     { return "recipes" }
func (c *Component) Templates() fs.FS { return templates }

// Mount adds the recipe routes.
func (c *Component) Mount(r chi.Router, d component.Deps) {
	h := &handlers{Deps: d}
	r.Get("/recipes", d.View.Handle(h.list))
	r.Get("/recipes/{id}", d.View.Handle(h.detail))
	r.Post("/recipes/{id}/favourite", d.View.Handle(h.toggleFavourite))
	r.Get("/favorites", d.View.Handle(h.favourites))
	r.Get("/search", d.View.Handle(h.search))
}

func init() { component.Register(&Component{}) }

type handlers struct{ component.Deps }

func (h *handlers) list(w http.ResponseWriter, r *http.Request) error {
	list, err := h.Gate.API(r).Recipes(r.Context())
	if err != nil {
		return err
	}
	return h.View.Render(w, r, "recipes", "list", &view.Page{
		Title: "Recipes",
		Data:  listPage{Heading: "All recipes", Recipes: list, Empty: "No recipes yet."},
	})
}

func (h *handlers) favourites(w http.ResponseWriter, r *http.Request) error {
	list, err := h.Gate.API(r).Favourites(r.Context())
	if err != nil {
		return err
	}
	return h.View.Render(w, r, "recipes", "list", &view.Page{
		Title: "Favourites",
		Data:  listPage{Heading: "Your favourite recipes", Recipes: list, Empty: "You have no favourite recipes yet."},
	})
}

type listPage struct {
	Heading string
	Recipes []api.Recipe
	Empty   string
}

func (h *handlers) detail(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	rec, err := h.Gate.API(r).Recipe(r.Context(), id)
	if err != nil {
		return err
	}
	return h.View.Render(w, r, "recipes", "detail", &view.Page{Title: rec.Title, Data: rec})
}

// toggleFavourite sets the favourite flag to the posted value and returns to
// the posted page.
func (h *handlers) toggleFavourite(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	if err := form.Parse(r); err != nil {
		return err
	}
	want, _ := strconv.ParseBool(r.PostFormValue("favourite"))

	cli := h.Gate.API(r)
	if want {
		err = cli.AddFavourite(r.Context(), id)
	} else {
		err = cli.RemoveFavourite(r.Context(), id)
	}
	if err != nil {
		return err
	}
	component.SeeOther(w, r, localPath(r.PostFormValue("next"), "/recipes/"+strconv.FormatInt(id, 10)))
	return nil
}

// searchPage feeds search.html.
type searchPage struct {
	Query    api.RecipeQuery
	Tags     []api.Tag
	Selected map[string]bool
	Searched bool
	Results  []api.Recipe
}

// search loads the tag list and, when a query was given, the results
// concurrently.
func (h *handlers) search(w http.ResponseWriter, r *http.Request) error {
	qs := r.URL.Query()
	p := searchPage{
		Query: api.RecipeQuery{
			Title:    strings.TrimSpace(qs.Get("title")),
			Username: strings.TrimSpace(qs.Get("username")),
			Tags:     qs["tags"],
		},
		Selected: map[string]bool{},
	}
	for _, t := range p.Query.Tags {
		p.Selected[t] = true
	}
	p.Searched = p.Query.Title != "" || p.Query.Username != "" || len(p.Query.Tags) > 0

	cli := h.Gate.API(r)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		p.Tags, err = cli.Tags(ctx)
		return err
	})
	if p.Searched {
		g.Go(func() (err error) {
			p.Results, err = cli.SearchRecipes(ctx, p.Query)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return h.View.Render(w, r, "recipes", "search", &view.Page{Title: "Search recipes", Data: p})
}

// localPath returns next when it is a same-site absolute path, else def.
func localPath(next, def string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return def
}
