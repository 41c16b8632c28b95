// components/manage/manage.go
//
// Manage component: the caller's own recipes and cookbooks.
//
// Every mutation is a POST that redirects on success (PRG).  Backend domain
// errors re-render the page they came from with the backend's message;
// authorization failures go to the gate via the view boundary.

package manage

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/view"
)

//go:embed templates
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Component owns /manage.
type Component struct{}

func (c *Component) Name() string     { return "manage" }
func (c *Component) Templates() fs.FS { return templates }

// Mount adds the manage routes.
func (c *Component) Mount(r chi.Router, d component.Deps) {
	h := &handlers{Deps: d}
	r.Route("/manage", func(r chi.Router) {
		r.Get("/", d.View.Handle(h.overview))

		r.Get("/recipes/new", d.View.Handle(h.newRecipe))
		r.Post("/recipes/new", d.View.Handle(h.createRecipe))
		r.Get("/recipes/{id}", d.View.Handle(h.editRecipe))
		r.Post("/recipes/{id}", d.View.Handle(h.updateRecipe))
		r.Post("/recipes/{id}/delete", d.View.Handle(h.deleteRecipe))

		r.Get("/cookbooks/new", d.View.Handle(h.newCookbook))
		r.Post("/cookbooks/new", d.View.Handle(h.createCookbook))
		r.Get("/cookbooks/{id}", d.View.Handle(h.editCookbook))
		r.Post("/cookbooks/{id}", d.View.Handle(h.updateCookbook))
		r.Post("/cookbooks/{id}/delete", d.View.Handle(h.deleteCookbook))
		r.Post("/cookbooks/{id}/recipes", d.View.Handle(h.addRecipe))
		r.Post("/cookbooks/{id}/recipes/{recipeId}/remove", d.View.Handle(h.removeRecipe))
		r.Post("/cookbooks/{id}/collaborators", d.View.Handle(h.addCollaborator))
		r.Post("/cookbooks/{id}/collaborators/remove", d.View.Handle(h.removeCollaborator))
	})
}

func init() { component.Register(&Component{}) }

type handlers struct{ component.Deps }

// overviewPage feeds overview.html.
type overviewPage struct {
	Recipes   []api.Recipe
	Cookbooks []api.Cookbook
}

func (h *handlers) overview(w http.ResponseWriter, r *http.Request) error {
	return h.renderOverview(w, r, "")
}

// renderOverview loads both lists concurrently and renders them under banner.
func (h *handlers) renderOverview(w http.ResponseWriter, r *http.Request, banner string) error {
	var p overviewPage
	cli := h.Gate.API(r)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		p.Recipes, err = cli.MyRecipes(ctx)
		return err
	})
	g.Go(func() (err error) {
		p.Cookbooks, err = cli.MyCookbooks(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return h.View.Render(w, r, "manage", "overview", &view.Page{Title: "Manage", Error: banner, Data: p})
}
