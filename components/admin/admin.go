// components/admin/admin.go
//
// Admin component: dashboard of all users and recipes with delete actions.
// Reached only with the admin capability; a revoked admin token is handed to
// the gate, which drops the admin bit and sends the browser to /admin/login.

package admin

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

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

// DashboardPath is where admin login lands.
const DashboardPath = "/admin/dashboard"

// Component owns the admin pages.
type Component struct{}

func (c *Component) Name() string     { return "admin" }
func (c *Component) Templates() fs.FS { return templates }

// Mount adds the admin routes.  /admin/login belongs to components/auth.
func (c *Component) Mount(r chi.Router, d component.Deps) {
	h := &handlers{Deps: d}
	r.Get(DashboardPath, d.View.Handle(h.dashboard))
	r.Post("/admin/users/{id}/delete", d.View.Handle(h.deleteUser))
	r.Post("/admin/recipes/{id}/delete", d.View.Handle(h.deleteRecipe))
}

func init() { component.Register(&Component{}) }

type handlers struct{ component.Deps }

type dashboardPage struct {
	Users   []api.AdminUser
	Recipes []api.AdminRecipe
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, r, "")
}

// render loads both tables concurrently.
func (h *handlers) render(w http.ResponseWriter, r *http.Request, banner string) error {
	var p dashboardPage
	cli := h.Gate.API(r)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		p.Users, err = cli.AdminUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		p.Recipes, err = cli.AdminRecipes(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return h.View.Render(w, r, "admin", "dashboard", &view.Page{Title: "Admin dashboard", Error: banner, Data: p})
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) error {
	return h.delete(w, r, (*api.Client).AdminDeleteUser)
}

func (h *handlers) deleteRecipe(w http.ResponseWriter, r *http.Request) error {
	return h.delete(w, r, (*api.Client).AdminDeleteRecipe)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request, op func(*api.Client, context.Context, int64) error) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	if err := form.Parse(r); err != nil {
		return err
	}
	if err := op(h.Gate.API(r), r.Context(), id); err != nil {
		if msg, ok := component.Inline(err, "An error occurred"); ok {
			return h.render(w, r, msg)
		}
		return err
	}
	component.SeeOther(w, r, DashboardPath)
	return nil
}
