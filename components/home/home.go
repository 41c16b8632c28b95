// components/home/home.go
//
// Home component: the public landing page.  Its links follow the committed
// capability set; the page itself makes no backend calls.

package home

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/gate"
	"github.com/yanizio/cookworld/internal/view"
)

//go:embed templates
var templates embed.FS

var _ component.Component = (*Component)(nil)

// Component serves "/".
type Component struct{}

func (c *Component) Name() string     { return "home" }
func (c *Component) Templates() fs.FS { return templates }

func (c *Component) Mount(r chi.Router, d component.Deps) {
	r.Get(gate.HomePath, d.View.Handle(func(w http.ResponseWriter, r *http.Request) error {
		return d.View.Render(w, r, "home", "home", &view.Page{Title: "Welcome"})
	}))
}

func init() { component.Register(&Component{}) }
