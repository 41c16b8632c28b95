package manage

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/view"
)

type recipeForm struct {
	Title        string   `form:"title"        validate:"notblank" msg:"Title and instructions are required"`
	Description  string   `form:"description"`
	Instructions string   `form:"instructions" validate:"notblank" msg:"Title and instructions are required"`
	Ingredients  string   `form:"ingredients"`
	Tags         []string `form:"tags"`
}

func (f *recipeForm) input(id int64) api.RecipeInput {
	return api.RecipeInput{
		ID:           id,
		Title:        strings.TrimSpace(f.Title),
		Description:  strings.TrimSpace(f.Description),
		Instructions: strings.TrimSpace(f.Instructions),
		Ingredients:  parseIngredients(f.Ingredients),
		Tags:         compact(f.Tags),
	}
}

func recipeFormFrom(rec api.Recipe) recipeForm {
	return recipeForm{
		Title:        rec.Title,
		Description:  rec.Description,
		Instructions: rec.Instructions,
		Ingredients:  formatIngredients(rec.Ingredients),
		Tags:         rec.Tags,
	}
}

// parseIngredients reads one "name: quantity" pair per line.  A line
// without a colon is a name with no quantity; blank names are dropped.
func parseIngredients(text string) []api.Ingredient {
	out := []api.Ingredient{}
	for _, line := range strings.Split(text, "\n") {
		name, qty, _ := strings.Cut(line, ":")
		name, qty = strings.TrimSpace(name), strings.TrimSpace(qty)
		if name == "" {
			continue
		}
		out = append(out, api.Ingredient{Name: name, Quantity: qty})
	}
	return out
}

func formatIngredients(list []api.Ingredient) string {
	var b strings.Builder
	for _, in := range list {
		b.WriteString(in.Name)
		if in.Quantity != "" {
			b.WriteString(": ")
			b.WriteString(in.Quantity)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func compact(vals []string) []string {
	out := []string{}
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// recipePage feeds recipe.html for both add and edit.
type recipePage struct {
	ID       int64 // zero when adding
	Form     recipeForm
	Tags     []api.Tag
	Selected map[string]bool
}

func (p *recipePage) Action() string {
	if p.ID == 0 {
		return "/manage/recipes/new"
	}
	return "/manage/recipes/" + itoa(p.ID)
}

func (h *handlers) renderRecipe(w http.ResponseWriter, r *http.Request, p *recipePage, vp *view.Page) error {
	if p.Tags == nil {
		tags, err := h.Gate.API(r).Tags(r.Context())
		if err != nil {
			return err
		}
		p.Tags = tags
	}
	p.Selected = map[string]bool{}
	for _, t := range p.Form.Tags {
		p.Selected[t] = true
	}
	if vp == nil {
		vp = &view.Page{}
	}
	vp.Title, vp.Data = "Add recipe", p
	if p.ID != 0 {
		vp.Title = "Edit recipe"
	}
	return h.View.Render(w, r, "manage", "recipe", vp)
}

func (h *handlers) newRecipe(w http.ResponseWriter, r *http.Request) error {
	return h.renderRecipe(w, r, &recipePage{}, nil)
}

// editRecipe loads the recipe and the tag list concurrently.
func (h *handlers) editRecipe(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	p := &recipePage{ID: id}
	cli := h.Gate.API(r)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		rec, err := cli.Recipe(ctx, id)
		p.Form = recipeFormFrom(rec)
		return err
	})
	g.Go(func() (err error) {
		p.Tags, err = cli.Tags(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return h.renderRecipe(w, r, p, nil)
}

func (h *handlers) createRecipe(w http.ResponseWriter, r *http.Request) error {
	return h.saveRecipe(w, r, 0)
}

func (h *handlers) updateRecipe(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	return h.saveRecipe(w, r, id)
}

func (h *handlers) saveRecipe(w http.ResponseWriter, r *http.Request, id int64) error {
	p := &recipePage{ID: id}
	if err := form.HandleSubmit(r, &p.Form); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return h.renderRecipe(w, r, p, &view.Page{Errors: fields})
		}
		return err
	}

	cli := h.Gate.API(r)
	var err error
	if id == 0 {
		err = cli.CreateRecipe(r.Context(), p.Form.input(0))
	} else {
		err = cli.UpdateRecipe(r.Context(), p.Form.input(id))
	}
	if err != nil {
		if msg, ok := component.Inline(err, "Failed to save recipe"); ok {
			return h.renderRecipe(w, r, p, &view.Page{Error: msg})
		}
		return err
	}
	component.SeeOther(w, r, "/manage")
	return nil
}

func (h *handlers) deleteRecipe(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	if err := form.Parse(r); err != nil {
		return err
	}
	if err := h.Gate.API(r).DeleteRecipe(r.Context(), id); err != nil {
		if msg, ok := component.Inline(err, "Failed to delete recipe"); ok {
			return h.renderOverview(w, r, msg)
		}
		return err
	}
	component.SeeOther(w, r, "/manage")
	return nil
}
