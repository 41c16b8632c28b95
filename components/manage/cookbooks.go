package manage

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/view"
)

type cookbookForm struct {
	Title       string `form:"title"       validate:"notblank" msg:"Title is required"`
	Description string `form:"description"`
}

func (f *cookbookForm) input() api.CookbookInput {
	return api.CookbookInput{Title: strings.TrimSpace(f.Title), Description: strings.TrimSpace(f.Description)}
}

type collaboratorForm struct {
	Username string `form:"username" validate:"notblank" msg:"Username cannot be empty"`
}

type recipeChoice struct {
	RecipeID int64 `form:"recipe_id" validate:"gt=0" msg:"Choose a recipe to add"`
}

// cookbookPage feeds cookbook.html.  Cookbook is nil on the create page.
type cookbookPage struct {
	Cookbook  *api.Cookbook
	Form      cookbookForm
	Available []api.Recipe // caller's recipes not yet in the cookbook
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func cookbookPath(id int64) string { return "/manage/cookbooks/" + itoa(id) }

func (h *handlers) newCookbook(w http.ResponseWriter, r *http.Request) error {
	return h.View.Render(w, r, "manage", "cookbook", &view.Page{Title: "Add cookbook", Data: &cookbookPage{}})
}

func (h *handlers) createCookbook(w http.ResponseWriter, r *http.Request) error {
	p := &cookbookPage{}
	render := func(vp *view.Page) error {
		vp.Title, vp.Data = "Add cookbook", p
		return h.View.Render(w, r, "manage", "cookbook", vp)
	}
	if err := form.HandleSubmit(r, &p.Form); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return render(&view.Page{Errors: fields})
		}
		return err
	}
	if _, err := h.Gate.API(r).CreateCookbook(r.Context(), p.Form.input()); err != nil {
		if msg, ok := component.Inline(err, "Failed to create cookbook"); ok {
			return render(&view.Page{Error: msg})
		}
		return err
	}
	component.SeeOther(w, r, "/manage")
	return nil
}

func (h *handlers) editCookbook(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	return h.renderCookbook(w, r, id, nil, &view.Page{})
}

// renderCookbook loads the cookbook and the caller's recipes concurrently.
// A non-nil f replaces the stored title and description in the edit form.
func (h *handlers) renderCookbook(w http.ResponseWriter, r *http.Request, id int64, f *cookbookForm, vp *view.Page) error {
	var (
		cb   api.Cookbook
		mine []api.Recipe
	)
	cli := h.Gate.API(r)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		cb, err = cli.Cookbook(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		mine, err = cli.MyRecipes(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p := &cookbookPage{Cookbook: &cb, Form: cookbookForm{Title: cb.Title, Description: cb.Description}}
	if f != nil {
		p.Form = *f
	}
	in := make(map[int64]bool, len(cb.Recipes))
	for _, rec := range cb.Recipes {
		in[rec.ID] = true
	}
	for _, rec := range mine {
		if !in[rec.ID] {
			p.Available = append(p.Available, rec)
		}
	}
	vp.Title, vp.Data = "Manage "+cb.Title, p
	return h.View.Render(w, r, "manage", "cookbook", vp)
}

func (h *handlers) updateCookbook(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	var in cookbookForm
	if err := form.HandleSubmit(r, &in); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return h.renderCookbook(w, r, id, &in, &view.Page{Errors: fields})
		}
		return err
	}
	_, err = h.Gate.API(r).UpdateCookbook(r.Context(), id, in.input())
	return h.afterCookbook(w, r, id, err, "Failed to update cookbook")
}

func (h *handlers) deleteCookbook(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	if err := form.Parse(r); err != nil {
		return err
	}
	if err := h.Gate.API(r).DeleteCookbook(r.Context(), id); err != nil {
		return h.afterCookbook(w, r, id, err, "Failed to delete cookbook")
	}
	component.SeeOther(w, r, "/manage")
	return nil
}

func (h *handlers) addRecipe(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	var in recipeChoice
	if err := form.HandleSubmit(r, &in); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return h.renderCookbook(w, r, id, nil, &view.Page{Errors: fields})
		}
		return err
	}
	err = h.Gate.API(r).AddCookbookRecipe(r.Context(), id, in.RecipeID)
	return h.afterCookbook(w, r, id, err, "Failed to add recipe")
}

func (h *handlers) removeRecipe(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	recipeID, err := component.ParamID(r, "recipeId")
	if err != nil {
		return err
	}
	if err := form.Parse(r); err != nil {
		return err
	}
	err = h.Gate.API(r).RemoveCookbookRecipe(r.Context(), id, recipeID)
	return h.afterCookbook(w, r, id, err, "Failed to remove recipe")
}

func (h *handlers) addCollaborator(w http.ResponseWriter, r *http.Request) error {
	return h.collaborator(w, r, (*api.Client).AddCollaborator, "Failed to add collaborator")
}

func (h *handlers) removeCollaborator(w http.ResponseWriter, r *http.Request) error {
	return h.collaborator(w, r, (*api.Client).RemoveCollaborator, "Failed to remove collaborator")
}

func (h *handlers) collaborator(w http.ResponseWriter, r *http.Request,
	op func(*api.Client, context.Context, int64, string) error, failed string) error {

	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	var in collaboratorForm
	if err := form.HandleSubmit(r, &in); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return h.renderCookbook(w, r, id, nil, &view.Page{Errors: fields})
		}
		return err
	}
	err = op(h.Gate.API(r), r.Context(), id, strings.TrimSpace(in.Username))
	return h.afterCookbook(w, r, id, err, failed)
}

// afterCookbook finishes a cookbook mutation: back to the manage page on
// success, the same page with a banner on a domain error.
func (h *handlers) afterCookbook(w http.ResponseWriter, r *http.Request, id int64, err error, failed string) error {
	if err == nil {
		component.SeeOther(w, r, cookbookPath(id))
		return nil
	}
	if msg, ok := component.Inline(err, failed); ok {
		return h.renderCookbook(w, r, id, nil, &view.Page{Error: msg})
	}
	return err
}
