// components/profile/profile.go
//
// Profile component: the caller's own profile (edit, image upload), public
// user profiles, and a same-origin proxy for profile images so pages never
// need the bearer token in the browser.

package profile

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
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

// Upload limits.
const (
	maxImageBytes = 2 << 20
	placeholder   = "/static/placeholder.svg"
)

var imageTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}

// Component owns /profile and /users.
type Component struct{}

func (c *Component) Name() string     { return "profile" }
func (c *Component) Templates() fs.FS { return templates }

// Mount adds the profile routes.
func (c *Component) Mount(r chi.Router, d component.Deps) {
	h := &handlers{Deps: d}
	r.Get("/profile", d.View.Handle(h.mine))
	r.Post("/profile", d.View.Handle(h.update))
	r.Post("/profile/image", d.View.Handle(h.upload))
	r.Get("/users/{id}", d.View.Handle(h.public))
	r.Get("/users/{id}/image", d.View.Handle(h.image))
}

func init() { component.Register(&Component{}) }

type handlers struct{ component.Deps }

type profileForm struct {
	Username string `form:"username" validate:"notblank" msg:"Username cannot be empty"`
	Bio      string `form:"bio"      validate:"max=500"`
}

// minePage feeds mine.html.
type minePage struct {
	Profile api.UserProfile
	Form    profileForm
}

func (h *handlers) mine(w http.ResponseWriter, r *http.Request) error {
	p := &view.Page{}
	switch r.URL.Query().Get("updated") {
	case "profile":
		p.Notice = "Profile updated"
	case "image":
		p.Notice = "Profile image updated"
	}
	return h.renderMine(w, r, nil, p)
}

// renderMine loads the caller's profile.  A non-nil f keeps the submitted
// inputs in the edit form.
func (h *handlers) renderMine(w http.ResponseWriter, r *http.Request, f *profileForm, vp *view.Page) error {
	me, err := h.Gate.API(r).Me(r.Context())
	if err != nil {
		return err
	}
	p := minePage{Profile: me, Form: profileForm{Username: me.Username, Bio: me.Bio}}
	if f != nil {
		p.Form = *f
	}
	vp.Title, vp.Data = "My profile", p
	return h.View.Render(w, r, "profile", "mine", vp)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) error {
	var in profileForm
	if err := form.HandleSubmit(r, &in); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return h.renderMine(w, r, &in, &view.Page{Errors: fields})
		}
		return err
	}
	_, err := h.Gate.API(r).UpdateProfile(r.Context(), api.ProfileUpdate{
		Username: strings.TrimSpace(in.Username),
		Bio:      strings.TrimSpace(in.Bio),
	})
	if err != nil {
		if msg, ok := component.Inline(err, "Failed to update profile"); ok {
			return h.renderMine(w, r, &in, &view.Page{Error: msg})
		}
		return err
	}
	component.SeeOther(w, r, "/profile?updated=profile")
	return nil
}

// upload checks type and size locally, then forwards the file as the
// multipart field "image".
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) error {
	reject := func(msg string) error { return h.renderMine(w, r, nil, &view.Page{Error: msg}) }

	if err := form.Parse(r); err != nil {
		return err
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		return reject("Choose an image to upload")
	}
	defer file.Close()

	if hdr.Size > maxImageBytes {
		return reject("Max size is 2MB")
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	ctype := http.DetectContentType(head[:n])
	if !imageTypes[ctype] {
		return reject("Only JPG, PNG, WEBP allowed")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := h.Gate.API(r).UploadProfileImage(r.Context(), hdr.Filename, ctype, file); err != nil {
		if msg, ok := component.Inline(err, "Failed to upload image"); ok {
			return reject(msg)
		}
		return err
	}
	component.SeeOther(w, r, "/profile?updated=image")
	return nil
}

// publicPage feeds public.html.
type publicPage struct {
	Profile   api.UserProfile
	Recipes   []api.Recipe
	Cookbooks []api.Cookbook
}

// public loads the profile and the user's recipes and cookbooks
// concurrently.
func (h *handlers) public(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	var p publicPage
	cli := h.Gate.API(r)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		p.Profile, err = cli.User(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		p.Recipes, err = cli.UserRecipes(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		p.Cookbooks, err = cli.UserCookbooks(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return h.View.Render(w, r, "profile", "public", &view.Page{Title: p.Profile.Username, Data: p})
}

// image proxies the backend blob.  A user without an image gets the
// placeholder.
func (h *handlers) image(w http.ResponseWriter, r *http.Request) error {
	id, err := component.ParamID(r, "id")
	if err != nil {
		return err
	}
	img, err := h.Gate.API(r).UserImage(r.Context(), id)
	if api.IsNotFound(err) || (err == nil && len(img.Data) == 0) {
		http.Redirect(w, r, placeholder, http.StatusFound)
		return nil
	}
	if err != nil {
		return err
	}
	hd := w.Header()
	hd.Set("Content-Type", img.ContentType)
	hd.Set("Cache-Control", "private, max-age=300")
	hd.Set("X-Content-Type-Options", "nosniff")
	_, err = w.Write(img.Data)
	return err
}
