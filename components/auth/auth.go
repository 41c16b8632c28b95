// components/auth/auth.go
//
// Authentication component: user login, registration, admin login, and
// logout.
//
// Every credential form is validated locally before any network call.
// Backend rejections are rendered inline and never reach the gate's
// reactive downgrade: a wrong password on /login is not a revoked session.
//
//------------------------------------------------------------------------------

package auth

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/component"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/gate"
	"github.com/yanizio/cookworld/internal/view"
)

//go:embed templates
var templates embed.FS

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates the credential flows.
type Component struct{}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Templates returns the embedded page set.
func (c *Component) Templates() fs.FS { return templates }

// Mount adds the credential routes.
func (c *Component) Mount(r chi.Router, d component.Deps) {
	h := &handlers{Deps: d}
	r.Get(gate.LoginPath, d.View.Handle(h.getLogin))
	r.Post(gate.LoginPath, d.View.Handle(h.postLogin))
	r.Get("/register", d.View.Handle(h.getRegister))
	r.Post("/register", d.View.Handle(h.postRegister))
	r.Get(gate.AdminLoginPath, d.View.Handle(h.getAdminLogin))
	r.Post(gate.AdminLoginPath, d.View.Handle(h.postAdminLogin))
	r.Post("/logout", h.logout)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Forms ────────────────────────────────────────*/

type loginForm struct {
	Username string `form:"username" validate:"notblank" msg:"Username cannot be empty"`
	Password string `form:"password" validate:"required" msg:"Password cannot be empty"`
}

type registerForm struct {
	Username string `form:"username"         validate:"notblank"        msg:"Username cannot be empty"`
	Password string `form:"password"         validate:"min=6"           msg:"Password must be at least 6 characters long"`
	Confirm  string `form:"confirm_password" validate:"eqfield=Password" msg:"Passwords do not match"`
}

func (f *loginForm) credentials() api.Credentials {
	return api.Credentials{Username: strings.TrimSpace(f.Username), Password: f.Password}
}

// credentialsPage feeds login.html for both login flavours.
type credentialsPage struct {
	Heading  string
	Action   string
	Username string
	Admin    bool
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type handlers struct{ component.Deps }

func (h *handlers) getLogin(w http.ResponseWriter, r *http.Request) error {
	p := &view.Page{Title: "Log in", Data: credentialsPage{Heading: "Log in", Action: gate.LoginPath}}
	if r.URL.Query().Get("registered") != "" {
		p.Notice = "Account created.  Please log in."
	}
	return h.View.Render(w, r, "auth", "login", p)
}

func (h *handlers) postLogin(w http.ResponseWriter, r *http.Request) error {
	return h.submitLogin(w, r, credentialsPage{Heading: "Log in", Action: gate.LoginPath}, h.Gate.Login, gate.HomePath)
}

func (h *handlers) getAdminLogin(w http.ResponseWriter, r *http.Request) error {
	return h.View.Render(w, r, "auth", "login", &view.Page{
		Title: "Admin login",
		Data:  credentialsPage{Heading: "Admin login", Action: gate.AdminLoginPath, Admin: true},
	})
}

func (h *handlers) postAdminLogin(w http.ResponseWriter, r *http.Request) error {
	return h.submitLogin(w, r, credentialsPage{Heading: "Admin login", Action: gate.AdminLoginPath, Admin: true}, h.Gate.AdminLogin, "/admin/dashboard")
}

// submitLogin runs either login transition and re-renders on failure.
func (h *handlers) submitLogin(w http.ResponseWriter, r *http.Request, page credentialsPage,
	login func(*http.Request, api.Credentials) error, next string) error {

	var in loginForm
	render := func(p *view.Page) error {
		page.Username = in.Username
		p.Title, p.Data = page.Heading, page
		return h.View.Render(w, r, "auth", "login", p)
	}

	if err := form.HandleSubmit(r, &in); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return render(&view.Page{Errors: fields})
		}
		return err
	}

	if err := login(r, in.credentials()); err != nil {
		if msg, ok := loginMessage(err); ok {
			return render(&view.Page{Error: msg})
		}
		return err
	}
	component.SeeOther(w, r, next)
	return nil
}

func (h *handlers) getRegister(w http.ResponseWriter, r *http.Request) error {
	return h.View.Render(w, r, "auth", "register", &view.Page{Title: "Create account", Data: &registerForm{}})
}

func (h *handlers) postRegister(w http.ResponseWriter, r *http.Request) error {
	var in registerForm
	render := func(p *view.Page) error {
		in.Password, in.Confirm = "", ""
		p.Title, p.Data = "Create account", &in
		return h.View.Render(w, r, "auth", "register", p)
	}

	if err := form.HandleSubmit(r, &in); err != nil {
		if fields, ok := form.IsValidationError(err); ok {
			return render(&view.Page{Errors: fields})
		}
		return err
	}

	cr := api.Credentials{Username: strings.TrimSpace(in.Username), Password: in.Password}
	if err := h.Gate.API(r).Register(r.Context(), cr); err != nil {
		if msg, ok := registerMessage(err); ok {
			return render(&view.Page{Error: msg})
		}
		return err
	}
	component.SeeOther(w, r, gate.LoginPath+"?registered=1")
	return nil
}

// logout is idempotent and works without a session.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	h.Gate.Logout(w, r)
	component.SeeOther(w, r, gate.HomePath)
}

/*──────────────────────────── Messages ─────────────────────────────────────*/

// loginMessage maps a login failure to the banner text.  Non-API errors are
// left to the error boundary.
func loginMessage(err error) (string, bool) {
	aerr, ok := api.AsError(err)
	switch {
	case !ok:
		return "", false
	case aerr.StatusCode == 0:
		return api.NetworkMessage, true
	case strings.Contains(aerr.Message, "Invalid credentials"):
		return "Invalid username or password.", true
	default:
		return aerr.Message, true
	}
}

func registerMessage(err error) (string, bool) {
	aerr, ok := api.AsError(err)
	switch {
	case !ok:
		return "", false
	case aerr.StatusCode == 0:
		return api.NetworkMessage, true
	case api.IsConflict(err), strings.Contains(aerr.Message, "already"):
		return "Username is already taken", true
	case aerr.Message == "":
		return "Unknown error", true
	default:
		return aerr.Message, true
	}
}
