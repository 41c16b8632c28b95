package view

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/form"
	"github.com/yanizio/cookworld/internal/requestinfo"
)

// ErrNotFound renders the 404 page; handlers return it for malformed ids.
var ErrNotFound = errors.New("view: not found")

// Handle adapts fn.  A returned error is offered to every hook, then
// rendered as the error page.
func (e *Engine) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		for _, h := range e.hooks {
			if h(w, r, err) {
				return
			}
		}
		e.Fail(w, r, err)
	}
}

// Fail logs err and renders the fallback page for it.
func (e *Engine) Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	log := zap.S().With("path", r.URL.Path, "request_id", requestinfo.RequestID(r.Context()), "status", status)
	if status >= http.StatusInternalServerError {
		log.Errorw("view failed", "err", err)
	} else {
		log.Infow("view failed", "err", err)
	}
	e.renderError(w, r, status, msg)
}

// ErrorPage renders the generic failure page; Recover uses it.
func (e *Engine) ErrorPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.renderError(w, r, http.StatusInternalServerError, genericMessage)
	})
}

// Loading renders the neutral placeholder.  The gate sets the refresh and
// cache headers.
func (e *Engine) Loading() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := e.Render(w, r, core, "loading", &Page{Title: "Loading", Bare: true}); err != nil {
			logRenderFailure(r, err)
			http.Error(w, "Loading…", http.StatusOK)
		}
	})
}

const genericMessage = "Something went wrong.  Please try again."

func (e *Engine) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p := &Page{Title: http.StatusText(status), Error: msg}
	if err := e.RenderStatus(w, r, status, core, "error", p); err != nil {
		logRenderFailure(r, err)
		http.Error(w, msg, status)
	}
}

// classify maps err to a status and a message safe to show.
func classify(err error) (int, string) {
	var aerr *api.Error
	switch {
	case api.IsNetwork(err):
		return http.StatusBadGateway, api.NetworkMessage
	case errors.Is(err, form.ErrInvalidToken):
		return http.StatusForbidden, form.TokenMessage
	case errors.Is(err, ErrNotFound), api.IsNotFound(err):
		return http.StatusNotFound, "Not found."
	case errors.As(err, &aerr):
		if aerr.StatusCode >= http.StatusInternalServerError {
			return http.StatusBadGateway, "The server had a problem.  Please try again later."
		}
		return aerr.StatusCode, aerr.Message
	default:
		return http.StatusInternalServerError, genericMessage
	}
}
