package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/yanizio/cookworld/internal/requestinfo"
)

// Recover turns a panic into a logged 500.  fallback renders the error page;
// nil writes plain text.  http.ErrAbortHandler is re-raised untouched.
func Recover(fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zap.S().Errorw("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", requestinfo.RequestID(r.Context()),
					"stack", string(debug.Stack()),
				)
				if fallback != nil {
					fallback.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
