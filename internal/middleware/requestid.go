package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/yanizio/cookworld/internal/requestinfo"
)

// RequestIDHeader is echoed on responses and forwarded to the backend.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to the context.  A well-formed UUID from
// an upstream proxy is kept; anything else is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestinfo.WithRequestID(r.Context(), id)))
	})
}
