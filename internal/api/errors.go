package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// NetworkMessage is shown when the backend cannot be reached.
const NetworkMessage = "Cannot connect to server."

// unauthorizedPath is the backend's message for a rejected bearer token.
const unauthorizedPath = "Unauthorized path"

// Error is a normalized backend failure.  StatusCode is 0 when no response
// arrived.
type Error struct {
	StatusCode int
	Message    string
	Err        error // transport cause, if any
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return "backend unreachable: " + e.Message
	}
	return http.StatusText(e.StatusCode) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsUnauthorized reports an authorization failure: HTTP 401 or the
// backend's "Unauthorized path" body.
func IsUnauthorized(err error) bool {
	e, ok := AsError(err)
	return ok && (e.StatusCode == http.StatusUnauthorized || e.Message == unauthorizedPath)
}

// IsNetwork reports a connectivity failure.
func IsNetwork(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == 0
}

// IsConflict reports HTTP 409.
func IsConflict(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == http.StatusConflict
}

// IsNotFound reports HTTP 404.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == http.StatusNotFound
}

// Message returns the user-facing text for err.  Non-backend errors yield
// fallback.
func Message(err error, fallback string) string {
	if e, ok := AsError(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}

// errorMessage picks the most specific text from a failed response body:
// JSON "error", then JSON "message", then a short plain-text body, then the
// status text.
func errorMessage(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			switch {
			case payload.Error != "":
				return payload.Error
			case payload.Message != "":
				return payload.Message
			}
		}
	} else if trimmed != "" && len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
		return trimmed
	}
	return http.StatusText(status)
}
