// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, checks the CSRF
//   token, binds inputs into a struct, and validates it.  HandleSubmit
//   provides that so component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	formdec "github.com/go-playground/form/v4"
)

// maxMemory bounds in-memory multipart parsing (profile image uploads).
const maxMemory = 8 << 20

// ErrInvalidToken is returned when the CSRF token is missing or stale.
var ErrInvalidToken = errors.New("form: security token invalid")

// TokenMessage is the banner shown for ErrInvalidToken.
const TokenMessage = "Security token invalid.  Please refresh and try again."

var decoder = formdec.NewDecoder()

// Parse reads the body of r and verifies its CSRF token.
func Parse(r *http.Request) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	if !VerifyToken(r.PostFormValue(TokenField)) {
		return ErrInvalidToken
	}
	return nil
}

// HandleSubmit parses r, binds its inputs into dst (a pointer to a struct
// tagged with `form`), and validates dst.  On bad input it returns a
// *ValidationError (check with IsValidationError); a bad CSRF token is
// reported the same way as a form-level error.
func HandleSubmit(r *http.Request, dst any) error {
	if err := Parse(r); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return &ValidationError{Fields: Errors{{Message: TokenMessage}}}
		}
		return err
	}
	if err := decoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("bind form: %w", err)
	}
	if errs := Validate(dst); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
