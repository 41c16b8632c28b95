// internal/form/validate.go
//
// Forms subsystem: server-side validation of bound form structs.
//
// Context
//   Handlers bind the posted body into a small struct whose fields carry
//   `form` (input name), `validate` (go-playground rules), and optional `msg`
//   (user-facing text) tags.  Validate runs the rules and returns one
//   ErrorField per failing input, in declaration order, so templates can
//   render the message next to the input or as a single banner.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ErrorField describes a single validation failure so the template can render
// a field-level message.
type ErrorField struct {
	Name    string // input name; empty for form-level problems
	Message string // user-facing message
}

// Errors is the ordered list of failures for one submission.
type Errors []ErrorField

// Get returns the first message for name, or "".
func (e Errors) Get(name string) string {
	for _, f := range e {
		if f.Name == name {
			return f.Message
		}
	}
	return ""
}

// First returns the first message, or "".
func (e Errors) First() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

// ValidationError wraps Errors and satisfies the error interface.
//
// It lets callers distinguish user input errors from system failures via
// errors.As / IsValidationError.
type ValidationError struct{ Fields Errors }

func (ve *ValidationError) Error() string { return "form validation failed: " + ve.Fields.First() }

// IsValidationError reports whether err came from a failed submission and
// returns its fields.
func IsValidationError(err error) (Errors, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func instance() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		vInst = v
	})
	return vInst
}

// Validate checks v (a pointer to a tagged struct) and returns its field
// errors.  A nil result means the input is acceptable.
func Validate(v any) Errors {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Message: err.Error()}}
	}

	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ErrorField{Name: fe.Field(), Message: message(rt, fe)})
	}
	return out
}

// message prefers the field's `msg` tag, then a generic text per rule.
func message(rt reflect.Type, fe validator.FieldError) string {
	if sf, ok := rt.FieldByName(fe.StructField()); ok {
		if m := sf.Tag.Get("msg"); m != "" {
			return m
		}
	}
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be less than %s characters.", fe.Param())
	case "eqfield":
		return "Values do not match."
	case "url":
		return "Must be a valid URL."
	default:
		return "Invalid input."
	}
}
