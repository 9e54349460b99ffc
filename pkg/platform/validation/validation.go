// Package validation configures go-playground/validator for struct schemas and
// converts its errors into client-facing field errors.
//
// Field paths use the wire names of the fields (json, query or param tags) so a
// missing "points" body field is reported as "points", not "Points".
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "engage/pkg/domain-errors"
)

// tagPriority lists the struct tags consulted for a field's wire name.
var tagPriority = []string{"json", "query", "param"}

// New returns a validator that reports fields by their wire names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(wireName)
	return v
}

func wireName(fld reflect.StructField) string {
	for _, tag := range tagPriority {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// FieldErrors converts a validator error into field errors tagged with
// location. Errors that are not validation failures yield a single entry
// describing the problem at the root.
func FieldErrors(err error, location string) []dErrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []dErrors.FieldError{{Location: location, Field: location, Message: err.Error()}}
	}
	out := make([]dErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe)
		out = append(out, dErrors.FieldError{
			Location: location,
			Field:    path,
			Message:  describe(path, fe),
		})
	}
	return out
}

// fieldPath strips the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx != -1 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return fmt.Sprintf("%s is required", path)
	case "min", "gte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items or characters", path, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items or characters", path, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", path, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", path)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", path)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", path, fe.Param())
	case "gtfield", "gtefield":
		return fmt.Sprintf("%s must not be before %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", path, fe.Tag())
	}
}
