package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-chi/chi/v5"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/validation"
)

// Request parts a schema can be attached to. They double as the location of
// reported field errors.
const (
	locationBody   = "body"
	locationQuery  = "query"
	locationParams = "params"
)

var validate = validation.New()

// Schema decodes one part of a request into a typed value and validates it.
// Build one with Struct.
type Schema interface {
	decode(r *http.Request, location string) (any, []dErrors.FieldError)
}

type structSchema[T any] struct{}

// Struct returns a schema for T. Body fields are read by their json tag, query
// fields by their query tag and path parameters by their param tag; rules come
// from validate tags:
//
//	type createRecognition struct {
//		ReceiverID string `json:"receiverId" validate:"required,uuid"`
//		Points     int    `json:"points" validate:"required,min=1"`
//	}
func Struct[T any]() Schema {
	return structSchema[T]{}
}

func (structSchema[T]) decode(r *http.Request, location string) (any, []dErrors.FieldError) {
	var v T
	var err error
	switch location {
	case locationBody:
		err = decodeBody(r, &v)
	case locationQuery:
		err = binding.MapFormWithTag(&v, r.URL.Query(), "query")
	case locationParams:
		err = binding.MapFormWithTag(&v, urlParams(r), "param")
	}
	if err != nil {
		return nil, []dErrors.FieldError{{Location: location, Field: location, Message: describeDecode(location, err)}}
	}
	if err := validate.Struct(&v); err != nil {
		return nil, validation.FieldErrors(err, location)
	}
	return v, nil
}

// decodeBody reads a JSON body. An empty body decodes as an empty object so
// the client is told which fields are required rather than that the body is
// missing.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func describeDecode(location string, err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return "request body is not valid JSON"
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return typeErr.Field + " has the wrong type"
		}
		return "request body has the wrong type"
	default:
		return location + " could not be parsed"
	}
}

func urlParams(r *http.Request) map[string][]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	out := make(map[string][]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		out[k] = []string{rctx.URLParams.Values[i]}
	}
	return out
}

type validatedKey struct{ location string }

// validator runs every configured schema and rejects the request with all
// collected field errors if any fails. Decoded values are stored for the
// handler; see Body, Query and Params.
func (g *Gateway) validator(cfg ValidationConfig) func(http.Handler) http.Handler {
	parts := []struct {
		location string
		schema   Schema
	}{
		{locationBody, cfg.Body},
		{locationQuery, cfg.Query},
		{locationParams, cfg.Params},
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var fields []dErrors.FieldError
			for _, p := range parts {
				if p.schema == nil {
					continue
				}
				v, errs := p.schema.decode(r, p.location)
				if len(errs) > 0 {
					fields = append(fields, errs...)
					continue
				}
				ctx = context.WithValue(ctx, validatedKey{p.location}, v)
			}
			if len(fields) > 0 {
				g.writeError(w, r, dErrors.Validation(fields...))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validated[T any](r *http.Request, location string) (T, bool) {
	v, ok := r.Context().Value(validatedKey{location}).(T)
	return v, ok
}

// Body returns the validated body of r. ok is false when the route has no
// body schema of type T.
func Body[T any](r *http.Request) (T, bool) {
	return validated[T](r, locationBody)
}

// Query returns the validated query parameters of r.
func Query[T any](r *http.Request) (T, bool) {
	return validated[T](r, locationQuery)
}

// Params returns the validated path parameters of r.
func Params[T any](r *http.Request) (T, bool) {
	return validated[T](r, locationParams)
}
