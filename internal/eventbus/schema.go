package eventbus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"engage/pkg/platform/validation"
)

// Schema validates the payload of one event type.
type Schema interface {
	Validate(payload any) error
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc func(payload any) error

func (f SchemaFunc) Validate(payload any) error { return f(payload) }

var structValidator = validation.New()

type structSchema[T any] struct {
	validate *validator.Validate
}

// StructSchema returns a schema that accepts T or a non-nil *T and enforces
// T's `validate` struct tags.
func StructSchema[T any]() Schema {
	return structSchema[T]{validate: structValidator}
}

func (s structSchema[T]) Validate(payload any) error {
	var value T
	switch p := payload.(type) {
	case T:
		value = p
	case *T:
		if p == nil {
			return fmt.Errorf("payload is a nil %T", p)
		}
		value = *p
	default:
		return fmt.Errorf("payload has type %T, want %s", payload, reflect.TypeFor[T]())
	}
	return s.validate.Struct(value)
}

// Registry maps event types to their canonical schema. There is exactly one
// schema per type.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register adds the schema for eventType. Registering a type twice is an error
// so two modules cannot silently disagree about a payload.
func (r *Registry) Register(eventType string, schema Schema) error {
	if eventType == "" {
		return fmt.Errorf("event type is required")
	}
	if schema == nil {
		return fmt.Errorf("event %s: schema is required", eventType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[eventType]; exists {
		return fmt.Errorf("event %s: schema already registered", eventType)
	}
	r.schemas[eventType] = schema
	return nil
}

// MustRegister is Register for startup wiring; it panics on error.
func (r *Registry) MustRegister(eventType string, schema Schema) {
	if err := r.Register(eventType, schema); err != nil {
		panic(err)
	}
}

// Lookup returns the schema for eventType.
func (r *Registry) Lookup(eventType string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[eventType]
	return s, ok
}

// Types lists the registered event types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		out = append(out, t)
	}
	return out
}

// Validate checks payload against the schema of eventType.
func (r *Registry) Validate(eventType string, payload any) error {
	schema, ok := r.Lookup(eventType)
	if !ok {
		return &SchemaValidationError{EventType: eventType, Err: ErrUnregisteredType}
	}
	if err := schema.Validate(payload); err != nil {
		return &SchemaValidationError{
			EventType: eventType,
			Fields:    validation.FieldErrors(err, "data"),
			Err:       err,
		}
	}
	return nil
}
