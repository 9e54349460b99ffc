package eventbus

import (
	"errors"
	"fmt"
	"strings"

	dErrors "engage/pkg/domain-errors"
)

// ErrUnregisteredType is wrapped by SchemaValidationError when no schema exists
// for the published type.
var ErrUnregisteredType = errors.New("no schema registered for event type")

// SchemaValidationError reports a payload that does not satisfy the schema of
// its event type. Publish returns it before any subscriber runs.
type SchemaValidationError struct {
	EventType string
	Fields    []dErrors.FieldError
	Err       error
}

func (e *SchemaValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("event %s: invalid payload: %v", e.EventType, e.Err)
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("event %s: invalid payload: %s", e.EventType, strings.Join(msgs, "; "))
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// SubscriberError describes a failed delivery. It is only ever logged.
type SubscriberError struct {
	EventType  string
	EventID    string
	Subscriber string
	Err        error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("event %s (%s): subscriber %s: %v", e.EventID, e.EventType, e.Subscriber, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}
