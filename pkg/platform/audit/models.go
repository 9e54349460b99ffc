// Package audit records every domain event in an append-only trail.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and storage backends.
type EventCategory string

const (
	// CategoryCompliance covers events with legal or HR significance.
	// Examples: employee lifecycle, leave decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryRewards covers events that move points between balances.
	CategoryRewards EventCategory = "rewards"

	// CategoryOperations covers routine activity that can be sampled or
	// aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is one audit record derived from a published envelope. ID is the
// envelope ID, so re-appending the same envelope is idempotent.
type Event struct {
	ID             string
	Category       EventCategory
	Timestamp      time.Time
	EventType      string
	Source         string
	OrganizationID string
	// ActorID is the user who caused the event, when known.
	ActorID       string
	CorrelationID string
	Payload       json.RawMessage
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOrganization(ctx context.Context, organizationID string, limit int) ([]Event, error)
}

// exact event types whose category differs from their prefix.
var eventCategories = map[string]EventCategory{
	"leave.requested": CategoryOperations,
}

// prefixCategories maps the domain prefix of an event type to its category.
var prefixCategories = map[string]EventCategory{
	"employee":    CategoryCompliance,
	"leave":       CategoryCompliance,
	"recognition": CategoryRewards,
}

// CategoryOf returns the category for an event type.
// Unknown types default to CategoryOperations.
func CategoryOf(eventType string) EventCategory {
	if cat, ok := eventCategories[eventType]; ok {
		return cat
	}
	prefix, _, _ := strings.Cut(eventType, ".")
	if cat, ok := prefixCategories[prefix]; ok {
		return cat
	}
	return CategoryOperations
}
