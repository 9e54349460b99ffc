package eventbus

import (
	"context"
	"maps"
	"time"
)

// Envelope is the metadata-wrapped form of a published event. ID and Timestamp
// are assigned by the bus and never change afterwards; subscribers receive
// their own copy.
type Envelope struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	Source         string         `json:"source"`
	Version        int            `json:"version"`
	CorrelationID  string         `json:"correlationId"`
	UserID         string         `json:"userId,omitempty"`
	OrganizationID string         `json:"organizationId,omitempty"`
	Data           any            `json:"data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (e Envelope) clone() Envelope {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

// Meta carries the caller-supplied envelope fields. Empty UserID,
// OrganizationID and CorrelationID are filled from the request context.
type Meta struct {
	Source         string
	Version        int
	CorrelationID  string
	UserID         string
	OrganizationID string
	Metadata       map[string]any
}

// Draft is an unsealed event as produced by the domain event catalog. The bus
// stamps ID and Timestamp when the draft is published.
type Draft struct {
	Type string
	Data any
	Meta Meta
}

// Handler reacts to a delivered envelope. Returned errors are logged and never
// reach the publisher.
type Handler func(ctx context.Context, env Envelope) error
