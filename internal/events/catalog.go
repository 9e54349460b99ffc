// Package events is the domain event catalog: one canonical payload schema per
// event type, plus factories that turn already-validated domain data into
// drafts ready for eventbus.Bus.PublishDraft.
//
// Factories stamp type, source and a correlation id built from the entity id
// and a millisecond timestamp. They never validate; the schema registered by
// Register is the final gate at publish time.
package events

import (
	"fmt"
	"strconv"
	"time"

	"engage/internal/eventbus"
)

// Sources identify the publishing domain module.
const (
	SourceRecognition = "recognition"
	SourceSocial      = "social"
	SourceSurvey      = "survey"
	SourceLeave       = "leave"
	SourceEmployee    = "employee"
)

// now is the clock used for correlation id suffixes.
var now = time.Now

type entry struct {
	eventType string
	schema    eventbus.Schema
}

var catalog = []entry{
	{TypeRecognitionCreated, eventbus.StructSchema[RecognitionCreated]()},
	{TypeRecognitionApproved, eventbus.StructSchema[RecognitionApproved]()},
	{TypeRecognitionRejected, eventbus.StructSchema[RecognitionRejected]()},

	{TypePostCreated, eventbus.StructSchema[PostCreated]()},
	{TypeCommentAdded, eventbus.StructSchema[CommentAdded]()},
	{TypeReactionAdded, eventbus.StructSchema[ReactionAdded]()},

	{TypeSurveyPublished, eventbus.StructSchema[SurveyPublished]()},
	{TypeSurveyResponseSubmitted, eventbus.StructSchema[SurveyResponseSubmitted]()},
	{TypeSurveyClosed, eventbus.StructSchema[SurveyClosed]()},

	{TypeLeaveRequested, eventbus.StructSchema[LeaveRequested]()},
	{TypeLeaveApproved, eventbus.StructSchema[LeaveApproved]()},
	{TypeLeaveRejected, eventbus.StructSchema[LeaveRejected]()},

	{TypeEmployeeOnboarded, eventbus.StructSchema[EmployeeOnboarded]()},
	{TypeEmployeeUpdated, eventbus.StructSchema[EmployeeUpdated]()},
	{TypeEmployeeOffboarded, eventbus.StructSchema[EmployeeOffboarded]()},
}

// Register adds every catalog schema to registry.
func Register(registry *eventbus.Registry) error {
	for _, e := range catalog {
		if err := registry.Register(e.eventType, e.schema); err != nil {
			return fmt.Errorf("register catalog: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding exactly the catalog schemas.
func NewRegistry() *eventbus.Registry {
	registry := eventbus.NewRegistry()
	if err := Register(registry); err != nil {
		// catalog entries are static; a duplicate here is a programming error
		panic(err)
	}
	return registry
}

// Types lists every event type in the catalog, grouped by domain.
func Types() []string {
	out := make([]string, len(catalog))
	for i, e := range catalog {
		out[i] = e.eventType
	}
	return out
}

// CorrelationID builds "<entityID>-<unix millis>".
func CorrelationID(entityID string) string {
	return entityID + "-" + strconv.FormatInt(now().UnixMilli(), 10)
}

func draft(eventType, source, entityID, organizationID string, data any) eventbus.Draft {
	return eventbus.Draft{
		Type: eventType,
		Data: data,
		Meta: eventbus.Meta{
			Source:         source,
			Version:        1,
			CorrelationID:  CorrelationID(entityID),
			OrganizationID: organizationID,
		},
	}
}
