// Package models holds the notification types.
package models

import "time"

type Kind string

const (
	KindRecognitionReceived Kind = "recognition_received"
	KindRecognitionRejected Kind = "recognition_rejected"
	KindMentioned           Kind = "mentioned"
	KindComment             Kind = "comment"
	KindReaction            Kind = "reaction"
	KindSurveyInvite        Kind = "survey_invite"
	KindLeaveDecision       Kind = "leave_decision"
)

// Notification is one message for one recipient, derived from an event.
type Notification struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	RecipientID    string    `json:"recipientId"`
	Kind           Kind      `json:"kind"`
	Title          string    `json:"title"`
	EventID        string    `json:"eventId"`
	EntityID       string    `json:"entityId"`
	CreatedAt      time.Time `json:"createdAt"`
}
