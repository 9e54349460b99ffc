// Package models holds the recognition domain types.
package models

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Recognition is one giver thanking one receiver with points. Points leave the
// giver's balance on creation and reach the receiver on approval; a rejection
// refunds the giver.
type Recognition struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	GiverID        string     `json:"giverId"`
	ReceiverID     string     `json:"receiverId"`
	Points         int        `json:"points"`
	Message        string     `json:"message"`
	Category       string     `json:"category,omitempty"`
	Status         Status     `json:"status"`
	RequiresReview bool       `json:"requiresReview"`
	TransactionID  string     `json:"transactionId"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReviewedBy     string     `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	RejectReason   string     `json:"rejectReason,omitempty"`
}

// IsPending reports whether the recognition still awaits review.
func (r *Recognition) IsPending() bool {
	return r.Status == StatusPending
}

// CreateCommand is the validated input for creating a recognition.
type CreateCommand struct {
	OrganizationID string
	GiverID        string
	ReceiverID     string
	Points         int
	Message        string
	Category       string
}

// BalanceChange is the result of moving points on one account.
type BalanceChange struct {
	Before int
	After  int
}

// Review is the outcome a reviewer records on a pending recognition.
type Review struct {
	Status       Status
	ReviewedBy   string
	ReviewedAt   time.Time
	RejectReason string
}
