package events

import "engage/internal/eventbus"

const (
	TypeRecognitionCreated  = "recognition.created"
	TypeRecognitionApproved = "recognition.approved"
	TypeRecognitionRejected = "recognition.rejected"
)

// RecognitionCreated is published when a giver sends points to a receiver.
// The points are debited from the giver when the recognition is created, so
// the transaction and the giver's balance movement are part of the event.
type RecognitionCreated struct {
	RecognitionID  string `json:"recognitionId" validate:"required"`
	TransactionID  string `json:"transactionId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	GiverID        string `json:"giverId" validate:"required"`
	ReceiverID     string `json:"receiverId" validate:"required,nefield=GiverID"`
	Points         int    `json:"points" validate:"required,min=1"`
	Message        string `json:"message" validate:"required,max=500"`
	Category       string `json:"category,omitempty" validate:"omitempty,oneof=teamwork innovation leadership customer values"`
	RequiresReview bool   `json:"requiresReview"`
	BalanceBefore  int    `json:"balanceBefore" validate:"min=0"`
	BalanceAfter   int    `json:"balanceAfter" validate:"min=0,ltfield=BalanceBefore"`
}

// RecognitionApproved is the one canonical shape for an approval. The balance
// fields describe the receiver's account, credited by TransactionID.
type RecognitionApproved struct {
	RecognitionID  string `json:"recognitionId" validate:"required"`
	TransactionID  string `json:"transactionId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	GiverID        string `json:"giverId" validate:"required"`
	ReceiverID     string `json:"receiverId" validate:"required"`
	ApprovedBy     string `json:"approvedBy" validate:"required"`
	Points         int    `json:"points" validate:"required,min=1"`
	BalanceBefore  int    `json:"balanceBefore" validate:"min=0"`
	BalanceAfter   int    `json:"balanceAfter" validate:"gtfield=BalanceBefore"`
}

// RecognitionRejected is published when a reviewer declines a recognition and
// the points are refunded to the giver.
type RecognitionRejected struct {
	RecognitionID  string `json:"recognitionId" validate:"required"`
	TransactionID  string `json:"transactionId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	GiverID        string `json:"giverId" validate:"required"`
	ReceiverID     string `json:"receiverId" validate:"required"`
	RejectedBy     string `json:"rejectedBy" validate:"required"`
	Reason         string `json:"reason" validate:"required,max=500"`
	Points         int    `json:"points" validate:"required,min=1"`
}

func NewRecognitionCreated(p RecognitionCreated) eventbus.Draft {
	return draft(TypeRecognitionCreated, SourceRecognition, p.RecognitionID, p.OrganizationID, p)
}

func NewRecognitionApproved(p RecognitionApproved) eventbus.Draft {
	return draft(TypeRecognitionApproved, SourceRecognition, p.RecognitionID, p.OrganizationID, p)
}

func NewRecognitionRejected(p RecognitionRejected) eventbus.Draft {
	return draft(TypeRecognitionRejected, SourceRecognition, p.RecognitionID, p.OrganizationID, p)
}
