package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"engage/internal/eventbus"
)

type CatalogSuite struct {
	suite.Suite
	bus *eventbus.Bus
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupSuite() {
	now = func() time.Time { return time.UnixMilli(1767225600000) }
}

func (s *CatalogSuite) TearDownSuite() {
	now = time.Now
}

func (s *CatalogSuite) SetupTest() {
	s.bus = eventbus.New(NewRegistry())
}

func (s *CatalogSuite) approved() RecognitionApproved {
	return RecognitionApproved{
		RecognitionID:  "rec-1",
		TransactionID:  "txn-1",
		OrganizationID: "org-1",
		GiverID:        "u-giver",
		ReceiverID:     "u-receiver",
		ApprovedBy:     "u-manager",
		Points:         50,
		BalanceBefore:  100,
		BalanceAfter:   150,
	}
}

func (s *CatalogSuite) TestFactoriesStampEnvelope() {
	d := NewRecognitionApproved(s.approved())

	s.Equal(TypeRecognitionApproved, d.Type)
	s.Equal(SourceRecognition, d.Meta.Source)
	s.Equal("rec-1-1767225600000", d.Meta.CorrelationID)
	s.Equal("org-1", d.Meta.OrganizationID)
	s.Equal(1, d.Meta.Version)

	env, err := s.bus.PublishDraft(context.Background(), d)
	s.Require().NoError(err)
	s.NotEmpty(env.ID)
	s.False(env.Timestamp.IsZero())
	s.Equal(d.Meta.CorrelationID, env.CorrelationID)
}

func (s *CatalogSuite) TestSchemasRejectIncompleteData() {
	s.Run("recognition approval without transaction", func() {
		p := s.approved()
		p.TransactionID = ""
		_, err := s.bus.PublishDraft(context.Background(), NewRecognitionApproved(p))

		var verr *eventbus.SchemaValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal("transactionId", verr.Fields[0].Field)
	})

	s.Run("approval must credit the receiver", func() {
		p := s.approved()
		p.BalanceAfter = p.BalanceBefore
		_, err := s.bus.PublishDraft(context.Background(), NewRecognitionApproved(p))
		s.Error(err)
	})

	s.Run("recognition to self", func() {
		_, err := s.bus.PublishDraft(context.Background(), NewRecognitionCreated(RecognitionCreated{
			RecognitionID:  "rec-2",
			TransactionID:  "txn-2",
			OrganizationID: "org-1",
			GiverID:        "u-1",
			ReceiverID:     "u-1",
			Points:         10,
			Message:        "thanks",
			BalanceBefore:  100,
			BalanceAfter:   90,
		}))
		var verr *eventbus.SchemaValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal("receiverId", verr.Fields[0].Field)
	})

	s.Run("anonymous survey response must not name respondent", func() {
		_, err := s.bus.PublishDraft(context.Background(), NewSurveyResponseSubmitted(SurveyResponseSubmitted{
			SurveyID:       "s-1",
			ResponseID:     "r-1",
			OrganizationID: "org-1",
			Anonymous:      true,
			RespondentID:   "u-1",
		}))
		s.Error(err)
	})

	s.Run("leave ending before it starts", func() {
		start := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
		_, err := s.bus.PublishDraft(context.Background(), NewLeaveRequested(LeaveRequested{
			LeaveRequestID: "l-1",
			OrganizationID: "org-1",
			EmployeeID:     "u-1",
			ApproverID:     "u-2",
			LeaveType:      "annual",
			StartDate:      start,
			EndDate:        start.AddDate(0, 0, -1),
			Days:           1,
		}))
		s.Error(err)
	})
}

func (s *CatalogSuite) TestEveryDomainPublishes() {
	start := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	drafts := []eventbus.Draft{
		NewRecognitionCreated(RecognitionCreated{
			RecognitionID: "rec-1", TransactionID: "txn-1", OrganizationID: "org-1",
			GiverID: "u-1", ReceiverID: "u-2", Points: 10, Message: "great demo",
			Category: "teamwork", BalanceBefore: 100, BalanceAfter: 90,
		}),
		NewRecognitionApproved(s.approved()),
		NewRecognitionRejected(RecognitionRejected{
			RecognitionID: "rec-1", TransactionID: "txn-2", OrganizationID: "org-1",
			GiverID: "u-1", ReceiverID: "u-2", RejectedBy: "u-3", Reason: "duplicate", Points: 10,
		}),
		NewPostCreated(PostCreated{PostID: "p-1", OrganizationID: "org-1", AuthorID: "u-1", Visibility: "organization"}),
		NewCommentAdded(CommentAdded{CommentID: "c-1", PostID: "p-1", OrganizationID: "org-1", AuthorID: "u-2", PostAuthorID: "u-1"}),
		NewReactionAdded(ReactionAdded{PostID: "p-1", OrganizationID: "org-1", UserID: "u-2", PostAuthorID: "u-1", Reaction: "celebrate"}),
		NewSurveyPublished(SurveyPublished{
			SurveyID: "s-1", OrganizationID: "org-1", Title: "Pulse", CreatedBy: "u-3",
			AudienceIDs: []string{"u-1", "u-2"}, ClosesAt: start,
		}),
		NewSurveyResponseSubmitted(SurveyResponseSubmitted{SurveyID: "s-1", ResponseID: "r-1", OrganizationID: "org-1", RespondentID: "u-1"}),
		NewSurveyClosed(SurveyClosed{SurveyID: "s-1", OrganizationID: "org-1", ClosedBy: "u-3", ResponseCount: 2}),
		NewLeaveRequested(LeaveRequested{
			LeaveRequestID: "l-1", OrganizationID: "org-1", EmployeeID: "u-1", ApproverID: "u-3",
			LeaveType: "annual", StartDate: start, EndDate: start.AddDate(0, 0, 2), Days: 3,
		}),
		NewLeaveApproved(LeaveApproved{
			LeaveRequestID: "l-1", OrganizationID: "org-1", EmployeeID: "u-1", ApprovedBy: "u-3",
			LeaveType: "annual", Days: 3, BalanceBefore: 20, BalanceAfter: 17,
		}),
		NewLeaveRejected(LeaveRejected{LeaveRequestID: "l-2", OrganizationID: "org-1", EmployeeID: "u-1", RejectedBy: "u-3", Reason: "coverage"}),
		NewEmployeeOnboarded(EmployeeOnboarded{
			EmployeeID: "u-9", OrganizationID: "org-1", Email: "new@example.com", DisplayName: "New Hire", StartDate: start,
		}),
		NewEmployeeUpdated(EmployeeUpdated{EmployeeID: "u-9", OrganizationID: "org-1", UpdatedBy: "u-3", ChangedFields: []string{"department"}}),
		NewEmployeeOffboarded(EmployeeOffboarded{EmployeeID: "u-9", OrganizationID: "org-1", OffboardedBy: "u-3", EffectiveDate: start}),
	}

	seen := map[string]bool{}
	for _, d := range drafts {
		_, err := s.bus.PublishDraft(context.Background(), d)
		s.Require().NoError(err, d.Type)
		seen[d.Type] = true
	}
	s.Len(seen, len(Types()))
}

func TestRegister_RejectsSecondRegistration(t *testing.T) {
	registry := eventbus.NewRegistry()
	require.NoError(t, Register(registry))
	assert.Error(t, Register(registry))
	assert.ElementsMatch(t, Types(), registry.Types())
}
