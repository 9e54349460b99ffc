// Package service implements peer recognition: points move between balances
// and every state change is published through the event bus.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"engage/internal/eventbus"
	"engage/internal/events"
	"engage/internal/recognition/models"
	"engage/internal/recognition/store"
	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/sentinel"
)

// ListPrefix is the cache key prefix of the recognition listing.
const ListPrefix = "GET /api/v1/recognitions"

// DefaultReviewThreshold is the point value at and above which a manager must
// approve a recognition before the receiver is credited.
const DefaultReviewThreshold = 100

// autoApprover is recorded as the approver of recognitions below the review
// threshold.
const autoApprover = "system"

// Store persists recognitions and balances.
type Store interface {
	Save(ctx context.Context, rec models.Recognition) error
	FindByID(ctx context.Context, organizationID, id string) (*models.Recognition, error)
	Review(ctx context.Context, organizationID, id string, review models.Review) (*models.Recognition, error)
	ListByOrganization(ctx context.Context, organizationID string, offset, limit int) ([]models.Recognition, int, error)
	Balance(ctx context.Context, organizationID, userID string) (int, error)
	Adjust(ctx context.Context, organizationID, userID string, delta int) (models.BalanceChange, error)
}

// Publisher is the event bus as seen by the service.
type Publisher interface {
	PublishDraft(ctx context.Context, d eventbus.Draft) (eventbus.Envelope, error)
}

// CacheInvalidator drops cached responses after writes.
type CacheInvalidator interface {
	InvalidatePrefix(prefix string) int
}

type Service struct {
	store           Store
	publisher       Publisher
	cache           CacheInvalidator
	logger          *slog.Logger
	reviewThreshold int
	now             func() time.Time
	newID           func() string
	newTxID         func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCache(c CacheInvalidator) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithReviewThreshold(points int) Option {
	return func(s *Service) {
		s.reviewThreshold = points
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st Store, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		store:           st,
		publisher:       publisher,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		reviewThreshold: DefaultReviewThreshold,
		now:             time.Now,
		newID:           uuid.NewString,
		newTxID:         func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create debits the giver and records the recognition. Recognitions below the
// review threshold are approved and credited immediately.
func (s *Service) Create(ctx context.Context, cmd models.CreateCommand) (*models.Recognition, error) {
	if cmd.GiverID == cmd.ReceiverID {
		return nil, dErrors.Validation(dErrors.FieldError{
			Location: "body",
			Field:    "receiverId",
			Message:  "you cannot recognize yourself",
		})
	}

	debit, err := s.store.Adjust(ctx, cmd.OrganizationID, cmd.GiverID, -cmd.Points)
	if errors.Is(err, store.ErrInsufficientBalance) {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "not enough points to give")
	}
	if err != nil {
		return nil, err
	}

	rec := models.Recognition{
		ID:             s.newID(),
		OrganizationID: cmd.OrganizationID,
		GiverID:        cmd.GiverID,
		ReceiverID:     cmd.ReceiverID,
		Points:         cmd.Points,
		Message:        cmd.Message,
		Category:       cmd.Category,
		Status:         models.StatusPending,
		RequiresReview: cmd.Points >= s.reviewThreshold,
		TransactionID:  s.newTxID(),
		CreatedAt:      s.now(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewRecognitionCreated(events.RecognitionCreated{
		RecognitionID:  rec.ID,
		TransactionID:  rec.TransactionID,
		OrganizationID: rec.OrganizationID,
		GiverID:        rec.GiverID,
		ReceiverID:     rec.ReceiverID,
		Points:         rec.Points,
		Message:        rec.Message,
		Category:       rec.Category,
		RequiresReview: rec.RequiresReview,
		BalanceBefore:  debit.Before,
		BalanceAfter:   debit.After,
	}))

	if !rec.RequiresReview {
		approved, err := s.approve(ctx, &rec, autoApprover)
		if err != nil {
			return nil, err
		}
		rec = *approved
	}
	s.invalidate()
	return &rec, nil
}

// Approve credits the receiver of a pending recognition.
func (s *Service) Approve(ctx context.Context, organizationID, id, approverID string) (*models.Recognition, error) {
	rec, err := s.pending(ctx, organizationID, id, approverID)
	if err != nil {
		return nil, err
	}
	approved, err := s.approve(ctx, rec, approverID)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return approved, nil
}

// approve marks the recognition approved and then credits the receiver. The
// status change comes first so concurrent reviews cannot both move points.
func (s *Service) approve(ctx context.Context, rec *models.Recognition, approverID string) (*models.Recognition, error) {
	approved, err := s.review(ctx, rec, models.Review{
		Status:     models.StatusApproved,
		ReviewedBy: approverID,
		ReviewedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	credit, err := s.store.Adjust(ctx, approved.OrganizationID, approved.ReceiverID, approved.Points)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewRecognitionApproved(events.RecognitionApproved{
		RecognitionID:  approved.ID,
		TransactionID:  approved.TransactionID,
		OrganizationID: approved.OrganizationID,
		GiverID:        approved.GiverID,
		ReceiverID:     approved.ReceiverID,
		ApprovedBy:     approverID,
		Points:         approved.Points,
		BalanceBefore:  credit.Before,
		BalanceAfter:   credit.After,
	}))
	return approved, nil
}

// Reject declines a pending recognition and refunds the giver.
func (s *Service) Reject(ctx context.Context, organizationID, id, reviewerID, reason string) (*models.Recognition, error) {
	rec, err := s.pending(ctx, organizationID, id, reviewerID)
	if err != nil {
		return nil, err
	}
	rec, err = s.review(ctx, rec, models.Review{
		Status:       models.StatusRejected,
		ReviewedBy:   reviewerID,
		ReviewedAt:   s.now(),
		RejectReason: reason,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Adjust(ctx, rec.OrganizationID, rec.GiverID, rec.Points); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewRecognitionRejected(events.RecognitionRejected{
		RecognitionID:  rec.ID,
		TransactionID:  rec.TransactionID,
		OrganizationID: rec.OrganizationID,
		GiverID:        rec.GiverID,
		ReceiverID:     rec.ReceiverID,
		RejectedBy:     reviewerID,
		Reason:         reason,
		Points:         rec.Points,
	}))
	s.invalidate()
	return rec, nil
}

// pending loads a recognition that reviewerID may still review.
func (s *Service) pending(ctx context.Context, organizationID, id, reviewerID string) (*models.Recognition, error) {
	rec, err := s.store.FindByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if !rec.IsPending() {
		return nil, dErrors.New(dErrors.CodeConflict, "recognition has already been reviewed")
	}
	if rec.GiverID == reviewerID || rec.ReceiverID == reviewerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "you cannot review a recognition you are part of")
	}
	return rec, nil
}

// review applies the outcome if the recognition is still pending in the store.
func (s *Service) review(ctx context.Context, rec *models.Recognition, review models.Review) (*models.Recognition, error) {
	reviewed, err := s.store.Review(ctx, rec.OrganizationID, rec.ID, review)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "recognition has already been reviewed")
	}
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

// Get returns one recognition of the organization.
func (s *Service) Get(ctx context.Context, organizationID, id string) (*models.Recognition, error) {
	return s.store.FindByID(ctx, organizationID, id)
}

// List returns one page of the organization's recognitions and the total.
func (s *Service) List(ctx context.Context, organizationID string, page, limit int) ([]models.Recognition, int, error) {
	return s.store.ListByOrganization(ctx, organizationID, (page-1)*limit, limit)
}

// Balance returns the user's points.
func (s *Service) Balance(ctx context.Context, organizationID, userID string) (int, error) {
	return s.store.Balance(ctx, organizationID, userID)
}

// publish hands a draft to the bus. The state change has already happened,
// so a rejected event is logged rather than returned.
func (s *Service) publish(ctx context.Context, d eventbus.Draft) {
	if _, err := s.publisher.PublishDraft(ctx, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish recognition event",
			"event_type", d.Type,
			"error", err,
		)
	}
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.InvalidatePrefix(ListPrefix)
	}
}
