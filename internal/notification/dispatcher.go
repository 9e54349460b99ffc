// Package notification reacts to domain events: the Dispatcher fans them out
// to user inboxes and Analytics counts them.
package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"engage/internal/eventbus"
	"engage/internal/events"
	"engage/internal/notification/models"
	pstrings "engage/pkg/platform/strings"
)

// Inbox receives notifications for delivery.
type Inbox interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// Dispatcher turns catalog events into notifications for the people they
// concern. An actor is never notified of their own action.
type Dispatcher struct {
	inbox  Inbox
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(inbox Inbox, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inbox:  inbox,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach subscribes the dispatcher to every event type it notifies on.
func (d *Dispatcher) Attach(bus *eventbus.Bus) eventbus.Unsubscribe {
	name := eventbus.Named("notification")
	unsubs := []eventbus.Unsubscribe{
		eventbus.SubscribeTyped(bus, events.TypeRecognitionApproved, d.onRecognitionApproved, name),
		eventbus.SubscribeTyped(bus, events.TypeRecognitionRejected, d.onRecognitionRejected, name),
		eventbus.SubscribeTyped(bus, events.TypePostCreated, d.onPostCreated, name),
		eventbus.SubscribeTyped(bus, events.TypeCommentAdded, d.onCommentAdded, name),
		eventbus.SubscribeTyped(bus, events.TypeReactionAdded, d.onReactionAdded, name),
		eventbus.SubscribeTyped(bus, events.TypeSurveyPublished, d.onSurveyPublished, name),
		eventbus.SubscribeTyped(bus, events.TypeLeaveApproved, d.onLeaveApproved, name),
		eventbus.SubscribeTyped(bus, events.TypeLeaveRejected, d.onLeaveRejected, name),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (d *Dispatcher) onRecognitionApproved(ctx context.Context, env eventbus.Envelope, p events.RecognitionApproved) error {
	title := fmt.Sprintf("You received %d points", p.Points)
	return d.send(ctx, env, p.GiverID, models.KindRecognitionReceived, title, p.RecognitionID, p.ReceiverID)
}

func (d *Dispatcher) onRecognitionRejected(ctx context.Context, env eventbus.Envelope, p events.RecognitionRejected) error {
	title := fmt.Sprintf("Your recognition was declined and %d points were refunded", p.Points)
	return d.send(ctx, env, p.RejectedBy, models.KindRecognitionRejected, title, p.RecognitionID, p.GiverID)
}

func (d *Dispatcher) onPostCreated(ctx context.Context, env eventbus.Envelope, p events.PostCreated) error {
	return d.send(ctx, env, p.AuthorID, models.KindMentioned, "You were mentioned in a post", p.PostID, p.Mentions...)
}

func (d *Dispatcher) onCommentAdded(ctx context.Context, env eventbus.Envelope, p events.CommentAdded) error {
	return d.send(ctx, env, p.AuthorID, models.KindComment, "New comment on your post", p.PostID, p.PostAuthorID)
}

func (d *Dispatcher) onReactionAdded(ctx context.Context, env eventbus.Envelope, p events.ReactionAdded) error {
	return d.send(ctx, env, p.UserID, models.KindReaction, "Someone reacted to your post", p.PostID, p.PostAuthorID)
}

func (d *Dispatcher) onSurveyPublished(ctx context.Context, env eventbus.Envelope, p events.SurveyPublished) error {
	return d.send(ctx, env, p.CreatedBy, models.KindSurveyInvite, "New survey: "+p.Title, p.SurveyID, p.AudienceIDs...)
}

func (d *Dispatcher) onLeaveApproved(ctx context.Context, env eventbus.Envelope, p events.LeaveApproved) error {
	return d.send(ctx, env, p.ApprovedBy, models.KindLeaveDecision, "Your leave request was approved", p.LeaveRequestID, p.EmployeeID)
}

func (d *Dispatcher) onLeaveRejected(ctx context.Context, env eventbus.Envelope, p events.LeaveRejected) error {
	return d.send(ctx, env, p.RejectedBy, models.KindLeaveDecision, "Your leave request was declined", p.LeaveRequestID, p.EmployeeID)
}

// send delivers one notification per distinct recipient other than actorID.
// Every recipient is attempted; the first failure is returned.
func (d *Dispatcher) send(ctx context.Context, env eventbus.Envelope, actorID string, kind models.Kind, title, entityID string, recipients ...string) error {
	var firstErr error
	for _, recipient := range pstrings.DedupeExcept(recipients, actorID) {
		err := d.inbox.Deliver(ctx, models.Notification{
			ID:             d.newID(),
			OrganizationID: env.OrganizationID,
			RecipientID:    recipient,
			Kind:           kind,
			Title:          title,
			EventID:        env.ID,
			EntityID:       entityID,
			CreatedAt:      d.now(),
		})
		if err != nil {
			d.logger.WarnContext(ctx, "notification delivery failed",
				"event_type", env.Type,
				"event_id", env.ID,
				"recipient", recipient,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
