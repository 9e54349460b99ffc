package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engage/internal/eventbus"
	"engage/internal/events"
	audit "engage/pkg/platform/audit"
	"engage/pkg/platform/audit/store/memory"
	"engage/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func (failingStore) ListByOrganization(context.Context, string, int) ([]audit.Event, error) {
	return nil, nil
}

func mustField(t *testing.T, payload json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &fields))
	return fields[key]
}

func newBus(t *testing.T) *eventbus.Bus {
	t.Helper()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	return eventbus.New(events.NewRegistry(), eventbus.WithClock(func() time.Time { return now }))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.CategoryOf(events.TypeEmployeeOffboarded))
	assert.Equal(t, audit.CategoryCompliance, audit.CategoryOf(events.TypeLeaveApproved))
	assert.Equal(t, audit.CategoryOperations, audit.CategoryOf(events.TypeLeaveRequested))
	assert.Equal(t, audit.CategoryRewards, audit.CategoryOf(events.TypeRecognitionCreated))
	assert.Equal(t, audit.CategoryOperations, audit.CategoryOf(events.TypePostCreated))
	assert.Equal(t, audit.CategoryOperations, audit.CategoryOf("unknown"))
}

func TestSubscriberRecordsBeforePublishReturns(t *testing.T) {
	bus := newBus(t)
	store := memory.NewInMemoryStore()
	detach := audit.NewSubscriber(store).Attach(bus, events.Types()...)
	defer detach()

	ctx := requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{UserID: "u-9", OrganizationID: "org-1"})
	env, err := bus.PublishDraft(ctx, events.NewPostCreated(events.PostCreated{
		PostID:         "post-1",
		OrganizationID: "org-1",
		AuthorID:       "u-9",
		Visibility:     "organization",
	}))
	require.NoError(t, err)

	recorded, err := store.ListByOrganization(context.Background(), "org-1", 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	got := recorded[0]
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, events.TypePostCreated, got.EventType)
	assert.Equal(t, events.SourceSocial, got.Source)
	assert.Equal(t, "u-9", got.ActorID)
	assert.Equal(t, env.Timestamp, got.Timestamp)
	assert.JSONEq(t, `"post-1"`, string(mustField(t, got.Payload, "postId")))
}

func TestSubscriberIsIdempotentPerEnvelope(t *testing.T) {
	store := memory.NewInMemoryStore()
	sub := audit.NewSubscriber(store)
	env := eventbus.Envelope{ID: "evt-1", Type: events.TypeSurveyClosed, OrganizationID: "org-1", Data: map[string]any{"surveyId": "s-1"}}

	require.NoError(t, sub.Handle(context.Background(), env))
	require.NoError(t, sub.Handle(context.Background(), env))

	recorded, err := store.ListByOrganization(context.Background(), "org-1", 0)
	require.NoError(t, err)
	assert.Len(t, recorded, 1)
}

func TestSubscriberFailureDoesNotReachPublisher(t *testing.T) {
	bus := newBus(t)
	audit.NewSubscriber(failingStore{}).Attach(bus, events.TypeSurveyClosed)

	_, err := bus.PublishDraft(context.Background(), events.NewSurveyClosed(events.SurveyClosed{
		SurveyID:       "s-1",
		OrganizationID: "org-1",
		ClosedBy:       "u-1",
		ResponseCount:  3,
	}))
	assert.NoError(t, err)
}

func TestDetachStopsRecording(t *testing.T) {
	bus := newBus(t)
	store := memory.NewInMemoryStore()
	detach := audit.NewSubscriber(store).Attach(bus, events.TypeSurveyClosed)
	detach()

	_, err := bus.PublishDraft(context.Background(), events.NewSurveyClosed(events.SurveyClosed{
		SurveyID: "s-1", OrganizationID: "org-1", ClosedBy: "u-1", ResponseCount: 1,
	}))
	require.NoError(t, err)
	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
