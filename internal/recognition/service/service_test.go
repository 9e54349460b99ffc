package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"engage/internal/eventbus"
	"engage/internal/events"
	"engage/internal/recognition/models"
	"engage/internal/recognition/service"
	"engage/internal/recognition/store"
	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/sentinel"
	"engage/pkg/testutil"
)

// recorder collects every envelope delivered for the recognition events.
type recorder struct {
	mu   sync.Mutex
	seen []eventbus.Envelope
}

func (r *recorder) handle(_ context.Context, env eventbus.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, env)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seen))
	for i, env := range r.seen {
		out[i] = env.Type
	}
	return out
}

func (r *recorder) last() eventbus.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[len(r.seen)-1]
}

type countingCache struct {
	prefixes []string
}

func (c *countingCache) InvalidatePrefix(prefix string) int {
	c.prefixes = append(c.prefixes, prefix)
	return 0
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	clock    *testutil.Clock
	store    *store.InMemoryStore
	bus      *eventbus.Bus
	recorder *recorder
	cache    *countingCache
	service  *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = testutil.NewClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	s.store = store.NewInMemoryStore()
	s.bus = eventbus.New(events.NewRegistry())
	s.recorder = &recorder{}
	for _, t := range []string{events.TypeRecognitionCreated, events.TypeRecognitionApproved, events.TypeRecognitionRejected} {
		s.bus.Subscribe(t, s.recorder.handle, eventbus.Named("recorder"))
	}
	s.cache = &countingCache{}
	s.service = service.New(s.store, s.bus,
		service.WithCache(s.cache),
		service.WithClock(s.clock.Now),
	)
}

func (s *ServiceSuite) create(giver, receiver string, points int) *models.Recognition {
	rec, err := s.service.Create(s.ctx, models.CreateCommand{
		OrganizationID: "org-1",
		GiverID:        giver,
		ReceiverID:     receiver,
		Points:         points,
		Message:        "thanks for the help",
		Category:       "teamwork",
	})
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) balance(user string) int {
	b, err := s.service.Balance(s.ctx, "org-1", user)
	s.Require().NoError(err)
	return b
}

// =============================================================================
// Create
// =============================================================================

func (s *ServiceSuite) TestCreate() {
	s.Run("small recognitions are approved right away", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 25)

		s.Equal(models.StatusApproved, rec.Status)
		s.False(rec.RequiresReview)
		s.Equal("system", rec.ReviewedBy)
		s.NotEmpty(rec.TransactionID)
		s.Equal(475, s.balance("alice"))
		s.Equal(525, s.balance("bob"))
		s.Equal([]string{events.TypeRecognitionCreated, events.TypeRecognitionApproved}, s.recorder.types())
		s.Equal([]string{service.ListPrefix}, s.cache.prefixes)
	})

	s.Run("created event carries the giver debit", func() {
		s.SetupTest()
		s.create("alice", "bob", 25)

		created := s.recorder.seen[0]
		payload, ok := created.Data.(events.RecognitionCreated)
		s.Require().True(ok)
		s.Equal(500, payload.BalanceBefore)
		s.Equal(475, payload.BalanceAfter)
		s.Equal("org-1", created.OrganizationID)
		s.Equal(events.SourceRecognition, created.Source)
	})

	s.Run("approved event carries the receiver credit", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 25)

		approved, ok := s.recorder.last().Data.(events.RecognitionApproved)
		s.Require().True(ok)
		s.Equal(rec.ID, approved.RecognitionID)
		s.Equal(rec.TransactionID, approved.TransactionID)
		s.Equal(500, approved.BalanceBefore)
		s.Equal(525, approved.BalanceAfter)
		s.Equal("system", approved.ApprovedBy)
	})

	s.Run("large recognitions wait for review", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 150)

		s.Equal(models.StatusPending, rec.Status)
		s.True(rec.RequiresReview)
		s.Equal(350, s.balance("alice"))
		s.Equal(500, s.balance("bob"))
		s.Equal([]string{events.TypeRecognitionCreated}, s.recorder.types())
	})

	s.Run("self recognition is rejected", func() {
		s.SetupTest()
		_, err := s.service.Create(s.ctx, models.CreateCommand{
			OrganizationID: "org-1", GiverID: "alice", ReceiverID: "alice", Points: 10, Message: "me",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Empty(s.recorder.types())
		s.Equal(500, s.balance("alice"))
	})

	s.Run("insufficient balance", func() {
		s.SetupTest()
		_, err := s.service.Create(s.ctx, models.CreateCommand{
			OrganizationID: "org-1", GiverID: "alice", ReceiverID: "bob", Points: 501, Message: "too much",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.ErrorIs(err, store.ErrInsufficientBalance)
		s.Empty(s.recorder.types())
	})

	s.Run("a publish failure does not undo the recognition", func() {
		s.SetupTest()
		// An empty message fails the created schema.
		rec, err := s.service.Create(s.ctx, models.CreateCommand{
			OrganizationID: "org-1", GiverID: "alice", ReceiverID: "bob", Points: 10,
		})
		s.Require().NoError(err)
		s.NotNil(rec)
		s.Equal(490, s.balance("alice"))
	})
}

// =============================================================================
// Review
// =============================================================================

func (s *ServiceSuite) TestApprove() {
	s.Run("credits the receiver", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 200)
		s.clock.Advance(time.Hour)

		approved, err := s.service.Approve(s.ctx, "org-1", rec.ID, "carol")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.Equal("carol", approved.ReviewedBy)
		s.Require().NotNil(approved.ReviewedAt)
		s.Equal(s.clock.Now(), *approved.ReviewedAt)
		s.Equal(700, s.balance("bob"))
		s.Equal(events.TypeRecognitionApproved, s.recorder.last().Type)
	})

	s.Run("cannot be reviewed twice", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 200)
		_, err := s.service.Approve(s.ctx, "org-1", rec.ID, "carol")
		s.Require().NoError(err)

		_, err = s.service.Approve(s.ctx, "org-1", rec.ID, "carol")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(700, s.balance("bob"))
	})

	s.Run("participants cannot review", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 200)

		_, err := s.service.Approve(s.ctx, "org-1", rec.ID, "bob")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.Approve(s.ctx, "org-1", rec.ID, "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("other organizations see not found", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 200)

		_, err := s.service.Approve(s.ctx, "org-2", rec.ID, "carol")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestReject() {
	s.SetupTest()
	rec := s.create("alice", "bob", 200)
	s.Equal(300, s.balance("alice"))

	rejected, err := s.service.Reject(s.ctx, "org-1", rec.ID, "carol", "not a team effort")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, rejected.Status)
	s.Equal("not a team effort", rejected.RejectReason)
	s.Equal(500, s.balance("alice"))
	s.Equal(500, s.balance("bob"))

	payload, ok := s.recorder.last().Data.(events.RecognitionRejected)
	s.Require().True(ok)
	s.Equal("carol", payload.RejectedBy)
	s.Equal(200, payload.Points)
}

// gatedStore holds every FindByID until all expected reviewers have loaded
// the recognition, so their reviews race on the same pending state.
type gatedStore struct {
	*store.InMemoryStore
	loaded sync.WaitGroup
}

func (g *gatedStore) FindByID(ctx context.Context, organizationID, id string) (*models.Recognition, error) {
	rec, err := g.InMemoryStore.FindByID(ctx, organizationID, id)
	g.loaded.Done()
	g.loaded.Wait()
	return rec, err
}

func (s *ServiceSuite) TestConcurrentReviews() {
	const reviewers = 8

	s.Run("exactly one review wins and points are conserved", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 200)

		gated := &gatedStore{InMemoryStore: s.store}
		gated.loaded.Add(reviewers)
		svc := service.New(gated, s.bus, service.WithClock(s.clock.Now))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			conflicts int
		)
		for i := range reviewers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var err error
				if i%2 == 0 {
					_, err = svc.Approve(s.ctx, "org-1", rec.ID, "carol")
				} else {
					_, err = svc.Reject(s.ctx, "org-1", rec.ID, "dave", "duplicate")
				}
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case dErrors.HasCode(err, dErrors.CodeConflict):
					conflicts++
				}
			}(i)
		}
		wg.Wait()

		s.Equal(1, succeeded)
		s.Equal(reviewers-1, conflicts)
		s.Equal(1000, s.balance("alice")+s.balance("bob"))

		final, err := s.service.Get(s.ctx, "org-1", rec.ID)
		s.Require().NoError(err)
		s.False(final.IsPending())
		if final.Status == models.StatusApproved {
			s.Equal(700, s.balance("bob"))
		} else {
			s.Equal(500, s.balance("alice"))
		}
	})

	s.Run("a stale pending copy cannot review again", func() {
		s.SetupTest()
		rec := s.create("alice", "bob", 200)
		_, err := s.service.Reject(s.ctx, "org-1", rec.ID, "carol", "no")
		s.Require().NoError(err)

		_, err = s.store.Review(s.ctx, "org-1", rec.ID, models.Review{
			Status:     models.StatusApproved,
			ReviewedBy: "dave",
			ReviewedAt: s.clock.Now(),
		})
		s.ErrorIs(err, sentinel.ErrInvalidState)
		s.Equal(500, s.balance("alice"))
		s.Equal(500, s.balance("bob"))
	})
}

// =============================================================================
// Queries
// =============================================================================

func (s *ServiceSuite) TestList() {
	s.SetupTest()
	first := s.create("alice", "bob", 10)
	s.clock.Advance(time.Minute)
	second := s.create("bob", "carol", 10)
	s.clock.Advance(time.Minute)
	third := s.create("carol", "alice", 10)

	items, total, err := s.service.List(s.ctx, "org-1", 1, 2)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(items, 2)
	s.Equal(third.ID, items[0].ID)
	s.Equal(second.ID, items[1].ID)

	items, _, err = s.service.List(s.ctx, "org-1", 2, 2)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(first.ID, items[0].ID)

	items, total, err = s.service.List(s.ctx, "org-2", 1, 2)
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(items)
}
