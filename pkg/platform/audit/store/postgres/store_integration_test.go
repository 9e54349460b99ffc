//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "engage/pkg/platform/audit"
	"engage/pkg/platform/audit/store/postgres"
	"engage/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresAuditSuite) event(id, eventType string, at time.Time) audit.Event {
	return audit.Event{
		ID:             id,
		Category:       audit.CategoryOf(eventType),
		Timestamp:      at,
		EventType:      eventType,
		Source:         "test",
		OrganizationID: "org-1",
		ActorID:        "u-1",
		CorrelationID:  id + "-corr",
		Payload:        json.RawMessage(`{"id":"` + id + `"}`),
	}
}

func (s *PostgresAuditSuite) TestAppendIsIdempotent() {
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	e := s.event("evt-1", "recognition.created", at)

	s.Require().NoError(s.store.Append(ctx, e))
	s.Require().NoError(s.store.Append(ctx, e))

	events, err := s.store.ListByOrganization(ctx, "org-1", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(e.ID, events[0].ID)
	s.Equal(audit.CategoryRewards, events[0].Category)
	s.True(at.Equal(events[0].Timestamp))
	s.JSONEq(string(e.Payload), string(events[0].Payload))
}

func (s *PostgresAuditSuite) TestListOrdersAndFilters() {
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Append(ctx, s.event("evt-1", "recognition.created", base)))
	s.Require().NoError(s.store.Append(ctx, s.event("evt-2", "leave.approved", base.Add(time.Minute))))
	s.Require().NoError(s.store.Append(ctx, s.event("evt-3", "recognition.approved", base.Add(2*time.Minute))))

	s.Run("most recent first with limit", func() {
		events, err := s.store.ListByOrganization(ctx, "org-1", 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal("evt-3", events[0].ID)
		s.Equal("evt-2", events[1].ID)
	})

	s.Run("by type", func() {
		events, err := s.store.ListByTypes(ctx, "org-1", []string{"recognition.created", "recognition.approved"}, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal("evt-3", events[0].ID)
		s.Equal("evt-1", events[1].ID)
	})

	s.Run("other organizations are empty", func() {
		events, err := s.store.ListByOrganization(ctx, "org-2", 10)
		s.Require().NoError(err)
		s.Empty(events)
	})
}
