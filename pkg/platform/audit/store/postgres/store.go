package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	audit "engage/pkg/platform/audit"
	txcontext "engage/pkg/platform/tx"
)

// Schema creates the audit_events table. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              TEXT PRIMARY KEY,
	category        TEXT NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL,
	event_type      TEXT NOT NULL,
	source          TEXT NOT NULL,
	organization_id TEXT NOT NULL DEFAULT '',
	actor_id        TEXT NOT NULL DEFAULT '',
	correlation_id  TEXT NOT NULL DEFAULT '',
	payload         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_org_time_idx ON audit_events (organization_id, occurred_at DESC);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies Schema in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.execer(ctx).ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("migrate audit schema: %w", err)
		}
		return nil
	})
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins the caller's transaction when one is in the context.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an audit event. Duplicate IDs are ignored via
// ON CONFLICT DO NOTHING.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, event_type, source,
			organization_id, actor_id, correlation_id, payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.EventType,
		event.Source,
		event.OrganizationID,
		event.ActorID,
		event.CorrelationID,
		[]byte(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, category, occurred_at, event_type, source,
		   organization_id, actor_id, correlation_id, payload
	FROM audit_events
`

// ListByOrganization returns up to limit events, most recent first.
func (s *Store) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]audit.Event, error) {
	query := selectColumns + `
		WHERE organization_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByTypes returns up to limit events of the given types, most recent
// first.
func (s *Store) ListByTypes(ctx context.Context, organizationID string, eventTypes []string, limit int) ([]audit.Event, error) {
	query := selectColumns + `
		WHERE organization_id = $1 AND event_type = ANY($2)
		ORDER BY occurred_at DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID, pq.Array(eventTypes), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events by type: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			category string
			payload  []byte
			event    audit.Event
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&event.EventType,
			&event.Source,
			&event.OrganizationID,
			&event.ActorID,
			&event.CorrelationID,
			&payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Payload = payload
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
