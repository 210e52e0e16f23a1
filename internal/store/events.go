// Package store is the Postgres-backed, append-only, idempotent-by-ID
// event and trade store (spec.md §6 "Event log" / §4.8). It implements
// internal/event.Sink so the orchestrator can hand it events without
// knowing persistence details.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/themirrorplatform/trading-bot-sub000/internal/event"
)

// duplicateKeyCode is Postgres' unique_violation SQLSTATE, grounded on
// internal/persistence/postgres/trades_repo.go's pq.Error.Code check.
const duplicateKeyCode = "23505"

// EventStore persists events to a `events` table keyed by content-hash ID,
// so a re-submitted event (same ID) is a no-op rather than a duplicate row.
type EventStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEventStore wraps an already-connected *sqlx.DB. Schema migration is
// the operator's responsibility (out of scope, spec.md §1).
func NewEventStore(db *sqlx.DB, timeout time.Duration) *EventStore {
	return &EventStore{db: db, timeout: timeout}
}

var _ event.Sink = (*EventStore)(nil)

// Emit inserts e, treating a unique-constraint violation on id as success
// (spec.md §4.8 "idempotent append-only sink").
func (s *EventStore) Emit(ctx context.Context, e event.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		INSERT INTO events (id, stream_id, ts, type, payload, config_hash)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.StreamID, e.Timestamp, string(e.Type), []byte(e.Payload), e.ConfigHash)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == duplicateKeyCode {
			return nil
		}
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// Health reports connectivity and the unacknowledged backlog is always 0
// here: a successful Emit is itself the durability guarantee, there is no
// separate ack queue (spec.md §6 "Event log").
func (s *EventStore) Health() event.SinkHealth {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return event.SinkHealth{Connected: false}
	}
	return event.SinkHealth{Connected: true}
}

// ByID retrieves a previously-stored event for replay/inspection tooling.
func (s *EventStore) ByID(ctx context.Context, id string) (*event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT id, stream_id, ts, type, payload, config_hash FROM events WHERE id = $1`

	var e event.Event
	var typ string
	var payload []byte
	row := s.db.QueryRowxContext(ctx, query, id)
	if err := row.Scan(&e.ID, &e.StreamID, &e.Timestamp, &typ, &payload, &e.ConfigHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get event by id: %w", err)
	}
	e.Type = event.Type(typ)
	e.Payload = payload
	return &e, nil
}

// CountByStream returns the number of events persisted for a stream,
// mirroring internal/persistence's Count-style statistics methods.
func (s *EventStore) CountByStream(ctx context.Context, streamID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `SELECT COUNT(*) FROM events WHERE stream_id = $1`
	var count int64
	if err := s.db.QueryRowxContext(ctx, query, streamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count events by stream: %w", err)
	}
	return count, nil
}
