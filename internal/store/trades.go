package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TimeRange bounds a trade query window (spec.md §4.7 "Recordkeeping"),
// grounded on internal/persistence/interfaces.go's TimeRange.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Trade is one closed round-trip trade record, the durable counterpart to
// an in-trade Snapshot once it reaches FLAT (spec.md §4.7). Field shape
// follows internal/persistence/interfaces.go's Trade struct tags, adapted
// from a crypto spot/perp fill to a bracket round-trip.
type Trade struct {
	ID         int64     `db:"id"`
	IntentID   string    `db:"intent_id"`
	TemplateID string    `db:"template_id"`
	StreamID   string    `db:"stream_id"`
	Direction  int       `db:"direction"`
	Contracts  int       `db:"contracts"`
	EntryPrice float64   `db:"entry_price"`
	ExitPrice  float64   `db:"exit_price"`
	PnLUSD     float64   `db:"pnl_usd"`
	ExitReason string    `db:"exit_reason"`
	OpenedAt   time.Time `db:"opened_at"`
	ClosedAt   time.Time `db:"closed_at"`
	CreatedAt  time.Time `db:"created_at"`
}

// TradesRepo persists closed trades for learning-loop attribution and
// reporting (spec.md §4.9 "Trade attribution").
type TradesRepo interface {
	Insert(ctx context.Context, t Trade) error
	ListByTemplate(ctx context.Context, templateID string, tr TimeRange, limit int) ([]Trade, error)
	ListByStream(ctx context.Context, streamID string, tr TimeRange, limit int) ([]Trade, error)
	Count(ctx context.Context, tr TimeRange) (int64, error)
}

type tradesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradesRepo wraps an already-connected *sqlx.DB.
func NewTradesRepo(db *sqlx.DB, timeout time.Duration) TradesRepo {
	return &tradesRepo{db: db, timeout: timeout}
}

func (r *tradesRepo) Insert(ctx context.Context, t Trade) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		INSERT INTO trades (intent_id, template_id, stream_id, direction, contracts,
			entry_price, exit_price, pnl_usd, exit_reason, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (intent_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		t.IntentID, t.TemplateID, t.StreamID, t.Direction, t.Contracts,
		t.EntryPrice, t.ExitPrice, t.PnLUSD, t.ExitReason, t.OpenedAt, t.ClosedAt)
	if err != nil {
		return fmt.Errorf("store: insert trade: %w", err)
	}
	return nil
}

func (r *tradesRepo) ListByTemplate(ctx context.Context, templateID string, tr TimeRange, limit int) ([]Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, intent_id, template_id, stream_id, direction, contracts,
			entry_price, exit_price, pnl_usd, exit_reason, opened_at, closed_at, created_at
		FROM trades
		WHERE template_id = $1 AND closed_at >= $2 AND closed_at <= $3
		ORDER BY closed_at DESC
		LIMIT $4`

	var trades []Trade
	if err := r.db.SelectContext(ctx, &trades, query, templateID, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("store: list trades by template: %w", err)
	}
	return trades, nil
}

func (r *tradesRepo) ListByStream(ctx context.Context, streamID string, tr TimeRange, limit int) ([]Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT id, intent_id, template_id, stream_id, direction, contracts,
			entry_price, exit_price, pnl_usd, exit_reason, opened_at, closed_at, created_at
		FROM trades
		WHERE stream_id = $1 AND closed_at >= $2 AND closed_at <= $3
		ORDER BY closed_at DESC
		LIMIT $4`

	var trades []Trade
	if err := r.db.SelectContext(ctx, &trades, query, streamID, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("store: list trades by stream: %w", err)
	}
	return trades, nil
}

func (r *tradesRepo) Count(ctx context.Context, tr TimeRange) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `SELECT COUNT(*) FROM trades WHERE closed_at >= $1 AND closed_at <= $2`
	var count int64
	if err := r.db.QueryRowxContext(ctx, query, tr.From, tr.To).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count trades: %w", err)
	}
	return count, nil
}
