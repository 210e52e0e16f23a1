package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTradesRepo(t *testing.T) (TradesRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return NewTradesRepo(db, 5*time.Second), mock
}

func sampleTrade() Trade {
	now := time.Now().UTC()
	return Trade{
		IntentID:   "intent-1",
		TemplateID: "K1",
		StreamID:   "ES-test",
		Direction:  1,
		Contracts:  1,
		EntryPrice: 5598.25,
		ExitPrice:  5600.25,
		PnLUSD:     25,
		ExitReason: "TARGET",
		OpenedAt:   now.Add(-time.Hour),
		ClosedAt:   now,
	}
}

func TestInsertTradeOnConflictDoesNothing(t *testing.T) {
	repo, mock := newMockTradesRepo(t)
	trade := sampleTrade()

	mock.ExpectExec("INSERT INTO trades (.+) ON CONFLICT \\(intent_id\\) DO NOTHING").
		WithArgs(trade.IntentID, trade.TemplateID, trade.StreamID, trade.Direction, trade.Contracts,
			trade.EntryPrice, trade.ExitPrice, trade.PnLUSD, trade.ExitReason, trade.OpenedAt, trade.ClosedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), trade)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByTemplateReturnsRows(t *testing.T) {
	repo, mock := newMockTradesRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "intent_id", "template_id", "stream_id", "direction", "contracts",
		"entry_price", "exit_price", "pnl_usd", "exit_reason", "opened_at", "closed_at", "created_at",
	}).AddRow(1, "intent-1", "K1", "ES-test", 1, 1, 5598.25, 5600.25, 25.0, "TARGET", now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM trades WHERE template_id").
		WithArgs("K1", now.Add(-time.Hour), now, 10).
		WillReturnRows(rows)

	trades, err := repo.ListByTemplate(context.Background(), "K1", TimeRange{From: now.Add(-time.Hour), To: now}, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "intent-1", trades[0].IntentID)
	assert.Equal(t, 25.0, trades[0].PnLUSD)
}

func TestCountReturnsTotal(t *testing.T) {
	repo, mock := newMockTradesRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(now.Add(-24*time.Hour), now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background(), TimeRange{From: now.Add(-24 * time.Hour), To: now})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}
