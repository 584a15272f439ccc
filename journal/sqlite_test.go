package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteReopen(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "T1", RunID: "R1", Seq: 1, Reason: "STOP_LOSS"}))
	require.NoError(t, j.Close())

	again, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })

	tr, err := again.GetTrade(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "STOP_LOSS", tr.Reason)
}

func TestSQLiteRecordTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	open := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	rec := TradeRecord{
		TradeID:    "T1",
		RunID:      "R1",
		Seq:        1,
		Asset:      "BTC-USD",
		Quantity:   0.123456,
		EntryPrice: 42000.5,
		ExitPrice:  41000.25,
		OpenTime:   open,
		CloseTime:  closeT,
		PnL:        -123.5,
		PnLPct:     -2.38,
		Commission: 8.3,
		BarsHeld:   4,
		Reason:     "STOP_LOSS",
	}
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, got.OpenTime.Equal(open))
	assert.True(t, got.CloseTime.Equal(closeT))
	got.OpenTime, got.CloseTime = open, closeT
	assert.Equal(t, rec, got)
}

func TestSQLiteNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	_, err := j.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = j.GetTrade(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsBusy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"wrapped", fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"other", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBusy(tt.err))
		})
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	j := &SQLiteJournal{MaxRetryTime: time.Second}

	t.Run("busy then ok", func(t *testing.T) {
		calls := 0
		err := j.retry(func() error {
			calls++
			if calls < 3 {
				return sqlite3.Error{Code: sqlite3.ErrBusy}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := j.retry(func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}
