package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	for i := 1; i <= 3; i++ {
		require.NoError(t, j.RecordRun(RunRecord{
			RunID:    fmt.Sprintf("run-%d", i),
			Created:  t0.Add(time.Duration(i) * time.Hour),
			Strategy: "ema-cross",
			Asset:    "SPY",
			Start:    t0,
			End:      t0,
		}))
	}

	ctx := context.Background()
	runs, err := j.ListRuns(ctx, -1)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].RunID)
	assert.Equal(t, "run-1", runs[2].RunID)
	assert.Nil(t, runs[0].Notes)

	runs, err = j.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	for i := 0; i < 5; i++ {
		closeT := t0.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, j.RecordTrade(TradeRecord{
			TradeID:   fmt.Sprintf("T%d", i),
			RunID:     "R",
			Seq:       i + 1,
			OpenTime:  closeT.Add(-time.Hour),
			CloseTime: closeT,
		}))
	}

	got, err := j.ListTradesClosedBetween(context.Background(), t0.Add(24*time.Hour), t0.Add(3*24*time.Hour))
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, tr := range got {
		ids[i] = tr.TradeID
	}
	assert.Equal(t, []string{"T1", "T2"}, ids)
}

func TestListTradesByRunIDOrdersBySeq(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	for _, seq := range []int{3, 1, 2} {
		require.NoError(t, j.RecordTrade(TradeRecord{TradeID: fmt.Sprintf("A-%d", seq), RunID: "A", Seq: seq}))
	}
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "B-1", RunID: "B", Seq: 1}))

	got, err := j.ListTradesByRunID(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, tr := range got {
		assert.Equal(t, i+1, tr.Seq)
	}
}
