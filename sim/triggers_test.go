package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func bar(h int, o, hi, lo, c float64) market.Bar {
	return market.Bar{Time: t0.Add(time.Duration(h) * time.Hour), Open: o, High: hi, Low: lo, Close: c}
}

func TestOpenLevels(t *testing.T) {
	p := Open(3, t0, 100, 10, 1, Levels{StopLossPct: 2, TakeProfitPct: 5, TrailingStopPct: 3, TimeExitBars: 4})

	assert.InDelta(t, 98, p.StopPrice, 1e-9)
	assert.InDelta(t, 105, p.TargetPrice, 1e-9)
	assert.Equal(t, 100.0, p.TrailingHigh)
	assert.InDelta(t, 97, p.TrailingStop(), 1e-9)
	assert.Equal(t, 0, p.BarsHeld)

	flat := Open(0, t0, 100, 1, 0, Levels{})
	assert.Zero(t, flat.StopPrice)
	assert.Zero(t, flat.TargetPrice)
	assert.Zero(t, flat.TrailingStop())
}

func TestAdvanceReturnsNewPosition(t *testing.T) {
	p := Open(0, t0, 100, 10, 0, Levels{TrailingStopPct: 5})
	next := p.Advance(bar(1, 100, 110, 99, 108))

	assert.Equal(t, 0, p.BarsHeld)
	assert.Equal(t, 100.0, p.TrailingHigh)
	assert.Equal(t, 1, next.BarsHeld)
	assert.Equal(t, 110.0, next.TrailingHigh)

	lower := next.Advance(bar(2, 108, 105, 104, 104))
	assert.Equal(t, 110.0, lower.TrailingHigh)
}

func TestCheckExit(t *testing.T) {
	t.Parallel()

	lv := Levels{StopLossPct: 2, TakeProfitPct: 5}

	tests := []struct {
		name   string
		lv     Levels
		bars   []market.Bar
		want   ExitReason
		price  float64
		noExit bool
	}{
		{
			name:  "stop loss fills at stop",
			lv:    lv,
			bars:  []market.Bar{bar(1, 99, 100, 97, 98.5)},
			want:  StopLoss,
			price: 98,
		},
		{
			name:  "take profit fills at target",
			lv:    lv,
			bars:  []market.Bar{bar(1, 101, 106, 100, 104)},
			want:  TakeProfit,
			price: 105,
		},
		{
			name:  "stop wins when both touched",
			lv:    lv,
			bars:  []market.Bar{bar(1, 100, 106, 97, 100)},
			want:  StopLoss,
			price: 98,
		},
		{
			name:   "inside range",
			lv:     lv,
			bars:   []market.Bar{bar(1, 100, 104, 99, 101)},
			noExit: true,
		},
		{
			name:  "trailing uses updated high",
			lv:    Levels{TrailingStopPct: 5},
			bars:  []market.Bar{bar(1, 100, 110, 104, 106), bar(2, 106, 107, 104, 105)},
			want:  TrailingStop,
			price: 104.5,
		},
		{
			name:  "take profit beats trailing",
			lv:    Levels{TakeProfitPct: 5, TrailingStopPct: 1},
			bars:  []market.Bar{bar(1, 100, 106, 100, 101)},
			want:  TakeProfit,
			price: 105,
		},
		{
			name:  "time exit at close",
			lv:    Levels{TimeExitBars: 2},
			bars:  []market.Bar{bar(1, 100, 101, 99, 100), bar(2, 100, 101, 99, 100.5)},
			want:  TimeExit,
			price: 100.5,
		},
		{
			name:  "stop beats time",
			lv:    Levels{StopLossPct: 2, TimeExitBars: 1},
			bars:  []market.Bar{bar(1, 100, 100, 90, 95)},
			want:  StopLoss,
			price: 98,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Open(0, t0, 100, 10, 0, tt.lv)

			var (
				ex  Exit
				hit bool
			)
			for _, b := range tt.bars {
				p = p.Advance(b)
				if ex, hit = CheckExit(p, b); hit {
					break
				}
			}
			if tt.noExit {
				assert.False(t, hit)
				return
			}
			require.True(t, hit)
			assert.Equal(t, tt.want, ex.Reason)
			assert.InDelta(t, tt.price, ex.Price, 1e-9)
		})
	}
}

func TestClose(t *testing.T) {
	c := Costs{CommissionPct: 0.1}
	entryFill := 100.0
	p := Open(2, t0, entryFill, 10, c.Commission(entryFill, 10), Levels{})
	p = p.Advance(bar(3, 100, 101, 99, 100))
	p = p.Advance(bar(4, 100, 111, 99, 110))

	exitTime := t0.Add(4 * time.Hour)
	tr := p.Close(4, exitTime, 110, c.Commission(110, 10), SignalExit)

	assert.InDelta(t, 100-1-1.1, tr.PnL, 1e-9)
	assert.InDelta(t, 9.79, tr.PnLPct, 1e-9)
	assert.InDelta(t, 2.1, tr.Commission, 1e-9)
	assert.Equal(t, 4.0, tr.DurationHours)
	assert.Equal(t, 2, tr.BarsHeld)
	assert.Equal(t, 2, tr.EntryIndex)
	assert.Equal(t, 4, tr.ExitIndex)
	assert.Equal(t, SignalExit, tr.ExitReason)
	assert.True(t, tr.Winner())
}
