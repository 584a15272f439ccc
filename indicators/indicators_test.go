package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func closes(cs ...float64) []market.Bar {
	bars := make([]market.Bar, len(cs))
	for i, c := range cs {
		bars[i] = market.Bar{
			Time:  baseTime.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

func createTestBars() []market.Bar {
	return []market.Bar{
		{Open: 100, High: 105, Low: 99, Close: 102},
		{Open: 102, High: 107, Low: 101, Close: 105},
		{Open: 105, High: 108, Low: 104, Close: 106},
		{Open: 106, High: 110, Low: 105, Close: 108},
		{Open: 108, High: 112, Low: 107, Close: 110},
		{Open: 110, High: 113, Low: 109, Close: 111},
		{Open: 111, High: 115, Low: 110, Close: 113},
		{Open: 113, High: 116, Low: 112, Close: 114},
		{Open: 114, High: 118, Low: 113, Close: 116},
		{Open: 116, High: 120, Low: 115, Close: 118},
	}
}

func TestComputeMovingAverages(t *testing.T) {
	bars := createTestBars()

	tests := []struct {
		name string
		ref  Ref
		bars []market.Bar
		want float64
		ok   bool
	}{
		// last 5 closes: 111,113,114,116,118
		{"sma", Ref{Kind: KindSMA, Period: 5}, bars, 114.4, true},
		{"sma short history", Ref{Kind: KindSMA, Period: 5}, bars[:3], 0, false},
		{"ema seeded", Ref{Kind: KindEMA, Period: 10}, bars, 110.3, true},
		{"ema short history", Ref{Kind: KindEMA, Period: 5}, bars[:4], 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok, err := Compute(tt.ref, tt.bars)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, v, 0.001)
		})
	}

	_, _, err := Compute(Ref{Kind: KindSMA}, bars)
	assert.Error(t, err)
}

func TestSimpleMAStreaming(t *testing.T) {
	bars := closes(102, 105, 106, 108, 110)

	t.Run("basic functionality", func(t *testing.T) {
		ma := NewMA(3)
		assert.Equal(t, "SMA(3)", ma.Name())
		assert.Equal(t, 3, ma.Warmup())
		assert.False(t, ma.Ready())
		assert.Equal(t, 0.0, ma.Value())

		ma.Update(bars[0])
		ma.Update(bars[1])
		assert.False(t, ma.Ready())

		// Third bar completes the window
		ma.Update(bars[2])
		assert.True(t, ma.Ready())
		assert.InDelta(t, (102.0+105.0+106.0)/3.0, ma.Value(), 0.001)

		// Fourth bar rolls the window
		ma.Update(bars[3])
		assert.InDelta(t, (105.0+106.0+108.0)/3.0, ma.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		ma := NewMA(2)
		ma.Update(bars[0])
		ma.Update(bars[1])
		assert.True(t, ma.Ready())

		ma.Reset()
		assert.False(t, ma.Ready())
		assert.Equal(t, 0.0, ma.Value())
	})

	t.Run("matches batch calculation", func(t *testing.T) {
		ma := NewMA(3)
		for _, b := range bars {
			ma.Update(b)
		}
		batch, ok, err := Compute(Ref{Kind: KindSMA, Period: 3}, bars)
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, batch, ma.Value(), 0.001)
	})
}

func TestExponentialMAStreaming(t *testing.T) {
	bars := closes(102, 105, 106, 108, 110, 111, 113)

	t.Run("basic functionality", func(t *testing.T) {
		ema := NewEMA(3)
		assert.Equal(t, "EMA(3)", ema.Name())
		assert.Equal(t, 3, ema.Warmup())
		assert.False(t, ema.Ready())

		ema.Update(bars[0])
		ema.Update(bars[1])
		assert.False(t, ema.Ready())

		// Third bar seeds with the SMA
		ema.Update(bars[2])
		assert.True(t, ema.Ready())
		seed := (102.0 + 105.0 + 106.0) / 3.0
		assert.InDelta(t, seed, ema.Value(), 0.001)

		// multiplier = 2/(3+1) = 0.5
		ema.Update(bars[3])
		assert.InDelta(t, (108.0-seed)*0.5+seed, ema.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		ema := NewEMA(2)
		ema.Update(bars[0])
		ema.Update(bars[1])
		assert.True(t, ema.Ready())

		ema.Reset()
		assert.False(t, ema.Ready())
		assert.Equal(t, 0.0, ema.Value())
	})

	t.Run("matches batch calculation", func(t *testing.T) {
		ema := NewEMA(5)
		for _, b := range bars {
			ema.Update(b)
		}
		batch, ok, err := Compute(Ref{Kind: KindEMA, Period: 5}, bars)
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, batch, ema.Value(), 0.001)
	})
}

func TestAverageTrueRangeStreaming(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}

	atr := NewATR(3)
	assert.Equal(t, "ATR(3)", atr.Name())
	assert.Equal(t, 4, atr.Warmup()) // period + 1

	for i, b := range bars {
		atr.Update(b)
		if i < 3 {
			assert.False(t, atr.Ready(), "bar %d", i)
			assert.Equal(t, 0.0, atr.Value())
		} else {
			assert.True(t, atr.Ready(), "bar %d", i)
			assert.InDelta(t, 2.0, atr.Value(), 1e-9)
		}
	}

	atr.Reset()
	assert.False(t, atr.Ready())
}

func TestTrueRange(t *testing.T) {
	current := market.Bar{High: 110, Low: 100, Close: 105}
	previous := market.Bar{Close: 104}
	assert.Equal(t, 10.0, trueRange(current, previous))

	// gap up: previous close below current low
	gap := market.Bar{High: 110, Low: 108}
	assert.Equal(t, 10.0, trueRange(gap, market.Bar{Close: 100}))
}

func TestRSI(t *testing.T) {
	t.Run("wilder smoothing", func(t *testing.T) {
		rsi := NewRSI(2)
		assert.Equal(t, "RSI(2)", rsi.Name())
		assert.Equal(t, 3, rsi.Warmup())

		bars := closes(10, 11, 10, 12)
		rsi.Update(bars[0])
		rsi.Update(bars[1])
		assert.False(t, rsi.Ready())

		// gains 1, losses 1 => RS 1
		rsi.Update(bars[2])
		require.True(t, rsi.Ready())
		assert.InDelta(t, 50.0, rsi.Value(), 1e-9)

		// avgGain (0.5+2)/2=1.25 avgLoss 0.25 => RS 5
		rsi.Update(bars[3])
		assert.InDelta(t, 100-100/6.0, rsi.Value(), 1e-9)
	})

	t.Run("only gains", func(t *testing.T) {
		v, ok, err := Compute(Ref{Kind: KindRSI, Period: 3}, closes(1, 2, 3, 4, 5))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})

	t.Run("flat series", func(t *testing.T) {
		v, ok, err := Compute(Ref{Kind: KindRSI, Period: 3}, closes(5, 5, 5, 5))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 50.0, v)
	})
}

func TestMACD(t *testing.T) {
	m := NewMACD(2, 3, 2)
	assert.Equal(t, "MACD(2,3,2)", m.Name())
	assert.Equal(t, 4, m.Warmup())

	bars := closes(1, 2, 3, 4, 5)

	m.Update(bars[0])
	m.Update(bars[1])
	assert.False(t, m.Ready())
	_, ok := m.Field(FieldSignal)
	assert.False(t, ok)

	// EMA2 = 2.5, EMA3 = 2
	m.Update(bars[2])
	require.True(t, m.Ready())
	assert.InDelta(t, 0.5, m.Value(), 1e-9)
	_, ok = m.Field(FieldSignal)
	assert.False(t, ok)

	m.Update(bars[3])
	sig, ok := m.Field(FieldSignal)
	require.True(t, ok)
	assert.InDelta(t, 0.5, sig, 1e-9)

	m.Update(bars[4])
	hist, ok := m.Field(FieldHistogram)
	require.True(t, ok)
	assert.InDelta(t, 0.0, hist, 1e-9)

	_, ok = m.Field("bogus")
	assert.False(t, ok)
}

func TestBollinger(t *testing.T) {
	b := NewBollinger(3, 2)
	for _, bar := range closes(1, 2, 3) {
		b.Update(bar)
	}
	require.True(t, b.Ready())

	sd := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, sd, b.StdDev(), 1e-12)

	mid, ok := b.Field(FieldMiddle)
	require.True(t, ok)
	assert.InDelta(t, 2.0, mid, 1e-12)

	up, _ := b.Field(FieldUpper)
	lo, _ := b.Field(FieldLower)
	assert.InDelta(t, 2+2*sd, up, 1e-12)
	assert.InDelta(t, 2-2*sd, lo, 1e-12)

	t.Run("constant series collapses bands", func(t *testing.T) {
		v, ok, err := Compute(Ref{Kind: KindBollinger, Period: 4, Field: "upper"}, closes(7, 7, 7, 7, 7))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 7.0, v)
	})
}

func TestPriceFields(t *testing.T) {
	p := NewPrice()
	_, ok := p.Field(FieldClose)
	assert.False(t, ok)

	p.Update(market.Bar{Open: 1, High: 4, Low: 0.5, Close: 3, Volume: 99})
	for field, want := range map[string]float64{
		"":          3,
		FieldOpen:   1,
		FieldHigh:   4,
		FieldLow:    0.5,
		FieldClose:  3,
		FieldVolume: 99,
	} {
		v, ok := p.Field(field)
		assert.True(t, ok, field)
		assert.Equal(t, want, v, field)
	}
}
