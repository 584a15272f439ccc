package market

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func hourly(closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Time: t0.Add(time.Duration(i) * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return bars
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bars    []Bar
		wantErr string
	}{
		{"ok", hourly(10, 11, 12), ""},
		{"empty", nil, "empty bar series"},
		{"equal timestamps", func() []Bar {
			b := hourly(10, 11)
			b[1].Time = b[0].Time
			return b
		}(), "not after bar 0"},
		{"decreasing timestamps", func() []Bar {
			b := hourly(10, 11, 12)
			b[2].Time = t0.Add(-time.Hour)
			return b
		}(), "not after bar 1"},
		{"nan close", func() []Bar {
			b := hourly(10)
			b[0].Close = math.NaN()
			return b
		}(), "bad price"},
		{"high below low", func() []Bar {
			b := hourly(10)
			b[0].High, b[0].Low = 9, 11
			return b
		}(), "below low"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.bars)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGaps(t *testing.T) {
	bars := hourly(1, 2, 3, 4, 5)
	bars[3].Time = bars[2].Time.Add(5 * time.Hour)
	bars[4].Time = bars[3].Time.Add(time.Hour)

	st := Gaps(bars)
	assert.Equal(t, time.Hour, st.Spacing)
	assert.Equal(t, 1, st.Gaps)
	assert.Equal(t, 5*time.Hour, st.Longest)

	assert.Equal(t, GapStats{}, Gaps(hourly(1)))
}

func TestMedianSpacing(t *testing.T) {
	tests := []struct {
		name  string
		times []time.Time
		want  time.Duration
	}{
		{"empty", nil, 0},
		{"single", []time.Time{t0}, 0},
		{"regular", []time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)}, time.Hour},
		{"one gap", []time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour), t0.Add(50 * time.Hour)}, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MedianSpacing(tt.times))
		})
	}

	assert.Equal(t, time.Hour, Spacing(hourly(1, 2, 3, 4)))
}

func TestReadCSV(t *testing.T) {
	in := `time,open,high,low,close,volume
2024-01-01T00:00:00Z,100,105,99,102,1000

2024-01-01T01:00:00Z,102,107,101,105,1100
1704074400,105,108,104,106
2024-01-01T03:00:00Z,106,110,105,108,1300
`
	bars, err := ReadCSV(strings.NewReader(in), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 4)

	assert.Equal(t, 102.0, bars[0].Close)
	assert.Equal(t, 1000.0, bars[0].Volume)
	assert.Equal(t, t0.Add(2*time.Hour), bars[2].Time)
	assert.Equal(t, 0.0, bars[2].Volume)
	assert.NoError(t, Validate(bars))

	t.Run("range filter", func(t *testing.T) {
		bars, err := ReadCSV(strings.NewReader(in), t0.Add(time.Hour), t0.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, 105.0, bars[0].Close)
		assert.Equal(t, 106.0, bars[1].Close)
	})

	t.Run("bad price", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("2024-01-01T00:00:00Z,abc,1,1,1\n"), time.Time{}, time.Time{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidData))
		assert.Contains(t, err.Error(), "line 1")
	})

	t.Run("short row", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("2024-01-01T00:00:00Z,1,1,1\n"), time.Time{}, time.Time{})
		require.Error(t, err)
	})
}
