package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidData is wrapped by every error that rejects a bar series.
var ErrInvalidData = errors.New("invalid bar data")

// Bar is a single OHLCV sample for a fixed interval.
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// Validate checks that bars form a usable series: non-empty, strictly
// increasing in time, finite positive prices and High >= Low.
//
// The series is never sorted or repaired.
func Validate(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: empty bar series", ErrInvalidData)
	}

	for i, b := range bars {
		if b.Time.IsZero() {
			return fmt.Errorf("%w: bar %d has no timestamp", ErrInvalidData, i)
		}
		for _, px := range []float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(px) || math.IsInf(px, 0) || px <= 0 {
				return fmt.Errorf("%w: bar %d (%s) has bad price %v",
					ErrInvalidData, i, b.Time.Format(time.RFC3339), px)
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: bar %d (%s) high %v below low %v",
				ErrInvalidData, i, b.Time.Format(time.RFC3339), b.High, b.Low)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d (%s) not after bar %d (%s)",
				ErrInvalidData, i, b.Time.Format(time.RFC3339),
				i-1, bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Spacing returns the median interval between consecutive bars.
// It returns 0 for series shorter than two bars.
func Spacing(bars []Bar) time.Duration {
	times := make([]time.Time, len(bars))
	for i, b := range bars {
		times[i] = b.Time
	}
	return MedianSpacing(times)
}

// MedianSpacing returns the median interval between consecutive times, or 0
// for fewer than two.
func MedianSpacing(times []time.Time) time.Duration {
	if len(times) < 2 {
		return 0
	}
	d := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		d = append(d, times[i].Sub(times[i-1]))
	}
	sort.Slice(d, func(a, b int) bool { return d[a] < d[b] })
	return d[len(d)/2]
}

// GapStats summarizes irregular spacing in a series.
type GapStats struct {
	Spacing    time.Duration // median interval
	Gaps       int           // intervals longer than Spacing
	Weekend    int           // gaps of a day or more starting Fri-Sun
	Suspicious int           // every other gap of a day or more
	Longest    time.Duration
}

// Gaps reports intervals longer than the median spacing. Gaps are tolerated
// by the engine; this is informational only.
func Gaps(bars []Bar) GapStats {
	st := GapStats{Spacing: Spacing(bars)}
	if st.Spacing == 0 {
		return st
	}
	for i := 1; i < len(bars); i++ {
		d := bars[i].Time.Sub(bars[i-1].Time)
		if d > st.Longest {
			st.Longest = d
		}
		if d <= st.Spacing {
			continue
		}
		st.Gaps++
		if d < 24*time.Hour {
			continue
		}
		switch bars[i-1].Time.UTC().Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
			st.Weekend++
		default:
			st.Suspicious++
		}
	}
	return st
}
