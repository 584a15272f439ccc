// Package indicators provides streaming technical indicators and a per-run
// cache that serves their values by bar index.
package indicators

import "github.com/rustyeddy/backtester/market"

// Indicator computes a streaming value from bars.
// It is deterministic and never looks past the bar it was last updated with.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() is true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the primary output. If !Ready(), it returns 0.
	Value() float64
}

// FieldIndicator is implemented by indicators with more than one output
// (MACD line/signal/histogram, Bollinger bands, bar prices).
// ok is false while the requested output is still warming up.
type FieldIndicator interface {
	Indicator
	Field(name string) (v float64, ok bool)
}

// sample reads the output selected by field from ind.
func sample(ind Indicator, field string) (float64, bool) {
	if fi, ok := ind.(FieldIndicator); ok {
		return fi.Field(field)
	}
	if !ind.Ready() {
		return 0, false
	}
	return ind.Value(), true
}

// Compute feeds bars through a fresh indicator for ref and returns the
// value after the last bar.
func Compute(ref Ref, bars []market.Bar) (float64, bool, error) {
	ind, err := New(ref)
	if err != nil {
		return 0, false, err
	}
	for _, b := range bars {
		ind.Update(b)
	}
	v, ok := sample(ind, ref.Normalize().Field)
	return v, ok, nil
}
