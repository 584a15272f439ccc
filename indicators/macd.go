package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// MACD outputs.
const (
	FieldMACD      = "macd"
	FieldSignal    = "signal"
	FieldHistogram = "histogram"
)

// MACD is the difference between a fast and a slow EMA of closes (the MACD
// line) plus an EMA of that line (the signal line).
type MACD struct {
	fast, slow ema
	signal     ema
	line       float64
}

// NewMACD creates a MACD with the given fast, slow and signal periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   newEMA(fast),
		slow:   newEMA(slow),
		signal: newEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

// Warmup is the number of bars needed for the signal line.
func (m *MACD) Warmup() int {
	return m.slow.period + m.signal.period - 1
}

func (m *MACD) Reset() {
	m.fast.reset()
	m.slow.reset()
	m.signal.reset()
	m.line = 0
}

func (m *MACD) Update(b market.Bar) {
	m.fast.add(b.Close)
	m.slow.add(b.Close)
	if !m.slow.ready() || !m.fast.ready() {
		return
	}
	m.line = m.fast.value - m.slow.value
	m.signal.add(m.line)
}

// Ready reports whether the MACD line is defined.
func (m *MACD) Ready() bool {
	return m.fast.ready() && m.slow.ready()
}

// Value returns the MACD line.
func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.line
}

func (m *MACD) Field(name string) (float64, bool) {
	switch name {
	case "", FieldMACD:
		return m.Value(), m.Ready()
	case FieldSignal:
		if !m.signal.ready() {
			return 0, false
		}
		return m.signal.value, true
	case FieldHistogram:
		if !m.signal.ready() {
			return 0, false
		}
		return m.line - m.signal.value, true
	}
	return 0, false
}
