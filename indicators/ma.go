package indicators

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// SimpleMA is a streaming Simple Moving Average of closes.
type SimpleMA struct {
	period int
	closes []float64
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		closes: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("SMA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.closes = m.closes[:0]
}

func (m *SimpleMA) Update(b market.Bar) {
	m.closes = append(m.closes, b.Close)
	// Keep only the last 'period' closes
	if len(m.closes) > m.period {
		m.closes = m.closes[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.closes) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}

	sum := 0.0
	for _, c := range m.closes {
		sum += c
	}
	return sum / float64(len(m.closes))
}

// ema is the smoothing core shared by ExponentialMA and MACD.
// It is seeded with the simple average of the first period inputs.
type ema struct {
	period     int
	multiplier float64
	value      float64
	count      int
	warmupSum  float64
}

func newEMA(period int) ema {
	return ema{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ema) add(v float64) {
	if e.count < e.period {
		// During warmup, accumulate sum for initial SMA
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.value = e.warmupSum / float64(e.period)
		}
		return
	}
	e.value = (v-e.value)*e.multiplier + e.value
}

func (e *ema) ready() bool { return e.count >= e.period }

func (e *ema) reset() {
	e.value = 0
	e.count = 0
	e.warmupSum = 0
}

// ExponentialMA is a streaming Exponential Moving Average of closes.
type ExponentialMA struct {
	ema
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{ema: newEMA(period)}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.reset()
}

func (e *ExponentialMA) Update(b market.Bar) {
	e.add(b.Close)
}

func (e *ExponentialMA) Ready() bool {
	return e.ready()
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}
