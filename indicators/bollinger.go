package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// Bollinger band outputs.
const (
	FieldMiddle = "middle"
	FieldUpper  = "upper"
	FieldLower  = "lower"
)

// Bollinger is a rolling SMA of closes with bands k population standard
// deviations above and below it.
type Bollinger struct {
	sma *SimpleMA
	k   float64
}

// NewBollinger creates Bollinger bands over period bars with multiplier k.
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{sma: NewMA(period), k: k}
}

func (b *Bollinger) Name() string {
	return fmt.Sprintf("BOLLINGER(%d,%g)", b.sma.period, b.k)
}

func (b *Bollinger) Warmup() int { return b.sma.Warmup() }
func (b *Bollinger) Reset() { b.sma.Reset() }
func (b *Bollinger) Ready() bool { return b.sma.Ready() }
func (b *Bollinger) Value() float64 { return b.sma.Value() }

func (b *Bollinger) Update(bar market.Bar) {
	b.sma.Update(bar)
}

// StdDev returns the population standard deviation of the window.
func (b *Bollinger) StdDev() float64 {
	if !b.Ready() {
		return 0
	}
	mean := b.sma.Value()
	var ss float64
	for _, c := range b.sma.closes {
		d := c - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(b.sma.closes)))
}

func (b *Bollinger) Field(name string) (float64, bool) {
	if !b.Ready() {
		return 0, false
	}
	switch name {
	case "", FieldMiddle:
		return b.sma.Value(), true
	case FieldUpper:
		return b.sma.Value() + b.k*b.StdDev(), true
	case FieldLower:
		return b.sma.Value() - b.k*b.StdDev(), true
	}
	return 0, false
}
