package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/market"
)

// ATR is a streaming Average True Range with Wilder smoothing.
// The first bar only seeds the previous close.
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prev        market.Bar
	hasPrevious bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	// Need period+1 bars because TR requires previous bar
	return a.period + 1
}

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrevious = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrevious {
		a.prev = b
		a.hasPrevious = true
		return
	}

	tr := trueRange(b, a.prev)
	a.prev = b

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
		return
	}
	a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// trueRange calculates the True Range for a bar given the previous bar
func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
