package sim

import (
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Levels are the exit parameters of a strategy, percentages relative to
// the entry fill price. Zero disables the corresponding exit.
type Levels struct {
	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64
	TimeExitBars    int
}

// Position is an open long position. It is a value: transitions return a
// new Position rather than mutating the old one.
type Position struct {
	EntryIndex      int
	EntryTime       time.Time
	EntryPrice      float64 // effective fill, slippage included
	Quantity        float64
	StopPrice       float64 // 0 = no stop
	TargetPrice     float64 // 0 = no target
	TrailingPct     float64
	TrailingHigh    float64
	TimeExitBars    int
	BarsHeld        int
	EntryCommission float64
	PlannedRisk     float64 // cash lost if stopped out, full notional with no stop
}

// Open creates a position filled at price on bar i.
func Open(i int, t time.Time, price, qty, commission float64, lv Levels) *Position {
	p := &Position{
		EntryIndex:      i,
		EntryTime:       t,
		EntryPrice:      price,
		Quantity:        qty,
		TrailingPct:     lv.TrailingStopPct,
		TrailingHigh:    price,
		TimeExitBars:    lv.TimeExitBars,
		EntryCommission: commission,
	}
	if lv.StopLossPct > 0 {
		p.StopPrice = StopPrice(price, lv.StopLossPct)
	}
	if lv.TakeProfitPct > 0 {
		p.TargetPrice = price * (1 + lv.TakeProfitPct/100)
	}
	return p
}

// StopPrice is the stop level pct percent below entry.
func StopPrice(entry, pct float64) float64 {
	return entry * (1 - pct/100)
}

// Advance returns the position as it stands after bar b: one more bar held
// and the trailing high-water mark raised to b.High.
func (p Position) Advance(b market.Bar) *Position {
	p.BarsHeld++
	if b.High > p.TrailingHigh {
		p.TrailingHigh = b.High
	}
	return &p
}

// TrailingStop is the current trailing stop level, 0 when disabled.
func (p *Position) TrailingStop() float64 {
	if p.TrailingPct <= 0 {
		return 0
	}
	return p.TrailingHigh * (1 - p.TrailingPct/100)
}

// MarketValue is the unrealized profit at price, before exit costs.
func (p *Position) MarketValue(price float64) float64 {
	return UnrealizedPL(p.EntryPrice, price, p.Quantity)
}
