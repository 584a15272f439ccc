package sim

import "time"

// Trade is a closed position.
type Trade struct {
	EntryTime     time.Time  `json:"entry_time"`
	EntryPrice    float64    `json:"entry_price"`
	ExitTime      time.Time  `json:"exit_time"`
	ExitPrice     float64    `json:"exit_price"`
	Quantity      float64    `json:"quantity"`
	PnL           float64    `json:"pnl"`
	PnLPct        float64    `json:"pnl_pct"`
	DurationHours float64    `json:"duration_hours"`
	ExitReason    ExitReason `json:"exit_reason"`
	EntryIndex    int        `json:"entry_index"`
	ExitIndex     int        `json:"exit_index"`
	BarsHeld      int        `json:"bars_held"`
	Commission    float64    `json:"commission"`
	PlannedRisk   float64    `json:"planned_risk"`
}

// Close turns p into a Trade filled at price on bar i. PnL is net of the
// entry and exit commissions.
func (p *Position) Close(i int, t time.Time, price, commission float64, reason ExitReason) Trade {
	pnl := UnrealizedPL(p.EntryPrice, price, p.Quantity) - p.EntryCommission - commission

	var pct float64
	if notional := p.EntryPrice * p.Quantity; notional != 0 {
		pct = pnl / notional * 100
	}

	return Trade{
		EntryTime:     p.EntryTime,
		EntryPrice:    p.EntryPrice,
		ExitTime:      t,
		ExitPrice:     price,
		Quantity:      p.Quantity,
		PnL:           pnl,
		PnLPct:        pct,
		DurationHours: t.Sub(p.EntryTime).Hours(),
		ExitReason:    reason,
		EntryIndex:    p.EntryIndex,
		ExitIndex:     i,
		BarsHeld:      p.BarsHeld,
		Commission:    p.EntryCommission + commission,
		PlannedRisk:   p.PlannedRisk,
	}
}

// Winner reports whether the trade made money after costs.
func (t Trade) Winner() bool { return t.PnL > 0 }
