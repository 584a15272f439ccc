package sim

import "github.com/rustyeddy/backtester/market"

// ExitReason records why a position was closed.
type ExitReason string

const (
	StopLoss     ExitReason = "STOP_LOSS"
	TakeProfit   ExitReason = "TAKE_PROFIT"
	TrailingStop ExitReason = "TRAILING_STOP"
	TimeExit     ExitReason = "TIME_EXIT"
	SignalExit   ExitReason = "SIGNAL_EXIT"
	EndOfData    ExitReason = "END_OF_DATA"
)

// Exit is a triggered exit at a reference price, before slippage.
type Exit struct {
	Reason ExitReason
	Price  float64
}

// CheckExit evaluates the price and time triggers of p, which must already
// be advanced to bar b, in priority order: stop-loss, take-profit,
// trailing stop, time. The first that fires wins. Signal exits are the
// caller's concern and rank below all of these.
func CheckExit(p *Position, b market.Bar) (Exit, bool) {
	if hitStopLoss(p, b) {
		return Exit{Reason: StopLoss, Price: p.StopPrice}, true
	}
	if hitTakeProfit(p, b) {
		return Exit{Reason: TakeProfit, Price: p.TargetPrice}, true
	}
	if level := p.TrailingStop(); level > 0 && b.Low <= level {
		return Exit{Reason: TrailingStop, Price: level}, true
	}
	if p.TimeExitBars > 0 && p.BarsHeld >= p.TimeExitBars {
		return Exit{Reason: TimeExit, Price: b.Close}, true
	}
	return Exit{}, false
}

func hitStopLoss(p *Position, b market.Bar) bool {
	return p.StopPrice > 0 && b.Low <= p.StopPrice
}

func hitTakeProfit(p *Position, b market.Bar) bool {
	return p.TargetPrice > 0 && b.High >= p.TargetPrice
}
