// Package metrics computes performance statistics of a finished run. Every
// statistic is a pure function of the trade log, the equity curve and the
// initial capital.
package metrics

import (
	"math"
	"time"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
)

// Unbounded stands in for +Inf where a ratio has a zero denominator and a
// positive numerator. It survives JSON encoding, unlike math.Inf.
const Unbounded = math.MaxFloat64

// IsUnbounded reports whether v is the Unbounded sentinel.
func IsUnbounded(v float64) bool { return v == Unbounded }

// EquityPoint is the account value at the close of one bar.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Metrics is the summary of a run.
type Metrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // fraction, 0..1

	TotalPnL        float64 `json:"total_pnl"`
	TotalPnLPercent float64 `json:"total_pnl_percent"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"` // positive
	ProfitFactor    float64 `json:"profit_factor"`
	AverageTrade    float64 `json:"average_trade"`
	AverageWin      float64 `json:"average_win"`
	AverageLoss     float64 `json:"average_loss"`
	LargestWin      float64 `json:"largest_win"`
	LargestLoss     float64 `json:"largest_loss"`

	MaxDrawdown        float64 `json:"max_drawdown"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	SortinoRatio       float64 `json:"sortino_ratio"`
	CAGR               float64 `json:"cagr"`
	RecoveryFactor     float64 `json:"recovery_factor"`

	LongestWinningStreak  int     `json:"longest_winning_streak"`
	LongestLosingStreak   int     `json:"longest_losing_streak"`
	AvgTradeDurationHours float64 `json:"avg_trade_duration_hours"`

	FinalEquity float64 `json:"final_equity"`
}

// Compute derives Metrics. periodsPerYear annualizes Sharpe and Sortino;
// when it is 0 it is inferred from the median spacing of the equity curve.
func Compute(trades []sim.Trade, equity []EquityPoint, initialCapital, periodsPerYear float64) Metrics {
	var m Metrics

	tradeStats(&m, trades)

	if initialCapital != 0 {
		m.TotalPnLPercent = m.TotalPnL / initialCapital * 100
	}

	m.FinalEquity = initialCapital
	if len(equity) > 0 {
		m.FinalEquity = equity[len(equity)-1].Equity
	}

	m.MaxDrawdown, m.MaxDrawdownPercent = MaxDrawdown(equity)

	if periodsPerYear <= 0 {
		periodsPerYear = inferPeriodsPerYear(equity)
	}
	rets := Returns(equity)
	m.SharpeRatio = Sharpe(rets, periodsPerYear)
	m.SortinoRatio = Sortino(rets, periodsPerYear)

	if len(equity) > 0 {
		days := equity[len(equity)-1].Time.Sub(equity[0].Time).Hours() / 24
		m.CAGR = CAGR(initialCapital, m.FinalEquity, days)
	}

	switch {
	case m.MaxDrawdown > 0:
		m.RecoveryFactor = m.TotalPnL / m.MaxDrawdown
	case m.TotalPnL > 0:
		m.RecoveryFactor = Unbounded
	}

	return m
}

func tradeStats(m *Metrics, trades []sim.Trade) {
	m.TotalTrades = len(trades)
	if m.TotalTrades == 0 {
		return
	}

	var hours float64
	for _, t := range trades {
		m.TotalPnL += t.PnL
		hours += t.DurationHours
		if t.PnL > 0 {
			m.WinningTrades++
			m.GrossProfit += t.PnL
			m.LargestWin = math.Max(m.LargestWin, t.PnL)
		} else {
			m.LosingTrades++
			m.GrossLoss += -t.PnL
			m.LargestLoss = math.Min(m.LargestLoss, t.PnL)
		}
	}

	n := float64(m.TotalTrades)
	m.WinRate = float64(m.WinningTrades) / n
	m.AverageTrade = m.TotalPnL / n
	m.AvgTradeDurationHours = hours / n
	if m.WinningTrades > 0 {
		m.AverageWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = -m.GrossLoss / float64(m.LosingTrades)
	}

	m.ProfitFactor = ProfitFactor(m.GrossProfit, m.GrossLoss)
	m.LongestWinningStreak, m.LongestLosingStreak = Streaks(trades)
}

// ProfitFactor is grossProfit / grossLoss. With no losses it is Unbounded
// if there was any profit and 0 otherwise.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return Unbounded
		}
		return 0
	}
	return grossProfit / grossLoss
}

// Streaks returns the longest runs of consecutive winning (PnL > 0) and
// losing (PnL <= 0) trades in close order.
func Streaks(trades []sim.Trade) (win, loss int) {
	var w, l int
	for _, t := range trades {
		if t.PnL > 0 {
			w++
			l = 0
		} else {
			l++
			w = 0
		}
		win = max(win, w)
		loss = max(loss, l)
	}
	return win, loss
}

// MaxDrawdown returns the largest fall from a running peak, and that fall
// as a percent of the same peak.
func MaxDrawdown(equity []EquityPoint) (dd, pct float64) {
	if len(equity) == 0 {
		return 0, 0
	}
	peak := equity[0].Equity
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if d := peak - p.Equity; d > dd {
			dd = d
			if peak > 0 {
				pct = d / peak * 100
			}
		}
	}
	return dd, pct
}

// Returns is the per-bar simple return series of equity. A bar following
// non-positive equity yields 0.
func Returns(equity []EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

// zeroTol is the relative size below which a deviation counts as zero.
const zeroTol = 1e-12

// negligible reports whether dev is rounding noise relative to mu.
func negligible(dev, mu float64) bool {
	return dev <= zeroTol*math.Max(1, math.Abs(mu))
}

// Sharpe is mean / sample standard deviation, scaled by
// sqrt(periodsPerYear). It is 0 for fewer than two returns or zero
// deviation.
func Sharpe(rets []float64, periodsPerYear float64) float64 {
	if len(rets) < 2 {
		return 0
	}
	mu := mean(rets)
	var ss float64
	for _, r := range rets {
		ss += (r - mu) * (r - mu)
	}
	sd := math.Sqrt(ss / float64(len(rets)-1))
	if negligible(sd, mu) || math.IsNaN(sd) {
		return 0
	}
	return mu / sd * annualize(periodsPerYear)
}

// Sortino is mean / downside deviation, scaled by sqrt(periodsPerYear).
// Downside deviation is sqrt(sum(min(r,0)^2) / n). With no downside it is
// 0 when the mean is not positive and Unbounded otherwise.
func Sortino(rets []float64, periodsPerYear float64) float64 {
	if len(rets) < 2 {
		return 0
	}
	mu := mean(rets)
	var ss float64
	for _, r := range rets {
		if r < 0 {
			ss += r * r
		}
	}
	dd := math.Sqrt(ss / float64(len(rets)))
	if negligible(dd, mu) {
		if mu > 0 {
			return Unbounded
		}
		return 0
	}
	return mu / dd * annualize(periodsPerYear)
}

// CAGR is the compound annual growth rate over days. It is 0 for a
// non-positive span or capital and -1 when everything was lost.
func CAGR(initial, final, days float64) float64 {
	if days <= 0 || initial <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	return math.Pow(final/initial, 365/days) - 1
}

func annualize(periodsPerYear float64) float64 {
	if periodsPerYear <= 0 {
		return 1
	}
	return math.Sqrt(periodsPerYear)
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func inferPeriodsPerYear(equity []EquityPoint) float64 {
	times := make([]time.Time, len(equity))
	for i, p := range equity {
		times[i] = p.Time
	}
	return market.PeriodsPerYear(market.MedianSpacing(times))
}
