// Package journal persists backtest runs, their trades and equity curves.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/strategy"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// RunRecord is the summary row of one backtest run.
type RunRecord struct {
	RunID     string
	Created   time.Time
	Strategy  string
	Asset     string
	Timeframe string
	Dataset   string
	Config    []byte // strategy YAML

	Start time.Time
	End   time.Time
	Bars  int

	StopLossPct   float64
	TakeProfitPct float64
	RR            float64

	InitialCapital float64
	FinalEquity    float64

	Trades   int
	Wins     int
	Losses   int
	Rejected int

	NetPL        float64
	ReturnPct    float64
	WinRate      float64 // percent
	ProfitFactor float64
	MaxDDPct     float64
	Sharpe       float64
	Sortino      float64
	CAGR         float64

	OrgPath string
	Notes   []string
}

// TradeRecord is one closed trade of a run.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Seq        int
	Asset      string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	PnL        float64
	PnLPct     float64
	Commission float64
	BarsHeld   int
	Reason     string
}

// EquitySnapshot is one point of a run's equity curve.
type EquitySnapshot struct {
	RunID  string
	Time   time.Time
	Equity float64
}

// Journal stores run output.
type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// equityBatcher is implemented by journals that can store a curve in one
// transaction.
type equityBatcher interface {
	RecordEquityBatch([]EquitySnapshot) error
}

// NewRunRecord summarizes res, produced by running s.
func NewRunRecord(runID string, s *strategy.Strategy, opts backtest.Options, res *backtest.Result) RunRecord {
	m := res.Metrics
	r := RunRecord{
		RunID:          runID,
		Created:        time.Now().UTC(),
		Strategy:       s.Name,
		Asset:          s.Asset,
		Bars:           res.Bars,
		StopLossPct:    s.StopLossPct,
		TakeProfitPct:  s.TakeProfitPct,
		InitialCapital: opts.InitialCapital,
		FinalEquity:    m.FinalEquity,
		Trades:         m.TotalTrades,
		Wins:           m.WinningTrades,
		Losses:         m.LosingTrades,
		Rejected:       res.RejectedEntries,
		NetPL:          m.TotalPnL,
		ReturnPct:      m.TotalPnLPercent,
		WinRate:        m.WinRate * 100,
		ProfitFactor:   m.ProfitFactor,
		MaxDDPct:       m.MaxDrawdownPercent,
		Sharpe:         m.SharpeRatio,
		Sortino:        m.SortinoRatio,
		CAGR:           m.CAGR,
	}
	if s.StopLossPct > 0 && s.TakeProfitPct > 0 {
		r.RR = risk.RR(1, 1-s.StopLossPct/100, 1+s.TakeProfitPct/100)
	}
	if cfg, err := strategy.Marshal(s); err == nil {
		r.Config = cfg
	}
	if n := len(res.Equity); n > 0 {
		r.Start = res.Equity[0].Time
		r.End = res.Equity[n-1].Time
	}
	if res.Open != nil {
		r.Notes = append(r.Notes, fmt.Sprintf("position of %g still open at end of data", res.Open.Quantity))
	}
	return r
}

// TradeRecords converts the trades of a run.
func TradeRecords(runID, asset string, trades []backtest.Trade) []TradeRecord {
	out := make([]TradeRecord, len(trades))
	for i, t := range trades {
		out[i] = TradeRecord{
			TradeID:    fmt.Sprintf("%s-%04d", runID, i+1),
			RunID:      runID,
			Seq:        i + 1,
			Asset:      asset,
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			OpenTime:   t.EntryTime,
			CloseTime:  t.ExitTime,
			PnL:        t.PnL,
			PnLPct:     t.PnLPct,
			Commission: t.Commission,
			BarsHeld:   t.BarsHeld,
			Reason:     string(t.ExitReason),
		}
	}
	return out
}

// Save writes run, then its trades and equity curve from res.
func Save(j Journal, run RunRecord, res *backtest.Result) error {
	if err := j.RecordRun(run); err != nil {
		return fmt.Errorf("journal: record run %s: %w", run.RunID, err)
	}
	for _, t := range TradeRecords(run.RunID, run.Asset, res.Trades) {
		if err := j.RecordTrade(t); err != nil {
			return fmt.Errorf("journal: record trade %s: %w", t.TradeID, err)
		}
	}

	eq := make([]EquitySnapshot, len(res.Equity))
	for i, p := range res.Equity {
		eq[i] = EquitySnapshot{RunID: run.RunID, Time: p.Time, Equity: p.Equity}
	}
	if b, ok := j.(equityBatcher); ok {
		if err := b.RecordEquityBatch(eq); err != nil {
			return fmt.Errorf("journal: record equity for %s: %w", run.RunID, err)
		}
		return nil
	}
	for _, e := range eq {
		if err := j.RecordEquity(e); err != nil {
			return fmt.Errorf("journal: record equity for %s: %w", run.RunID, err)
		}
	}
	return nil
}
