package backtest

import (
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/sim"
)

// Trade is a closed position.
type Trade = sim.Trade

// EquityPoint is the account value at one bar's close.
type EquityPoint = metrics.EquityPoint

// Result is the complete output of one run. Equity has one point per bar
// and Trades are in entry order.
type Result struct {
	Strategy        string          `json:"strategy"`
	Asset           string          `json:"asset,omitempty"`
	Bars            int             `json:"bars"`
	Equity          []EquityPoint   `json:"equity"`
	Trades          []Trade         `json:"trades"`
	Metrics         metrics.Metrics `json:"metrics"`
	RejectedEntries int             `json:"rejected_entries"`

	// Open is the position still held after the last bar, nil when flat.
	Open *sim.Position `json:"open,omitempty"`
}

// Flat reports whether the run ended without an open position.
func (r *Result) Flat() bool { return r.Open == nil }
