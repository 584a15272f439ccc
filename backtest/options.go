package backtest

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidOptions classifies run option errors.
var ErrInvalidOptions = errors.New("invalid run options")

// FillMode selects the price at which signal driven orders fill.
type FillMode string

const (
	// FillClose fills entries and signal exits at the signal bar's close.
	FillClose FillMode = "close"
	// FillNextOpen fills them at the following bar's open. A signal on
	// the last bar is dropped.
	FillNextOpen FillMode = "next_open"
)

// CashPolicy decides what happens to an entry the account cannot afford.
type CashPolicy string

const (
	RejectEntry CashPolicy = "reject"
	ClampEntry  CashPolicy = "clamp"
)

// Options are the account and execution settings of a run.
type Options struct {
	InitialCapital   float64    `json:"initial_capital" yaml:"initial_capital"`
	CommissionPct    float64    `json:"commission_pct" yaml:"commission_pct"`
	SlippagePct      float64    `json:"slippage_pct" yaml:"slippage_pct"`
	Fill             FillMode   `json:"fill" yaml:"fill"`
	QuantityStep     float64    `json:"quantity_step" yaml:"quantity_step"`
	InsufficientCash CashPolicy `json:"insufficient_cash" yaml:"insufficient_cash"`
	PeriodsPerYear   float64    `json:"periods_per_year" yaml:"periods_per_year"` // 0 = infer from bars
	CloseAtEnd       bool       `json:"close_at_end" yaml:"close_at_end"`
}

// DefaultOptions returns a frictionless 10k account filling at the close.
func DefaultOptions() Options {
	return Options{
		InitialCapital:   10000,
		Fill:             FillClose,
		InsufficientCash: RejectEntry,
	}
}

// Normalize fills empty enums with their defaults.
func (o Options) Normalize() Options {
	o.Fill = FillMode(strings.ToLower(strings.TrimSpace(string(o.Fill))))
	if o.Fill == "" {
		o.Fill = FillClose
	}
	o.InsufficientCash = CashPolicy(strings.ToLower(strings.TrimSpace(string(o.InsufficientCash))))
	if o.InsufficientCash == "" {
		o.InsufficientCash = RejectEntry
	}
	return o
}

// Validate checks o. Every failure wraps ErrInvalidOptions.
func (o Options) Validate() error {
	if err := o.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

func (o Options) validate() error {
	o = o.Normalize()

	if !finite(o.InitialCapital) || o.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", o.InitialCapital)
	}
	if !finite(o.CommissionPct) || o.CommissionPct < 0 || o.CommissionPct >= 100 {
		return fmt.Errorf("commission_pct must be in [0, 100), got %v", o.CommissionPct)
	}
	if !finite(o.SlippagePct) || o.SlippagePct < 0 || o.SlippagePct >= 100 {
		return fmt.Errorf("slippage_pct must be in [0, 100), got %v", o.SlippagePct)
	}
	if !finite(o.QuantityStep) || o.QuantityStep < 0 {
		return fmt.Errorf("quantity_step must be >= 0, got %v", o.QuantityStep)
	}
	if !finite(o.PeriodsPerYear) || o.PeriodsPerYear < 0 {
		return fmt.Errorf("periods_per_year must be >= 0, got %v", o.PeriodsPerYear)
	}

	switch o.Fill {
	case FillClose, FillNextOpen:
	default:
		return fmt.Errorf("unknown fill mode %q (supported: close, next_open)", o.Fill)
	}
	switch o.InsufficientCash {
	case RejectEntry, ClampEntry:
	default:
		return fmt.Errorf("unknown insufficient_cash policy %q (supported: reject, clamp)", o.InsufficientCash)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
