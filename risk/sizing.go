package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects how an entry quantity is derived.
type Mode string

const (
	// Fixed buys Value units regardless of price or capital.
	Fixed Mode = "FIXED"
	// Percentage commits Value percent of available cash.
	Percentage Mode = "PERCENTAGE"
	// RiskBased sizes so that hitting the stop loses Value percent of cash.
	RiskBased Mode = "RISK_BASED"
)

var (
	// ErrInsufficientCash means the sized order plus commission costs more
	// than the available cash.
	ErrInsufficientCash = errors.New("insufficient cash for order")

	// ErrZeroQuantity means sizing produced nothing tradable.
	ErrZeroQuantity = errors.New("sized quantity is zero")
)

// Sizing is the position sizing rule of a strategy.
type Sizing struct {
	Mode  Mode    `json:"mode" yaml:"mode"`
	Value float64 `json:"value" yaml:"value"`
}

// Normalize folds the mode to upper case.
func (s Sizing) Normalize() Sizing {
	s.Mode = Mode(strings.ToUpper(strings.TrimSpace(string(s.Mode))))
	return s
}

// Validate checks the rule on its own; the stop-loss requirement of
// RiskBased is checked by the strategy that owns it.
func (s Sizing) Validate() error {
	s = s.Normalize()
	switch s.Mode {
	case Fixed, Percentage, RiskBased:
	case "":
		return fmt.Errorf("sizing mode is required")
	default:
		return fmt.Errorf("unknown sizing mode %q", s.Mode)
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value <= 0 {
		return fmt.Errorf("sizing value must be positive, got %v", s.Value)
	}
	if s.Mode != Fixed && s.Value > 100 {
		return fmt.Errorf("%s sizing value is a percent of cash and must be <= 100, got %v", s.Mode, s.Value)
	}
	return nil
}

// Inputs are the account and order facts sizing depends on.
type Inputs struct {
	Cash          float64 // available cash
	Price         float64 // effective fill price
	StopPrice     float64 // required for RiskBased
	CommissionPct float64 // charged on notional, 0.1 = 0.1%
	Step          float64 // minimum tradable increment, 0 = continuous
	Clamp         bool    // shrink unaffordable orders instead of rejecting
}

// Result is a sized order.
type Result struct {
	Quantity float64
	Clamped  bool
}

// Size computes the entry quantity for s.
//
// The order must leave cash non-negative after paying for the notional and
// the entry commission. By default an unaffordable order is rejected with
// ErrInsufficientCash; with in.Clamp it is reduced to the largest
// affordable quantity.
func Size(s Sizing, in Inputs) (Result, error) {
	s = s.Normalize()
	if in.Price <= 0 {
		return Result{}, fmt.Errorf("size: price must be positive, got %v", in.Price)
	}

	var qty float64
	switch s.Mode {
	case Fixed:
		qty = s.Value
	case Percentage:
		qty = in.Cash * s.Value / 100 / in.Price
	case RiskBased:
		perUnit := in.Price - in.StopPrice
		if in.StopPrice <= 0 || perUnit <= 0 {
			return Result{}, fmt.Errorf("size: risk based sizing needs a stop below price (price %v, stop %v)",
				in.Price, in.StopPrice)
		}
		qty = in.Cash * s.Value / 100 / perUnit
	default:
		return Result{}, fmt.Errorf("size: unknown sizing mode %q", s.Mode)
	}

	res := Result{Quantity: FloorToStep(qty, in.Step)}

	if cost := Cost(res.Quantity, in.Price, in.CommissionPct); exceeds(cost, in.Cash) {
		if !in.Clamp {
			return Result{}, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, cost, in.Cash)
		}
		res.Quantity = FloorToStep(in.Cash/(in.Price*(1+in.CommissionPct/100)), in.Step)
		res.Clamped = true
	}

	if res.Quantity <= 0 || math.IsNaN(res.Quantity) {
		return Result{}, ErrZeroQuantity
	}
	return res, nil
}

// Cost is the cash needed to buy qty at price including commission.
func Cost(qty, price, commissionPct float64) float64 {
	notional := qty * price
	return notional + notional*commissionPct/100
}

// FloorToStep rounds q down to a multiple of step. Decimal arithmetic
// keeps steps like 0.001 from producing 0.00099999.
func FloorToStep(q, step float64) float64 {
	if step <= 0 || q <= 0 {
		return q
	}
	st := decimal.NewFromFloat(step)
	f, _ := decimal.NewFromFloat(q).Div(st).Floor().Mul(st).Float64()
	return f
}

// exceeds reports cost > cash beyond float noise.
func exceeds(cost, cash float64) bool {
	return cost-cash > 1e-9*math.Max(1, math.Abs(cash))
}
