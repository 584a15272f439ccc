package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/risk"
)

// ErrInvalidConfig classifies every strategy configuration error.
var ErrInvalidConfig = errors.New("invalid strategy configuration")

// Validate checks the whole strategy before a run. Every failure wraps
// ErrInvalidConfig.
func (s *Strategy) Validate() error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (s *Strategy) validate() error {
	if err := validateNode(&s.Entry, "entry"); err != nil {
		return err
	}
	if s.Exit != nil {
		if err := validateNode(s.Exit, "exit"); err != nil {
			return err
		}
	}

	pcts := []struct {
		name string
		v    float64
	}{
		{"stop_loss_pct", s.StopLossPct},
		{"take_profit_pct", s.TakeProfitPct},
		{"trailing_stop_pct", s.TrailingStopPct},
	}
	for _, p := range pcts {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", p.name, p.v)
		}
	}
	if s.StopLossPct >= 100 {
		return fmt.Errorf("stop_loss_pct must be below 100, got %v", s.StopLossPct)
	}
	if s.TrailingStopPct >= 100 {
		return fmt.Errorf("trailing_stop_pct must be below 100, got %v", s.TrailingStopPct)
	}
	if s.TimeExitBars < 0 {
		return fmt.Errorf("time_exit_bars must be >= 0, got %d", s.TimeExitBars)
	}

	if err := s.Sizing.Validate(); err != nil {
		return err
	}
	if s.Sizing.Normalize().Mode == risk.RiskBased && s.StopLossPct <= 0 {
		return fmt.Errorf("RISK_BASED sizing requires stop_loss_pct > 0")
	}
	return nil
}

func validateNode(n *Node, path string) error {
	switch n.Type {
	case NodeCondition:
		if err := n.Left.Validate(); err != nil {
			return fmt.Errorf("%s.left: %w", path, err)
		}
		switch n.Comparator {
		case LT, GT, LTE, GTE, CrossesAbove, CrossesBelow:
		case "":
			return fmt.Errorf("%s: comparator is required", path)
		default:
			return fmt.Errorf("%s: unknown comparator %q", path, n.Comparator)
		}
		hasInd, hasVal := n.Right.Indicator != nil, n.Right.Value != nil
		switch {
		case hasInd && hasVal:
			return fmt.Errorf("%s.right: set either indicator or value, not both", path)
		case hasInd:
			if err := n.Right.Indicator.Validate(); err != nil {
				return fmt.Errorf("%s.right: %w", path, err)
			}
		case hasVal:
			if math.IsNaN(*n.Right.Value) || math.IsInf(*n.Right.Value, 0) {
				return fmt.Errorf("%s.right: value must be finite", path)
			}
		default:
			return fmt.Errorf("%s.right: indicator or value is required", path)
		}
		if len(n.Children) > 0 {
			return fmt.Errorf("%s: condition cannot have children", path)
		}

	case NodeGroup:
		switch n.Operator {
		case And, Or:
		case "":
			return fmt.Errorf("%s: operator is required", path)
		default:
			return fmt.Errorf("%s: unknown operator %q", path, n.Operator)
		}
		if len(n.Children) == 0 {
			return fmt.Errorf("%s: group has no children", path)
		}
		for i := range n.Children {
			if err := validateNode(&n.Children[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}

	case "":
		return fmt.Errorf("%s: node type is required", path)
	default:
		return fmt.Errorf("%s: unknown node type %q", path, n.Type)
	}
	return nil
}
