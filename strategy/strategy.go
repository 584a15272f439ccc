package strategy

import (
	"strings"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/risk"
)

// Strategy is a long-only rule based trading strategy.
//
// Percentages are relative to the entry fill price, 2 means 2%. A zero
// StopLossPct, TakeProfitPct, TrailingStopPct or TimeExitBars disables that
// exit. A nil Exit disables signal exits.
type Strategy struct {
	Name  string `json:"name" yaml:"name"`
	Asset string `json:"asset" yaml:"asset"`

	Entry Node  `json:"entry" yaml:"entry"`
	Exit  *Node `json:"exit,omitempty" yaml:"exit,omitempty"`

	StopLossPct     float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty"`
	TakeProfitPct   float64 `json:"take_profit_pct,omitempty" yaml:"take_profit_pct,omitempty"`
	TrailingStopPct float64 `json:"trailing_stop_pct,omitempty" yaml:"trailing_stop_pct,omitempty"`
	TimeExitBars    int     `json:"time_exit_bars,omitempty" yaml:"time_exit_bars,omitempty"`

	Sizing risk.Sizing `json:"sizing" yaml:"sizing"`
}

// Refs returns every distinct indicator the entry and exit trees use, in
// first-use order.
func (s *Strategy) Refs() []indicators.Ref {
	all := s.Entry.Refs(nil)
	all = s.Exit.Refs(all)

	seen := make(map[indicators.Ref]bool, len(all))
	out := all[:0]
	for _, r := range all {
		k := r.Normalize()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Normalize folds the case of every enum in place so hand written files
// may use "and" or "crosses_above".
func (s *Strategy) Normalize() {
	normalizeNode(&s.Entry)
	if s.Exit != nil {
		normalizeNode(s.Exit)
	}
	s.Sizing = s.Sizing.Normalize()
}

func normalizeNode(n *Node) {
	n.Type = NodeType(strings.ToLower(strings.TrimSpace(string(n.Type))))
	n.Comparator = Comparator(strings.ToUpper(strings.TrimSpace(string(n.Comparator))))
	n.Operator = Operator(strings.ToUpper(strings.TrimSpace(string(n.Operator))))
	n.Left = n.Left.Normalize()
	if n.Right.Indicator != nil {
		r := n.Right.Indicator.Normalize()
		n.Right.Indicator = &r
	}
	for i := range n.Children {
		normalizeNode(&n.Children[i])
	}
}

// Clone returns a deep copy of s.
func (s *Strategy) Clone() *Strategy {
	c := *s
	c.Entry = cloneNode(s.Entry)
	if s.Exit != nil {
		e := cloneNode(*s.Exit)
		c.Exit = &e
	}
	return &c
}

func cloneNode(n Node) Node {
	if n.Right.Indicator != nil {
		r := *n.Right.Indicator
		n.Right.Indicator = &r
	}
	if n.Right.Value != nil {
		v := *n.Right.Value
		n.Right.Value = &v
	}
	if n.Children != nil {
		kids := make([]Node, len(n.Children))
		for i, k := range n.Children {
			kids[i] = cloneNode(k)
		}
		n.Children = kids
	}
	return n
}
