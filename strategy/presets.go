package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/risk"
)

// DefaultSizing is used by presets when Params leaves Sizing empty.
var DefaultSizing = risk.Sizing{Mode: risk.Percentage, Value: 95}

// Params tune a preset. Zero fields take the preset's defaults.
type Params struct {
	Fast   int
	Slow   int
	Period int

	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64
	TimeExitBars    int

	Sizing risk.Sizing
}

type preset func(p Params) (Node, *Node)

var presets = map[string]preset{
	"buy-hold": func(p Params) (Node, *Node) {
		return CondValue(closePrice(), GT, 0), nil
	},
	"ema-cross": func(p Params) (Node, *Node) {
		fast := indicators.Ref{Kind: indicators.KindEMA, Period: orDefault(p.Fast, 20)}
		slow := indicators.Ref{Kind: indicators.KindEMA, Period: orDefault(p.Slow, 50)}
		exit := Cond(fast, CrossesBelow, slow)
		return Cond(fast, CrossesAbove, slow), &exit
	},
	"sma-cross": func(p Params) (Node, *Node) {
		fast := indicators.Ref{Kind: indicators.KindSMA, Period: orDefault(p.Fast, 10)}
		slow := indicators.Ref{Kind: indicators.KindSMA, Period: orDefault(p.Slow, 30)}
		exit := Cond(fast, CrossesBelow, slow)
		return Cond(fast, CrossesAbove, slow), &exit
	},
	"rsi-reversion": func(p Params) (Node, *Node) {
		rsi := indicators.Ref{Kind: indicators.KindRSI, Period: orDefault(p.Period, 14)}
		exit := CondValue(rsi, GT, 70)
		return CondValue(rsi, CrossesAbove, 30), &exit
	},
	"bollinger-breakout": func(p Params) (Node, *Node) {
		period := orDefault(p.Period, 20)
		upper := indicators.Ref{Kind: indicators.KindBollinger, Period: period, Field: indicators.FieldUpper}
		middle := indicators.Ref{Kind: indicators.KindBollinger, Period: period, Field: indicators.FieldMiddle}
		exit := Cond(closePrice(), CrossesBelow, middle)
		return Cond(closePrice(), CrossesAbove, upper), &exit
	},
	"macd-trend": func(p Params) (Node, *Node) {
		line := indicators.Ref{Kind: indicators.KindMACD, Fast: p.Fast, Slow: p.Slow, Period: orDefault(p.Period, 9)}
		signal := line
		signal.Field = indicators.FieldSignal
		trend := indicators.Ref{Kind: indicators.KindEMA, Period: 200}
		exit := Cond(line, CrossesBelow, signal)
		return All(Cond(line, CrossesAbove, signal), Cond(closePrice(), GT, trend)), &exit
	},
}

// Names lists the available presets.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds and validates a preset strategy.
func ByName(name, asset string, p Params) (*Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	build, ok := presets[key]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}

	entry, exit := build(p)
	s := &Strategy{
		Name:            key,
		Asset:           asset,
		Entry:           entry,
		Exit:            exit,
		StopLossPct:     p.StopLossPct,
		TakeProfitPct:   p.TakeProfitPct,
		TrailingStopPct: p.TrailingStopPct,
		TimeExitBars:    p.TimeExitBars,
		Sizing:          p.Sizing,
	}
	if s.Sizing.Mode == "" {
		s.Sizing = DefaultSizing
	}

	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func closePrice() indicators.Ref {
	return indicators.Ref{Kind: indicators.KindPrice, Field: indicators.FieldClose}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
