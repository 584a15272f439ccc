package strategy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/risk"
)

func testBars(closes ...float64) []market.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}
	return bars
}

func closeRef() indicators.Ref {
	return indicators.Ref{Kind: indicators.KindPrice, Field: indicators.FieldClose}
}

func validStrategy() *Strategy {
	exit := CondValue(closeRef(), LT, 90)
	return &Strategy{
		Name:        "test",
		Asset:       "BTC-USD",
		Entry:       Cond(sma(5), CrossesAbove, sma(20)),
		Exit:        &exit,
		StopLossPct: 2,
		Sizing:      risk.Sizing{Mode: risk.Percentage, Value: 50},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Strategy)
		wantErr string
	}{
		{"valid", func(s *Strategy) {}, ""},
		{"no exit", func(s *Strategy) { s.Exit = nil }, ""},
		{"empty group", func(s *Strategy) { s.Entry = All() }, "group has no children"},
		{"empty exit group", func(s *Strategy) { e := Any(); s.Exit = &e }, "exit: group has no children"},
		{"missing type", func(s *Strategy) { s.Entry.Type = "" }, "node type is required"},
		{"unknown type", func(s *Strategy) { s.Entry.Type = "leaf" }, "unknown node type"},
		{"unknown comparator", func(s *Strategy) { s.Entry.Comparator = "EQ" }, "unknown comparator"},
		{"unknown operator", func(s *Strategy) {
			s.Entry = All(CondValue(closeRef(), GT, 1))
			s.Entry.Operator = "XOR"
		}, "unknown operator"},
		{"bad period", func(s *Strategy) { s.Entry.Left = sma(0) }, "entry.left: SMA period must be positive"},
		{"nested bad ref", func(s *Strategy) {
			s.Entry = All(CondValue(closeRef(), GT, 1), Any(CondValue(indicators.Ref{Kind: "VWAP", Period: 3}, GT, 1)))
		}, "entry[1][0].left: unknown indicator kind"},
		{"operand missing", func(s *Strategy) { s.Entry.Right = Operand{} }, "indicator or value is required"},
		{"operand both", func(s *Strategy) { v := 1.0; s.Entry.Right.Value = &v }, "not both"},
		{"negative stop", func(s *Strategy) { s.StopLossPct = -1 }, "stop_loss_pct must be a non-negative"},
		{"stop 100", func(s *Strategy) { s.StopLossPct = 100 }, "below 100"},
		{"negative time exit", func(s *Strategy) { s.TimeExitBars = -1 }, "time_exit_bars"},
		{"bad sizing", func(s *Strategy) { s.Sizing.Value = 0 }, "sizing value must be positive"},
		{"risk based without stop", func(s *Strategy) {
			s.StopLossPct = 0
			s.Sizing = risk.Sizing{Mode: risk.RiskBased, Value: 1}
		}, "RISK_BASED sizing requires stop_loss_pct"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validStrategy()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRefsDeduplicates(t *testing.T) {
	s := validStrategy()
	s.Entry = All(
		Cond(sma(5), CrossesAbove, sma(20)),
		CondValue(indicators.Ref{Kind: "sma", Period: 5}, GT, 0),
	)
	refs := s.Refs()
	assert.Equal(t, []indicators.Ref{sma(5), sma(20), closeRef()}, refs)
}

const yamlStrategy = `
name: rsi dip
asset: ETH-USD
entry:
  type: group
  operator: and
  children:
    - type: condition
      left: {kind: rsi, period: 14}
      comparator: crosses_above
      right: {value: 30}
    - type: condition
      left: {kind: price}
      comparator: gt
      right:
        indicator: {kind: ema, period: 50}
exit:
  type: condition
  left: {kind: macd, period: 9}
  comparator: crosses_below
  right:
    indicator: {kind: macd, period: 9, field: signal}
stop_loss_pct: 2
take_profit_pct: 6
time_exit_bars: 48
sizing:
  mode: risk_based
  value: 1
`

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlStrategy), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH-USD", s.Asset)
	assert.Equal(t, NodeGroup, s.Entry.Type)
	assert.Equal(t, And, s.Entry.Operator)
	require.Len(t, s.Entry.Children, 2)
	assert.Equal(t, CrossesAbove, s.Entry.Children[0].Comparator)
	assert.Equal(t, indicators.KindRSI, s.Entry.Children[0].Left.Kind)
	assert.Equal(t, 30.0, *s.Entry.Children[0].Right.Value)
	require.NotNil(t, s.Exit)
	assert.Equal(t, indicators.DefaultMACDSlow, s.Exit.Left.Slow)
	assert.Equal(t, risk.RiskBased, s.Sizing.Mode)
	assert.Equal(t, 48, s.TimeExitBars)
}

func TestLoadFileJSONRoundTrip(t *testing.T) {
	s := validStrategy()
	data, err := Marshal(s)
	require.NoError(t, err)

	back, err := Parse(data, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, s.Entry.String(), back.Entry.String())

	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x","entry":{"type":"condition","left":{"kind":"PRICE"},"comparator":"GT","right":{"value":1}},"sizing":{"mode":"FIXED","value":1}}`), 0o644))
	js, err := LoadFile(path)
	require.NoError(t, err)
	assert.Nil(t, js.Exit)
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entry:\n  type: group\n  operator: AND\nsizing: {mode: FIXED, value: 1}\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "group has no children")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		s, err := ByName(name, "BTC-USD", Params{StopLossPct: 2})
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name)
		assert.NotEmpty(t, s.Refs())
		assert.Equal(t, DefaultSizing, s.Sizing)
	}

	s, err := ByName("EMA-Cross", "X", Params{Fast: 3, Slow: 8})
	require.NoError(t, err)
	assert.Equal(t, []indicators.Ref{
		{Kind: indicators.KindEMA, Period: 3},
		{Kind: indicators.KindEMA, Period: 8},
	}, s.Refs())

	_, err = ByName("martingale", "X", Params{})
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestClone(t *testing.T) {
	s := validStrategy()
	s.Entry = All(CondValue(closeRef(), GT, 1), Cond(sma(5), GT, sma(10)))

	c := s.Clone()
	*c.Entry.Children[0].Right.Value = 99
	c.Entry.Children[1].Right.Indicator.Period = 50
	c.Exit.Comparator = GT

	assert.Equal(t, 1.0, *s.Entry.Children[0].Right.Value)
	assert.Equal(t, 10, s.Entry.Children[1].Right.Indicator.Period)
	assert.Equal(t, LT, s.Exit.Comparator)
}
