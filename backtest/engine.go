// Package backtest runs a rule based strategy over a bar series and
// reports trades, an equity curve and performance metrics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/internal/logging"
	"github.com/rustyeddy/backtester/internal/telemetry"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategy"
)

// Engine runs one strategy with one set of options. An Engine holds no
// per-run state and may be reused, but not concurrently.
type Engine struct {
	strat *strategy.Strategy
	opts  Options
	costs sim.Costs
	lv    sim.Levels
	log   zerolog.Logger
}

// New validates s and opts and returns an engine for them. s is copied.
func New(s *strategy.Strategy, opts Options) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("backtest: nil strategy")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	st := s.Clone()
	st.Normalize()
	if err := st.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		strat: st,
		opts:  opts,
		costs: sim.Costs{CommissionPct: opts.CommissionPct, SlippagePct: opts.SlippagePct},
		lv: sim.Levels{
			StopLossPct:     st.StopLossPct,
			TakeProfitPct:   st.TakeProfitPct,
			TrailingStopPct: st.TrailingStopPct,
			TimeExitBars:    st.TimeExitBars,
		},
		log: logging.Component("engine").With().Str("strategy", st.Name).Logger(),
	}, nil
}

// Strategy returns the normalized strategy the engine runs.
func (e *Engine) Strategy() *strategy.Strategy { return e.strat }

// Run simulates the strategy over bars. It returns a complete result or an
// error, never a partial result. ctx is only consulted before the run
// starts; a started run always finishes.
func (e *Engine) Run(ctx context.Context, bars []market.Bar) (res *Result, err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		telemetry.RunsTotal.WithLabelValues(status).Inc()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := market.Validate(bars); err != nil {
		return nil, err
	}

	cache := indicators.NewCache(bars)
	if err := cache.Prepare(e.strat.Refs()...); err != nil {
		return nil, fmt.Errorf("%w: %v", strategy.ErrInvalidConfig, err)
	}

	start := time.Now()
	r := &run{
		Engine: e,
		bars:   bars,
		cache:  cache,
		cash:   e.opts.InitialCapital,
		res: &Result{
			Strategy: e.strat.Name,
			Asset:    e.strat.Asset,
			Bars:     len(bars),
			Equity:   make([]EquityPoint, 0, len(bars)),
			Trades:   []Trade{},
		},
	}

	e.log.Info().
		Int("bars", len(bars)).
		Time("from", bars[0].Time).
		Time("to", bars[len(bars)-1].Time).
		Str("fill", string(e.opts.Fill)).
		Msg("backtest started")

	r.loop()

	res = r.res
	res.Open = r.pos
	res.Metrics = metrics.Compute(res.Trades, res.Equity, e.opts.InitialCapital, e.opts.PeriodsPerYear)

	telemetry.RunDuration.Observe(time.Since(start).Seconds())
	telemetry.BarsProcessed.Add(float64(len(bars)))

	e.log.Info().
		Int("trades", res.Metrics.TotalTrades).
		Int("rejected", res.RejectedEntries).
		Float64("pnl", res.Metrics.TotalPnL).
		Float64("final_equity", res.Metrics.FinalEquity).
		Dur("elapsed", time.Since(start)).
		Msg("backtest finished")

	return res, nil
}

// run is the mutable state of one pass. The position is replaced, never
// edited in place.
type run struct {
	*Engine

	bars  []market.Bar
	cache *indicators.Cache
	cash  float64
	pos   *sim.Position
	res   *Result

	pendingEntry bool
	pendingExit  bool
}

func (r *run) loop() {
	last := len(r.bars) - 1
	nextOpen := r.opts.Fill == FillNextOpen

	for i, b := range r.bars {
		// 1) orders signalled on the previous bar fill at this open
		if r.pendingExit && r.pos != nil {
			r.closePosition(i, b.Open, sim.SignalExit)
		}
		r.pendingExit = false
		if r.pendingEntry && r.pos == nil {
			r.openPosition(i, b.Open)
		}
		r.pendingEntry = false

		// 2) exits, never on the entry bar
		if r.pos != nil && r.pos.EntryIndex < i {
			r.pos = r.pos.Advance(b)
			if ex, hit := sim.CheckExit(r.pos, b); hit {
				r.closePosition(i, ex.Price, ex.Reason)
			} else if r.strat.Exit != nil && strategy.Evaluate(r.strat.Exit, i, r.cache) {
				switch {
				case !nextOpen:
					r.closePosition(i, b.Close, sim.SignalExit)
				case i < last:
					r.pendingExit = true
				}
			}
		}

		// 3) entries
		if r.pos == nil && strategy.Evaluate(&r.strat.Entry, i, r.cache) {
			fillAt := i
			if nextOpen {
				fillAt = i + 1
			}
			switch {
			case fillAt > last, r.opts.CloseAtEnd && fillAt == last:
				// no bar left to hold the position
			case nextOpen:
				r.pendingEntry = true
			default:
				r.openPosition(i, b.Close)
			}
		}

		r.res.Equity = append(r.res.Equity, EquityPoint{Time: b.Time, Equity: r.equity(b.Close)})
	}

	if r.opts.CloseAtEnd && r.pos != nil {
		r.closePosition(last, r.bars[last].Close, sim.EndOfData)
		r.res.Equity[last].Equity = r.cash
	}
}

func (r *run) equity(price float64) float64 {
	if r.pos == nil {
		return r.cash
	}
	return r.cash + r.pos.MarketValue(price)
}

func (r *run) openPosition(i int, ref float64) {
	b := r.bars[i]
	fill := r.costs.BuyFill(ref)

	var stop float64
	if r.lv.StopLossPct > 0 {
		stop = sim.StopPrice(fill, r.lv.StopLossPct)
	}

	sized, err := risk.Size(r.strat.Sizing, risk.Inputs{
		Cash:          r.cash,
		Price:         fill,
		StopPrice:     stop,
		CommissionPct: r.opts.CommissionPct,
		Step:          r.opts.QuantityStep,
		Clamp:         r.opts.InsufficientCash == ClampEntry,
	})
	if err != nil {
		r.res.RejectedEntries++
		telemetry.RejectedEntries.Inc()
		ev := r.log.Debug()
		if !errors.Is(err, risk.ErrInsufficientCash) && !errors.Is(err, risk.ErrZeroQuantity) {
			ev = r.log.Warn()
		}
		ev.Err(err).Int("bar", i).Float64("cash", r.cash).Float64("price", fill).Msg("entry rejected")
		return
	}

	equity := r.cash
	commission := r.costs.Commission(fill, sized.Quantity)
	r.cash -= commission
	r.pos = sim.Open(i, b.Time, fill, sized.Quantity, commission, r.lv)
	r.pos.PlannedRisk = risk.PlannedRisk(sized.Quantity, fill, r.pos.StopPrice)

	r.log.Debug().
		Int("bar", i).
		Float64("price", fill).
		Float64("qty", sized.Quantity).
		Bool("clamped", sized.Clamped).
		Float64("planned_risk", r.pos.PlannedRisk).
		Float64("risk_pct", risk.RiskPct(r.pos.PlannedRisk, equity)).
		Msg("position opened")
}

func (r *run) closePosition(i int, ref float64, reason sim.ExitReason) {
	b := r.bars[i]
	p := r.pos
	fill := r.costs.SellFill(ref)
	commission := r.costs.Commission(fill, p.Quantity)

	tr := p.Close(i, b.Time, fill, commission, reason)
	r.cash += p.MarketValue(fill) - commission
	r.res.Trades = append(r.res.Trades, tr)
	r.pos = nil

	telemetry.TradesTotal.WithLabelValues(string(reason)).Inc()
	r.log.Debug().
		Int("bar", i).
		Str("reason", string(reason)).
		Float64("price", fill).
		Float64("pnl", tr.PnL).
		Msg("position closed")
}

// Run is a convenience wrapper around New and Engine.Run.
func Run(ctx context.Context, s *strategy.Strategy, bars []market.Bar, opts Options) (*Result, error) {
	e, err := New(s, opts)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, bars)
}
