package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/backtester/internal/logging"
	"github.com/rustyeddy/backtester/internal/telemetry"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/strategy"
)

// Job is one independent run of a sweep. Bars may be shared between jobs;
// they are only read.
type Job struct {
	Name     string
	Strategy *strategy.Strategy
	Options  Options
	Bars     []market.Bar
}

// Outcome is the result of one Job. Exactly one of Result and Err is set.
type Outcome struct {
	Job    string
	Result *Result
	Err    error
}

// Sweep runs jobs with at most workers in flight; workers <= 0 means
// GOMAXPROCS. Each job owns its engine, indicator cache and position.
//
// A failing job does not stop the others. Cancellation is checked before
// each job starts: jobs not yet started when ctx is done get ctx.Err()
// as their outcome and Sweep returns that error too. Outcomes are in job
// order.
func Sweep(ctx context.Context, jobs []Job, workers int) ([]Outcome, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := logging.Component("sweep")
	log.Info().Int("jobs", len(jobs)).Int("workers", workers).Msg("sweep started")

	out := make([]Outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)

	for i := range jobs {
		i := i
		job := jobs[i]
		out[i].Job = job.Name

		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}

			telemetry.SweepJobsInFlight.Inc()
			defer telemetry.SweepJobsInFlight.Dec()

			res, err := Run(ctx, job.Strategy, job.Bars, job.Options)
			if err != nil {
				log.Warn().Err(err).Str("job", job.Name).Msg("job failed")
				out[i].Err = fmt.Errorf("%s: %w", job.Name, err)
				return nil
			}
			out[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	log.Info().Int("jobs", len(jobs)).Msg("sweep finished")
	return out, ctx.Err()
}

// GridSpec lists the values to try per parameter. An empty list keeps the
// base strategy's value.
type GridSpec struct {
	StopLossPct     []float64
	TakeProfitPct   []float64
	TrailingStopPct []float64
	TimeExitBars    []int
}

// Grid expands base over the cartesian product of spec. Each strategy is an
// independent copy named after its parameters.
func Grid(base *strategy.Strategy, spec GridSpec) []*strategy.Strategy {
	sls := orFloat(spec.StopLossPct, base.StopLossPct)
	tps := orFloat(spec.TakeProfitPct, base.TakeProfitPct)
	trs := orFloat(spec.TrailingStopPct, base.TrailingStopPct)
	tes := spec.TimeExitBars
	if len(tes) == 0 {
		tes = []int{base.TimeExitBars}
	}

	out := make([]*strategy.Strategy, 0, len(sls)*len(tps)*len(trs)*len(tes))
	for _, sl := range sls {
		for _, tp := range tps {
			for _, tr := range trs {
				for _, te := range tes {
					s := base.Clone()
					s.StopLossPct = sl
					s.TakeProfitPct = tp
					s.TrailingStopPct = tr
					s.TimeExitBars = te
					s.Name = fmt.Sprintf("%s[sl=%g tp=%g trail=%g bars=%d]", base.Name, sl, tp, tr, te)
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func orFloat(vals []float64, def float64) []float64 {
	if len(vals) == 0 {
		return []float64{def}
	}
	return vals
}

// Rankers pick the metric Rank sorts by.
var Rankers = map[string]func(metrics.Metrics) float64{
	"pnl":      func(m metrics.Metrics) float64 { return m.TotalPnL },
	"sharpe":   func(m metrics.Metrics) float64 { return m.SharpeRatio },
	"sortino":  func(m metrics.Metrics) float64 { return m.SortinoRatio },
	"cagr":     func(m metrics.Metrics) float64 { return m.CAGR },
	"winrate":  func(m metrics.Metrics) float64 { return m.WinRate },
	"pf":       func(m metrics.Metrics) float64 { return m.ProfitFactor },
	"recovery": func(m metrics.Metrics) float64 { return m.RecoveryFactor },
	"drawdown": func(m metrics.Metrics) float64 { return -m.MaxDrawdownPercent },
}

// Rank sorts successful outcomes best first by the named metric and drops
// failed ones. Ties keep job order.
func Rank(outs []Outcome, by string) ([]Outcome, error) {
	key, ok := Rankers[strings.ToLower(by)]
	if !ok {
		names := make([]string, 0, len(Rankers))
		for n := range Rankers {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown rank metric %q (supported: %s)", by, strings.Join(names, ", "))
	}

	ranked := make([]Outcome, 0, len(outs))
	for _, o := range outs {
		if o.Err == nil && o.Result != nil {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return key(ranked[a].Result.Metrics) > key(ranked[b].Result.Metrics)
	})
	return ranked, nil
}
