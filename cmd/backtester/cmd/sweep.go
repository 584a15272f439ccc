package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/internal/telemetry"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/pkg/id"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter grid concurrently and rank the results",
	Long: `Sweep expands the strategy over every combination of the grid flags,
runs the combinations concurrently on the same bars and prints them ranked.

Examples:
  backtester sweep -d data/spy.csv -p ema-cross --sl-grid 1,2,3 --tp-grid 4,6,8 --rank sharpe
  backtester sweep -c backtest.yaml --trail-grid 2,3,5 --workers 4 --metrics-addr :9102`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	swFlags       runFlags
	swSLGrid      []float64
	swTPGrid      []float64
	swTrailGrid   []float64
	swBarsGrid    []int
	swWorkers     int
	swRank        string
	swTop         int
	swSave        bool
	swMetricsAddr string
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	swFlags.register(sweepCmd)
	fs := sweepCmd.Flags()
	fs.Float64SliceVar(&swSLGrid, "sl-grid", nil, "stop loss percents to try")
	fs.Float64SliceVar(&swTPGrid, "tp-grid", nil, "take profit percents to try")
	fs.Float64SliceVar(&swTrailGrid, "trail-grid", nil, "trailing stop percents to try")
	fs.IntSliceVar(&swBarsGrid, "bars-grid", nil, "time exits (bars) to try")
	fs.IntVarP(&swWorkers, "workers", "w", 0, "concurrent runs (0 = GOMAXPROCS)")
	fs.StringVar(&swRank, "rank", "sharpe", "rank by pnl, sharpe, sortino, cagr, winrate, pf, recovery or drawdown")
	fs.IntVar(&swTop, "top", 10, "rows to print (0 = all)")
	fs.BoolVar(&swSave, "save", false, "journal every successful run")
	fs.StringVar(&swMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while sweeping")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := swFlags.config(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.LoadStrategy()
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	bars, err := cfg.LoadBars()
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if _, err := backtest.Rank(nil, swRank); err != nil {
		return err
	}

	if swMetricsAddr != "" {
		srv := &http.Server{Addr: swMetricsAddr, Handler: telemetry.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", swMetricsAddr).Msg("metrics server")
			}
		}()
		defer srv.Close()
	}

	opts := cfg.Options()
	strats := backtest.Grid(base, backtest.GridSpec{
		StopLossPct:     swSLGrid,
		TakeProfitPct:   swTPGrid,
		TrailingStopPct: swTrailGrid,
		TimeExitBars:    swBarsGrid,
	})
	jobs := make([]backtest.Job, len(strats))
	for i, s := range strats {
		jobs[i] = backtest.Job{Name: s.Name, Strategy: s, Options: opts, Bars: bars}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	outs, sweepErr := backtest.Sweep(ctx, jobs, swWorkers)
	for _, o := range outs {
		if o.Err != nil && !errors.Is(o.Err, ctx.Err()) {
			log.Warn().Err(o.Err).Str("job", o.Job).Msg("job failed")
		}
	}

	if swSave {
		for i, o := range outs {
			if o.Err != nil {
				continue
			}
			if _, err := record(cfg, id.New(), jobs[i].Strategy, opts, o.Result, bars); err != nil {
				return err
			}
		}
	}

	ranked, err := backtest.Rank(outs, swRank)
	if err != nil {
		return err
	}
	if swTop > 0 && len(ranked) > swTop {
		ranked = ranked[:swTop]
	}
	printRanking(cmd, ranked)
	return sweepErr
}

func printRanking(cmd *cobra.Command, ranked []backtest.Outcome) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRUN\tTRADES\tWIN%\tPNL\tRETURN%\tMAXDD%\tSHARPE\tSORTINO\tPF")
	for i, o := range ranked {
		m := o.Result.Metrics
		fmt.Fprintf(w, "%d\t%s\t%d\t%.1f\t%.2f\t%.2f\t%.2f\t%s\t%s\t%s\n",
			i+1, o.Job, m.TotalTrades, m.WinRate*100, m.TotalPnL, m.TotalPnLPercent,
			m.MaxDrawdownPercent, ratio(m.SharpeRatio), ratio(m.SortinoRatio), ratio(m.ProfitFactor))
	}
	w.Flush()
}

func ratio(x float64) string {
	if metrics.IsUnbounded(x) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", x)
}
