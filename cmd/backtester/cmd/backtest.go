package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy over a bar series",
	Long: `Backtest replays a bar CSV through a strategy and prints the result.

The strategy comes from --strategy-file, a built-in --preset, or the
strategy section of --config. Runs are journaled to SQLite unless --db is
empty.

Examples:
  backtester backtest -d data/spy.csv -p ema-cross --fast 20 --slow 50 --sl 2 --tp 6
  backtester backtest -d data/btc.csv -f strategies/rsi.yaml --fill next_open
  backtester backtest -c backtest.yaml --org`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btFlags runFlags
	btJSON  bool
	btOrg   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	btFlags.register(backtestCmd)
	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "print the full result as JSON")
	backtestCmd.Flags().BoolVar(&btOrg, "org", false, "write an Org-mode report next to the journal")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := btFlags.config(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.LoadStrategy()
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	bars, err := cfg.LoadBars()
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	opts := cfg.Options()
	res, err := backtest.Run(ctx, s, bars, opts)
	if err != nil {
		return err
	}

	if btOrg && cfg.Journal.OrgDir == "" {
		cfg.Journal.OrgDir = "."
	}
	rec, err := record(cfg, id.New(), s, opts, res, bars)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if btJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	journal.PrintRun(out, rec)
	return nil
}

// record journals one finished run and writes its Org report when an Org
// directory is configured.
func record(cfg *config.Config, runID string, s *strategy.Strategy, opts backtest.Options, res *backtest.Result, bars []market.Bar) (journal.RunRecord, error) {
	rec := journal.NewRunRecord(runID, s, opts, res)
	rec.Dataset = cfg.Data.Path
	rec.Timeframe = cfg.Data.Timeframe
	if rec.Timeframe == "" {
		if tf, err := market.TimeframeString(market.Spacing(bars)); err == nil {
			rec.Timeframe = tf
		}
	}
	if g := market.Gaps(bars); g.Suspicious > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d suspicious gaps in data, longest %s", g.Suspicious, g.Longest))
	}
	if cfg.Journal.OrgDir != "" {
		rec.OrgPath = filepath.Join(cfg.Resolve(cfg.Journal.OrgDir), runID+".org")
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		return rec, fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
		if err := journal.Save(j, rec, res); err != nil {
			return rec, err
		}
		log.Info().Str("run_id", runID).Str("journal", cfg.Journal.Type).Msg("run journaled")
	}

	if rec.OrgPath != "" {
		trades := journal.TradeRecords(runID, rec.Asset, res.Trades)
		if err := journal.WriteOrgFile(rec, trades); err != nil {
			return rec, fmt.Errorf("org report: %w", err)
		}
	}
	return rec, nil
}
