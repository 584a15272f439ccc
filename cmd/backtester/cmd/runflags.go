package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/risk"
	"github.com/rustyeddy/backtester/strategy"
)

// runFlags describe a run on the command line. With --config the file is
// used instead and only --db and --csv-dir may override its journal.
type runFlags struct {
	configPath string

	data      string
	timeframe string
	from      string
	to        string

	strategyFile string
	preset       string
	asset        string
	fast         int
	slow         int
	period       int
	stopLoss     float64
	takeProfit   float64
	trailing     float64
	timeExit     int
	sizing       string
	size         float64

	capital    float64
	commission float64
	slippage   float64
	fill       string
	step       float64
	cashPolicy string
	closeEnd   bool

	db     string
	csvDir string
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "run configuration file (YAML or JSON)")

	fs.StringVarP(&f.data, "data", "d", "", "bar CSV (time,open,high,low,close[,volume])")
	fs.StringVar(&f.timeframe, "timeframe", "", "bar timeframe (M15, H1, D1 or a duration); inferred when empty")
	fs.StringVar(&f.from, "from", "", "first bar date (2006-01-02 or RFC3339)")
	fs.StringVar(&f.to, "to", "", "end date, exclusive")

	fs.StringVarP(&f.strategyFile, "strategy-file", "f", "", "strategy definition (YAML or JSON)")
	fs.StringVarP(&f.preset, "preset", "p", "ema-cross", fmt.Sprintf("built-in strategy %v", strategy.Names()))
	fs.StringVarP(&f.asset, "asset", "a", "ASSET", "asset label for presets")
	fs.IntVar(&f.fast, "fast", 0, "preset fast period")
	fs.IntVar(&f.slow, "slow", 0, "preset slow period")
	fs.IntVar(&f.period, "period", 0, "preset period (RSI, Bollinger, MACD signal)")
	fs.Float64Var(&f.stopLoss, "sl", 0, "stop loss percent")
	fs.Float64Var(&f.takeProfit, "tp", 0, "take profit percent")
	fs.Float64Var(&f.trailing, "trail", 0, "trailing stop percent")
	fs.IntVar(&f.timeExit, "time-exit", 0, "exit after this many bars")
	fs.StringVar(&f.sizing, "sizing", string(strategy.DefaultSizing.Mode), "sizing mode: FIXED, PERCENTAGE or RISK_BASED")
	fs.Float64Var(&f.size, "size", strategy.DefaultSizing.Value, "sizing value")

	def := backtest.DefaultOptions()
	fs.Float64VarP(&f.capital, "capital", "b", def.InitialCapital, "initial capital")
	fs.Float64Var(&f.commission, "commission", 0, "commission percent per fill")
	fs.Float64Var(&f.slippage, "slippage", 0, "slippage percent per fill")
	fs.StringVar(&f.fill, "fill", string(def.Fill), "fill mode: close or next_open")
	fs.Float64Var(&f.step, "step", 0, "quantity step (0 = fractional)")
	fs.StringVar(&f.cashPolicy, "cash-policy", string(def.InsufficientCash), "unaffordable entries: reject or clamp")
	fs.BoolVar(&f.closeEnd, "close-end", false, "close an open position at the last bar")

	fs.StringVar(&f.db, "db", "./backtester.db", "SQLite journal (env "+envDB+"); empty disables")
	fs.StringVar(&f.csvDir, "csv-dir", "", "write CSV journal files to this directory instead of SQLite")
}

// config builds the run configuration from the file or the flags.
func (f *runFlags) config(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if f.configPath != "" {
		c, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		c, err := f.flagConfig()
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	if f.configPath == "" || cmd.Flags().Changed("db") || cmd.Flags().Changed("csv-dir") {
		switch db := dbDefault(cmd, "db", f.db); {
		case f.csvDir != "":
			cfg.Journal = config.JournalConfig{Type: "csv", Dir: f.csvDir, OrgDir: cfg.Journal.OrgDir}
		case db != "":
			cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: db, OrgDir: cfg.Journal.OrgDir}
		default:
			cfg.Journal = config.JournalConfig{Type: "none", OrgDir: cfg.Journal.OrgDir}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (f *runFlags) flagConfig() (*config.Config, error) {
	if f.data == "" {
		return nil, fmt.Errorf("--data or --config is required")
	}

	cfg := &config.Config{
		Run: backtest.Options{
			InitialCapital:   f.capital,
			CommissionPct:    f.commission,
			SlippagePct:      f.slippage,
			Fill:             backtest.FillMode(f.fill),
			QuantityStep:     f.step,
			InsufficientCash: backtest.CashPolicy(f.cashPolicy),
			CloseAtEnd:       f.closeEnd,
		}.Normalize(),
		Data: config.DataConfig{Path: f.data, Timeframe: f.timeframe, From: f.from, To: f.to},
	}

	if f.strategyFile != "" {
		cfg.StrategyFile = f.strategyFile
		return cfg, nil
	}

	s, err := strategy.ByName(f.preset, f.asset, strategy.Params{
		Fast:            f.fast,
		Slow:            f.slow,
		Period:          f.period,
		StopLossPct:     f.stopLoss,
		TakeProfitPct:   f.takeProfit,
		TrailingStopPct: f.trailing,
		TimeExitBars:    f.timeExit,
		Sizing:          risk.Sizing{Mode: risk.Mode(f.sizing), Value: f.size},
	})
	if err != nil {
		return nil, err
	}
	cfg.Strategy = s
	return cfg, nil
}

// signalContext is cancelled by an interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
