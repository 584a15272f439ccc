package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/internal/logging"
)

const (
	envLogLevel = "BACKTESTER_LOG_LEVEL"
	envDB       = "BACKTESTER_DB"
)

var (
	envFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Rule-based strategy backtester",
	Long: `Backtester replays OHLCV bars through a rule-based long-only strategy
and reports trades, an equity curve and performance metrics.

It provides tools for:
  - Running a single backtest from flags or a config file
  - Sweeping stop-loss, take-profit and trailing-stop grids concurrently
  - Journaling runs to SQLite or CSV and rendering Org-mode reports`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with BACKTESTER_* defaults")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (env "+envLogLevel+")")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		if v := os.Getenv(envLogLevel); v != "" {
			logLevel = v
		}
	}
	logging.Setup(logLevel, logFormat)
	log.Debug().Str("command", cmd.CommandPath()).Msg("starting")
	return nil
}

// dbDefault returns the flag value unless it was left at its default and
// BACKTESTER_DB is set.
func dbDefault(cmd *cobra.Command, flag, val string) string {
	if cmd.Flags().Changed(flag) {
		return val
	}
	if v := os.Getenv(envDB); v != "" {
		return v
	}
	return val
}
