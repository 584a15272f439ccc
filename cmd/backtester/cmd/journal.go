package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled runs",
	Long: `Query and display runs and trades from the SQLite journal.

Subcommands:
  runs    - List recent runs
  report  - Print the summary of a run
  trades  - Print the trades of a run as Org-mode
  trade   - Get details of a specific trade by ID
  day     - List trades closed on a specific day

Examples:
  backtester journal runs -n 20
  backtester journal report 01HV3K... --org
  backtester journal day 2024-01-15`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print the summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalReport,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "Print the trades of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath string
	journalLimit  int
	journalOrg    bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd, journalReportCmd, journalTradesCmd, journalTradeCmd, journalDayCmd)

	journalCmd.PersistentFlags().StringVar(&journalDBPath, "db", "./backtester.db", "path to SQLite journal DB (env "+envDB+")")
	journalRunsCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "runs to list (0 = all)")
	journalReportCmd.Flags().BoolVar(&journalOrg, "org", false, "render as Org-mode with trades")
}

func openJournal(cmd *cobra.Command) (*journal.SQLiteJournal, error) {
	j, err := journal.NewSQLite(dbDefault(cmd, "db", journalDBPath))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), journalLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tSTRATEGY\tASSET\tTRADES\tRETURN%\tMAXDD%\tSHARPE")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
			r.RunID, r.Created.Local().Format("2006-01-02 15:04"), r.Strategy, r.Asset,
			r.Trades, r.ReturnPct, r.MaxDDPct, ratio(r.Sharpe))
	}
	return w.Flush()
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if !journalOrg {
		journal.PrintRun(cmd.OutOrStdout(), run)
		return nil
	}

	trades, err := j.ListTradesByRunID(cmd.Context(), run.RunID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	return journal.WriteOrg(cmd.OutOrStdout(), run, trades)
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTradesByRunID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
