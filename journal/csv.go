package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/backtester/metrics"
)

// CSVJournal appends runs, trades and equity to three CSV files in a
// directory.
type CSVJournal struct {
	runs, trades, equity *csv.Writer
	files                []*os.File
}

var (
	runsHeader   = []string{"run_id", "created", "strategy", "asset", "start", "end", "bars", "initial_capital", "final_equity", "trades", "wins", "losses", "rejected", "net_pl", "return_pct", "win_rate", "profit_factor", "max_dd_pct", "sharpe", "sortino", "cagr"}
	tradesHeader = []string{"trade_id", "run_id", "seq", "asset", "quantity", "entry_price", "exit_price", "open_time", "close_time", "pnl", "pnl_pct", "commission", "bars_held", "reason"}
	equityHeader = []string{"run_id", "time", "equity"}
)

// NewCSV creates runs.csv, trades.csv and equity.csv in dir.
func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	j := &CSVJournal{}
	open := func(name string, header []string) (*csv.Writer, error) {
		fh, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, fh)
		w := csv.NewWriter(fh)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.runs, err = open("runs.csv", runsHeader); err != nil {
		j.Close()
		return nil, err
	}
	if j.trades, err = open("trades.csv", tradesHeader); err != nil {
		j.Close()
		return nil, err
	}
	if j.equity, err = open("equity.csv", equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	return write(j.runs, []string{
		r.RunID,
		r.Created.UTC().Format(time.RFC3339),
		r.Strategy,
		r.Asset,
		r.Start.UTC().Format(time.RFC3339),
		r.End.UTC().Format(time.RFC3339),
		strconv.Itoa(r.Bars),
		f(r.InitialCapital),
		f(r.FinalEquity),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		strconv.Itoa(r.Rejected),
		f(r.NetPL),
		f(r.ReturnPct),
		f(r.WinRate),
		ratio(r.ProfitFactor),
		f(r.MaxDDPct),
		ratio(r.Sharpe),
		ratio(r.Sortino),
		f(r.CAGR),
	})
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return write(j.trades, []string{
		t.TradeID,
		t.RunID,
		strconv.Itoa(t.Seq),
		t.Asset,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.PnL),
		f(t.PnLPct),
		f(t.Commission),
		strconv.Itoa(t.BarsHeld),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return write(j.equity, []string{e.RunID, e.Time.UTC().Format(time.RFC3339), f(e.Equity)})
}

func (j *CSVJournal) Close() error {
	var first error
	for _, w := range []*csv.Writer{j.runs, j.trades, j.equity} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil && first == nil {
			first = err
		}
	}
	for _, fh := range j.files {
		if err := fh.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// ratio formats a metric that may hold the unbounded sentinel.
func ratio(x float64) string {
	if metrics.IsUnbounded(x) {
		return "inf"
	}
	return f(x)
}
