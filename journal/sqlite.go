package journal

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

// SQLiteJournal stores runs in a SQLite database. Writes that hit a busy
// or locked database are retried with exponential backoff, so several
// processes may share one file.
type SQLiteJournal struct {
	db *sql.DB

	// MaxRetryTime bounds the retries of a single write.
	MaxRetryTime time.Duration
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=1000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	j := &SQLiteJournal{db: db, MaxRetryTime: 10 * time.Second}
	if err := j.retry(func() error {
		_, err := db.Exec(Schema)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	return j.exec(`
		INSERT INTO runs
		(run_id, created, strategy, asset, timeframe, dataset, config, start_time, end_time, bars,
		 stop_loss_pct, take_profit_pct, rr, initial_capital, final_equity, trades, wins, losses, rejected,
		 net_pl, return_pct, win_rate, profit_factor, max_dd_pct, sharpe, sortino, cagr, org_path, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Strategy, r.Asset, r.Timeframe, r.Dataset, r.Config, r.Start.UTC(), r.End.UTC(), r.Bars,
		r.StopLossPct, r.TakeProfitPct, r.RR, r.InitialCapital, r.FinalEquity, r.Trades, r.Wins, r.Losses, r.Rejected,
		r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct, r.Sharpe, r.Sortino, r.CAGR, r.OrgPath,
		strings.Join(r.Notes, "\n"),
	)
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	return j.exec(`
		INSERT INTO trades
		(trade_id, run_id, seq, asset, quantity, entry_price, exit_price, open_time, close_time,
		 pnl, pnl_pct, commission, bars_held, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Seq, t.Asset, t.Quantity, t.EntryPrice, t.ExitPrice, t.OpenTime.UTC(), t.CloseTime.UTC(),
		t.PnL, t.PnLPct, t.Commission, t.BarsHeld, t.Reason,
	)
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	return j.exec(`INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`, e.RunID, e.Time.UTC(), e.Equity)
}

// RecordEquityBatch stores a whole curve in one transaction.
func (j *SQLiteJournal) RecordEquityBatch(eq []EquitySnapshot) error {
	return j.retry(func() error {
		tx, err := j.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		defer stmt.Close()

		for _, e := range eq {
			if _, err := stmt.Exec(e.RunID, e.Time.UTC(), e.Equity); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func (j *SQLiteJournal) exec(query string, args ...any) error {
	return j.retry(func() error {
		_, err := j.db.Exec(query, args...)
		return err
	})
}

// retry runs op until it succeeds, fails with an error other than busy or
// locked, or MaxRetryTime elapses.
func (j *SQLiteJournal) retry(op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxElapsedTime = j.MaxRetryTime

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
