package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = `run_id, created, strategy, asset, timeframe, dataset, config, start_time, end_time, bars,
	stop_loss_pct, take_profit_pct, rr, initial_capital, final_equity, trades, wins, losses, rejected,
	net_pl, return_pct, win_rate, profit_factor, max_dd_pct, sharpe, sortino, cagr, org_path, notes`

const tradeColumns = `trade_id, run_id, seq, asset, quantity, entry_price, exit_price, open_time, close_time,
	pnl, pnl_pct, commission, bars_held, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		r     RunRecord
		notes string
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Asset, &r.Timeframe, &r.Dataset, &r.Config, &r.Start, &r.End, &r.Bars,
		&r.StopLossPct, &r.TakeProfitPct, &r.RR, &r.InitialCapital, &r.FinalEquity, &r.Trades, &r.Wins, &r.Losses, &r.Rejected,
		&r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct, &r.Sharpe, &r.Sortino, &r.CAGR, &r.OrgPath, &notes,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, nil
}

func scanTrade(s scanner) (TradeRecord, error) {
	var t TradeRecord
	err := s.Scan(
		&t.TradeID, &t.RunID, &t.Seq, &t.Asset, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.OpenTime, &t.CloseTime,
		&t.PnL, &t.PnLPct, &t.Commission, &t.BarsHeld, &t.Reason,
	)
	return t, err
}

// GetRun returns a single run by ID.
func (j *SQLiteJournal) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs
		ORDER BY created DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(ctx context.Context, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return TradeRecord{}, err
	}
	return t, nil
}

// ListTradesByRunID returns the trades of a run in entry order.
func (j *SQLiteJournal) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	return j.listTrades(ctx, `WHERE run_id = ? ORDER BY seq ASC`, runID)
}

// ListTradesClosedBetween returns trades of any run whose close_time is
// within [start, end). Times are stored in UTC.
func (j *SQLiteJournal) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	return j.listTrades(ctx, `WHERE close_time >= ? AND close_time < ? ORDER BY close_time ASC, trade_id ASC`, start.UTC(), end.UTC())
}

func (j *SQLiteJournal) listTrades(ctx context.Context, where string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+tradeColumns+` FROM trades `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityByRunID returns the equity curve of a run.
func (j *SQLiteJournal) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT run_id, time, equity FROM equity WHERE run_id = ? ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
