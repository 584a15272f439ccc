package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	asset TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	dataset TEXT NOT NULL,
	config BLOB,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	bars INTEGER NOT NULL,
	stop_loss_pct REAL NOT NULL,
	take_profit_pct REAL NOT NULL,
	rr REAL NOT NULL,
	initial_capital REAL NOT NULL,
	final_equity REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	rejected INTEGER NOT NULL,
	net_pl REAL NOT NULL,
	return_pct REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	sharpe REAL NOT NULL,
	sortino REAL NOT NULL,
	cagr REAL NOT NULL,
	org_path TEXT NOT NULL,
	notes TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	asset TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	pnl REAL NOT NULL,
	pnl_pct REAL NOT NULL,
	commission REAL NOT NULL,
	bars_held INTEGER NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_trades_close ON trades(close_time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL,
	PRIMARY KEY (run_id, time)
);
`
