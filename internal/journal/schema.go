package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	tickers INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_tickers (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	ticker TEXT NOT NULL,
	status TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	path TEXT NOT NULL,
	recorded_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, ticker)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
