// Package journal records download runs and per-ticker outcomes.
package journal

import "time"

// Run statuses.
const (
	RunRunning = "running"
	RunOK      = "ok"
	RunFailed  = "failed"
)

// Ticker outcomes.
const (
	TickerWritten = "written"
	TickerSkipped = "skipped"
)

// RunRecord describes one invocation of the downloader.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Start      string
	End        string
	Tickers    int
	Status     string
	Error      string
}

// TickerRecord is the outcome for one symbol within a run.
type TickerRecord struct {
	RunID      string
	Ticker     string
	Status     string
	Rows       int
	Path       string
	RecordedAt time.Time
}

type Journal interface {
	BeginRun(RunRecord) error
	RecordTicker(TickerRecord) error
	FinishRun(runID string, finishedAt time.Time, status, errMsg string) error
	Close() error
}
