// Package download runs the fetch, normalize and persist loop over a
// ticker list.
package download

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/carteira/internal/config"
	"github.com/rustyeddy/carteira/internal/journal"
	"github.com/rustyeddy/carteira/internal/market"
	"github.com/rustyeddy/carteira/internal/store"
	"github.com/rustyeddy/carteira/pkg/id"
)

// Result is a ticker that was written to disk.
type Result struct {
	Ticker string
	Path   string
	Rows   int
}

// Summary reports what a run did. On success every configured ticker is in
// exactly one of Written or Skipped.
type Summary struct {
	RunID   string
	Written []Result
	Skipped []string
}

// Downloader processes tickers one at a time, in list order.
type Downloader struct {
	Provider market.Provider
	Store    *store.Dir
	Journal  journal.Journal
	Logger   *zap.Logger

	now func() time.Time
}

// New wires a Downloader. A nil journal or logger is replaced by a no-op.
func New(p market.Provider, s *store.Dir, j journal.Journal, log *zap.Logger) *Downloader {
	if j == nil {
		j = journal.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{
		Provider: p,
		Store:    s,
		Journal:  j,
		Logger:   log,
		now:      time.Now,
	}
}

// Run downloads every ticker in cfg. An empty series is logged and skipped;
// any other failure stops the run and is returned along with the partial
// summary.
func (d *Downloader) Run(ctx context.Context, cfg config.Config) (*Summary, error) {
	if d.Provider == nil || d.Store == nil {
		return nil, fmt.Errorf("download: provider and store are required")
	}
	start, err := cfg.StartDate()
	if err != nil {
		return nil, err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return nil, err
	}

	startedAt := d.clock()
	sum := &Summary{RunID: id.NewAt(startedAt)}
	log := d.Logger.With(zap.String("run_id", sum.RunID))

	if err := d.Journal.BeginRun(journal.RunRecord{
		RunID:     sum.RunID,
		StartedAt: startedAt,
		Start:     cfg.Start,
		End:       cfg.End,
		Tickers:   len(cfg.Tickers),
	}); err != nil {
		return nil, fmt.Errorf("journal begin run: %w", err)
	}

	log.Info("Starting download",
		zap.String("provider", d.Provider.Name()),
		zap.Int("tickers", len(cfg.Tickers)),
		zap.String("start", cfg.Start),
		zap.String("end", cfg.End),
		zap.String("output_dir", d.Store.Path),
		zap.Bool("auto_adjust", cfg.AutoAdjust),
	)

	runErr := d.run(ctx, log, cfg, start, end, sum)

	status, msg := journal.RunOK, ""
	if runErr != nil {
		status, msg = journal.RunFailed, runErr.Error()
	}
	if err := d.Journal.FinishRun(sum.RunID, d.clock(), status, msg); err != nil && runErr == nil {
		runErr = fmt.Errorf("journal finish run: %w", err)
	}
	if runErr != nil {
		return sum, runErr
	}

	log.Info("Download finished",
		zap.Int("written", len(sum.Written)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Duration("elapsed", d.clock().Sub(startedAt)),
	)
	return sum, nil
}

func (d *Downloader) run(ctx context.Context, log *zap.Logger, cfg config.Config, start, end time.Time, sum *Summary) error {
	if err := d.Store.EnsureDir(); err != nil {
		return err
	}

	for _, ticker := range cfg.Tickers {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Info(fmt.Sprintf("Downloading %s...", ticker), zap.String("ticker", ticker))

		fr, err := d.Provider.Download(ctx, market.Request{
			Symbol:     ticker,
			Start:      start,
			End:        end,
			AutoAdjust: cfg.AutoAdjust,
		})
		if err != nil {
			return fmt.Errorf("download %s: %w", ticker, err)
		}

		if fr.Empty() {
			log.Warn(fmt.Sprintf("No data for %s", ticker), zap.String("ticker", ticker))
			sum.Skipped = append(sum.Skipped, ticker)
			if err := d.record(sum.RunID, ticker, journal.TickerSkipped, 0, ""); err != nil {
				return err
			}
			continue
		}

		fr.Flatten()
		tbl, err := fr.ResetIndex()
		if err != nil {
			return fmt.Errorf("normalize %s: %w", ticker, err)
		}

		path, err := d.Store.Save(ticker, tbl)
		if err != nil {
			return fmt.Errorf("save %s: %w", ticker, err)
		}

		n := len(tbl.Rows)
		sum.Written = append(sum.Written, Result{Ticker: ticker, Path: path, Rows: n})
		log.Info(fmt.Sprintf("Saved: %s.csv", ticker),
			zap.String("ticker", ticker),
			zap.String("file", path),
			zap.Int("rows", n),
		)
		if err := d.record(sum.RunID, ticker, journal.TickerWritten, n, path); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) record(runID, ticker, status string, rows int, path string) error {
	err := d.Journal.RecordTicker(journal.TickerRecord{
		RunID:      runID,
		Ticker:     ticker,
		Status:     status,
		Rows:       rows,
		Path:       path,
		RecordedAt: d.clock(),
	})
	if err != nil {
		return fmt.Errorf("journal record %s: %w", ticker, err)
	}
	return nil
}

func (d *Downloader) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}
