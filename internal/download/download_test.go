package download

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/carteira/internal/config"
	"github.com/rustyeddy/carteira/internal/frame"
	"github.com/rustyeddy/carteira/internal/journal"
	"github.com/rustyeddy/carteira/internal/market"
	"github.com/rustyeddy/carteira/internal/store"
)

// fakeProvider serves canned frames and remembers the order of requests.
type fakeProvider struct {
	frames map[string]*frame.Frame
	errs   map[string]error
	calls  []market.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Download(_ context.Context, req market.Request) (*frame.Frame, error) {
	p.calls = append(p.calls, req)
	if err, ok := p.errs[req.Symbol]; ok {
		return nil, err
	}
	if fr, ok := p.frames[req.Symbol]; ok {
		return cloneFrame(fr), nil
	}
	return frame.New(frame.Label{frame.Close, req.Symbol}), nil
}

func (p *fakeProvider) symbols() []string {
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.Symbol)
	}
	return out
}

func cloneFrame(f *frame.Frame) *frame.Frame {
	out := frame.New(append([]frame.Label(nil), f.Columns...)...)
	for i, r := range f.Rows {
		_ = out.Append(f.Index[i], r...)
	}
	return out
}

// tradingDays builds a two-level frame with n weekday bars starting at from.
func tradingDays(t *testing.T, symbol string, from time.Time, n int) *frame.Frame {
	t.Helper()

	f := frame.New(
		frame.Label{frame.Open, symbol},
		frame.Label{frame.High, symbol},
		frame.Label{frame.Low, symbol},
		frame.Label{frame.Close, symbol},
		frame.Label{frame.Volume, symbol},
	)
	d := from
	for f.Len() < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			p := 200 + float64(f.Len())/4
			require.NoError(t, f.Append(d, p, p+1.5, p-1.25, p+0.5, 1000000+float64(f.Len())))
		}
		d = d.AddDate(0, 0, 1)
	}
	return f
}

func testConfig(tickers ...string) config.Config {
	cfg := config.Default()
	cfg.Tickers = tickers
	return *cfg
}

func newTestDownloader(t *testing.T, p market.Provider, j journal.Journal) (*Downloader, *observer.ObservedLogs, string) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	dir := filepath.Join(t.TempDir(), "ProjetoCarteira", "data")
	d := New(p, store.New(dir), j, zap.New(core))
	return d, logs, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()

	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func warnedTickers(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		for _, f := range e.Context {
			if f.Key == "ticker" {
				out = append(out, f.String)
			}
		}
	}
	return out
}

func TestRun_AAPLHundredDays(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{frames: map[string]*frame.Frame{
		"AAPL": tradingDays(t, "AAPL", start, 100),
	}}
	d, _, dir := newTestDownloader(t, p, nil)

	sum, err := d.Run(context.Background(), testConfig("AAPL"))
	require.NoError(t, err)
	require.Len(t, sum.Written, 1)
	assert.Empty(t, sum.Skipped)
	assert.Equal(t, 100, sum.Written[0].Rows)
	assert.Equal(t, filepath.Join(dir, "AAPL.csv"), sum.Written[0].Path)

	rows := readCSV(t, filepath.Join(dir, "AAPL.csv"))
	require.Len(t, rows, 101)
	assert.Equal(t, []string{"Date", "Open", "High", "Low", "Close", "Volume"}, rows[0])
	assert.Equal(t, []string{"2024-08-01", "200", "201.5", "198.75", "200.5", "1000000"}, rows[1])

	require.Len(t, p.calls, 1)
	req := p.calls[0]
	assert.Equal(t, "2024-08-01", req.Start.Format(config.DateLayout))
	assert.Equal(t, "2024-12-31", req.End.Format(config.DateLayout))
	assert.False(t, req.AutoAdjust)
}

func TestRun_EmptySeriesIsSkipped(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{frames: map[string]*frame.Frame{
		"AAPL": tradingDays(t, "AAPL", start, 3),
		"MSFT": tradingDays(t, "MSFT", start, 2),
	}}
	d, logs, dir := newTestDownloader(t, p, nil)

	sum, err := d.Run(context.Background(), testConfig("AAPL", "ZZZQ", "MSFT"))
	require.NoError(t, err)

	assert.Equal(t, []string{"ZZZQ"}, sum.Skipped)
	require.Len(t, sum.Written, 2)
	assert.Equal(t, "AAPL", sum.Written[0].Ticker)
	assert.Equal(t, "MSFT", sum.Written[1].Ticker)

	_, err = os.Stat(filepath.Join(dir, "ZZZQ.csv"))
	assert.True(t, os.IsNotExist(err))
	assert.Len(t, readCSV(t, filepath.Join(dir, "MSFT.csv")), 3)

	assert.Equal(t, []string{"ZZZQ"}, warnedTickers(logs))
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()[0]
	assert.Contains(t, warn.Message, "ZZZQ")
}

func TestRun_EveryTickerWrittenOrWarned(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.Default()
	frames := map[string]*frame.Frame{}
	for i, tk := range cfg.Tickers {
		if i%4 == 0 {
			continue // leave some empty
		}
		frames[tk] = tradingDays(t, tk, start, 1+i%5)
	}
	p := &fakeProvider{frames: frames}
	d, logs, dir := newTestDownloader(t, p, nil)

	sum, err := d.Run(context.Background(), *cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Tickers, p.symbols(), "tickers are fetched once each, in list order")

	warned := map[string]bool{}
	for _, tk := range warnedTickers(logs) {
		warned[tk] = true
	}

	for _, tk := range cfg.Tickers {
		_, statErr := os.Stat(filepath.Join(dir, tk+".csv"))
		exists := statErr == nil
		assert.NotEqual(t, exists, warned[tk], "ticker %s must be written xor warned", tk)
		if exists {
			rows := readCSV(t, filepath.Join(dir, tk+".csv"))
			assert.GreaterOrEqual(t, len(rows), 2)
			assert.Equal(t, "Date", rows[0][0])
			assert.Len(t, rows, frames[tk].Len()+1)
		}
	}
	assert.Equal(t, len(cfg.Tickers), len(sum.Written)+len(sum.Skipped))
}

func TestRun_ProviderErrorAbortsRun(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	boom := errors.New("connection reset")
	p := &fakeProvider{
		frames: map[string]*frame.Frame{"AAPL": tradingDays(t, "AAPL", start, 2)},
		errs:   map[string]error{"MSFT": boom},
	}
	d, _, dir := newTestDownloader(t, p, nil)

	sum, err := d.Run(context.Background(), testConfig("AAPL", "MSFT", "JPM"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "download MSFT")

	assert.Equal(t, []string{"AAPL", "MSFT"}, p.symbols(), "JPM is never requested")
	require.NotNil(t, sum)
	require.Len(t, sum.Written, 1)

	_, err = os.Stat(filepath.Join(dir, "AAPL.csv"))
	assert.NoError(t, err)
}

func TestRun_RerunOverwritesIdentically(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{frames: map[string]*frame.Frame{"KO": tradingDays(t, "KO", start, 10)}}
	d, _, dir := newTestDownloader(t, p, nil)

	_, err := d.Run(context.Background(), testConfig("KO"))
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "KO.csv"))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), testConfig("KO"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "KO.csv"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 11, strings.Count(string(second), "\n"))
}

func TestRun_ExistingDirIsFine(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	d, _, dir := newTestDownloader(t, p, nil)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	sum, err := d.Run(context.Background(), testConfig("ZZZQ"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZZQ"}, sum.Skipped)

	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestRun_OutputDirUnwritable(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	p := &fakeProvider{}
	d := New(p, store.New(filepath.Join(blocker, "data")), nil, nil)

	_, err := d.Run(context.Background(), testConfig("AAPL"))
	require.Error(t, err)
	assert.Empty(t, p.calls)
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	d, _, _ := newTestDownloader(t, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, testConfig("AAPL"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.calls)
}

func TestRun_PassesAutoAdjust(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	d, _, _ := newTestDownloader(t, p, nil)

	cfg := testConfig("AAPL")
	cfg.AutoAdjust = true
	_, err := d.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.True(t, p.calls[0].AutoAdjust)
}

func TestRun_RequiresProviderAndStore(t *testing.T) {
	t.Parallel()

	_, err := New(nil, store.New(t.TempDir()), nil, nil).Run(context.Background(), testConfig("AAPL"))
	require.Error(t, err)
}

func TestRun_JournalsOutcomes(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{frames: map[string]*frame.Frame{"AAPL": tradingDays(t, "AAPL", start, 5)}}
	d, _, dir := newTestDownloader(t, p, j)

	sum, err := d.Run(context.Background(), testConfig("AAPL", "ZZZQ"))
	require.NoError(t, err)

	ctx := context.Background()
	run, err := j.GetRun(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, journal.RunOK, run.Status)
	assert.Equal(t, 2, run.Tickers)
	assert.False(t, run.FinishedAt.IsZero())

	tickers, err := j.ListTickers(ctx, sum.RunID)
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, journal.TickerWritten, tickers[0].Status)
	assert.Equal(t, 5, tickers[0].Rows)
	assert.Equal(t, filepath.Join(dir, "AAPL.csv"), tickers[0].Path)
	assert.Equal(t, journal.TickerSkipped, tickers[1].Status)
}

func TestRun_JournalsFailure(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	p := &fakeProvider{errs: map[string]error{"AAPL": errors.New("timeout")}}
	d, _, _ := newTestDownloader(t, p, j)

	sum, err := d.Run(context.Background(), testConfig("AAPL"))
	require.Error(t, err)

	run, err := j.GetRun(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, journal.RunFailed, run.Status)
	assert.Contains(t, run.Error, "timeout")
}
