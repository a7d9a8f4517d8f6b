package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/carteira/internal/config"
	"github.com/rustyeddy/carteira/internal/download"
	"github.com/rustyeddy/carteira/internal/journal"
	"github.com/rustyeddy/carteira/internal/store"
	"github.com/rustyeddy/carteira/internal/yahoo"
)

type downloadFlags struct {
	outDir  string
	start   string
	end     string
	tickers string
	adjust  bool
	baseURL string
	timeout string
}

func newDownloadCmd(rc *RootConfig) *cobra.Command {
	df := &downloadFlags{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download daily bars for every configured ticker and write CSV files",
		Example: `  carteira download
  carteira download --tickers AAPL,MSFT --start 2024-01-01 --end 2024-07-01 --out ./data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, rc, df)
		},
	}

	cmd.Flags().StringVar(&df.outDir, "out", "", "Output directory (default "+config.DefaultOutputDir+")")
	cmd.Flags().StringVar(&df.start, "start", "", "Start date YYYY-MM-DD, inclusive (default "+config.DefaultStart+")")
	cmd.Flags().StringVar(&df.end, "end", "", "End date YYYY-MM-DD, exclusive (default "+config.DefaultEnd+")")
	cmd.Flags().StringVar(&df.tickers, "tickers", "", "Comma-separated tickers (default: the 30 portfolio symbols)")
	cmd.Flags().BoolVar(&df.adjust, "adjust", false, "Adjust prices for splits and dividends")
	cmd.Flags().StringVar(&df.baseURL, "base-url", "", "Override provider base URL (for testing)")
	cmd.Flags().StringVar(&df.timeout, "timeout", "", "Per-request timeout, e.g. 30s")

	return cmd
}

func (df *downloadFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if df.outDir != "" {
		cfg.OutputDir = df.outDir
	}
	if df.start != "" {
		cfg.Start = df.start
	}
	if df.end != "" {
		cfg.End = df.end
	}
	if df.tickers != "" {
		cfg.Tickers = config.SplitTickers(df.tickers)
	}
	if flags.Lookup("adjust") != nil && flags.Changed("adjust") {
		cfg.AutoAdjust = df.adjust
	}
	if df.baseURL != "" {
		cfg.Provider.BaseURL = df.baseURL
	}
	if df.timeout != "" {
		cfg.Provider.Timeout = df.timeout
	}
}

func runDownload(cmd *cobra.Command, rc *RootConfig, df *downloadFlags) error {
	cfg, err := loadConfig(cmd, rc)
	if err != nil {
		return err
	}
	df.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	timeout, err := cfg.Provider.ParseTimeout()
	if err != nil {
		return err
	}
	client, err := yahoo.NewClient(yahoo.Options{
		BaseURL:   cfg.Provider.BaseURL,
		Timeout:   timeout,
		UserAgent: cfg.Provider.UserAgent,
		Proxy:     cfg.Provider.Proxy,
	})
	if err != nil {
		return err
	}

	var j journal.Journal = journal.NewNoop()
	if cfg.Journal.DBPath != "" {
		sj, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal %s: %w", cfg.Journal.DBPath, err)
		}
		defer sj.Close()
		j = sj
	}

	d := download.New(client, store.New(cfg.OutputDir), j, log)
	sum, err := d.Run(cmd.Context(), *cfg)
	if err != nil {
		log.Error("Download failed", zap.Error(err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s (%d skipped)\n",
		len(sum.Written), cfg.OutputDir, len(sum.Skipped))
	return nil
}
