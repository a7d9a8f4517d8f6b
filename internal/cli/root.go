package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/carteira/internal/config"
	"github.com/rustyeddy/carteira/internal/logging"
)

// RootConfig holds the persistent flags shared by every subcommand.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	LogFormat  string
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "carteira",
		Short: "Download daily stock prices to one CSV per ticker",
		Long: `carteira downloads unadjusted daily OHLCV bars for a list of tickers
from Yahoo Finance and writes one <TICKER>.csv per symbol.

Run without a subcommand to download the configured portfolio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, rc, &downloadFlags{})
		},
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "", "SQLite run journal (empty disables it)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "console", "Log format: console|json")

	cmd.AddCommand(
		newDownloadCmd(rc),
		newTickersCmd(rc),
		newConfigCmd(),
		newJournalCmd(rc),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command with a context canceled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// loadConfig resolves defaults, the config file, the environment and the
// persistent flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command, rc *RootConfig) (*config.Config, error) {
	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(rc.ConfigPath)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Journal.DBPath = rc.DBPath
	}
	if flags.Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = rc.LogLevel
	}
	if flags.Changed("log-format") || cfg.Log.Format == "" {
		cfg.Log.Format = rc.LogFormat
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	return logging.NewWithWriter(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
}
