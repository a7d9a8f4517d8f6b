package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/carteira/internal/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect past download runs recorded in the SQLite journal",
	}

	cmd.AddCommand(newJournalRunsCmd(rc), newJournalShowCmd(rc))
	return cmd
}

func openJournal(cmd *cobra.Command, rc *RootConfig) (*journal.SQLite, error) {
	cfg, err := loadConfig(cmd, rc)
	if err != nil {
		return nil, err
	}
	if cfg.Journal.DBPath == "" {
		return nil, fmt.Errorf("no journal configured: set --db, journal.db_path or CARTEIRA_DB")
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

func newJournalRunsCmd(rc *RootConfig) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(cmd, rc)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tRANGE\tTICKERS\tSTATUS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s..%s\t%d\t%s\n",
					r.RunID, r.StartedAt.Format(time.RFC3339), r.Start, r.End, r.Tickers, r.Status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 = all)")
	return cmd
}

func newJournalShowCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-ticker outcome of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(cmd, rc)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := cmd.Context()
			run, err := j.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			tickers, err := j.ListTickers(ctx, run.RunID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:     %s\n", run.RunID)
			fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Format(time.RFC3339))
			if !run.FinishedAt.IsZero() {
				fmt.Fprintf(out, "Elapsed: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
			}
			fmt.Fprintf(out, "Range:   %s..%s\n", run.Start, run.End)
			fmt.Fprintf(out, "Status:  %s\n", run.Status)
			if run.Error != "" {
				fmt.Fprintf(out, "Error:   %s\n", run.Error)
			}
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICKER\tSTATUS\tROWS\tPATH")
			for _, t := range tickers {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.Ticker, t.Status, t.Rows, t.Path)
			}
			return tw.Flush()
		},
	}
}
