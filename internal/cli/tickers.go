package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTickersCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tickers",
		Short: "Print the configured ticker list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, rc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range cfg.Tickers {
				fmt.Fprintln(out, t)
			}
			return nil
		},
	}
}
