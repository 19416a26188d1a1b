package cmd

import (
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	errwrap "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/observability"
	"github.com/cymbal-labs/searchdemo/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [query...]",
	Short: "Open the interactive terminal client",
	Long: `Open the interactive terminal client.

Type a query, tab through the ranking parameters and press ctrl+s to search.
Enter re-commits the query without searching; esc quits.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
			return nil
		}

		// The program owns the terminal, so nothing below may log to it.
		client := newGateway(cfg, nil)
		session := newSession(cfg, client, nil)
		if len(args) > 0 {
			session.Query.Change(strings.Join(args, " "))
		}

		if err := tui.Run(cmd.Context(), session, cfg.UI.Title); err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "terminal client failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
