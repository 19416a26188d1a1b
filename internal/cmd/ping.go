package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/observability"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the search backend answers GET /ping",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
			return nil
		}

		client := newGateway(cfg, observability.CLILogger)

		ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()

		started := time.Now()
		if err := client.Ping(ctx); err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Search backend unreachable",
				errwrap.WrapExternalService(ctx, err, "ping "+client.Endpoint()))
			return nil
		}

		observability.CLILogger.Debug("Backend ping succeeded",
			zap.String("backend", client.Endpoint()),
			zap.Duration("elapsed", time.Since(started)))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: pong (%s)\n", client.Endpoint(), time.Since(started).Round(time.Millisecond))
		return err
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "how long to wait for the backend")
}
