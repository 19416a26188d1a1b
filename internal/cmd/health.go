package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/observability"
)

var healthProbeBackend bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check to verify the application can start successfully.

With --backend-check the configured search backend must also answer GET /ping.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Check 1: Logger initialized
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		observability.CLILogger.Info("Running health check...")

		// Check 2: Version info available
		if versionInfo.Version == "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		// Check 3: Configuration decodes and validates
		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		observability.CLILogger.Info("✅ Configuration valid",
			zap.String("backend", cfg.Backend.BaseURL),
			zap.String("response_policy", string(cfg.Policy())))

		// Check 4: Backend reachable (optional)
		if healthProbeBackend {
			client := newGateway(cfg, observability.CLILogger)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := client.Ping(ctx); err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Search backend unreachable",
					errwrap.WrapExternalService(ctx, err, "ping "+client.Endpoint()))
				return
			}
			observability.CLILogger.Info("✅ Search backend reachable")
		}

		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthProbeBackend, "backend-check", false, "also ping the search backend")
}
