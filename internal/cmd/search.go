package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/observability"
	"github.com/cymbal-labs/searchdemo/internal/output"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run one search and print the rendered result",
	Long: `Run one search against the backend and print the rendered result.

The numeric parameters default to 1 and must be positive integers. A backend
failure prints the empty result and exits non-zero.`,
	Example: `  searchdemo search "refund policy"
  searchdemo search --page-size 5 --max-snippet-count 3 --format markdown refund policy`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

var fieldFlags = map[ui.Field]string{
	ui.FieldPageSize:                  "page-size",
	ui.FieldSummaryResultCount:        "summary-result-count",
	ui.FieldMaxSnippetCount:           "max-snippet-count",
	ui.FieldMaxExtractiveAnswerCount:  "max-extractive-answer-count",
	ui.FieldMaxExtractiveSegmentCount: "max-extractive-segment-count",
}

func init() {
	rootCmd.AddCommand(searchCmd)

	for _, field := range ui.Fields {
		searchCmd.Flags().String(fieldFlags[field], "1", field.Label())
	}
	searchCmd.Flags().String("format", "table", "Output format: table, markdown, json, yaml")
	searchCmd.Flags().String("out", "", "Write output to a file instead of stdout")
}

func runSearch(cmd *cobra.Command, args []string) error {
	formatRaw, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatRaw)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
		return nil
	}

	client := newGateway(cfg, observability.CLILogger)
	session := newSession(cfg, client, observability.CLILogger)

	session.Query.Change(strings.Join(args, " "))
	for _, field := range ui.Fields {
		raw, err := cmd.Flags().GetString(fieldFlags[field])
		if err != nil {
			return err
		}
		if err := session.Form.SetField(field, raw); err != nil {
			return err
		}
	}

	// Validation failures are usage errors: nothing was sent.
	if err := session.Form.Search(cmd.Context()); err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatView(session.View())
	if err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "render result")
	}

	sink, err := openSink(outPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if _, err := fmt.Fprintln(sink.writer, strings.TrimRight(rendered, "\n")); err != nil {
		return err
	}
	if sink.path != "-" {
		observability.CLILogger.Info("Wrote result", zap.String("path", sink.path), zap.String("format", string(format)))
	}

	if backendErr := session.Form.LastError(); backendErr != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Search backend call failed",
			errwrap.WrapExternalService(cmd.Context(), backendErr, "search request failed"))
	}
	return nil
}
