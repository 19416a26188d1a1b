package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/cymbal-labs/searchdemo/internal/cmd"
	"github.com/cymbal-labs/searchdemo/internal/server/handlers"
)

// Set via ldflags, e.g.
// go build -ldflags="-X main.version=0.3.0 -X main.commit=abc1234 -X main.buildDate=2026-10-01"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// commands log their own failures; this only sets the exit code
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
