package cmd

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/cymbal-labs/searchdemo/internal/config"
	"github.com/cymbal-labs/searchdemo/internal/gateway"
	"github.com/cymbal-labs/searchdemo/internal/server/middleware"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// newGateway builds the backend client described by cfg.
func newGateway(cfg *config.Config, logger *logging.Logger) *gateway.Client {
	return &gateway.Client{
		BaseURL: cfg.Backend.BaseURL,
		Client:  &http.Client{Timeout: cfg.Backend.Timeout},
		Limiter: gateway.NewLimiter(cfg.Backend.RateLimit),
		Logger:  logger,

		RequestID: middleware.GetRequestID,
	}
}

// newSession builds a standalone session for the one-shot and terminal clients.
func newSession(cfg *config.Config, searcher ui.Searcher, logger *logging.Logger) *ui.Session {
	return ui.NewSession("cli", searcher, cfg.Policy(), logger)
}
