package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/observability"
	"github.com/cymbal-labs/searchdemo/internal/server/handlers"
	servermw "github.com/cymbal-labs/searchdemo/internal/server/middleware"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// Options carries what the routes need beyond host and port.
type Options struct {
	Sessions       *ui.Sessions
	Title          string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
	DisableHealth  bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int
	opts   Options
	ui     *handlers.UI
}

// New creates a new HTTP server instance
func New(host string, port int, opts Options) *Server {
	if opts.Title == "" {
		opts.Title = "Search Demo"
	}
	if opts.Sessions == nil {
		opts.Sessions = ui.NewSessions(ui.SessionOptions{})
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID -> Metrics -> Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.WrapNotFound(req.Context(), nil, "The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		host:   host,
		port:   port,
		opts:   opts,
		ui:     &handlers.UI{Sessions: opts.Sessions, Title: opts.Title},
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	idle := s.opts.IdleTimeout
	if idle <= 0 {
		idle = 120 * time.Second
	}

	// No write timeout: live connections stay open for the life of a tab.
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.opts.ReadTimeout,
		IdleTimeout:       idle,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
