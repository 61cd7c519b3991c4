// Package server exposes the generation pipeline over HTTP.
//
// # Routes
//
//	GET    /healthz                 liveness and version
//	POST   /v1/layouts              generate and store a layout
//	GET    /v1/layouts              list stored layouts, newest first
//	GET    /v1/layouts/{id}         one stored layout
//	DELETE /v1/layouts/{id}         remove a stored layout
//	GET    /v1/layouts/{id}/svg     draw a stored layout
//	GET    /v1/stream               websocket: generate with live progress
//
// Request bodies are [pipeline.Options] in JSON. Errors are JSON objects
// with a message and the error code, and use the status given by
// [errors.HTTPStatus].
//
// The stream endpoint reads one request message, then sends progress
// messages while annealing and finishes with a result or error message.
package server

import (
	"context"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/dungeontower/pkg/observability"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
	"github.com/matzehuels/dungeontower/pkg/store"
)

// Defaults for Config.
const (
	DefaultMaxBodyBytes    = 1 << 20
	DefaultGenerateTimeout = 2 * time.Minute
	DefaultStreamEvery     = 50
)

// Config configures the server.
type Config struct {
	// AllowedOrigins lists websocket origins besides the server's own host.
	// "*" allows any origin.
	AllowedOrigins []string
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
	// GenerateTimeout bounds one generation request.
	GenerateTimeout time.Duration
}

// ValidateAndSetDefaults fills unset fields.
func (c *Config) ValidateAndSetDefaults() {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = DefaultGenerateTimeout
	}
}

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// New creates a server around runner. A runner without a store gets an
// in-memory one so generated layouts stay addressable.
func New(runner *pipeline.Runner, cfg Config, logger *log.Logger) *Server {
	cfg.ValidateAndSetDefaults()
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner.Store == nil {
		runner.Store = store.NewMemoryStore()
	}
	s := &Server{runner: runner, cfg: cfg, logger: logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.instrument("/healthz", s.handleHealth))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layouts", s.instrument("/v1/layouts", s.handleCreate))
		r.Get("/layouts", s.instrument("/v1/layouts", s.handleList))
		r.Get("/layouts/{id}", s.instrument("/v1/layouts/{id}", s.handleGet))
		r.Delete("/layouts/{id}", s.instrument("/v1/layouts/{id}", s.handleDelete))
		r.Get("/layouts/{id}/svg", s.instrument("/v1/layouts/{id}/svg", s.handleSVG))
		r.Get("/stream", s.handleStream)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// instrument reports requests on route to the server hooks.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, route)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		h(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	}
}

// checkOrigin allows requests without an Origin, from the server's own
// host, and from configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	allowed := slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
	if !allowed {
		s.logger.Warn("websocket origin rejected", "origin", origin, "host", r.Host)
	}
	return allowed
}
