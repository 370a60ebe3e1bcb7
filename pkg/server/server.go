package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/staticrouter/pkg/middleware"
)

// Server serves the output tree.
type Server struct {
	config     Config
	router     chi.Router
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Output == nil {
		return nil, errors.New("server: Output is required")
	}
	cfg.applyDefaults()

	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "server"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		middleware.Recover(s.logger),
		middleware.OpenTelemetry(),
		middleware.Metrics(s.config.Metrics),
		middleware.RequestLog(s.logger),
		chimw.Heartbeat("/healthz"),
	)

	if s.config.Metrics != nil {
		r.Method(http.MethodGet, s.config.MetricsPath, s.config.Metrics.Handler())
	}
	if s.config.Hub != nil {
		r.Method(http.MethodGet, s.config.WatchPath, s.config.Hub)
	}
	r.Get("/*", s.serveOutput)
	r.Head("/*", s.serveOutput)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx ends, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String(), "build_id", s.config.BuildID)
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server and disconnects watchers.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
