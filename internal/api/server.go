package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"sopgen/internal/history"
	"sopgen/internal/logging"
	"sopgen/internal/pipeline"
)

// Runner executes one pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// RunStore reads recorded runs. *history.Store satisfies it.
type RunStore interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Bind    string
	Token   string
	Version string
	Runner  Runner
	Runs    RunStore
	Hub     *Hub
	Logger  *slog.Logger
}

// Server is the optional HTTP surface. Runs are executed one at a time; a
// second POST waits for the first to finish.
type Server struct {
	bind      string
	token     string
	version   string
	runner    Runner
	runs      RunStore
	hub       *Hub
	logger    *slog.Logger
	startedAt time.Time
	slot      chan struct{}

	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a server. It does not listen until Start.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("api: runner is required")
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		bind:      strings.TrimSpace(cfg.Bind),
		token:     strings.TrimSpace(cfg.Token),
		version:   version,
		runner:    cfg.Runner,
		runs:      cfg.Runs,
		hub:       cfg.Hub,
		logger:    logging.NewComponentLogger(cfg.Logger, "api"),
		startedAt: time.Now(),
		slot:      make(chan struct{}, 1),
	}
	s.httpServer = &http.Server{
		Handler:           NewRouter(s),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Runs hold the response open for minutes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Busy reports whether a run is in progress.
func (s *Server) Busy() bool {
	return len(s.slot) > 0
}

func (s *Server) run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.slot }()
	return s.runner.Run(ctx, req)
}

// Start listens on the bind address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api: bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	if s.token == "" && !isLoopback(listener.Addr()) {
		logging.WarnWithContext(s.logger, "api token not set on a non-loopback address", "api_unauthenticated",
			logging.String("address", listener.Addr().String()),
			logging.String(logging.FieldErrorHint, "set api.token or SOPGEN_API_TOKEN"),
			logging.String(logging.FieldImpact, "anyone who can reach the port can start runs"),
		)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func isLoopback(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	return ok && tcp.IP.IsLoopback()
}
