package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/connectorhub/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is where Prometheus scrapes when no address is set.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds the graceful drain of HTTP servers.
	DefaultShutdownTimeout = 30 * time.Second

	metricsReadHeaderTimeout = 10 * time.Second
	metricsWriteTimeout      = 10 * time.Second
	metricsIdleTimeout       = 60 * time.Second
)

// MetricsServerConfig configures the dedicated metrics listener.
type MetricsServerConfig struct {
	Addr string
	// Provider must be enabled and use the prometheus exporter.
	Provider *instrumentation.Provider
	Logger   *slog.Logger
}

// MetricsServer serves /metrics and /healthz apart from the MCP transport,
// so scraping never competes with tool calls.
type MetricsServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewMetricsServer validates cfg. Nothing is bound until Listen.
func NewMetricsServer(cfg MetricsServerConfig) (*MetricsServer, error) {
	if cfg.Provider == nil {
		return nil, errors.New("instrumentation provider is required for metrics server")
	}
	if !cfg.Provider.Enabled() {
		return nil, errors.New("instrumentation provider is not enabled")
	}
	handler := cfg.Provider.MetricsHandler()
	if handler == nil {
		return nil, errors.New("metrics exporter is not prometheus")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultMetricsAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
			WriteTimeout:      metricsWriteTimeout,
			IdleTimeout:       metricsIdleTimeout,
		},
		logger: logger,
	}, nil
}

// Listen binds the address, so a port conflict is reported to the caller
// before the server goroutine starts.
func (s *MetricsServer) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	s.listener = ln
	return nil
}

// Serve blocks until Shutdown. It binds first when Listen was not called.
// A graceful shutdown returns nil.
func (s *MetricsServer) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.Info("starting metrics server", "addr", s.Addr())
	if err := s.srv.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains open scrapes. It is a no-op before Listen.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.srv.Shutdown(ctx)
}

// Addr is the bound address after Listen, the configured one before.
func (s *MetricsServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Handler exposes the routes for in-process tests.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}
