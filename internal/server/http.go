package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/whatsapp"
)

// HTTPServerConfig configures the streamable-http transport.
type HTTPServerConfig struct {
	Addr string
	// DisableStreaming answers every request with a plain JSON response
	// instead of an SSE stream.
	DisableStreaming bool
}

// HTTPServer serves the MCP endpoint at /mcp, the health endpoints and,
// when a verify token is configured, the WhatsApp webhook.
type HTTPServer struct {
	sc         *ServerContext
	mcp        *mcpserver.StreamableHTTPServer
	health     *HealthChecker
	httpServer *http.Server
	addr       string
}

// NewHTTPServer wraps mcpServer in the streamable-http transport.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil || sc == nil {
		return nil, fmt.Errorf("mcp server and server context are required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath("/mcp")}
	if config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	return &HTTPServer{
		sc:     sc,
		mcp:    mcpserver.NewStreamableHTTPServer(mcpServer, opts...),
		health: NewHealthChecker(sc),
		addr:   config.Addr,
	}, nil
}

// Health returns the health checker, so readiness can be dropped while
// draining.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the routes of the transport.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.mcp)
	s.health.RegisterHealthEndpoints(mux)

	wa := s.sc.Config().WhatsApp
	if wa.VerifyToken != "" {
		mux.Handle(whatsapp.WebhookPath, whatsapp.NewWebhook(whatsapp.WebhookConfig{
			VerifyToken: wa.VerifyToken,
			AppSecret:   wa.AppSecret,
		}, s.sc.Logger(), s.sc.Metrics()))
	}
	return s.instrument(mux)
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.sc.Logger().Info("starting streamable-http server", "addr", s.addr, "endpoint", "/mcp")
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and drains open requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
		s.sc.Logger().Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", strconv.Itoa(rec.status),
			"duration", time.Since(start))
	})
}

// SessionHooks tracks connected MCP sessions in the active sessions gauge.
func (sc *ServerContext) SessionHooks() *mcpserver.Hooks {
	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		sc.metrics.IncrementActiveSessions(ctx)
		sc.logger.Debug("mcp session registered", "session", session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		sc.metrics.DecrementActiveSessions(ctx)
		sc.logger.Debug("mcp session unregistered", "session", session.SessionID())
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		sc.logger.Warn("mcp request failed", "method", string(method), "error", err)
	})
	return hooks
}
