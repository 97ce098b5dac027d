package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/gmail"
	"github.com/teemow/connectorhub/internal/holded"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/notion"
	"github.com/teemow/connectorhub/internal/whatsapp"
)

// ServerContext holds the connectors and the shared observability of the
// MCP server. Tool packages get their use case services from it.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg         *config.Config
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	readOnly    bool

	// Outbound HTTP base transport and interactive authorization settings.
	transport   http.RoundTripper
	prompt      io.Writer
	openBrowser func(url string) error

	gmail      *gmail.Service
	calendar   *calendar.Service
	notion     *notion.Service
	holded     *holded.Service
	whatsapp   *whatsapp.Service
	connectors map[string]*Connector

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithLogger sets the logger shared by connectors and tools.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// WithMetrics sets the metrics recorder. A nil recorder keeps the no-op one.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) {
		if m != nil {
			sc.metrics = m
		}
	}
}

// WithAuditLogger sets the tool invocation audit logger.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithReadOnly controls whether mutating tools are registered.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) { sc.readOnly = readOnly }
}

// WithTransport sets the base transport of every outbound API client.
func WithTransport(rt http.RoundTripper) Option {
	return func(sc *ServerContext) { sc.transport = rt }
}

// WithPrompt sets where interactive authorization prints the consent URL.
// The stdio transport must keep it off stdout.
func WithPrompt(w io.Writer) Option {
	return func(sc *ServerContext) { sc.prompt = w }
}

// WithBrowser sets the function opening consent URLs. Nil only prints them.
func WithBrowser(open func(url string) error) Option {
	return func(sc *ServerContext) { sc.openBrowser = open }
}

// NewServerContext builds every connector from cfg. Accounts with persisted
// or pre-provisioned credentials are registered, but no client is created
// and no credential is checked until first use.
func NewServerContext(ctx context.Context, cfg *config.Config, opts ...Option) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		cfg:        cfg,
		logger:     slog.Default(),
		metrics:    &instrumentation.Metrics{},
		readOnly:   true,
		connectors: make(map[string]*Connector),
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.auditLogger == nil {
		sc.auditLogger = instrumentation.NewAuditLogger(sc.logger)
	}

	if err := sc.buildConnectors(); err != nil {
		cancel()
		return nil, err
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the configuration the connectors were built from.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder. It is never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the tool invocation audit logger.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// ReadOnly reports whether only non-mutating tools are exposed.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// Connector services, one per supported API, shared by the tool packages.
func (sc *ServerContext) Gmail() *gmail.Service       { return sc.gmail }
func (sc *ServerContext) Calendar() *calendar.Service { return sc.calendar }
func (sc *ServerContext) Notion() *notion.Service     { return sc.notion }
func (sc *ServerContext) Holded() *holded.Service     { return sc.holded }
func (sc *ServerContext) WhatsApp() *whatsapp.Service { return sc.whatsapp }

// Connector returns the connector of a service by name.
func (sc *ServerContext) Connector(name string) (*Connector, bool) {
	c, ok := sc.connectors[name]
	return c, ok
}

// Connectors returns all connectors sorted by name.
func (sc *ServerContext) Connectors() []*Connector {
	out := make([]*Connector, 0, len(sc.connectors))
	for _, c := range sc.connectors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
