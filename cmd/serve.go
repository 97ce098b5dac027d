package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/connectorhub/internal/credentials"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/logging"
	"github.com/teemow/connectorhub/internal/server"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "streamable-http"
)

// serveOptions holds the serve flags after environment fallbacks.
type serveOptions struct {
	Transport        string
	HTTPAddr         string
	Debug            bool
	Yolo             bool
	DisableStreaming bool
	Metrics          MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the connector tools
to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport at /mcp, with /healthz,
    /readyz and, when WHATSAPP_WEBHOOK_VERIFY_TOKEN is set, the WhatsApp
    webhook at /webhook/whatsapp

Safety Mode:
  By default, the server operates in read-only mode, providing only safe operations.
  Use --yolo to enable write operations (sending email and messages, creating
  invoices, deleting events, adding and removing accounts, etc.)

Accounts:
  Pre-provisioned credentials (GMAIL_REFRESH_TOKEN, NOTION_API_KEY,
  HOLDED_API_KEY, CALDAV_USERNAME/CALDAV_PASSWORD, WHATSAPP_ACCESS_TOKEN, ...)
  are registered at startup. Further accounts are added with
  'connectorhub accounts add' or, with --yolo, the add_*_account tools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyServeEnv(cmd, &opts)
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.Transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.Yolo, "yolo", false, "Enable write operations (sending, creating, deleting, account changes). Default is read-only mode.")
	cmd.Flags().BoolVar(&opts.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.Metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// applyServeEnv fills flags that were not set explicitly from the
// environment.
func applyServeEnv(cmd *cobra.Command, opts *serveOptions) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if v, err := strconv.ParseBool(os.Getenv("METRICS_ENABLED")); err == nil {
			opts.Metrics.Enabled = v
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			opts.Metrics.Addr = addr
		}
	}
	if !cmd.Flags().Changed("transport") {
		if t := os.Getenv("MCP_TRANSPORT"); t != "" {
			opts.Transport = t
		}
	}
	if !cmd.Flags().Changed("http-addr") {
		if addr := os.Getenv("MCP_HTTP_ADDR"); addr != "" {
			opts.HTTPAddr = addr
		}
	}
}

func runServe(opts serveOptions) error {
	if opts.Transport != transportStdio && opts.Transport != transportHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.Transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Debug {
		cfg.LogLevel = slog.LevelDebug
	}
	// stdout carries the stdio protocol stream.
	logger := logging.New(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	instrConfig, err := instrumentation.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	readOnly := !opts.Yolo
	scOpts := []server.Option{
		server.WithLogger(logger),
		server.WithReadOnly(readOnly),
		server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
		server.WithPrompt(os.Stderr),
		server.WithBrowser(credentials.OpenBrowser),
	}
	if provider.Enabled() {
		scOpts = append(scOpts, server.WithMetrics(provider.Metrics()))
	}

	serverContext, err := server.NewServerContext(shutdownCtx, cfg, scOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if readOnly {
		logger.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with WRITE operations enabled (--yolo flag is set)")
	}

	mcpSrv := newMCPServer(serverContext)
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	if opts.Transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	if opts.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(opts.Metrics, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:     cfg.Addr,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	if err := metricsServer.Listen(); err != nil {
		return nil, err
	}
	go func() {
		if err := metricsServer.Serve(); err != nil {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, server.HTTPServerConfig{
		Addr:             opts.HTTPAddr,
		DisableStreaming: opts.DisableStreaming,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger := sc.Logger()
	logger.Info("streamable HTTP server starting",
		"addr", httpServer.Addr(),
		"endpoint", "/mcp",
		"health", "/healthz, /readyz",
		"whatsapp_webhook", sc.Config().WhatsApp.VerifyToken != "")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
