// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the connectorhub MCP server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active MCP sessions
//
// Remote API Metrics (Metrics implements connector.Observer):
//   - connector_api_calls_total: Counter by service, operation and status
//   - connector_api_call_duration_seconds: Histogram of call durations, retries included
//   - connector_api_retries_total: Counter of retried attempts
//
// Credential Metrics (Metrics implements credentials.RefreshObserver):
//   - credential_events_total: Counter by service, event and result
//
// WhatsApp Webhook Metrics (Metrics implements whatsapp.Recorder):
//   - whatsapp_webhook_events_total: Counter by kind and result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// The status label of API calls is bounded: "success", "canceled", "error"
// or one of the connector error classes returned by ErrorClass.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and remote API
// operations (<service>.<operation>).
//
// # Configuration
//
// ConfigFromEnv reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 0.1)
//   - OTEL_SERVICE_NAME, OTEL_SERVICE_INSTANCE_ID
//   - METRICS_DETAILED_LABELS: add the account label to tool metrics
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// The prometheus exporter serves its own registry, with Go runtime and
// process collectors, through Provider.MetricsHandler. The stdout
// exporters write to stderr.
//
// # Example Usage
//
//	cfg, err := instrumentation.ConfigFromEnv(os.LookupEnv)
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	client, err := connector.NewREST(holded.ServiceName, baseURL, connector.WithObserver(metrics))
package instrumentation
