package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teemow/connectorhub/internal/connector"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrEvent     = "event"
	attrKind      = "kind"
	attrTool      = "tool"
	attrAccount   = "account"
)

// Metrics records the server's observability metrics. The zero value is a
// no-op recorder, which is what a disabled Provider hands out.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Remote API metrics
	apiCallsTotal   metric.Int64Counter
	apiCallDuration metric.Float64Histogram
	apiRetriesTotal metric.Int64Counter

	// Credential metrics
	credentialEventsTotal metric.Int64Counter

	// WhatsApp webhook metrics
	webhookEventsTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active MCP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	m.apiCallsTotal, err = meter.Int64Counter(
		"connector_api_calls_total",
		metric.WithDescription("Total number of remote API calls by service, operation and status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector_api_calls_total counter: %w", err)
	}

	m.apiCallDuration, err = meter.Float64Histogram(
		"connector_api_call_duration_seconds",
		metric.WithDescription("Remote API call duration in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector_api_call_duration_seconds histogram: %w", err)
	}

	m.apiRetriesTotal, err = meter.Int64Counter(
		"connector_api_retries_total",
		metric.WithDescription("Total number of retried remote API attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector_api_retries_total counter: %w", err)
	}

	m.credentialEventsTotal, err = meter.Int64Counter(
		"credential_events_total",
		metric.WithDescription("Total number of credential refresh, authorize and revoke events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential_events_total counter: %w", err)
	}

	m.webhookEventsTotal, err = meter.Int64Counter(
		"whatsapp_webhook_events_total",
		metric.WithDescription("Total number of WhatsApp webhook events by kind and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create whatsapp_webhook_events_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// ObserveCall records one finished remote API call. The status label is
// "success" or the error class of err.
func (m *Metrics) ObserveCall(ctx context.Context, service, operation string, err error, duration time.Duration) {
	if m.apiCallsTotal == nil || m.apiCallDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, ErrorClass(err)),
	}

	m.apiCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// ObserveRetry records that attempt is about to be retried.
func (m *Metrics) ObserveRetry(ctx context.Context, service, operation string, _ int) {
	if m.apiRetriesTotal == nil {
		return
	}

	m.apiRetriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
	))
}

// ObserveCredential records a credential event (refresh, authorize, revoke).
func (m *Metrics) ObserveCredential(ctx context.Context, service, event string, err error) {
	if m.credentialEventsTotal == nil {
		return
	}

	result := ResultSuccess
	if err != nil {
		result = ResultFailure
		if connector.IsKind(err, connector.KindAuthentication) {
			result = ResultExpired
		}
	}

	m.credentialEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrEvent, event),
		attribute.String(attrResult, result),
	))
}

// RecordWebhookEvent records one WhatsApp webhook event.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, kind, outcome string) {
	if m.webhookEventsTotal == nil {
		return
	}

	m.webhookEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrResult, outcome),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount records an MCP tool invocation with the
// account label included when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}

// ErrorClass maps err to a bounded status label.
func ErrorClass(err error) string {
	if err == nil {
		return StatusSuccess
	}
	if errors.Is(err, context.Canceled) {
		return StatusCanceled
	}
	var ce *connector.Error
	if !errors.As(err, &ce) {
		return StatusError
	}
	switch ce.Kind {
	case connector.KindAuthentication:
		return "authentication"
	case connector.KindTransient:
		return "transient"
	case connector.KindMalformedRequest:
		return "malformed_request"
	case connector.KindNotFound:
		if ce.NoAccess {
			return "no_access"
		}
		return "not_found"
	case connector.KindMalformedResponse:
		return "malformed_response"
	case connector.KindUnknownAccount, connector.KindNoDefaultAccount:
		return "account"
	default:
		return StatusError
	}
}
