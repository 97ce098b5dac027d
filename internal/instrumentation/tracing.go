package instrumentation

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/connectorhub/internal/logging"
)

// TracerName is the tracer used for every span the server creates.
const TracerName = "github.com/teemow/connectorhub"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrService   = "connector.service"
	SpanAttrOperation = "connector.operation"
	// SpanAttrAccount carries the anonymized account.
	SpanAttrAccount  = "connector.account"
	SpanAttrReadOnly = "mcp.read_only"
)

// ToolAttributes describes a tool invocation on its span. An empty account
// is left out; a non-empty one is anonymized.
func ToolAttributes(service, operation, account string, readOnly bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
		attribute.Bool(SpanAttrReadOnly, readOnly),
	}
	if account != "" {
		attrs = append(attrs, attribute.String(SpanAttrAccount, logging.AnonymizeAccount(account)))
	}
	return attrs
}

// StartToolSpan starts the server span "tool.<name>" of an MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return otel.Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartAPISpan starts a client span for one remote API operation, named
// "<service>.<operation>". Spaces in operation become underscores.
func StartAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return otel.Tracer(TracerName).Start(ctx, service+"."+strings.ReplaceAll(operation, " ", "_"),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
