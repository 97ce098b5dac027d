package common

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/logging"
	"github.com/teemow/connectorhub/internal/server"
)

// Instrumented wraps a tool handler with tracing, metrics and audit logging.
// service and operation name the remote API operation the tool performs.
// A panicking handler is turned into an error result.
//
// Usage:
//
//	s.AddTool(tool, common.Instrumented("get_email", instrumentation.ServiceGmail, "get message", sc, handler))
func Instrumented(toolName, service, operation string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		start := time.Now()
		account := AccountFromArgs(request.GetArguments())

		ctx, toolSpan := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.ToolAttributes(service, operation, account, sc.ReadOnly())...)
		apiCtx, apiSpan := instrumentation.StartAPISpan(ctx, service, operation, attribute.String(instrumentation.SpanAttrTool, toolName))

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithService(service, operation)
		if account != "" {
			invocation.WithAccount(account)
		}

		defer func() {
			if r := recover(); r != nil {
				logging.WithTool(sc.Logger(), toolName).Error("tool handler panicked",
					"panic", r, "stack", string(debug.Stack()))
				result = mcp.NewToolResultError(fmt.Sprintf("%s failed: internal error", toolName))
				err = nil
			}

			status := instrumentation.StatusSuccess
			var spanErr error
			switch {
			case err != nil:
				status = instrumentation.ErrorClass(err)
				invocation.CompleteWithError(err)
				spanErr = err
			case result != nil && result.IsError:
				status = instrumentation.StatusError
				spanErr = errors.New(ResultText(result))
				invocation.Complete(false, spanErr)
			default:
				invocation.CompleteSuccess()
			}
			instrumentation.EndSpan(apiSpan, spanErr)
			instrumentation.EndSpan(toolSpan, spanErr)

			sc.Metrics().RecordToolInvocationWithAccount(ctx, toolName, status, account, time.Since(start))
			sc.AuditLogger().LogToolInvocation(invocation)
		}()

		return handler(apiCtx, request)
	}
}

// ResultText returns the concatenated text content of a tool result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var out string
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			out += tc.Text
		}
	}
	return out
}
