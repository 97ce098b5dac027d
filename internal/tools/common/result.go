package common

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/connectorhub/internal/connector"
)

// ToolResult renders a use case Result as JSON text. Failures are flagged
// as tool errors but keep the same JSON shape.
func ToolResult[T any](res connector.Result[T]) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	out := mcp.NewToolResultText(string(raw))
	out.IsError = !res.Success
	return out
}

// InvalidArgument renders an argument validation failure in the Result
// shape, before any use case runs.
func InvalidArgument(operation string, err error) *mcp.CallToolResult {
	return ToolResult(connector.Fail[struct{}](operation, err))
}
