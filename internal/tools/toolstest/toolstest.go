// Package toolstest provides helpers for testing MCP tool registrations
// against a real server context.
package toolstest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/server"
)

// NewServerContext builds a server context over a temporary token directory.
// env supplies configuration variables; nothing is read from the process
// environment.
func NewServerContext(t *testing.T, env map[string]string, readOnly bool, opts ...server.Option) *server.ServerContext {
	t.Helper()
	values := map[string]string{"CONNECTORHUB_TOKEN_DIR": t.TempDir()}
	for k, v := range env {
		values[k] = v
	}
	cfg, err := config.FromSource(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	require.NoError(t, err)

	opts = append([]server.Option{
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		server.WithReadOnly(readOnly),
	}, opts...)
	sc, err := server.NewServerContext(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// NewMCPServer returns an empty MCP server for registrations under test.
func NewMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("connectorhub-test", "0.0.0", mcpserver.WithToolCapabilities(true))
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, s *mcpserver.MCPServer, method string, params any) json.RawMessage {
	t.Helper()
	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), req))
	require.NoError(t, err)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	if resp.Error != nil {
		t.Fatalf("%s failed: %d %s", method, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result
}

// ToolNames lists the registered tools, sorted.
func ToolNames(t *testing.T, s *mcpserver.MCPServer) []string {
	t.Helper()
	var res struct {
		Tools []mcp.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(call(t, s, "tools/list", map[string]any{}), &res))
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

// Result is a decoded tool result.
type Result struct {
	IsError bool
	// Text is the raw text content.
	Text string
	// JSON is Text decoded as a JSON object, if it is one.
	JSON map[string]any
}

// CallTool invokes a registered tool with args.
func CallTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]any) Result {
	t.Helper()
	var res struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(call(t, s, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	}), &res))

	out := Result{IsError: res.IsError}
	for _, c := range res.Content {
		if c.Type == "text" {
			out.Text += c.Text
		}
	}
	var obj map[string]any
	if json.Unmarshal([]byte(out.Text), &obj) == nil {
		out.JSON = obj
	}
	return out
}
