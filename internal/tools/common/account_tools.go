package common

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/server"
)

// AccountTools describes the account management tools of one tool family.
type AccountTools struct {
	// Label names the tools, e.g. "gmail" gives list_gmail_accounts.
	Label string
	// Connectors maps a provider name to its connector. With more than one
	// entry the tools take a required "provider" argument.
	Connectors map[string]*server.Connector
}

func (a AccountTools) providers() []string {
	out := make([]string, 0, len(a.Connectors))
	for p := range a.Connectors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (a AccountTools) connector(args map[string]any) (*server.Connector, error) {
	if len(a.Connectors) == 1 {
		for _, c := range a.Connectors {
			return c, nil
		}
	}
	p := strings.ToLower(String(args, "provider"))
	if p == "" {
		return nil, fmt.Errorf("provider is required (one of %s)", strings.Join(a.providers(), ", "))
	}
	c, ok := a.Connectors[p]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (one of %s)", p, strings.Join(a.providers(), ", "))
	}
	return c, nil
}

func (a AccountTools) options(description string, extra ...mcp.ToolOption) []mcp.ToolOption {
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	if len(a.Connectors) > 1 {
		opts = append(opts, mcp.WithString("provider",
			mcp.Required(),
			mcp.Enum(a.providers()...),
			mcp.Description("Calendar provider"),
		))
	}
	return append(opts, extra...)
}

// secretKeys lists the credential arguments accepted by add_*_account.
func (a AccountTools) secretKeys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, p := range a.providers() {
		c := a.Connectors[p]
		names := append(append([]string{}, c.Required...), c.Optional...)
		if c.OAuth {
			names = append(names, "refresh_token")
		}
		for _, k := range names {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// RegisterAccountTools registers list and set-default tools and, unless
// readOnly, the tools adding and removing accounts.
func RegisterAccountTools(s *mcpserver.MCPServer, sc *server.ServerContext, a AccountTools, readOnly bool) {
	accountArg := mcp.WithString("account",
		mcp.Required(),
		mcp.Description("Account identifier, e.g. an email address or a short name"),
	)

	listName := fmt.Sprintf("list_%s_accounts", a.Label)
	listTool := mcp.NewTool(listName, a.options(
		fmt.Sprintf("List the registered %s accounts and the default account", a.Label))...)
	s.AddTool(listTool, Instrumented(listName, a.Label, "list accounts", sc,
		func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			c, err := a.connector(request.GetArguments())
			if err != nil {
				return InvalidArgument("list accounts", err), nil
			}
			return ToolResult(c.Accounts.ListAccounts()), nil
		}))

	defaultName := fmt.Sprintf("set_default_%s_account", a.Label)
	defaultTool := mcp.NewTool(defaultName, a.options(
		fmt.Sprintf("Make a registered %s account the default for calls without an account", a.Label),
		accountArg)...)
	s.AddTool(defaultTool, Instrumented(defaultName, a.Label, "set default account", sc,
		func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			c, err := a.connector(args)
			if err != nil {
				return InvalidArgument("set default account", err), nil
			}
			account, err := RequiredString(args, "account")
			if err != nil {
				return InvalidArgument("set default account", err), nil
			}
			return ToolResult(c.Accounts.SetDefaultAccount(account)), nil
		}))

	if readOnly {
		return
	}

	addOpts := []mcp.ToolOption{
		accountArg,
		mcp.WithBoolean("make_default", mcp.Description("Also make the account the default (default: false)")),
	}
	keys := a.secretKeys()
	for _, k := range keys {
		addOpts = append(addOpts, mcp.WithString(k,
			mcp.Description(fmt.Sprintf("Credential value %q. Without credential values the configured authorization strategy runs.", k))))
	}
	addName := fmt.Sprintf("add_%s_account", a.Label)
	addTool := mcp.NewTool(addName, a.options(
		fmt.Sprintf("Register a %s account, storing the given credentials or running the authorization flow", a.Label),
		addOpts...)...)
	s.AddTool(addTool, Instrumented(addName, a.Label, "add account", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			c, err := a.connector(args)
			if err != nil {
				return InvalidArgument("add account", err), nil
			}
			account, err := RequiredString(args, "account")
			if err != nil {
				return InvalidArgument("add account", err), nil
			}
			secrets := map[string]string{}
			for _, k := range keys {
				if v := String(args, k); v != "" {
					secrets[k] = v
				}
			}
			return ToolResult(c.AddAccount(ctx, account, secrets, Bool(args, "make_default", false))), nil
		}))

	removeName := fmt.Sprintf("remove_%s_account", a.Label)
	removeTool := mcp.NewTool(removeName, a.options(
		fmt.Sprintf("Remove a %s account and delete its stored credentials", a.Label),
		accountArg)...)
	s.AddTool(removeTool, Instrumented(removeName, a.Label, "remove account", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			c, err := a.connector(args)
			if err != nil {
				return InvalidArgument("remove account", err), nil
			}
			account, err := RequiredString(args, "account")
			if err != nil {
				return InvalidArgument("remove account", err), nil
			}
			return ToolResult(c.Accounts.RemoveAccount(ctx, account)), nil
		}))
}
