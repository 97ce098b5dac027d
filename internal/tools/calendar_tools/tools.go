package calendar_tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func providerOption() mcp.ToolOption {
	return mcp.WithString("provider",
		mcp.Enum(string(calendar.ProviderGoogle), string(calendar.ProviderApple)),
		mcp.Description("Calendar provider: 'google' (default) or 'apple'"),
	)
}

func accountOption() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Account of the provider (default: the provider's default account)"),
	)
}

func calendarIDOption() mcp.ToolOption {
	return mcp.WithString("calendar_id",
		mcp.Description("Calendar ID (default: 'primary' for google, the first calendar for apple)"),
	)
}

// providerFromArgs parses the "provider" argument.
func providerFromArgs(args map[string]any) (calendar.Provider, error) {
	raw := common.String(args, "provider")
	p, ok := calendar.ParseProvider(raw)
	if !ok {
		return "", fmt.Errorf("provider must be 'google' or 'apple', got %q", raw)
	}
	return p, nil
}

func targetFromArgs(args map[string]any) (calendar.Target, error) {
	p, err := providerFromArgs(args)
	if err != nil {
		return calendar.Target{}, err
	}
	return calendar.Target{
		Provider:   p,
		Account:    common.AccountFromArgs(args),
		CalendarID: common.String(args, "calendar_id"),
	}, nil
}

// RegisterCalendarTools registers all calendar tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	google, ok := sc.Connector(config.ServiceCalendar)
	if !ok {
		return fmt.Errorf("calendar connector is not configured")
	}
	apple, ok := sc.Connector(config.ServiceCalDAV)
	if !ok {
		return fmt.Errorf("caldav connector is not configured")
	}

	registerEventTools(s, sc, readOnly)
	registerCalendarListTools(s, sc)
	registerSchedulingTools(s, sc)
	common.RegisterAccountTools(s, sc, common.AccountTools{
		Label: "calendar",
		Connectors: map[string]*server.Connector{
			string(calendar.ProviderGoogle): google,
			string(calendar.ProviderApple):  apple,
		},
	}, readOnly)
	return nil
}
