package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func registerCalendarListTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listCalendarsTool := mcp.NewTool("list_calendars",
		mcp.WithDescription("List the calendars of an account"),
		providerOption(),
		accountOption(),
	)

	s.AddTool(listCalendarsTool, common.Instrumented("list_calendars", instrumentation.ServiceCalendar, "list calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			p, err := providerFromArgs(args)
			if err != nil {
				return common.InvalidArgument("list calendars", err), nil
			}
			return common.ToolResult(sc.Calendar().ListCalendars(ctx, calendar.ListCalendarsRequest{
				Provider: p,
				Account:  common.AccountFromArgs(args),
			})), nil
		}))
}
