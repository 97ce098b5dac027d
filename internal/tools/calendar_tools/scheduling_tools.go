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

func registerSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	freeBusyTool := mcp.NewTool("query_free_busy",
		mcp.WithDescription("Report busy intervals of one or more calendars (google only)"),
		providerOption(),
		accountOption(),
		mcp.WithString("time_min", mcp.Description("Start of the range (default: now)")),
		mcp.WithString("time_max", mcp.Description("End of the range (default: 24 hours after time_min)")),
		mcp.WithArray("calendar_ids", mcp.WithStringItems(), mcp.Description("Calendar IDs or attendee emails (default: primary)")),
	)

	s.AddTool(freeBusyTool, common.Instrumented("query_free_busy", instrumentation.ServiceCalendar, "query free busy", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			p, err := providerFromArgs(args)
			if err != nil {
				return common.InvalidArgument("query free/busy", err), nil
			}
			timeMin, err := common.Time(args, "time_min")
			if err != nil {
				return common.InvalidArgument("query free/busy", err), nil
			}
			timeMax, err := common.Time(args, "time_max")
			if err != nil {
				return common.InvalidArgument("query free/busy", err), nil
			}
			ids, err := common.StringList(args, "calendar_ids")
			if err != nil {
				return common.InvalidArgument("query free/busy", err), nil
			}
			return common.ToolResult(sc.Calendar().QueryFreeBusy(ctx, calendar.FreeBusyRequest{
				Provider:    p,
				Account:     common.AccountFromArgs(args),
				TimeMin:     timeMin,
				TimeMax:     timeMax,
				CalendarIDs: ids,
			})), nil
		}))
}
