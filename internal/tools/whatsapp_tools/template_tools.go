package whatsapp_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
	"github.com/teemow/connectorhub/internal/whatsapp"
)

func registerTemplateTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listTemplatesTool := mcp.NewTool("whatsapp_list_templates",
		mcp.WithDescription("List the message templates of the WhatsApp Business account"),
		accountOption(),
		mcp.WithString("status",
			mcp.Enum(whatsapp.TemplateApproved, whatsapp.TemplatePending, whatsapp.TemplateRejected),
			mcp.Description("Only templates with this status"),
		),
		mcp.WithNumber("limit", mcp.Description("Templates per page")),
		mcp.WithString("cursor", mcp.Description("Cursor of the page to fetch, from a previous next_cursor")),
	)

	s.AddTool(listTemplatesTool, common.Instrumented("whatsapp_list_templates", instrumentation.ServiceWhatsApp, "list templates", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			limit, err := common.Int(args, "limit", 0)
			if err != nil {
				return common.InvalidArgument("list templates", err), nil
			}
			return common.ToolResult(sc.WhatsApp().ListTemplates(ctx, whatsapp.ListTemplatesRequest{
				Account: common.AccountFromArgs(args),
				Status:  common.String(args, "status"),
				Limit:   limit,
				Cursor:  common.String(args, "cursor"),
			})), nil
		}))
}
