package notion_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/notion"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func registerDatabaseTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	getDatabaseTool := mcp.NewTool("notion_get_database",
		mcp.WithDescription("Get a Notion database with its property schema"),
		accountOption(),
		mcp.WithString("database_id", mcp.Required(), mcp.Description("The ID of the database")),
	)
	s.AddTool(getDatabaseTool, common.Instrumented("notion_get_database", instrumentation.ServiceNotion, "get database", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			return common.ToolResult(sc.Notion().GetDatabase(ctx, notion.DatabaseRequest{
				Account:    common.AccountFromArgs(args),
				DatabaseID: common.String(args, "database_id"),
			})), nil
		}))

	queryTool := mcp.NewTool("notion_query_database",
		mcp.WithDescription("Query the entries of a Notion database"),
		accountOption(),
		mcp.WithString("database_id", mcp.Required(), mcp.Description("The ID of the database")),
		mcp.WithObject("filter", mcp.Description("Filter object in Notion API format")),
		mcp.WithArray("sorts", mcp.Description("Sort objects in Notion API format")),
		mcp.WithNumber("page_size", mcp.Description("Entries per page (default and max: 100)")),
		mcp.WithString("start_cursor", mcp.Description("Cursor of the page to fetch")),
	)
	s.AddTool(queryTool, common.Instrumented("notion_query_database", instrumentation.ServiceNotion, "query database", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			filter, err := common.RawJSON(args, "filter")
			if err != nil {
				return common.InvalidArgument("query database", err), nil
			}
			sorts, err := common.RawJSON(args, "sorts")
			if err != nil {
				return common.InvalidArgument("query database", err), nil
			}
			pageSize, err := common.Int(args, "page_size", 0)
			if err != nil {
				return common.InvalidArgument("query database", err), nil
			}
			return common.ToolResult(sc.Notion().QueryDatabase(ctx, notion.QueryRequest{
				Account: common.AccountFromArgs(args),
				Query: notion.DatabaseQuery{
					DatabaseID:  common.String(args, "database_id"),
					Filter:      filter,
					Sorts:       sorts,
					StartCursor: common.String(args, "start_cursor"),
					PageSize:    pageSize,
				},
			})), nil
		}))

	if readOnly {
		return
	}

	createEntryTool := mcp.NewTool("notion_create_database_entry",
		mcp.WithDescription("Add an entry to a Notion database. Properties must match the database schema."),
		accountOption(),
		mcp.WithString("database_id", mcp.Required(), mcp.Description("The ID of the database")),
		mcp.WithObject("properties", mcp.Required(), mcp.Description("Entry properties in Notion API format")),
		mcp.WithString("icon", mcp.Description("Emoji or image URL")),
		mcp.WithString("cover_url", mcp.Description("Cover image URL")),
		blocksOption(false),
	)
	s.AddTool(createEntryTool, common.Instrumented("notion_create_database_entry", instrumentation.ServiceNotion, "create entry", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			props, err := propertiesFromArgs(args)
			if err != nil {
				return common.InvalidArgument("create database entry", err), nil
			}
			blocks, err := blocksFromArgs(args)
			if err != nil {
				return common.InvalidArgument("create database entry", err), nil
			}
			return common.ToolResult(sc.Notion().CreateDatabaseEntry(ctx, notion.CreateEntryRequest{
				Account: common.AccountFromArgs(args),
				Draft: notion.EntryDraft{
					DatabaseID: common.String(args, "database_id"),
					Properties: props,
					Icon:       iconFromArgs(args),
					Cover:      coverFromArgs(args),
					Children:   blocks,
				},
			})), nil
		}))
}
