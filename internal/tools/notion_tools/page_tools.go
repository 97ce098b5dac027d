package notion_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/notion"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func registerPageTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	getPageTool := mcp.NewTool("notion_get_page",
		mcp.WithDescription("Get a Notion page with its properties"),
		accountOption(),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("The ID of the page")),
	)
	s.AddTool(getPageTool, common.Instrumented("notion_get_page", instrumentation.ServiceNotion, "get page", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			return common.ToolResult(sc.Notion().GetPage(ctx, notion.PageRequest{
				Account: common.AccountFromArgs(args),
				PageID:  common.String(args, "page_id"),
			})), nil
		}))

	searchTool := mcp.NewTool("notion_search_pages",
		mcp.WithDescription("Search the pages and databases shared with the integration"),
		accountOption(),
		mcp.WithString("query", mcp.Description("Text to search in titles (empty lists everything)")),
		mcp.WithString("filter_type", mcp.Enum(notion.ObjectPage, notion.ObjectDatabase), mcp.Description("Only return pages or only databases")),
		mcp.WithString("sort_direction", mcp.Enum(notion.SortAscending, notion.SortDescending), mcp.Description("Sort direction (default: descending)")),
		mcp.WithString("sort_timestamp", mcp.Enum(notion.SortLastEditedTime, notion.SortCreatedTime), mcp.Description("Sort timestamp (default: last_edited_time)")),
		mcp.WithNumber("page_size", mcp.Description(fmt.Sprintf("Results per page (default and max: %d)", notion.MaxPageSize))),
		mcp.WithString("start_cursor", mcp.Description("Cursor of the page to fetch, from a previous next_cursor")),
	)
	s.AddTool(searchTool, common.Instrumented("notion_search_pages", instrumentation.ServiceNotion, "search", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			pageSize, err := common.Int(args, "page_size", 0)
			if err != nil {
				return common.InvalidArgument("search pages", err), nil
			}
			return common.ToolResult(sc.Notion().SearchPages(ctx, notion.SearchRequest{
				Account: common.AccountFromArgs(args),
				Criteria: notion.SearchCriteria{
					Query:         common.String(args, "query"),
					FilterType:    common.String(args, "filter_type"),
					SortDirection: common.String(args, "sort_direction"),
					SortTimestamp: common.String(args, "sort_timestamp"),
					PageSize:      pageSize,
					StartCursor:   common.String(args, "start_cursor"),
				},
			})), nil
		}))

	if readOnly {
		return
	}

	createPageTool := mcp.NewTool("notion_create_page",
		mcp.WithDescription("Create a Notion page under a page, a database or the workspace"),
		accountOption(),
		mcp.WithString("parent_type",
			mcp.Enum(notion.ParentPage, notion.ParentDatabase, notion.ParentWorkspace),
			mcp.Description("Kind of parent (default: page_id)"),
		),
		mcp.WithString("parent_id", mcp.Description("ID of the parent page or database")),
		mcp.WithString("title", mcp.Description("Page title, used when no properties are given")),
		mcp.WithObject("properties", mcp.Description("Page properties in Notion API format")),
		mcp.WithString("icon", mcp.Description("Emoji or image URL")),
		mcp.WithString("cover_url", mcp.Description("Cover image URL")),
		blocksOption(false),
		mcp.WithString("text", mcp.Description("Plain text content; each line becomes a paragraph")),
	)
	s.AddTool(createPageTool, common.Instrumented("notion_create_page", instrumentation.ServiceNotion, "create page", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			props, err := propertiesFromArgs(args)
			if err != nil {
				return common.InvalidArgument("create page", err), nil
			}
			blocks, err := blocksFromArgs(args)
			if err != nil {
				return common.InvalidArgument("create page", err), nil
			}
			return common.ToolResult(sc.Notion().CreatePage(ctx, notion.CreatePageRequest{
				Account: common.AccountFromArgs(args),
				Draft: notion.PageDraft{
					ParentType: common.String(args, "parent_type"),
					ParentID:   common.String(args, "parent_id"),
					Title:      common.String(args, "title"),
					Properties: props,
					Icon:       iconFromArgs(args),
					Cover:      coverFromArgs(args),
					Children:   blocks,
				},
			})), nil
		}))

	updatePageTool := mcp.NewTool("notion_update_page",
		mcp.WithDescription("Update the title, properties, icon or cover of a Notion page, or archive it"),
		accountOption(),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("The ID of the page")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithObject("properties", mcp.Description("Properties to set, in Notion API format")),
		mcp.WithBoolean("archived", mcp.Description("Archive (true) or restore (false) the page")),
		mcp.WithString("icon", mcp.Description("Emoji or image URL")),
		mcp.WithString("cover_url", mcp.Description("Cover image URL")),
	)
	s.AddTool(updatePageTool, common.Instrumented("notion_update_page", instrumentation.ServiceNotion, "update page", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			props, err := propertiesFromArgs(args)
			if err != nil {
				return common.InvalidArgument("update page", err), nil
			}
			return common.ToolResult(sc.Notion().UpdatePage(ctx, notion.UpdatePageRequest{
				Account: common.AccountFromArgs(args),
				PageID:  common.String(args, "page_id"),
				Update: notion.PageUpdate{
					Title:      common.String(args, "title"),
					Properties: props,
					Archived:   common.OptionalBool(args, "archived"),
					Icon:       iconFromArgs(args),
					Cover:      coverFromArgs(args),
				},
			})), nil
		}))
}
