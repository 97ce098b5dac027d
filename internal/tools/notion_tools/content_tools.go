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

func registerContentTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	getContentTool := mcp.NewTool("notion_get_page_content",
		mcp.WithDescription("Get the content blocks of a Notion page or block"),
		accountOption(),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("The ID of the page or block")),
		mcp.WithBoolean("recursive", mcp.Description("Also fetch the children of nested blocks")),
		mcp.WithNumber("depth", mcp.Description(fmt.Sprintf("Nesting levels to fetch when recursive (default: %d, max: %d)", notion.DefaultContentDepth, notion.MaxContentDepth))),
		mcp.WithNumber("page_size", mcp.Description("Blocks per page (default and max: 100)")),
		mcp.WithString("start_cursor", mcp.Description("Cursor of the page to fetch")),
	)
	s.AddTool(getContentTool, common.Instrumented("notion_get_page_content", instrumentation.ServiceNotion, "get block children", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			depth, err := common.Int(args, "depth", 0)
			if err != nil {
				return common.InvalidArgument("get page content", err), nil
			}
			pageSize, err := common.Int(args, "page_size", 0)
			if err != nil {
				return common.InvalidArgument("get page content", err), nil
			}
			return common.ToolResult(sc.Notion().GetPageContent(ctx, notion.ContentRequest{
				Account:     common.AccountFromArgs(args),
				PageID:      common.String(args, "page_id"),
				PageSize:    pageSize,
				StartCursor: common.String(args, "start_cursor"),
				Recursive:   common.Bool(args, "recursive", false),
				Depth:       depth,
			})), nil
		}))

	if readOnly {
		return
	}

	appendTool := mcp.NewTool("notion_append_content",
		mcp.WithDescription(fmt.Sprintf("Append up to %d blocks to a Notion page or block", notion.MaxAppendBlocks)),
		accountOption(),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("The ID of the page or block")),
		blocksOption(false),
		mcp.WithString("text", mcp.Description("Plain text content; each line becomes a paragraph")),
	)
	s.AddTool(appendTool, common.Instrumented("notion_append_content", instrumentation.ServiceNotion, "append block children", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			blocks, err := blocksFromArgs(args)
			if err != nil {
				return common.InvalidArgument("append content", err), nil
			}
			return common.ToolResult(sc.Notion().AppendContent(ctx, notion.AppendRequest{
				Account: common.AccountFromArgs(args),
				PageID:  common.String(args, "page_id"),
				Blocks:  blocks,
			})), nil
		}))

	updateBlockTool := mcp.NewTool("notion_update_block",
		mcp.WithDescription("Replace the content of a block or archive it"),
		accountOption(),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("The ID of the block")),
		mcp.WithString("type", mcp.Description("Block type, e.g. 'paragraph'")),
		mcp.WithString("text", mcp.Description("New plain text of a text block")),
		mcp.WithObject("content", mcp.Description("Type specific content object in Notion API format, used instead of text")),
		mcp.WithBoolean("archived", mcp.Description("Archive (true) or restore (false) the block")),
	)
	s.AddTool(updateBlockTool, common.Instrumented("notion_update_block", instrumentation.ServiceNotion, "update block", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			var content map[string]any
			if _, err := common.Decode(args, "content", &content); err != nil {
				return common.InvalidArgument("update block", err), nil
			}
			if content == nil {
				if text, ok := args["text"].(string); ok {
					content = map[string]any{"rich_text": notion.Text(text)}
				}
			}
			return common.ToolResult(sc.Notion().UpdateBlock(ctx, notion.UpdateBlockRequest{
				Account:  common.AccountFromArgs(args),
				BlockID:  common.String(args, "block_id"),
				Type:     common.String(args, "type"),
				Content:  content,
				Archived: common.OptionalBool(args, "archived"),
			})), nil
		}))

	deleteBlockTool := mcp.NewTool("notion_delete_block",
		mcp.WithDescription("Delete (archive) a block"),
		accountOption(),
		mcp.WithString("block_id", mcp.Required(), mcp.Description("The ID of the block")),
	)
	s.AddTool(deleteBlockTool, common.Instrumented("notion_delete_block", instrumentation.ServiceNotion, "delete block", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			return common.ToolResult(sc.Notion().DeleteBlock(ctx, notion.BlockRequest{
				Account: common.AccountFromArgs(args),
				BlockID: common.String(args, "block_id"),
			})), nil
		}))
}
