package whatsapp_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
	"github.com/teemow/connectorhub/internal/whatsapp"
)

func registerMediaTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	downloadTool := mcp.NewTool("whatsapp_download_media",
		mcp.WithDescription(fmt.Sprintf(
			"Download the media of a received WhatsApp message. Content up to %d bytes is returned as base64; larger files need save_path.",
			whatsapp.MaxInlineMedia,
		)),
		accountOption(),
		mcp.WithString("media_id", mcp.Required(), mcp.Description("Media ID from the received message")),
		mcp.WithString("save_path", mcp.Description("Write the media to this local path instead of returning it")),
	)

	s.AddTool(downloadTool, common.Instrumented("whatsapp_download_media", instrumentation.ServiceWhatsApp, "download media", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			return common.ToolResult(sc.WhatsApp().DownloadMedia(ctx, whatsapp.DownloadMediaRequest{
				Account:  common.AccountFromArgs(args),
				MediaID:  common.String(args, "media_id"),
				SavePath: common.String(args, "save_path"),
			})), nil
		}))
}
