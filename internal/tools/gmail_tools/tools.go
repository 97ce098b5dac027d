package gmail_tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func accountOption() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Gmail account to use (default: the default Gmail account)"),
	)
}

// RegisterGmailTools registers all Gmail-related tools with the MCP server
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	c, ok := sc.Connector(config.ServiceGmail)
	if !ok {
		return fmt.Errorf("gmail connector is not configured")
	}

	registerEmailTools(s, sc, readOnly)
	registerAttachmentTools(s, sc)
	common.RegisterAccountTools(s, sc, common.AccountTools{
		Label:      "gmail",
		Connectors: map[string]*server.Connector{config.ServiceGmail: c},
	}, readOnly)
	return nil
}
