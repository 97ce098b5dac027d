package whatsapp_tools

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
		mcp.Description("WhatsApp business number account to use (default: the default WhatsApp account)"),
	)
}

func toOption() mcp.ToolOption {
	return mcp.WithString("to", mcp.Required(), mcp.Description("Recipient phone number in E.164 format, e.g. '+34600111222'"))
}

func replyToOption() mcp.ToolOption {
	return mcp.WithString("reply_to", mcp.Description("ID of the message to reply to"))
}

// RegisterWhatsAppTools registers all WhatsApp tools with the MCP server
func RegisterWhatsAppTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	c, ok := sc.Connector(config.ServiceWhatsApp)
	if !ok {
		return fmt.Errorf("whatsapp connector is not configured")
	}

	registerTemplateTools(s, sc)
	registerMediaTools(s, sc)
	if !readOnly {
		registerMessageTools(s, sc)
	}
	common.RegisterAccountTools(s, sc, common.AccountTools{
		Label:      "whatsapp",
		Connectors: map[string]*server.Connector{config.ServiceWhatsApp: c},
	}, readOnly)
	return nil
}
