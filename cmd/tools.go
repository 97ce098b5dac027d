package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/resources"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/calendar_tools"
	"github.com/teemow/connectorhub/internal/tools/gmail_tools"
	"github.com/teemow/connectorhub/internal/tools/holded_tools"
	"github.com/teemow/connectorhub/internal/tools/notion_tools"
	"github.com/teemow/connectorhub/internal/tools/whatsapp_tools"
)

func newMCPServer(sc *server.ServerContext) *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("connectorhub", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithRecovery(),
		mcpserver.WithHooks(sc.SessionHooks()),
	)
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Gmail",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Notion",
			register: func() error {
				return notion_tools.RegisterNotionTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Holded",
			register: func() error {
				return holded_tools.RegisterHoldedTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "WhatsApp",
			register: func() error {
				return whatsapp_tools.RegisterWhatsAppTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Account Resources",
			register: func() error {
				return resources.RegisterAccountResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
