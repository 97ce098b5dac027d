package notion_tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/notion"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func accountOption() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Notion workspace account to use (default: the default Notion account)"),
	)
}

func blocksOption(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description(
		"Blocks as objects with type (paragraph, heading_1..3, bulleted_list_item, numbered_list_item, to_do, " +
			"toggle, quote, callout, code, divider, table_of_contents, bookmark, image), text, and optional " +
			"level, checked, language, url, caption, icon, children, or a raw Notion content object",
	)}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithArray("blocks", opts...)
}

// RegisterNotionTools registers all Notion tools with the MCP server
func RegisterNotionTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	c, ok := sc.Connector(config.ServiceNotion)
	if !ok {
		return fmt.Errorf("notion connector is not configured")
	}

	registerPageTools(s, sc, readOnly)
	registerDatabaseTools(s, sc, readOnly)
	registerContentTools(s, sc, readOnly)
	common.RegisterAccountTools(s, sc, common.AccountTools{
		Label:      "notion",
		Connectors: map[string]*server.Connector{config.ServiceNotion: c},
	}, readOnly)
	return nil
}

// blocksFromArgs reads "blocks". A plain "text" argument adds one paragraph
// per non-empty line after the blocks.
func blocksFromArgs(args map[string]any) ([]notion.BlockDraft, error) {
	var specs []notion.BlockSpec
	if _, err := common.Decode(args, "blocks", &specs); err != nil {
		return nil, err
	}
	drafts, err := notion.Drafts(specs)
	if err != nil {
		return nil, err
	}
	if text, ok := args["text"].(string); ok {
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) != "" {
				drafts = append(drafts, notion.Paragraph(line))
			}
		}
	}
	return drafts, nil
}

func propertiesFromArgs(args map[string]any) (map[string]json.RawMessage, error) {
	var props map[string]json.RawMessage
	if _, err := common.Decode(args, "properties", &props); err != nil {
		return nil, err
	}
	return props, nil
}

// iconFromArgs accepts an emoji or an image URL.
func iconFromArgs(args map[string]any) json.RawMessage {
	icon := common.String(args, "icon")
	if icon == "" {
		return nil
	}
	if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		return externalFile(icon)
	}
	raw, _ := json.Marshal(map[string]any{"type": "emoji", "emoji": icon})
	return raw
}

func coverFromArgs(args map[string]any) json.RawMessage {
	cover := common.String(args, "cover_url")
	if cover == "" {
		return nil
	}
	return externalFile(cover)
}

func externalFile(url string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{"type": "external", "external": map[string]any{"url": url}})
	return raw
}
