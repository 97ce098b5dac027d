package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/server"
)

const (
	AccountsURI    = "accounts://connectors"
	accountsPrefix = "accounts://"
)

// RegisterAccountResources registers the account overview resource and a
// per-service template.
func RegisterAccountResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	overview := mcp.NewResource(
		AccountsURI,
		"Connector Accounts",
		mcp.WithResourceDescription("Registered accounts and the default account of every connector"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(overview, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summaries := make([]accounts.Summary, 0, len(sc.Connectors()))
		for _, c := range sc.Connectors() {
			summaries = append(summaries, c.Accounts.ListAccounts().Value)
		}
		return jsonContents(request.Params.URI, map[string]any{"connectors": summaries})
	})

	perService := mcp.NewResourceTemplate(
		accountsPrefix+"{service}",
		"Service Accounts",
		mcp.WithTemplateDescription("Registered accounts of one connector, e.g. accounts://gmail"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(perService, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		service := strings.TrimPrefix(request.Params.URI, accountsPrefix)
		c, ok := sc.Connector(service)
		if !ok {
			return nil, fmt.Errorf("unknown connector %q", service)
		}
		return jsonContents(request.Params.URI, c.Accounts.ListAccounts().Value)
	})
	return nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
