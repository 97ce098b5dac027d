package holded_tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/holded"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func accountOption() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Holded account to use (default: the default Holded account)"),
	)
}

func maxResultsOption() mcp.ToolOption {
	return mcp.WithNumber("max_results",
		mcp.Description(fmt.Sprintf("Maximum number of records (default: %d, max: %d)", holded.DefaultMaxResults, holded.MaxResultsLimit)),
	)
}

func idOption(name, what string) mcp.ToolOption {
	return mcp.WithString(name, mcp.Required(), mcp.Description("The ID of the "+what))
}

// RegisterHoldedTools registers all Holded tools with the MCP server
func RegisterHoldedTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	c, ok := sc.Connector(config.ServiceHolded)
	if !ok {
		return fmt.Errorf("holded connector is not configured")
	}

	registerInvoiceTools(s, sc, readOnly)
	registerContactTools(s, sc, readOnly)
	registerProductTools(s, sc)
	registerTreasuryTools(s, sc, readOnly)
	registerLedgerTools(s, sc)
	common.RegisterAccountTools(s, sc, common.AccountTools{
		Label:      "holded",
		Connectors: map[string]*server.Connector{config.ServiceHolded: c},
	}, readOnly)
	return nil
}

func listRequest(args map[string]any) (holded.ListRequest, error) {
	n, err := common.Int(args, "max_results", 0)
	if err != nil {
		return holded.ListRequest{}, err
	}
	return holded.ListRequest{Account: common.AccountFromArgs(args), MaxResults: n}, nil
}

func idRequest(args map[string]any, key string) holded.IDRequest {
	return holded.IDRequest{Account: common.AccountFromArgs(args), ID: common.String(args, key)}
}
