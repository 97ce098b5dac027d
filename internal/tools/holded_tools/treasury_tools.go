package holded_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/holded"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func registerTreasuryTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listTool := mcp.NewTool("holded_list_treasury_accounts",
		mcp.WithDescription("List Holded bank and cash accounts with their balances"),
		accountOption(),
		maxResultsOption(),
	)
	s.AddTool(listTool, common.Instrumented("holded_list_treasury_accounts", instrumentation.ServiceHolded, "list treasury", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			req, err := listRequest(request.GetArguments())
			if err != nil {
				return common.InvalidArgument("list treasury accounts", err), nil
			}
			return common.ToolResult(sc.Holded().ListTreasuryAccounts(ctx, req)), nil
		}))

	getTool := mcp.NewTool("holded_get_treasury_account",
		mcp.WithDescription("Get a Holded treasury account"),
		accountOption(),
		idOption("treasury_id", "treasury account"),
	)
	s.AddTool(getTool, common.Instrumented("holded_get_treasury_account", instrumentation.ServiceHolded, "get treasury", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return common.ToolResult(sc.Holded().GetTreasuryAccount(ctx, idRequest(request.GetArguments(), "treasury_id"))), nil
		}))

	if readOnly {
		return
	}

	createTool := mcp.NewTool("holded_create_treasury_account",
		mcp.WithDescription("Create a Holded bank or cash account"),
		accountOption(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Account name")),
		mcp.WithString("type", mcp.Enum(holded.TreasuryBank, holded.TreasuryCash, holded.TreasuryOther), mcp.Description("Account type (default: bank)")),
		mcp.WithString("iban", mcp.Description("IBAN")),
		mcp.WithString("swift", mcp.Description("SWIFT/BIC code")),
		mcp.WithString("bank_name", mcp.Description("Bank name")),
		mcp.WithString("accounting_account_number", mcp.Description("Ledger account number, e.g. '572000'")),
		mcp.WithNumber("initial_balance", mcp.Description("Opening balance")),
		mcp.WithString("notes", mcp.Description("Notes")),
	)
	s.AddTool(createTool, common.Instrumented("holded_create_treasury_account", instrumentation.ServiceHolded, "create treasury", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			balance, _, err := common.Float(args, "initial_balance")
			if err != nil {
				return common.InvalidArgument("create treasury account", err), nil
			}
			return common.ToolResult(sc.Holded().CreateTreasuryAccount(ctx, holded.CreateTreasuryRequest{
				Account: common.AccountFromArgs(args),
				Draft: holded.TreasuryDraft{
					Name:                    common.String(args, "name"),
					Type:                    common.String(args, "type"),
					IBAN:                    common.String(args, "iban"),
					SWIFT:                   common.String(args, "swift"),
					BankName:                common.String(args, "bank_name"),
					AccountingAccountNumber: common.String(args, "accounting_account_number"),
					InitialBalance:          balance,
					Notes:                   common.String(args, "notes"),
				},
			})), nil
		}))
}

type ledgerTools struct {
	kind string
	list func(*holded.Service, context.Context, holded.ListRequest) connector.Result[holded.ListLedgerResponse]
	get  func(*holded.Service, context.Context, holded.IDRequest) connector.Result[holded.LedgerResponse]
}

func registerLedgerTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	for _, lt := range []ledgerTools{
		{kind: "expense", list: (*holded.Service).ListExpenseAccounts, get: (*holded.Service).GetExpenseAccount},
		{kind: "income", list: (*holded.Service).ListIncomeAccounts, get: (*holded.Service).GetIncomeAccount},
	} {
		listName := "holded_list_" + lt.kind + "_accounts"
		listTool := mcp.NewTool(listName,
			mcp.WithDescription("List the "+lt.kind+" accounts of the Holded chart of accounts"),
			accountOption(),
			maxResultsOption(),
		)
		s.AddTool(listTool, common.Instrumented(listName, instrumentation.ServiceHolded, "list "+lt.kind+" accounts", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				req, err := listRequest(request.GetArguments())
				if err != nil {
					return common.InvalidArgument("list "+lt.kind+" accounts", err), nil
				}
				return common.ToolResult(lt.list(sc.Holded(), ctx, req)), nil
			}))

		getName := "holded_get_" + lt.kind + "_account"
		getTool := mcp.NewTool(getName,
			mcp.WithDescription("Get a Holded "+lt.kind+" account"),
			accountOption(),
			idOption("account_id", lt.kind+" account"),
		)
		s.AddTool(getTool, common.Instrumented(getName, instrumentation.ServiceHolded, "get "+lt.kind+" account", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return common.ToolResult(lt.get(sc.Holded(), ctx, idRequest(request.GetArguments(), "account_id"))), nil
			}))
	}
}
