package holded_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/holded"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

var docTypeEnum = []string{
	holded.DocInvoice, holded.DocSalesReceipt, holded.DocCreditNote, holded.DocEstimate,
	holded.DocProforma, holded.DocSalesOrder, holded.DocPurchase,
}

func docTypeOption() mcp.ToolOption {
	return mcp.WithString("doc_type", mcp.Enum(docTypeEnum...), mcp.Description("Document type (default: invoice)"))
}

func registerInvoiceTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	getInvoiceTool := mcp.NewTool("holded_get_invoice",
		mcp.WithDescription("Get a Holded invoice or other document with its lines and totals"),
		accountOption(),
		idOption("invoice_id", "document"),
		docTypeOption(),
	)
	s.AddTool(getInvoiceTool, common.Instrumented("holded_get_invoice", instrumentation.ServiceHolded, "get document", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			return common.ToolResult(sc.Holded().GetInvoice(ctx, holded.GetInvoiceRequest{
				Account:   common.AccountFromArgs(args),
				InvoiceID: common.String(args, "invoice_id"),
				DocType:   common.String(args, "doc_type"),
			})), nil
		}))

	listInvoicesTool := mcp.NewTool("holded_list_invoices",
		mcp.WithDescription("List Holded invoices or other documents"),
		accountOption(),
		docTypeOption(),
		mcp.WithString("contact_id", mcp.Description("Only documents of this contact")),
		mcp.WithString("status", mcp.Enum(holded.StatusUnpaid, holded.StatusPaid, holded.StatusOverdue), mcp.Description("Payment status")),
		mcp.WithString("from", mcp.Description("Documents dated on or after this day (YYYY-MM-DD)")),
		mcp.WithString("to", mcp.Description("Documents dated on or before this day (YYYY-MM-DD)")),
		maxResultsOption(),
	)
	s.AddTool(listInvoicesTool, common.Instrumented("holded_list_invoices", instrumentation.ServiceHolded, "list documents", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			from, err := holded.ParseDate("from", common.String(args, "from"))
			if err != nil {
				return common.InvalidArgument("list invoices", err), nil
			}
			to, err := holded.ParseDate("to", common.String(args, "to"))
			if err != nil {
				return common.InvalidArgument("list invoices", err), nil
			}
			n, err := common.Int(args, "max_results", 0)
			if err != nil {
				return common.InvalidArgument("list invoices", err), nil
			}
			return common.ToolResult(sc.Holded().ListInvoices(ctx, holded.ListInvoicesRequest{
				Account: common.AccountFromArgs(args),
				Criteria: holded.InvoiceCriteria{
					DocType:    common.String(args, "doc_type"),
					ContactID:  common.String(args, "contact_id"),
					Status:     common.String(args, "status"),
					From:       from,
					To:         to,
					MaxResults: n,
				},
			})), nil
		}))

	if readOnly {
		return
	}

	createInvoiceTool := mcp.NewTool("holded_create_invoice",
		mcp.WithDescription("Create a Holded invoice or other document for a contact"),
		accountOption(),
		mcp.WithString("contact_id", mcp.Required(), mcp.Description("The ID of the contact to invoice")),
		docTypeOption(),
		mcp.WithArray("items", mcp.Required(), mcp.Description(
			"Lines as objects with name, description, quantity (default 1), price (net unit price), tax_rate (percent), discount (percent) and product_id",
		)),
		mcp.WithString("date", mcp.Description("Document date (YYYY-MM-DD, default: today)")),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
		mcp.WithString("notes", mcp.Description("Notes printed on the document")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
		mcp.WithString("payment_method", mcp.Description("Holded payment method id")),
		mcp.WithString("currency", mcp.Description("ISO currency code, e.g. 'EUR'")),
	)
	s.AddTool(createInvoiceTool, common.Instrumented("holded_create_invoice", instrumentation.ServiceHolded, "create document", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			var items []holded.Item
			if _, err := common.Decode(args, "items", &items); err != nil {
				return common.InvalidArgument("create invoice", err), nil
			}
			date, err := holded.ParseDate("date", common.String(args, "date"))
			if err != nil {
				return common.InvalidArgument("create invoice", err), nil
			}
			due, err := holded.ParseDate("due_date", common.String(args, "due_date"))
			if err != nil {
				return common.InvalidArgument("create invoice", err), nil
			}
			tags, err := common.StringList(args, "tags")
			if err != nil {
				return common.InvalidArgument("create invoice", err), nil
			}
			return common.ToolResult(sc.Holded().CreateInvoice(ctx, holded.CreateInvoiceRequest{
				Account: common.AccountFromArgs(args),
				Draft: holded.InvoiceDraft{
					ContactID:     common.String(args, "contact_id"),
					DocType:       common.String(args, "doc_type"),
					Date:          date,
					DueDate:       due,
					Items:         items,
					Notes:         common.String(args, "notes"),
					Tags:          tags,
					PaymentMethod: common.String(args, "payment_method"),
					Currency:      common.String(args, "currency"),
				},
			})), nil
		}))
}
