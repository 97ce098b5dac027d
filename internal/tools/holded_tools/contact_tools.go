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

var contactTypeEnum = []string{
	holded.ContactClient, holded.ContactSupplier, holded.ContactLead, holded.ContactDebtor, holded.ContactCreditor,
}

func registerContactTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	getContactTool := mcp.NewTool("holded_get_contact",
		mcp.WithDescription("Get a Holded contact"),
		accountOption(),
		idOption("contact_id", "contact"),
	)
	s.AddTool(getContactTool, common.Instrumented("holded_get_contact", instrumentation.ServiceHolded, "get contact", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return common.ToolResult(sc.Holded().GetContact(ctx, idRequest(request.GetArguments(), "contact_id"))), nil
		}))

	listContactsTool := mcp.NewTool("holded_list_contacts",
		mcp.WithDescription("List Holded contacts"),
		accountOption(),
		mcp.WithString("type", mcp.Enum(contactTypeEnum...), mcp.Description("Only contacts of this type")),
		maxResultsOption(),
	)
	s.AddTool(listContactsTool, common.Instrumented("holded_list_contacts", instrumentation.ServiceHolded, "list contacts", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			n, err := common.Int(args, "max_results", 0)
			if err != nil {
				return common.InvalidArgument("list contacts", err), nil
			}
			return common.ToolResult(sc.Holded().ListContacts(ctx, holded.ListContactsRequest{
				Account:    common.AccountFromArgs(args),
				Type:       common.String(args, "type"),
				MaxResults: n,
			})), nil
		}))

	if readOnly {
		return
	}

	addressDesc := "Object with street, city, province, postal_code and country"
	createContactTool := mcp.NewTool("holded_create_contact",
		mcp.WithDescription("Create a Holded contact"),
		accountOption(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Contact or company name")),
		mcp.WithString("type", mcp.Enum(contactTypeEnum...), mcp.Description("Contact type (default: client)")),
		mcp.WithString("code", mcp.Description("Internal contact code")),
		mcp.WithString("email", mcp.Description("Email address")),
		mcp.WithString("phone", mcp.Description("Phone number")),
		mcp.WithString("mobile", mcp.Description("Mobile number")),
		mcp.WithString("vat_number", mcp.Description("VAT or tax id")),
		mcp.WithObject("billing_address", mcp.Description("Billing address. "+addressDesc)),
		mcp.WithObject("shipping_address", mcp.Description("Shipping address. "+addressDesc)),
		mcp.WithString("notes", mcp.Description("Notes")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
	)
	s.AddTool(createContactTool, common.Instrumented("holded_create_contact", instrumentation.ServiceHolded, "create contact", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			var billing, shipping *holded.Address
			if _, err := common.Decode(args, "billing_address", &billing); err != nil {
				return common.InvalidArgument("create contact", err), nil
			}
			if _, err := common.Decode(args, "shipping_address", &shipping); err != nil {
				return common.InvalidArgument("create contact", err), nil
			}
			tags, err := common.StringList(args, "tags")
			if err != nil {
				return common.InvalidArgument("create contact", err), nil
			}
			return common.ToolResult(sc.Holded().CreateContact(ctx, holded.CreateContactRequest{
				Account: common.AccountFromArgs(args),
				Draft: holded.ContactDraft{
					Name:            common.String(args, "name"),
					Type:            common.String(args, "type"),
					Code:            common.String(args, "code"),
					Email:           common.String(args, "email"),
					Phone:           common.String(args, "phone"),
					Mobile:          common.String(args, "mobile"),
					VATNumber:       common.String(args, "vat_number"),
					BillingAddress:  billing,
					ShippingAddress: shipping,
					Notes:           common.String(args, "notes"),
					Tags:            tags,
				},
			})), nil
		}))
}

func registerProductTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listProductsTool := mcp.NewTool("holded_list_products",
		mcp.WithDescription("List Holded products and services"),
		accountOption(),
		mcp.WithBoolean("active_only", mcp.Description("Only active products (default: true)")),
		maxResultsOption(),
	)
	s.AddTool(listProductsTool, common.Instrumented("holded_list_products", instrumentation.ServiceHolded, "list products", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			n, err := common.Int(args, "max_results", 0)
			if err != nil {
				return common.InvalidArgument("list products", err), nil
			}
			return common.ToolResult(sc.Holded().ListProducts(ctx, holded.ListProductsRequest{
				Account:    common.AccountFromArgs(args),
				ActiveOnly: common.Bool(args, "active_only", true),
				MaxResults: n,
			})), nil
		}))

	getProductTool := mcp.NewTool("holded_get_product",
		mcp.WithDescription("Get a Holded product"),
		accountOption(),
		idOption("product_id", "product"),
	)
	s.AddTool(getProductTool, common.Instrumented("holded_get_product", instrumentation.ServiceHolded, "get product", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return common.ToolResult(sc.Holded().GetProduct(ctx, idRequest(request.GetArguments(), "product_id"))), nil
		}))
}
