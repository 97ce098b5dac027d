package gmail_tools

import (
	"context"
	"encoding/base64"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/gmail"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

type textAttachment struct {
	MessageID    string `json:"message_id"`
	AttachmentID string `json:"attachment_id"`
	Size         int64  `json:"size"`
	Text         string `json:"text"`
}

func registerAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getAttachmentTool := mcp.NewTool("get_email_attachment",
		mcp.WithDescription("Download the content of a Gmail attachment. Attachment ids are listed by get_email."),
		accountOption(),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("The ID of the Gmail message")),
		mcp.WithString("attachment_id", mcp.Required(), mcp.Description("The ID of the attachment")),
		mcp.WithString("encoding",
			mcp.Enum("base64", "text"),
			mcp.Description("Encoding format: 'base64' (default) or 'text' for text attachments such as .ics or .csv"),
		),
	)

	s.AddTool(getAttachmentTool, common.Instrumented("get_email_attachment", instrumentation.ServiceGmail, "get attachment", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			messageID, err := common.RequiredString(args, "message_id")
			if err != nil {
				return common.InvalidArgument("get email attachment", err), nil
			}
			attachmentID, err := common.RequiredString(args, "attachment_id")
			if err != nil {
				return common.InvalidArgument("get email attachment", err), nil
			}

			res := sc.Gmail().GetAttachment(ctx, gmail.AttachmentRequest{
				Account:      common.AccountFromArgs(args),
				MessageID:    messageID,
				AttachmentID: attachmentID,
			})
			if common.String(args, "encoding") != "text" || !res.Success {
				return common.ToolResult(res), nil
			}
			return common.ToolResult(asText(res.Value)), nil
		}))
}

func asText(a gmail.AttachmentResponse) connector.Result[textAttachment] {
	return connector.Run("get email attachment", func() (textAttachment, error) {
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return textAttachment{}, connector.NewMalformedResponseError("attachment data", err)
		}
		if !utf8.Valid(data) {
			return textAttachment{}, connector.Invalidf("attachment is not text; use encoding 'base64'")
		}
		return textAttachment{
			MessageID:    a.MessageID,
			AttachmentID: a.AttachmentID,
			Size:         a.Size,
			Text:         string(data),
		}, nil
	})
}
