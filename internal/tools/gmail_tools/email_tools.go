package gmail_tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/gmail"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/batch"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func registerEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	searchTool := mcp.NewTool("search_emails",
		mcp.WithDescription("Search Gmail messages. Criteria are combined into a Gmail query."),
		accountOption(),
		mcp.WithString("query", mcp.Description("Free text or raw Gmail query, e.g. 'invoice newer_than:7d'")),
		mcp.WithString("from", mcp.Description("Sender address or name")),
		mcp.WithString("to", mcp.Description("Recipient address or name")),
		mcp.WithString("subject", mcp.Description("Words in the subject")),
		mcp.WithBoolean("has_attachment", mcp.Description("Only messages with attachments")),
		mcp.WithBoolean("is_unread", mcp.Description("Only unread messages")),
		mcp.WithString("label", mcp.Description("Label name, e.g. 'INBOX' or 'Work'")),
		mcp.WithString("after", mcp.Description("Messages after this date (YYYY-MM-DD or RFC 3339)")),
		mcp.WithString("before", mcp.Description("Messages before this date (YYYY-MM-DD or RFC 3339)")),
		mcp.WithNumber("max_results", mcp.Description(fmt.Sprintf("Maximum number of messages (default: %d)", gmail.DefaultMaxResults))),
		mcp.WithString("page_token", mcp.Description("Token of the page to fetch, from a previous next_page_token")),
	)
	s.AddTool(searchTool, common.Instrumented("search_emails", instrumentation.ServiceGmail, "search messages", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchEmails(ctx, request, sc)
		}))

	getTool := mcp.NewTool("get_email",
		mcp.WithDescription("Get a Gmail message with headers, text and HTML bodies and attachment metadata"),
		accountOption(),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("The ID of the Gmail message")),
	)
	s.AddTool(getTool, common.Instrumented("get_email", instrumentation.ServiceGmail, "get message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			id, err := common.RequiredString(args, "message_id")
			if err != nil {
				return common.InvalidArgument("get email", err), nil
			}
			return common.ToolResult(sc.Gmail().GetEmail(ctx, gmail.MessageRequest{
				Account:   common.AccountFromArgs(args),
				MessageID: id,
			})), nil
		}))

	if readOnly {
		return
	}

	sendTool := mcp.NewTool("send_email",
		mcp.WithDescription("Send an email through Gmail"),
		accountOption(),
		mcp.WithArray("to", mcp.Required(), mcp.WithStringItems(), mcp.Description("Recipient addresses")),
		mcp.WithArray("cc", mcp.WithStringItems(), mcp.Description("CC addresses")),
		mcp.WithArray("bcc", mcp.WithStringItems(), mcp.Description("BCC addresses")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Email subject")),
		mcp.WithString("body_text", mcp.Description("Plain text body")),
		mcp.WithString("body_html", mcp.Description("HTML body. With body_text the message is multipart/alternative.")),
		mcp.WithArray("attachments", mcp.Description("Attachments as objects with filename, mime_type and base64 data")),
		mcp.WithString("in_reply_to", mcp.Description("Message-ID header of the message being answered")),
		mcp.WithString("thread_id", mcp.Description("Gmail thread to add the message to")),
	)
	s.AddTool(sendTool, common.Instrumented("send_email", instrumentation.ServiceGmail, "send message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc)
		}))

	messageIDs := mcp.WithArray("message_ids",
		mcp.Required(),
		mcp.WithStringItems(),
		mcp.Description("Message ID or array of message IDs"),
	)

	readTool := mcp.NewTool("mark_email_as_read",
		mcp.WithDescription("Mark one or more Gmail messages as read"),
		accountOption(),
		messageIDs,
	)
	s.AddTool(readTool, common.Instrumented("mark_email_as_read", instrumentation.ServiceGmail, "modify message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleModify(ctx, request, "mark email as read", sc.Gmail().MarkAsRead)
		}))

	unreadTool := mcp.NewTool("mark_email_as_unread",
		mcp.WithDescription("Mark one or more Gmail messages as unread"),
		accountOption(),
		messageIDs,
	)
	s.AddTool(unreadTool, common.Instrumented("mark_email_as_unread", instrumentation.ServiceGmail, "modify message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleModify(ctx, request, "mark email as unread", sc.Gmail().MarkAsUnread)
		}))

	labelTool := mcp.NewTool("add_email_label",
		mcp.WithDescription("Add an existing label to one or more Gmail messages. Labels are matched by name or id and never created."),
		accountOption(),
		messageIDs,
		mcp.WithString("label", mcp.Required(), mcp.Description("Label name or id, e.g. 'STARRED' or 'Clients/Acme'")),
	)
	s.AddTool(labelTool, common.Instrumented("add_email_label", instrumentation.ServiceGmail, "modify message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			label, err := common.RequiredString(args, "label")
			if err != nil {
				return common.InvalidArgument("add email label", err), nil
			}
			return handleModify(ctx, request, "add email label", func(ctx context.Context, req gmail.MessageRequest) connector.Result[gmail.LabelResponse] {
				return sc.Gmail().AddLabel(ctx, gmail.AddLabelRequest{Account: req.Account, MessageID: req.MessageID, Label: label})
			})
		}))
}

func handleSearchEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	after, err := common.Time(args, "after")
	if err != nil {
		return common.InvalidArgument("search emails", err), nil
	}
	before, err := common.Time(args, "before")
	if err != nil {
		return common.InvalidArgument("search emails", err), nil
	}
	maxResults, err := common.Int(args, "max_results", gmail.DefaultMaxResults)
	if err != nil {
		return common.InvalidArgument("search emails", err), nil
	}

	return common.ToolResult(sc.Gmail().SearchEmails(ctx, gmail.SearchRequest{
		Account: common.AccountFromArgs(args),
		Criteria: gmail.Criteria{
			Query:         common.String(args, "query"),
			From:          common.String(args, "from"),
			To:            common.String(args, "to"),
			Subject:       common.String(args, "subject"),
			HasAttachment: common.Bool(args, "has_attachment", false),
			IsUnread:      common.Bool(args, "is_unread", false),
			Label:         common.String(args, "label"),
			After:         after,
			Before:        before,
		},
		MaxResults: int64(maxResults),
		PageToken:  common.String(args, "page_token"),
	})), nil
}

type attachmentArg struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	to, err := common.StringList(args, "to")
	if err != nil {
		return common.InvalidArgument("send email", err), nil
	}
	if len(to) == 0 {
		return common.InvalidArgument("send email", fmt.Errorf("to is required")), nil
	}
	cc, err := common.StringList(args, "cc")
	if err != nil {
		return common.InvalidArgument("send email", err), nil
	}
	bcc, err := common.StringList(args, "bcc")
	if err != nil {
		return common.InvalidArgument("send email", err), nil
	}

	var raw []attachmentArg
	if _, err := common.Decode(args, "attachments", &raw); err != nil {
		return common.InvalidArgument("send email", err), nil
	}
	attachments := make([]gmail.Attachment, 0, len(raw))
	for i, a := range raw {
		if a.Filename == "" {
			return common.InvalidArgument("send email", fmt.Errorf("attachments[%d].filename is required", i)), nil
		}
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return common.InvalidArgument("send email", fmt.Errorf("attachments[%d].data must be base64: %w", i, err)), nil
		}
		attachments = append(attachments, gmail.Attachment{
			Filename: a.Filename,
			MimeType: a.MimeType,
			Size:     int64(len(data)),
			Data:     data,
		})
	}

	return common.ToolResult(sc.Gmail().SendEmail(ctx, gmail.SendRequest{
		Account:     common.AccountFromArgs(args),
		To:          to,
		Cc:          cc,
		Bcc:         bcc,
		Subject:     common.String(args, "subject"),
		BodyText:    stringArg(args, "body_text"),
		BodyHTML:    stringArg(args, "body_html"),
		Attachments: attachments,
		InReplyTo:   common.String(args, "in_reply_to"),
		ThreadID:    common.String(args, "thread_id"),
	})), nil
}

// stringArg returns a string argument untrimmed; bodies keep their
// whitespace.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// handleModify applies a label change to every message in message_ids. A
// single id renders the use case Result; several render a batch summary.
func handleModify(ctx context.Context, request mcp.CallToolRequest, op string,
	modify func(context.Context, gmail.MessageRequest) connector.Result[gmail.LabelResponse],
) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ids, err := batch.ParseStringOrArray(args["message_ids"], "message_ids")
	if err != nil {
		return common.InvalidArgument(op, err), nil
	}
	account := common.AccountFromArgs(args)

	if len(ids) == 1 {
		return common.ToolResult(modify(ctx, gmail.MessageRequest{Account: account, MessageID: ids[0]})), nil
	}
	br := batch.Process(ids, func(id string) connector.Result[gmail.LabelResponse] {
		return modify(ctx, gmail.MessageRequest{Account: account, MessageID: id})
	})
	out := mcp.NewToolResultText(batch.Format(br))
	out.IsError = br.Successful == 0
	return out, nil
}
