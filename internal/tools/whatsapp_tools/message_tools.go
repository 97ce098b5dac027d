package whatsapp_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
	"github.com/teemow/connectorhub/internal/whatsapp"
)

func mediaSourceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("media_id", mcp.Description("ID of previously uploaded media")),
		mcp.WithString("link", mcp.Description("Public http(s) URL of the media")),
		mcp.WithString("file_path", mcp.Description("Local file to upload and send")),
		mcp.WithString("data", mcp.Description("Base64 content to upload and send")),
		mcp.WithString("mime_type", mcp.Description("MIME type of uploaded content (detected when empty)")),
		mcp.WithString("caption", mcp.Description(fmt.Sprintf("Caption, up to %d characters", whatsapp.MaxCaptionLength))),
	}
}

func registerMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	sendTextTool := mcp.NewTool("whatsapp_send_text_message",
		mcp.WithDescription(fmt.Sprintf("Send a WhatsApp text message of up to %d characters", whatsapp.MaxTextLength)),
		accountOption(),
		toOption(),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithBoolean("preview_url", mcp.Description("Render a preview of the first URL in the text")),
		replyToOption(),
	)
	s.AddTool(sendTextTool, common.Instrumented("whatsapp_send_text_message", instrumentation.ServiceWhatsApp, "send message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			text, _ := args["text"].(string)
			return common.ToolResult(sc.WhatsApp().SendTextMessage(ctx, whatsapp.SendTextRequest{
				Account: common.AccountFromArgs(args),
				Draft: whatsapp.TextDraft{
					To:         common.String(args, "to"),
					Text:       text,
					PreviewURL: common.Bool(args, "preview_url", false),
					ReplyTo:    common.String(args, "reply_to"),
				},
			})), nil
		}))

	imageOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Send a WhatsApp image message"),
		accountOption(),
		toOption(),
		replyToOption(),
	}, mediaSourceOptions()...)
	s.AddTool(mcp.NewTool("whatsapp_send_image", imageOpts...),
		common.Instrumented("whatsapp_send_image", instrumentation.ServiceWhatsApp, "send message", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleSendMedia(ctx, request, sc, whatsapp.TypeImage)
			}))

	documentOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Send a WhatsApp document message"),
		accountOption(),
		toOption(),
		replyToOption(),
		mcp.WithString("filename", mcp.Description("File name shown to the recipient (default: the name of file_path)")),
	}, mediaSourceOptions()...)
	s.AddTool(mcp.NewTool("whatsapp_send_document", documentOpts...),
		common.Instrumented("whatsapp_send_document", instrumentation.ServiceWhatsApp, "send message", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleSendMedia(ctx, request, sc, whatsapp.TypeDocument)
			}))

	sendTemplateTool := mcp.NewTool("whatsapp_send_template",
		mcp.WithDescription("Send an approved WhatsApp message template. Required outside the 24 hour customer service window."),
		accountOption(),
		toOption(),
		mcp.WithString("template_name", mcp.Required(), mcp.Description("Template name")),
		mcp.WithString("language", mcp.Description("Template language code (default: en_US)")),
		mcp.WithArray("parameters", mcp.WithStringItems(), mcp.Description("Values of the body placeholders {{1}}, {{2}}, ... in order")),
	)
	s.AddTool(sendTemplateTool, common.Instrumented("whatsapp_send_template", instrumentation.ServiceWhatsApp, "send message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			params, err := common.StringList(args, "parameters")
			if err != nil {
				return common.InvalidArgument("send template message", err), nil
			}
			return common.ToolResult(sc.WhatsApp().SendTemplateMessage(ctx, whatsapp.SendTemplateRequest{
				Account: common.AccountFromArgs(args),
				Draft: whatsapp.TemplateDraft{
					To:         common.String(args, "to"),
					Name:       common.String(args, "template_name"),
					Language:   common.String(args, "language"),
					Parameters: params,
				},
			})), nil
		}))

	markReadTool := mcp.NewTool("whatsapp_mark_as_read",
		mcp.WithDescription("Mark a received WhatsApp message as read"),
		accountOption(),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("ID of the received message")),
	)
	s.AddTool(markReadTool, common.Instrumented("whatsapp_mark_as_read", instrumentation.ServiceWhatsApp, "mark read", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			return common.ToolResult(sc.WhatsApp().MarkAsRead(ctx, whatsapp.MarkReadRequest{
				Account:   common.AccountFromArgs(args),
				MessageID: common.String(args, "message_id"),
			})), nil
		}))
}

func handleSendMedia(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, mediaType string) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	op := "send media message"

	data, filename, err := mediaData(args)
	if err != nil {
		return common.InvalidArgument(op, err), nil
	}
	if name := common.String(args, "filename"); name != "" {
		filename = name
	}
	media := whatsapp.Media{
		Type:     mediaType,
		ID:       common.String(args, "media_id"),
		Link:     common.String(args, "link"),
		MimeType: common.String(args, "mime_type"),
		Caption:  common.String(args, "caption"),
	}
	if mediaType == whatsapp.TypeDocument {
		media.Filename = filename
	}

	return common.ToolResult(sc.WhatsApp().SendMediaMessage(ctx, whatsapp.SendMediaRequest{
		Account: common.AccountFromArgs(args),
		Draft: whatsapp.MediaDraft{
			To:      common.String(args, "to"),
			Media:   media,
			ReplyTo: common.String(args, "reply_to"),
		},
		Data: data,
	})), nil
}

// mediaData reads the content to upload from file_path or data. It
// returns nil when the media is referenced by id or link.
func mediaData(args map[string]any) ([]byte, string, error) {
	path := common.String(args, "file_path")
	encoded := common.String(args, "data")
	switch {
	case path != "" && encoded != "":
		return nil, "", fmt.Errorf("file_path and data are mutually exclusive")
	case path != "":
		info, err := os.Stat(path)
		if err != nil {
			return nil, "", fmt.Errorf("cannot read file_path: %w", err)
		}
		if info.Size() > whatsapp.MaxMediaSize {
			return nil, "", fmt.Errorf("file exceeds %d bytes", whatsapp.MaxMediaSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("cannot read file_path: %w", err)
		}
		return data, filepath.Base(path), nil
	case encoded != "":
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("data must be base64: %w", err)
		}
		return data, "", nil
	}
	return nil, "", nil
}
