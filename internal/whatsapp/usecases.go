package whatsapp

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

// Template listing limits.
const (
	DefaultTemplateLimit = 50
	MaxTemplateLimit     = 250
)

// MaxInlineMedia bounds downloads returned in the result instead of being
// written to a file.
const MaxInlineMedia = 5 << 20

// Service holds the WhatsApp use cases.
type Service struct {
	accounts *accounts.Manager[API]
}

func NewService(m *accounts.Manager[API]) *Service {
	return &Service{accounts: m}
}

// Accounts returns the account manager.
func (s *Service) Accounts() *accounts.Manager[API] { return s.accounts }

// SentResponse identifies a sent message.
type SentResponse struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	MediaID   string `json:"media_id,omitempty"`
}

func (s *Service) send(ctx context.Context, account string, body *MessageBody) (SentResponse, error) {
	c, err := s.accounts.Resolve(ctx, account)
	if err != nil {
		return SentResponse{}, err
	}
	res, err := c.SendMessage(ctx, body)
	if err != nil {
		return SentResponse{}, err
	}
	id, err := SentMessageID(res)
	if err != nil {
		return SentResponse{}, err
	}
	return SentResponse{MessageID: id, To: "+" + body.To}, nil
}

// SendTextRequest is the input of SendTextMessage.
type SendTextRequest struct {
	Account string
	Draft   TextDraft
}

func (s *Service) SendTextMessage(ctx context.Context, req SendTextRequest) connector.Result[SentResponse] {
	return connector.Run("send text message", func() (SentResponse, error) {
		body, err := FromTextDraft(req.Draft)
		if err != nil {
			return SentResponse{}, err
		}
		return s.send(ctx, req.Account, body)
	})
}

// SendMediaRequest is the input of SendMediaMessage. When Data is set it is
// uploaded first and the resulting media id is sent.
type SendMediaRequest struct {
	Account string
	Draft   MediaDraft
	Data    []byte
}

func (b *MessageBody) media() *MediaBody {
	for _, m := range []*MediaBody{b.Image, b.Video, b.Document, b.Audio, b.Sticker} {
		if m != nil {
			return m
		}
	}
	return nil
}

func (s *Service) SendMediaMessage(ctx context.Context, req SendMediaRequest) connector.Result[SentResponse] {
	return connector.Run("send media message", func() (SentResponse, error) {
		draft := req.Draft
		upload := len(req.Data) > 0
		if upload {
			if len(req.Data) > MaxMediaSize {
				return SentResponse{}, connector.Invalidf("media exceeds %d bytes", MaxMediaSize)
			}
			if draft.Media.MimeType == "" {
				draft.Media.MimeType = http.DetectContentType(req.Data)
			}
			// Validated with a placeholder; the uploaded id replaces it.
			draft.Media.ID, draft.Media.Link = "upload", ""
		}
		body, err := FromMediaDraft(draft)
		if err != nil {
			return SentResponse{}, err
		}
		var mediaID string
		if upload {
			c, err := s.accounts.Resolve(ctx, req.Account)
			if err != nil {
				return SentResponse{}, err
			}
			name := draft.Media.Filename
			if name == "" {
				name = draft.Media.Type
			}
			up, err := c.UploadMedia(ctx, name, strings.TrimSpace(draft.Media.MimeType), req.Data)
			if err != nil {
				return SentResponse{}, err
			}
			if up.ID == "" {
				return SentResponse{}, connector.MissingFieldError("media upload", "id")
			}
			mediaID = up.ID
			body.media().ID = mediaID
		}
		out, err := s.send(ctx, req.Account, body)
		out.MediaID = mediaID
		return out, err
	})
}

// SendTemplateRequest is the input of SendTemplateMessage.
type SendTemplateRequest struct {
	Account string
	Draft   TemplateDraft
}

func (s *Service) SendTemplateMessage(ctx context.Context, req SendTemplateRequest) connector.Result[SentResponse] {
	return connector.Run("send template message", func() (SentResponse, error) {
		body, err := FromTemplateDraft(req.Draft)
		if err != nil {
			return SentResponse{}, err
		}
		return s.send(ctx, req.Account, body)
	})
}

// ListTemplatesRequest is the input of ListTemplates. Status filters the
// returned page.
type ListTemplatesRequest struct {
	Account string
	Status  string
	Limit   int
	Cursor  string
}

type ListTemplatesResponse struct {
	Templates  []Template `json:"templates"`
	Count      int        `json:"count"`
	NextCursor string     `json:"next_cursor,omitempty"`
	Skipped    int        `json:"skipped,omitempty"`
}

func (s *Service) ListTemplates(ctx context.Context, req ListTemplatesRequest) connector.Result[ListTemplatesResponse] {
	return connector.Run("list templates", func() (ListTemplatesResponse, error) {
		status, err := ValidTemplateStatus(req.Status)
		if err != nil {
			return ListTemplatesResponse{}, err
		}
		limit := req.Limit
		switch {
		case limit <= 0:
			limit = DefaultTemplateLimit
		case limit > MaxTemplateLimit:
			limit = MaxTemplateLimit
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ListTemplatesResponse{}, err
		}
		page, err := c.ListTemplates(ctx, limit, req.Cursor)
		if err != nil {
			return ListTemplatesResponse{}, err
		}
		out := ListTemplatesResponse{Templates: []Template{}, NextCursor: page.NextCursor()}
		for i := range page.Data {
			t, err := ToTemplate(&page.Data[i])
			if err != nil {
				out.Skipped++
				continue
			}
			if status != "" && t.Status != status {
				continue
			}
			out.Templates = append(out.Templates, *t)
		}
		out.Count = len(out.Templates)
		return out, nil
	})
}

// DownloadMediaRequest is the input of DownloadMedia. With SavePath the
// file is written there instead of being returned.
type DownloadMediaRequest struct {
	Account  string
	MediaID  string
	SavePath string
}

type DownloadMediaResponse struct {
	MediaID   string `json:"media_id"`
	MimeType  string `json:"mime_type"`
	SizeBytes int    `json:"size_bytes"`
	SHA256    string `json:"sha256,omitempty"`
	Data      []byte `json:"data,omitempty"`
	SavedPath string `json:"saved_path,omitempty"`
}

func (s *Service) DownloadMedia(ctx context.Context, req DownloadMediaRequest) connector.Result[DownloadMediaResponse] {
	return connector.Run("download media", func() (DownloadMediaResponse, error) {
		if strings.TrimSpace(req.MediaID) == "" {
			return DownloadMediaResponse{}, connector.Required("media_id")
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return DownloadMediaResponse{}, err
		}
		info, err := c.GetMedia(ctx, req.MediaID)
		if err != nil {
			return DownloadMediaResponse{}, err
		}
		if info.URL == "" {
			return DownloadMediaResponse{}, connector.MissingFieldError("media", "url")
		}
		resp, err := c.DownloadMedia(ctx, info.URL)
		if err != nil {
			return DownloadMediaResponse{}, err
		}
		out := DownloadMediaResponse{
			MediaID:   req.MediaID,
			MimeType:  info.MimeType,
			SizeBytes: len(resp.Body),
			SHA256:    info.SHA256,
		}
		if out.MimeType == "" {
			out.MimeType = resp.ContentType
		}
		if out.MimeType == "" {
			out.MimeType = "application/octet-stream"
		}
		if req.SavePath == "" {
			if len(resp.Body) > MaxInlineMedia {
				return DownloadMediaResponse{}, connector.Invalidf("media is %d bytes, pass save_path to store it", len(resp.Body))
			}
			out.Data = resp.Body
			return out, nil
		}
		path := filepath.Clean(req.SavePath)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return DownloadMediaResponse{}, err
		}
		if err := os.WriteFile(path, resp.Body, 0o600); err != nil {
			return DownloadMediaResponse{}, err
		}
		out.SavedPath = path
		return out, nil
	})
}

// MarkReadRequest is the input of MarkAsRead.
type MarkReadRequest struct {
	Account   string
	MessageID string
}

type MarkReadResponse struct {
	MessageID string `json:"message_id"`
	Read      bool   `json:"read"`
}

func (s *Service) MarkAsRead(ctx context.Context, req MarkReadRequest) connector.Result[MarkReadResponse] {
	return connector.Run("mark message as read", func() (MarkReadResponse, error) {
		body, err := ReadReceipt(req.MessageID)
		if err != nil {
			return MarkReadResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return MarkReadResponse{}, err
		}
		if err := c.MarkRead(ctx, body); err != nil {
			return MarkReadResponse{}, err
		}
		return MarkReadResponse{MessageID: req.MessageID, Read: true}, nil
	})
}
