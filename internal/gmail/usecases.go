package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

// Search limits.
const (
	DefaultMaxResults = 10
	MaxResultsLimit   = 100
	// searchConcurrency bounds the parallel messages.get calls of a search.
	searchConcurrency = 5
)

// Service holds the Gmail use cases.
type Service struct {
	accounts *accounts.Manager[API]
}

// NewService returns the use cases over the account manager m.
func NewService(m *accounts.Manager[API]) *Service {
	return &Service{accounts: m}
}

// Accounts returns the account manager.
func (s *Service) Accounts() *accounts.Manager[API] { return s.accounts }

// SendRequest is the input of SendEmail.
type SendRequest struct {
	Account     string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	BodyText    string
	BodyHTML    string
	Attachments []Attachment
	InReplyTo   string
	ThreadID    string
}

// SendResponse identifies the sent message.
type SendResponse struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// SendEmail sends a message from the account.
func (s *Service) SendEmail(ctx context.Context, req SendRequest) connector.Result[SendResponse] {
	return connector.Run("send email", func() (SendResponse, error) {
		if strings.TrimSpace(req.Subject) == "" {
			return SendResponse{}, connector.Required("subject")
		}
		if req.BodyText == "" && req.BodyHTML == "" {
			return SendResponse{}, connector.Invalidf("email needs body_text or body_html")
		}
		raw, err := FromDraft(Draft{
			To:          toAddresses(req.To),
			Cc:          toAddresses(req.Cc),
			Bcc:         toAddresses(req.Bcc),
			Subject:     req.Subject,
			BodyText:    req.BodyText,
			BodyHTML:    req.BodyHTML,
			Attachments: req.Attachments,
			InReplyTo:   req.InReplyTo,
			ThreadID:    req.ThreadID,
		})
		if err != nil {
			return SendResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return SendResponse{}, err
		}
		msg, err := c.Send(ctx, raw, req.ThreadID)
		if err != nil {
			return SendResponse{}, err
		}
		if msg == nil || msg.Id == "" {
			return SendResponse{}, connector.NewMalformedResponseError("send returned no message id", nil)
		}
		return SendResponse{MessageID: msg.Id, ThreadID: msg.ThreadId}, nil
	})
}

func toAddresses(list []string) []Address {
	out := make([]Address, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, parseAddress(s))
		}
	}
	return out
}

// SearchRequest is the input of SearchEmails.
type SearchRequest struct {
	Account    string
	Criteria   Criteria
	MaxResults int64
	PageToken  string
}

// SearchResponse is one page of matching messages.
type SearchResponse struct {
	Emails        []Summary `json:"emails"`
	Count         int       `json:"count"`
	Query         string    `json:"query,omitempty"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// SearchEmails lists one page of messages matching the criteria. The list
// call only returns ids, so each message is then fetched; those fetches run
// in parallel and are bounded by MaxResults. Messages deleted between the
// two calls are skipped.
func (s *Service) SearchEmails(ctx context.Context, req SearchRequest) connector.Result[SearchResponse] {
	return connector.Run("search emails", func() (SearchResponse, error) {
		limit := clampMaxResults(req.MaxResults)
		query := req.Criteria.String()

		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return SearchResponse{}, err
		}
		page, err := c.List(ctx, query, req.PageToken, limit)
		if err != nil {
			return SearchResponse{}, err
		}

		refs := page.Messages
		if int64(len(refs)) > limit {
			refs = refs[:limit]
		}
		emails := make([]*Email, len(refs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(searchConcurrency)
		for i, ref := range refs {
			if ref == nil || ref.Id == "" {
				continue
			}
			g.Go(func() error {
				msg, err := c.Get(gctx, ref.Id)
				if connector.IsKind(err, connector.KindNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				e, err := ToEmail(msg)
				if err != nil {
					return err
				}
				emails[i] = e
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return SearchResponse{}, err
		}

		out := SearchResponse{Emails: []Summary{}, Query: query, NextPageToken: page.NextPageToken}
		for _, e := range emails {
			if e != nil {
				out.Emails = append(out.Emails, e.Summarize())
			}
		}
		out.Count = len(out.Emails)
		return out, nil
	})
}

func clampMaxResults(n int64) int64 {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsLimit:
		return MaxResultsLimit
	}
	return n
}

// MessageRequest addresses a single message.
type MessageRequest struct {
	Account   string
	MessageID string
}

// GetResponse carries a full message.
type GetResponse struct {
	Email *Email `json:"email"`
}

// GetEmail fetches one message with bodies and attachment metadata.
func (s *Service) GetEmail(ctx context.Context, req MessageRequest) connector.Result[GetResponse] {
	return connector.Run("get email", func() (GetResponse, error) {
		if req.MessageID == "" {
			return GetResponse{}, connector.Required("message_id")
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return GetResponse{}, err
		}
		msg, err := c.Get(ctx, req.MessageID)
		if err != nil {
			return GetResponse{}, err
		}
		e, err := ToEmail(msg)
		if err != nil {
			return GetResponse{}, err
		}
		return GetResponse{Email: e}, nil
	})
}

// LabelResponse reports the labels of a modified message.
type LabelResponse struct {
	MessageID string   `json:"message_id"`
	Labels    []string `json:"labels"`
}

// MarkAsRead removes the UNREAD label.
func (s *Service) MarkAsRead(ctx context.Context, req MessageRequest) connector.Result[LabelResponse] {
	return s.modify(ctx, "mark email as read", req, nil, []string{LabelUnread})
}

// MarkAsUnread adds the UNREAD label.
func (s *Service) MarkAsUnread(ctx context.Context, req MessageRequest) connector.Result[LabelResponse] {
	return s.modify(ctx, "mark email as unread", req, []string{LabelUnread}, nil)
}

func (s *Service) modify(ctx context.Context, op string, req MessageRequest, add, remove []string) connector.Result[LabelResponse] {
	return connector.Run(op, func() (LabelResponse, error) {
		if req.MessageID == "" {
			return LabelResponse{}, connector.Required("message_id")
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return LabelResponse{}, err
		}
		msg, err := c.Modify(ctx, req.MessageID, add, remove)
		if err != nil {
			return LabelResponse{}, err
		}
		return labelResponse(req.MessageID, msg), nil
	})
}

func labelResponse(id string, msg *gmail.Message) LabelResponse {
	labels := []string{}
	if msg != nil && msg.LabelIds != nil {
		labels = msg.LabelIds
	}
	return LabelResponse{MessageID: id, Labels: labels}
}

// AddLabelRequest is the input of AddLabel.
type AddLabelRequest struct {
	Account   string
	MessageID string
	// Label is a system label, a user label name or a label id.
	Label string
}

// AddLabel attaches an existing label to a message. System labels are used
// as is; other names are resolved to their id through one labels.list call.
// Labels are never created.
func (s *Service) AddLabel(ctx context.Context, req AddLabelRequest) connector.Result[LabelResponse] {
	return connector.Run("add email label", func() (LabelResponse, error) {
		if req.MessageID == "" {
			return LabelResponse{}, connector.Required("message_id")
		}
		if strings.TrimSpace(req.Label) == "" {
			return LabelResponse{}, connector.Required("label")
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return LabelResponse{}, err
		}
		id, err := resolveLabel(ctx, c, req.Label)
		if err != nil {
			return LabelResponse{}, err
		}
		msg, err := c.Modify(ctx, req.MessageID, []string{id}, nil)
		if err != nil {
			return LabelResponse{}, err
		}
		return labelResponse(req.MessageID, msg), nil
	})
}

func resolveLabel(ctx context.Context, c API, label string) (string, error) {
	label = strings.TrimSpace(label)
	if up := strings.ToUpper(label); slices.Contains(SystemLabels, up) {
		return up, nil
	}
	labels, err := c.Labels(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if l.Id == label || strings.EqualFold(l.Name, label) {
			return l.Id, nil
		}
	}
	return "", connector.NewNotFoundError(fmt.Sprintf("label %q does not exist", label), nil)
}

// AttachmentRequest addresses one attachment.
type AttachmentRequest struct {
	Account      string
	MessageID    string
	AttachmentID string
}

// AttachmentResponse carries attachment content, base64 encoded.
type AttachmentResponse struct {
	MessageID    string `json:"message_id"`
	AttachmentID string `json:"attachment_id"`
	Size         int64  `json:"size"`
	Data         string `json:"data"`
}

// GetAttachment downloads one attachment.
func (s *Service) GetAttachment(ctx context.Context, req AttachmentRequest) connector.Result[AttachmentResponse] {
	return connector.Run("get email attachment", func() (AttachmentResponse, error) {
		if req.MessageID == "" {
			return AttachmentResponse{}, connector.Required("message_id")
		}
		if req.AttachmentID == "" {
			return AttachmentResponse{}, connector.Required("attachment_id")
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return AttachmentResponse{}, err
		}
		body, err := c.Attachment(ctx, req.MessageID, req.AttachmentID)
		if err != nil {
			return AttachmentResponse{}, err
		}
		if body.Size > MaxAttachmentSize {
			return AttachmentResponse{}, connector.Invalidf("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
		}
		data, err := decodeData(body.Data)
		if err != nil {
			return AttachmentResponse{}, connector.NewMalformedResponseError("attachment data", err)
		}
		return AttachmentResponse{
			MessageID:    req.MessageID,
			AttachmentID: req.AttachmentID,
			Size:         int64(len(data)),
			Data:         base64.StdEncoding.EncodeToString(data),
		}, nil
	})
}
