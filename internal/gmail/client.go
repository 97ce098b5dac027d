package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/connectorhub/internal/connector"
)

// Scopes requested for Gmail accounts.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
}

const me = "me"

// API is the Gmail surface used by the use cases. *Client implements it.
type API interface {
	Send(ctx context.Context, raw, threadID string) (*gmail.Message, error)
	Get(ctx context.Context, id string) (*gmail.Message, error)
	List(ctx context.Context, query, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error)
	Modify(ctx context.Context, id string, add, remove []string) (*gmail.Message, error)
	Labels(ctx context.Context) ([]*gmail.Label, error)
	Attachment(ctx context.Context, messageID, attachmentID string) (*gmail.MessagePartBody, error)
}

// Client wraps the Gmail Users service of one account.
type Client struct {
	account string
	users   *gmail.UsersService
	caller  *connector.Caller
}

// NewClient creates a client for account. opts carry the authenticated HTTP
// client and, in tests, the endpoint.
func NewClient(ctx context.Context, account string, caller *connector.Caller, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{account: account, users: svc.Users, caller: caller}, nil
}

// Account returns the account the client is bound to.
func (c *Client) Account() string { return c.account }

func (c *Client) Send(ctx context.Context, raw, threadID string) (*gmail.Message, error) {
	return connector.Call(ctx, c.caller, "messages.send", func(ctx context.Context) (*gmail.Message, error) {
		return c.users.Messages.Send(me, &gmail.Message{Raw: raw, ThreadId: threadID}).Context(ctx).Do()
	})
}

func (c *Client) Get(ctx context.Context, id string) (*gmail.Message, error) {
	return connector.Call(ctx, c.caller, "messages.get", func(ctx context.Context) (*gmail.Message, error) {
		return c.users.Messages.Get(me, id).Format("full").Context(ctx).Do()
	})
}

// List returns one page of message ids matching query.
func (c *Client) List(ctx context.Context, query, pageToken string, maxResults int64) (*gmail.ListMessagesResponse, error) {
	return connector.Call(ctx, c.caller, "messages.list", func(ctx context.Context) (*gmail.ListMessagesResponse, error) {
		call := c.users.Messages.List(me).MaxResults(maxResults)
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		return call.Context(ctx).Do()
	})
}

func (c *Client) Modify(ctx context.Context, id string, add, remove []string) (*gmail.Message, error) {
	return connector.Call(ctx, c.caller, "messages.modify", func(ctx context.Context) (*gmail.Message, error) {
		req := &gmail.ModifyMessageRequest{AddLabelIds: add, RemoveLabelIds: remove}
		return c.users.Messages.Modify(me, id, req).Context(ctx).Do()
	})
}

func (c *Client) Labels(ctx context.Context) ([]*gmail.Label, error) {
	return connector.Call(ctx, c.caller, "labels.list", func(ctx context.Context) ([]*gmail.Label, error) {
		res, err := c.users.Labels.List(me).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return res.Labels, nil
	})
}

func (c *Client) Attachment(ctx context.Context, messageID, attachmentID string) (*gmail.MessagePartBody, error) {
	return connector.Call(ctx, c.caller, "attachments.get", func(ctx context.Context) (*gmail.MessagePartBody, error) {
		return c.users.Messages.Attachments.Get(me, messageID, attachmentID).Context(ctx).Do()
	})
}
