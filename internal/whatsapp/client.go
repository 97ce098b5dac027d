package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/teemow/connectorhub/internal/connector"
)

// ServiceName is used for rate limits, logs and metrics.
const ServiceName = "whatsapp"

// API is the Graph API surface used by the use cases. *Client implements it.
type API interface {
	SendMessage(ctx context.Context, body *MessageBody) (*SendResponse, error)
	MarkRead(ctx context.Context, body *ReadBody) error
	UploadMedia(ctx context.Context, filename, mimeType string, data []byte) (*UploadResponse, error)
	GetMedia(ctx context.Context, mediaID string) (*MediaRecord, error)
	DownloadMedia(ctx context.Context, mediaURL string) (*connector.Response, error)
	ListTemplates(ctx context.Context, limit int, after string) (*TemplatePage, error)
}

// Credentials identify one business phone number.
type Credentials struct {
	AccessToken   string
	PhoneNumberID string
	// BusinessAccountID is only needed to list templates.
	BusinessAccountID string
}

// Client sends through one business phone number.
type Client struct {
	account string
	creds   Credentials
	rest    *connector.REST
}

var _ API = (*Client)(nil)

// NewClient creates a client for account. baseURL includes the Graph API
// version, e.g. https://graph.facebook.com/v18.0.
func NewClient(account, baseURL string, creds Credentials, opts ...connector.RESTOption) (*Client, error) {
	if creds.AccessToken == "" {
		return nil, connector.NewAuthenticationError("whatsapp account has no access token", nil)
	}
	if creds.PhoneNumberID == "" {
		return nil, connector.NewAuthenticationError("whatsapp account has no phone number id", nil)
	}
	opts = append([]connector.RESTOption{
		connector.WithDecorator(connector.HeaderKey("Authorization", "Bearer "+creds.AccessToken)),
	}, opts...)
	rest, err := connector.NewREST(ServiceName, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{account: account, creds: creds, rest: rest}, nil
}

// Account returns the account the client is bound to.
func (c *Client) Account() string { return c.account }

func (c *Client) messagesPath() string {
	return "/" + url.PathEscape(c.creds.PhoneNumberID) + "/messages"
}

func (c *Client) SendMessage(ctx context.Context, body *MessageBody) (*SendResponse, error) {
	var out SendResponse
	req := connector.Request{Operation: "messages.send", Method: http.MethodPost, Path: c.messagesPath(), Body: body}
	if err := c.rest.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkRead(ctx context.Context, body *ReadBody) error {
	req := connector.Request{Operation: "messages.read", Method: http.MethodPost, Path: c.messagesPath(), Body: body}
	return c.rest.Do(ctx, req, nil)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadMedia uploads data as multipart/form-data.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, data []byte) (*UploadResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("messaging_product", messagingProduct); err != nil {
		return nil, err
	}
	if err := w.WriteField("type", mimeType); err != nil {
		return nil, err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out UploadResponse
	req := connector.Request{
		Operation:   "media.upload",
		Method:      http.MethodPost,
		Path:        "/" + url.PathEscape(c.creds.PhoneNumberID) + "/media",
		RawBody:     buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}
	if err := c.rest.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetMedia(ctx context.Context, mediaID string) (*MediaRecord, error) {
	var out MediaRecord
	req := connector.Request{Operation: "media.get", Method: http.MethodGet, Path: "/" + url.PathEscape(mediaID)}
	if err := c.rest.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadMedia fetches the bytes behind a media URL returned by GetMedia.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) (*connector.Response, error) {
	req := connector.Request{
		Operation: "media.download",
		Method:    http.MethodGet,
		URL:       mediaURL,
		Header:    http.Header{"Accept": {"*/*"}},
	}
	return c.rest.Raw(ctx, req)
}

// ListTemplates returns one page of the business account's templates.
func (c *Client) ListTemplates(ctx context.Context, limit int, after string) (*TemplatePage, error) {
	if c.creds.BusinessAccountID == "" {
		return nil, connector.Invalidf("business account id is required to list templates")
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	var out TemplatePage
	req := connector.Request{
		Operation: "templates.list",
		Method:    http.MethodGet,
		Path:      "/" + url.PathEscape(c.creds.BusinessAccountID) + "/message_templates",
		Query:     q,
	}
	if err := c.rest.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
