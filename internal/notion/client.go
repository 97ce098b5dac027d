package notion

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/teemow/connectorhub/internal/connector"
)

// Service name used for rate limits, logs and metrics.
const ServiceName = "notion"

// API is the Notion surface used by the use cases. *Client implements it.
type API interface {
	CreatePage(ctx context.Context, body *PageBody) (*Object, error)
	GetPage(ctx context.Context, pageID string) (*Object, error)
	UpdatePage(ctx context.Context, pageID string, patch *PagePatch) (*Object, error)
	Search(ctx context.Context, body *SearchBody) (*List[Object], error)
	GetDatabase(ctx context.Context, databaseID string) (*Object, error)
	QueryDatabase(ctx context.Context, databaseID string, body *QueryBody) (*List[Object], error)
	BlockChildren(ctx context.Context, blockID, startCursor string, pageSize int) (*List[BlockObject], error)
	AppendBlocks(ctx context.Context, blockID string, children []BlockBody) (*List[BlockObject], error)
	UpdateBlock(ctx context.Context, blockID string, body BlockBody) (*BlockObject, error)
	DeleteBlock(ctx context.Context, blockID string) (*BlockObject, error)
}

// Client is the Notion workspace of one account.
type Client struct {
	account string
	rest    *connector.REST
}

var _ API = (*Client)(nil)

// NewClient creates a client for account. version is sent as the
// Notion-Version header; auth adds the integration token.
func NewClient(account, baseURL, version string, auth connector.Decorator, opts ...connector.RESTOption) (*Client, error) {
	opts = append([]connector.RESTOption{
		connector.WithDecorator(auth),
		connector.WithHeader("Notion-Version", version),
	}, opts...)
	rest, err := connector.NewREST(ServiceName, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{account: account, rest: rest}, nil
}

// Account returns the account the client is bound to.
func (c *Client) Account() string { return c.account }

func (c *Client) object(ctx context.Context, op, method, path string, body any) (*Object, error) {
	var out Object
	if err := c.rest.Do(ctx, connector.Request{Operation: op, Method: method, Path: path, Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePage(ctx context.Context, body *PageBody) (*Object, error) {
	return c.object(ctx, "pages.create", http.MethodPost, "/pages", body)
}

func (c *Client) GetPage(ctx context.Context, pageID string) (*Object, error) {
	return c.object(ctx, "pages.retrieve", http.MethodGet, "/pages/"+url.PathEscape(pageID), nil)
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, patch *PagePatch) (*Object, error) {
	return c.object(ctx, "pages.update", http.MethodPatch, "/pages/"+url.PathEscape(pageID), patch)
}

func (c *Client) Search(ctx context.Context, body *SearchBody) (*List[Object], error) {
	var out List[Object]
	if err := c.rest.Do(ctx, connector.Request{Operation: "search", Method: http.MethodPost, Path: "/search", Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDatabase(ctx context.Context, databaseID string) (*Object, error) {
	return c.object(ctx, "databases.retrieve", http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil)
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, body *QueryBody) (*List[Object], error) {
	var out List[Object]
	err := c.rest.Do(ctx, connector.Request{
		Operation: "databases.query",
		Method:    http.MethodPost,
		Path:      "/databases/" + url.PathEscape(databaseID) + "/query",
		Body:      body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BlockChildren(ctx context.Context, blockID, startCursor string, pageSize int) (*List[BlockObject], error) {
	q := url.Values{"page_size": {strconv.Itoa(clampPageSize(pageSize))}}
	if startCursor != "" {
		q.Set("start_cursor", startCursor)
	}
	var out List[BlockObject]
	err := c.rest.Do(ctx, connector.Request{
		Operation: "blocks.children.list",
		Path:      "/blocks/" + url.PathEscape(blockID) + "/children",
		Query:     q,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AppendBlocks(ctx context.Context, blockID string, children []BlockBody) (*List[BlockObject], error) {
	var out List[BlockObject]
	err := c.rest.Do(ctx, connector.Request{
		Operation: "blocks.children.append",
		Method:    http.MethodPatch,
		Path:      "/blocks/" + url.PathEscape(blockID) + "/children",
		Body:      map[string]any{"children": children},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBlock(ctx context.Context, blockID string, body BlockBody) (*BlockObject, error) {
	var out BlockObject
	err := c.rest.Do(ctx, connector.Request{
		Operation: "blocks.update",
		Method:    http.MethodPatch,
		Path:      "/blocks/" + url.PathEscape(blockID),
		Body:      body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBlock archives the block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) (*BlockObject, error) {
	var out BlockObject
	err := c.rest.Do(ctx, connector.Request{
		Operation: "blocks.delete",
		Method:    http.MethodDelete,
		Path:      "/blocks/" + url.PathEscape(blockID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
