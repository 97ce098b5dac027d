package holded

import (
	"context"
	"net/http"
	"net/url"

	"github.com/teemow/connectorhub/internal/connector"
)

// ServiceName is used for rate limits, logs and metrics.
const ServiceName = "holded"

const (
	documentsPath = "/invoicing/v1/documents/"
	contactsPath  = "/invoicing/v1/contacts"
	productsPath  = "/invoicing/v1/products"
	treasuryPath  = "/invoicing/v1/treasury"
	expensesPath  = "/invoicing/v1/expensesaccounts"
	incomesPath   = "/invoicing/v1/incomesaccounts"
)

// API is the Holded surface used by the use cases. *Client implements it.
type API interface {
	CreateDocument(ctx context.Context, docType string, body *DocumentBody) (*Created, error)
	GetDocument(ctx context.Context, docType, id string) (*DocumentRecord, error)
	ListDocuments(ctx context.Context, docType string, query url.Values) ([]DocumentRecord, error)

	CreateContact(ctx context.Context, body *ContactBody) (*Created, error)
	GetContact(ctx context.Context, id string) (*ContactRecord, error)
	ListContacts(ctx context.Context, contactType string) ([]ContactRecord, error)

	ListProducts(ctx context.Context) ([]ProductRecord, error)
	GetProduct(ctx context.Context, id string) (*ProductRecord, error)

	ListTreasury(ctx context.Context) ([]TreasuryRecord, error)
	GetTreasury(ctx context.Context, id string) (*TreasuryRecord, error)
	CreateTreasury(ctx context.Context, body *TreasuryBody) (*Created, error)

	ListExpenseAccounts(ctx context.Context) ([]LedgerRecord, error)
	GetExpenseAccount(ctx context.Context, id string) (*LedgerRecord, error)
	ListIncomeAccounts(ctx context.Context) ([]LedgerRecord, error)
	GetIncomeAccount(ctx context.Context, id string) (*LedgerRecord, error)
}

// Client is the Holded account of one API key.
type Client struct {
	account string
	rest    *connector.REST
}

var _ API = (*Client)(nil)

// NewClient creates a client for account authenticated with apiKey.
func NewClient(account, baseURL, apiKey string, opts ...connector.RESTOption) (*Client, error) {
	if apiKey == "" {
		return nil, connector.NewAuthenticationError("holded account has no API key", nil)
	}
	opts = append([]connector.RESTOption{connector.WithDecorator(connector.HeaderKey("key", apiKey))}, opts...)
	rest, err := connector.NewREST(ServiceName, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{account: account, rest: rest}, nil
}

// Account returns the account the client is bound to.
func (c *Client) Account() string { return c.account }

func get[T any](ctx context.Context, c *Client, op, path string, query url.Values) (T, error) {
	var out T
	err := c.rest.Do(ctx, connector.Request{Operation: op, Method: http.MethodGet, Path: path, Query: query}, &out)
	return out, err
}

func one[T any](ctx context.Context, c *Client, op, path string) (*T, error) {
	v, err := get[T](ctx, c, op, path, nil)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) create(ctx context.Context, op, path string, body any) (*Created, error) {
	var out Created
	if err := c.rest.Do(ctx, connector.Request{Operation: op, Method: http.MethodPost, Path: path, Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDocument(ctx context.Context, docType string, body *DocumentBody) (*Created, error) {
	return c.create(ctx, "documents.create", documentsPath+url.PathEscape(docType), body)
}

func (c *Client) GetDocument(ctx context.Context, docType, id string) (*DocumentRecord, error) {
	return one[DocumentRecord](ctx, c, "documents.get", documentsPath+url.PathEscape(docType)+"/"+url.PathEscape(id))
}

func (c *Client) ListDocuments(ctx context.Context, docType string, query url.Values) ([]DocumentRecord, error) {
	return get[[]DocumentRecord](ctx, c, "documents.list", documentsPath+url.PathEscape(docType), query)
}

func (c *Client) CreateContact(ctx context.Context, body *ContactBody) (*Created, error) {
	return c.create(ctx, "contacts.create", contactsPath, body)
}

func (c *Client) GetContact(ctx context.Context, id string) (*ContactRecord, error) {
	return one[ContactRecord](ctx, c, "contacts.get", contactsPath+"/"+url.PathEscape(id))
}

func (c *Client) ListContacts(ctx context.Context, contactType string) ([]ContactRecord, error) {
	var q url.Values
	if contactType != "" {
		q = url.Values{"type": {contactType}}
	}
	return get[[]ContactRecord](ctx, c, "contacts.list", contactsPath, q)
}

func (c *Client) ListProducts(ctx context.Context) ([]ProductRecord, error) {
	return get[[]ProductRecord](ctx, c, "products.list", productsPath, nil)
}

func (c *Client) GetProduct(ctx context.Context, id string) (*ProductRecord, error) {
	return one[ProductRecord](ctx, c, "products.get", productsPath+"/"+url.PathEscape(id))
}

func (c *Client) ListTreasury(ctx context.Context) ([]TreasuryRecord, error) {
	return get[[]TreasuryRecord](ctx, c, "treasury.list", treasuryPath, nil)
}

func (c *Client) GetTreasury(ctx context.Context, id string) (*TreasuryRecord, error) {
	return one[TreasuryRecord](ctx, c, "treasury.get", treasuryPath+"/"+url.PathEscape(id))
}

func (c *Client) CreateTreasury(ctx context.Context, body *TreasuryBody) (*Created, error) {
	return c.create(ctx, "treasury.create", treasuryPath, body)
}

func (c *Client) ListExpenseAccounts(ctx context.Context) ([]LedgerRecord, error) {
	return get[[]LedgerRecord](ctx, c, "expensesaccounts.list", expensesPath, nil)
}

func (c *Client) GetExpenseAccount(ctx context.Context, id string) (*LedgerRecord, error) {
	return one[LedgerRecord](ctx, c, "expensesaccounts.get", expensesPath+"/"+url.PathEscape(id))
}

func (c *Client) ListIncomeAccounts(ctx context.Context) ([]LedgerRecord, error) {
	return get[[]LedgerRecord](ctx, c, "incomesaccounts.list", incomesPath, nil)
}

func (c *Client) GetIncomeAccount(ctx context.Context, id string) (*LedgerRecord, error) {
	return one[LedgerRecord](ctx, c, "incomesaccounts.get", incomesPath+"/"+url.PathEscape(id))
}
