package holded

import (
	"context"
	"strings"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

// Listing limits. Holded returns whole collections; these bound what is
// passed on.
const (
	DefaultMaxResults = 100
	MaxResultsLimit   = 500
)

// Service holds the Holded use cases.
type Service struct {
	accounts *accounts.Manager[API]
}

func NewService(m *accounts.Manager[API]) *Service {
	return &Service{accounts: m}
}

// Accounts returns the account manager.
func (s *Service) Accounts() *accounts.Manager[API] { return s.accounts }

func clampMaxResults(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsLimit:
		return MaxResultsLimit
	}
	return n
}

// mapList maps records with fn, skipping records without an id, and stops
// at limit.
func mapList[R, E any](records []R, limit int, fn func(*R) (*E, error)) []E {
	out := make([]E, 0, min(len(records), limit))
	for i := range records {
		if len(out) == limit {
			break
		}
		e, err := fn(&records[i])
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	return out
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return connector.Required(field)
	}
	return nil
}

// CreatedResponse identifies a created record.
type CreatedResponse struct {
	ID      string `json:"id"`
	DocType string `json:"doc_type,omitempty"`
}

func created(c *Created) (CreatedResponse, error) {
	if c == nil || c.ID == "" {
		return CreatedResponse{}, connector.MissingFieldError("create", "id")
	}
	return CreatedResponse{ID: string(c.ID)}, nil
}

// CreateInvoiceRequest is the input of CreateInvoice.
type CreateInvoiceRequest struct {
	Account string
	Draft   InvoiceDraft
}

func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) connector.Result[CreatedResponse] {
	return connector.Run("create invoice", func() (CreatedResponse, error) {
		typ, body, err := FromInvoiceDraft(req.Draft)
		if err != nil {
			return CreatedResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return CreatedResponse{}, err
		}
		res, err := c.CreateDocument(ctx, typ, body)
		if err != nil {
			return CreatedResponse{}, err
		}
		out, err := created(res)
		out.DocType = typ
		return out, err
	})
}

// GetInvoiceRequest names a document.
type GetInvoiceRequest struct {
	Account   string
	InvoiceID string
	DocType   string
}

type InvoiceResponse struct {
	Invoice *Invoice `json:"invoice"`
}

func (s *Service) GetInvoice(ctx context.Context, req GetInvoiceRequest) connector.Result[InvoiceResponse] {
	return connector.Run("get invoice", func() (InvoiceResponse, error) {
		if err := requireID("invoice_id", req.InvoiceID); err != nil {
			return InvoiceResponse{}, err
		}
		typ, err := docType(req.DocType)
		if err != nil {
			return InvoiceResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return InvoiceResponse{}, err
		}
		r, err := c.GetDocument(ctx, typ, req.InvoiceID)
		if err != nil {
			return InvoiceResponse{}, err
		}
		inv, err := ToInvoice(r)
		if err != nil {
			return InvoiceResponse{}, err
		}
		if r.DocType == "" {
			inv.DocType = typ
		}
		return InvoiceResponse{Invoice: inv}, nil
	})
}

// ListInvoicesRequest is the input of ListInvoices.
type ListInvoicesRequest struct {
	Account  string
	Criteria InvoiceCriteria
}

type ListInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
	Count    int       `json:"count"`
}

func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) connector.Result[ListInvoicesResponse] {
	return connector.Run("list invoices", func() (ListInvoicesResponse, error) {
		typ, q, err := InvoiceQuery(req.Criteria)
		if err != nil {
			return ListInvoicesResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ListInvoicesResponse{}, err
		}
		records, err := c.ListDocuments(ctx, typ, q)
		if err != nil {
			return ListInvoicesResponse{}, err
		}
		invoices := mapList(records, clampMaxResults(req.Criteria.MaxResults), ToInvoice)
		return ListInvoicesResponse{Invoices: invoices, Count: len(invoices)}, nil
	})
}

// CreateContactRequest is the input of CreateContact.
type CreateContactRequest struct {
	Account string
	Draft   ContactDraft
}

func (s *Service) CreateContact(ctx context.Context, req CreateContactRequest) connector.Result[CreatedResponse] {
	return connector.Run("create contact", func() (CreatedResponse, error) {
		body, err := FromContactDraft(req.Draft)
		if err != nil {
			return CreatedResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return CreatedResponse{}, err
		}
		res, err := c.CreateContact(ctx, body)
		if err != nil {
			return CreatedResponse{}, err
		}
		return created(res)
	})
}

// IDRequest names a record.
type IDRequest struct {
	Account string
	ID      string
}

type ContactResponse struct {
	Contact *Contact `json:"contact"`
}

func (s *Service) GetContact(ctx context.Context, req IDRequest) connector.Result[ContactResponse] {
	return connector.Run("get contact", func() (ContactResponse, error) {
		if err := requireID("contact_id", req.ID); err != nil {
			return ContactResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ContactResponse{}, err
		}
		r, err := c.GetContact(ctx, req.ID)
		if err != nil {
			return ContactResponse{}, err
		}
		contact, err := ToContact(r)
		if err != nil {
			return ContactResponse{}, err
		}
		return ContactResponse{Contact: contact}, nil
	})
}

// ListContactsRequest is the input of ListContacts.
type ListContactsRequest struct {
	Account    string
	Type       string
	MaxResults int
}

type ListContactsResponse struct {
	Contacts []Contact `json:"contacts"`
	Count    int       `json:"count"`
}

func (s *Service) ListContacts(ctx context.Context, req ListContactsRequest) connector.Result[ListContactsResponse] {
	return connector.Run("list contacts", func() (ListContactsResponse, error) {
		typ, err := ContactType(req.Type)
		if err != nil {
			return ListContactsResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ListContactsResponse{}, err
		}
		records, err := c.ListContacts(ctx, typ)
		if err != nil {
			return ListContactsResponse{}, err
		}
		contacts := mapList(records, clampMaxResults(req.MaxResults), ToContact)
		return ListContactsResponse{Contacts: contacts, Count: len(contacts)}, nil
	})
}

// ListProductsRequest is the input of ListProducts.
type ListProductsRequest struct {
	Account    string
	ActiveOnly bool
	MaxResults int
}

type ListProductsResponse struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
}

func (s *Service) ListProducts(ctx context.Context, req ListProductsRequest) connector.Result[ListProductsResponse] {
	return connector.Run("list products", func() (ListProductsResponse, error) {
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ListProductsResponse{}, err
		}
		records, err := c.ListProducts(ctx)
		if err != nil {
			return ListProductsResponse{}, err
		}
		if req.ActiveOnly {
			kept := records[:0]
			for _, r := range records {
				if active(r.Active) {
					kept = append(kept, r)
				}
			}
			records = kept
		}
		products := mapList(records, clampMaxResults(req.MaxResults), ToProduct)
		return ListProductsResponse{Products: products, Count: len(products)}, nil
	})
}

type ProductResponse struct {
	Product *Product `json:"product"`
}

func (s *Service) GetProduct(ctx context.Context, req IDRequest) connector.Result[ProductResponse] {
	return connector.Run("get product", func() (ProductResponse, error) {
		if err := requireID("product_id", req.ID); err != nil {
			return ProductResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ProductResponse{}, err
		}
		r, err := c.GetProduct(ctx, req.ID)
		if err != nil {
			return ProductResponse{}, err
		}
		p, err := ToProduct(r)
		if err != nil {
			return ProductResponse{}, err
		}
		return ProductResponse{Product: p}, nil
	})
}

// ListRequest is the input of the plain listings.
type ListRequest struct {
	Account    string
	MaxResults int
}

type ListTreasuryResponse struct {
	Accounts []TreasuryAccount `json:"accounts"`
	Count    int               `json:"count"`
}

func (s *Service) ListTreasuryAccounts(ctx context.Context, req ListRequest) connector.Result[ListTreasuryResponse] {
	return connector.Run("list treasury accounts", func() (ListTreasuryResponse, error) {
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return ListTreasuryResponse{}, err
		}
		records, err := c.ListTreasury(ctx)
		if err != nil {
			return ListTreasuryResponse{}, err
		}
		accts := mapList(records, clampMaxResults(req.MaxResults), ToTreasury)
		return ListTreasuryResponse{Accounts: accts, Count: len(accts)}, nil
	})
}

type TreasuryResponse struct {
	Account *TreasuryAccount `json:"account"`
}

func (s *Service) GetTreasuryAccount(ctx context.Context, req IDRequest) connector.Result[TreasuryResponse] {
	return connector.Run("get treasury account", func() (TreasuryResponse, error) {
		if err := requireID("treasury_id", req.ID); err != nil {
			return TreasuryResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return TreasuryResponse{}, err
		}
		r, err := c.GetTreasury(ctx, req.ID)
		if err != nil {
			return TreasuryResponse{}, err
		}
		t, err := ToTreasury(r)
		if err != nil {
			return TreasuryResponse{}, err
		}
		return TreasuryResponse{Account: t}, nil
	})
}

// CreateTreasuryRequest is the input of CreateTreasuryAccount.
type CreateTreasuryRequest struct {
	Account string
	Draft   TreasuryDraft
}

func (s *Service) CreateTreasuryAccount(ctx context.Context, req CreateTreasuryRequest) connector.Result[CreatedResponse] {
	return connector.Run("create treasury account", func() (CreatedResponse, error) {
		body, err := FromTreasuryDraft(req.Draft)
		if err != nil {
			return CreatedResponse{}, err
		}
		c, err := s.accounts.Resolve(ctx, req.Account)
		if err != nil {
			return CreatedResponse{}, err
		}
		res, err := c.CreateTreasury(ctx, body)
		if err != nil {
			return CreatedResponse{}, err
		}
		return created(res)
	})
}

type ListLedgerResponse struct {
	Accounts []LedgerAccount `json:"accounts"`
	Count    int             `json:"count"`
}

type LedgerResponse struct {
	Account *LedgerAccount `json:"account"`
}

func (s *Service) ListExpenseAccounts(ctx context.Context, req ListRequest) connector.Result[ListLedgerResponse] {
	return connector.Run("list expense accounts", func() (ListLedgerResponse, error) {
		return s.listLedger(ctx, req, API.ListExpenseAccounts)
	})
}

func (s *Service) GetExpenseAccount(ctx context.Context, req IDRequest) connector.Result[LedgerResponse] {
	return connector.Run("get expense account", func() (LedgerResponse, error) {
		return s.getLedger(ctx, req, API.GetExpenseAccount)
	})
}

func (s *Service) ListIncomeAccounts(ctx context.Context, req ListRequest) connector.Result[ListLedgerResponse] {
	return connector.Run("list income accounts", func() (ListLedgerResponse, error) {
		return s.listLedger(ctx, req, API.ListIncomeAccounts)
	})
}

func (s *Service) GetIncomeAccount(ctx context.Context, req IDRequest) connector.Result[LedgerResponse] {
	return connector.Run("get income account", func() (LedgerResponse, error) {
		return s.getLedger(ctx, req, API.GetIncomeAccount)
	})
}

func (s *Service) listLedger(ctx context.Context, req ListRequest, list func(API, context.Context) ([]LedgerRecord, error)) (ListLedgerResponse, error) {
	c, err := s.accounts.Resolve(ctx, req.Account)
	if err != nil {
		return ListLedgerResponse{}, err
	}
	records, err := list(c, ctx)
	if err != nil {
		return ListLedgerResponse{}, err
	}
	accts := mapList(records, clampMaxResults(req.MaxResults), ToLedgerAccount)
	return ListLedgerResponse{Accounts: accts, Count: len(accts)}, nil
}

func (s *Service) getLedger(ctx context.Context, req IDRequest, get func(API, context.Context, string) (*LedgerRecord, error)) (LedgerResponse, error) {
	if err := requireID("account_id", req.ID); err != nil {
		return LedgerResponse{}, err
	}
	c, err := s.accounts.Resolve(ctx, req.Account)
	if err != nil {
		return LedgerResponse{}, err
	}
	r, err := get(c, ctx, req.ID)
	if err != nil {
		return LedgerResponse{}, err
	}
	a, err := ToLedgerAccount(r)
	if err != nil {
		return LedgerResponse{}, err
	}
	return LedgerResponse{Account: a}, nil
}
