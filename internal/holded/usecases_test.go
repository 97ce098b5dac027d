package holded

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

type fakeHolded struct {
	docType   string
	document  *DocumentBody
	query     url.Values
	contact   *ContactBody
	treasury  *TreasuryBody
	docs      []DocumentRecord
	products  []ProductRecord
	noID      bool
	createID  string
	createErr error
	listCalls []string
}

func (f *fakeHolded) created() (*Created, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createID != "" {
		return &Created{Status: 1, ID: Str(f.createID)}, nil
	}
	if f.noID {
		return &Created{Status: 1}, nil
	}
	return &Created{Status: 1, ID: "new-1"}, nil
}

func (f *fakeHolded) CreateDocument(_ context.Context, docType string, body *DocumentBody) (*Created, error) {
	f.docType, f.document = docType, body
	return f.created()
}

func (f *fakeHolded) GetDocument(_ context.Context, docType, id string) (*DocumentRecord, error) {
	f.docType = docType
	if id == "missing" {
		return nil, connector.NewNotFoundError("document not found", nil)
	}
	return &DocumentRecord{ID: Str(id), Status: "0"}, nil
}

func (f *fakeHolded) ListDocuments(_ context.Context, docType string, q url.Values) ([]DocumentRecord, error) {
	f.docType, f.query = docType, q
	return f.docs, nil
}

func (f *fakeHolded) CreateContact(_ context.Context, body *ContactBody) (*Created, error) {
	f.contact = body
	return f.created()
}

func (f *fakeHolded) GetContact(_ context.Context, id string) (*ContactRecord, error) {
	return &ContactRecord{ID: Str(id), Name: "ACME"}, nil
}

func (f *fakeHolded) ListContacts(_ context.Context, typ string) ([]ContactRecord, error) {
	f.listCalls = append(f.listCalls, "contacts:"+typ)
	return []ContactRecord{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}, nil
}

func (f *fakeHolded) ListProducts(context.Context) ([]ProductRecord, error) {
	return f.products, nil
}

func (f *fakeHolded) GetProduct(_ context.Context, id string) (*ProductRecord, error) {
	return &ProductRecord{ID: Str(id), Name: "Widget"}, nil
}

func (f *fakeHolded) ListTreasury(context.Context) ([]TreasuryRecord, error) {
	return []TreasuryRecord{{ID: "t1", Name: "Main"}}, nil
}

func (f *fakeHolded) GetTreasury(_ context.Context, id string) (*TreasuryRecord, error) {
	return &TreasuryRecord{ID: Str(id), Type: TreasuryCash}, nil
}

func (f *fakeHolded) CreateTreasury(_ context.Context, body *TreasuryBody) (*Created, error) {
	f.treasury = body
	return f.created()
}

func (f *fakeHolded) ListExpenseAccounts(context.Context) ([]LedgerRecord, error) {
	f.listCalls = append(f.listCalls, "expenses")
	return []LedgerRecord{{ID: "e1", Name: "Rent"}}, nil
}

func (f *fakeHolded) GetExpenseAccount(_ context.Context, id string) (*LedgerRecord, error) {
	return &LedgerRecord{ID: Str(id), Name: "Rent"}, nil
}

func (f *fakeHolded) ListIncomeAccounts(context.Context) ([]LedgerRecord, error) {
	f.listCalls = append(f.listCalls, "incomes")
	return []LedgerRecord{{ID: "i1", Name: "Sales"}, {}}, nil
}

func (f *fakeHolded) GetIncomeAccount(_ context.Context, id string) (*LedgerRecord, error) {
	return &LedgerRecord{ID: Str(id), Name: "Sales"}, nil
}

func newTestService(t *testing.T) (*Service, *fakeHolded) {
	t.Helper()
	f := &fakeHolded{}
	m := accounts.NewManager[API](ServiceName, func(context.Context, string) (API, error) { return f, nil })
	_, err := m.Register(context.Background(), "company")
	require.NoError(t, err)
	return NewService(m), f
}

func TestCreateInvoice(t *testing.T) {
	s, f := newTestService(t)
	res := s.CreateInvoice(context.Background(), CreateInvoiceRequest{Draft: InvoiceDraft{
		ContactID: "c1",
		DocType:   DocProforma,
		Items:     []Item{{Name: "x", Price: 5}},
	}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, CreatedResponse{ID: "new-1", DocType: DocProforma}, res.Value)
	assert.Equal(t, DocProforma, f.docType)
	assert.Equal(t, "c1", f.document.ContactID)

	res = s.CreateInvoice(context.Background(), CreateInvoiceRequest{Draft: InvoiceDraft{ContactID: "c1"}})
	assert.Equal(t, "create invoice failed: malformed request: invoice needs at least one item", res.Error)

	f.noID = true
	res = s.CreateInvoice(context.Background(), CreateInvoiceRequest{Draft: InvoiceDraft{ContactID: "c1", Items: []Item{{Name: "x"}}}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "has no id")
}

func TestGetInvoice(t *testing.T) {
	s, f := newTestService(t)
	res := s.GetInvoice(context.Background(), GetInvoiceRequest{InvoiceID: "e1", DocType: DocEstimate})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, DocEstimate, f.docType)
	assert.Equal(t, DocEstimate, res.Value.Invoice.DocType)
	assert.Equal(t, StatusUnpaid, res.Value.Invoice.Status)

	res = s.GetInvoice(context.Background(), GetInvoiceRequest{InvoiceID: "missing"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")

	res = s.GetInvoice(context.Background(), GetInvoiceRequest{})
	assert.Equal(t, "get invoice failed: malformed request: invoice_id is required", res.Error)
}

func TestListInvoices(t *testing.T) {
	s, f := newTestService(t)
	for i := range 10 {
		f.docs = append(f.docs, DocumentRecord{ID: Str(fmt.Sprintf("d%d", i))})
	}
	f.docs = append([]DocumentRecord{{}}, f.docs...)

	res := s.ListInvoices(context.Background(), ListInvoicesRequest{Criteria: InvoiceCriteria{Status: StatusUnpaid, MaxResults: 5}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 5, res.Value.Count)
	for i, inv := range res.Value.Invoices {
		assert.Equal(t, fmt.Sprintf("d%d", i), inv.ID)
	}
	assert.Equal(t, "0", f.query.Get("paid"))

	res = s.ListInvoices(context.Background(), ListInvoicesRequest{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 10, res.Value.Count)

	res = s.ListInvoices(context.Background(), ListInvoicesRequest{Account: "other"})
	assert.False(t, res.Success)
}

func TestClampMaxResults(t *testing.T) {
	assert.Equal(t, DefaultMaxResults, clampMaxResults(0))
	assert.Equal(t, 7, clampMaxResults(7))
	assert.Equal(t, MaxResultsLimit, clampMaxResults(10_000))
}

func TestCreateContactResult(t *testing.T) {
	s, f := newTestService(t)
	f.createID = "abc123"

	res := s.CreateContact(context.Background(), CreateContactRequest{Draft: ContactDraft{Name: "ACME"}})
	require.True(t, res.Success, res.Error)
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"id":"abc123"}`, string(raw))

	f.createErr = connector.NewAuthenticationError("api key rejected", nil)
	res = s.CreateContact(context.Background(), CreateContactRequest{Draft: ContactDraft{Name: "ACME"}})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestContactUseCases(t *testing.T) {
	s, f := newTestService(t)
	res := s.CreateContact(context.Background(), CreateContactRequest{Draft: ContactDraft{Name: "ACME", Type: ContactLead}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "new-1", res.Value.ID)
	assert.Equal(t, ContactLead, f.contact.Type)

	got := s.GetContact(context.Background(), IDRequest{ID: "c9"})
	require.True(t, got.Success, got.Error)
	assert.Equal(t, "ACME", got.Value.Contact.Name)

	list := s.ListContacts(context.Background(), ListContactsRequest{Type: "Supplier", MaxResults: 2})
	require.True(t, list.Success, list.Error)
	assert.Equal(t, 2, list.Value.Count)
	assert.Equal(t, []string{"contacts:supplier"}, f.listCalls)

	list = s.ListContacts(context.Background(), ListContactsRequest{Type: "partner"})
	assert.False(t, list.Success)
	assert.Len(t, f.listCalls, 1)
}

func TestListProducts(t *testing.T) {
	s, f := newTestService(t)
	off := false
	f.products = []ProductRecord{{ID: "p1"}, {ID: "p2", Active: &off}, {ID: "p3"}}

	res := s.ListProducts(context.Background(), ListProductsRequest{ActiveOnly: true})
	require.True(t, res.Success, res.Error)
	require.Equal(t, 2, res.Value.Count)
	assert.Equal(t, "p3", res.Value.Products[1].ID)

	f.products = []ProductRecord{{ID: "p1"}, {ID: "p2", Active: &off}, {ID: "p3"}}
	res = s.ListProducts(context.Background(), ListProductsRequest{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.Value.Count)

	got := s.GetProduct(context.Background(), IDRequest{ID: "p1"})
	require.True(t, got.Success, got.Error)
	assert.Equal(t, "Widget", got.Value.Product.Name)
}

func TestTreasuryUseCases(t *testing.T) {
	s, f := newTestService(t)
	list := s.ListTreasuryAccounts(context.Background(), ListRequest{})
	require.True(t, list.Success, list.Error)
	assert.Equal(t, 1, list.Value.Count)

	got := s.GetTreasuryAccount(context.Background(), IDRequest{ID: "t2"})
	require.True(t, got.Success, got.Error)
	assert.Equal(t, TreasuryCash, got.Value.Account.Type)

	res := s.CreateTreasuryAccount(context.Background(), CreateTreasuryRequest{Draft: TreasuryDraft{Name: "Petty cash", Type: TreasuryCash}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Petty cash", f.treasury.Name)

	got = s.GetTreasuryAccount(context.Background(), IDRequest{})
	assert.Equal(t, "get treasury account failed: malformed request: treasury_id is required", got.Error)
}

func TestLedgerUseCases(t *testing.T) {
	s, f := newTestService(t)
	exp := s.ListExpenseAccounts(context.Background(), ListRequest{})
	require.True(t, exp.Success, exp.Error)
	assert.Equal(t, "Rent", exp.Value.Accounts[0].Name)

	inc := s.ListIncomeAccounts(context.Background(), ListRequest{})
	require.True(t, inc.Success, inc.Error)
	assert.Equal(t, 1, inc.Value.Count)
	assert.Equal(t, []string{"expenses", "incomes"}, f.listCalls)

	one := s.GetIncomeAccount(context.Background(), IDRequest{ID: "i1"})
	require.True(t, one.Success, one.Error)
	assert.Equal(t, "Sales", one.Value.Account.Name)

	one = s.GetExpenseAccount(context.Background(), IDRequest{})
	assert.Equal(t, "get expense account failed: malformed request: account_id is required", one.Error)
}
