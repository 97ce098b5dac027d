package holded_tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/tools/toolstest"
)

func newHoldedServer(t *testing.T, handler http.HandlerFunc, readOnly bool) *mcpserver.MCPServer {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(api.Close)

	sc := toolstest.NewServerContext(t, map[string]string{
		"HOLDED_API_KEY":      "test-key",
		"HOLDED_API_BASE_URL": api.URL,
	}, readOnly)
	s := toolstest.NewMCPServer()
	require.NoError(t, RegisterHoldedTools(s, sc, readOnly))
	return s
}

func TestRegisterHoldedTools(t *testing.T) {
	readOnly := []string{
		"holded_get_contact",
		"holded_get_expense_account",
		"holded_get_income_account",
		"holded_get_invoice",
		"holded_get_product",
		"holded_get_treasury_account",
		"holded_list_contacts",
		"holded_list_expense_accounts",
		"holded_list_income_accounts",
		"holded_list_invoices",
		"holded_list_products",
		"holded_list_treasury_accounts",
		"list_holded_accounts",
		"set_default_holded_account",
	}
	s := newHoldedServer(t, func(w http.ResponseWriter, r *http.Request) {}, true)
	assert.Equal(t, readOnly, toolstest.ToolNames(t, s))

	s = newHoldedServer(t, func(w http.ResponseWriter, r *http.Request) {}, false)
	names := toolstest.ToolNames(t, s)
	assert.Len(t, names, len(readOnly)+5)
	for _, n := range []string{
		"add_holded_account",
		"holded_create_contact",
		"holded_create_invoice",
		"holded_create_treasury_account",
		"remove_holded_account",
	} {
		assert.Contains(t, names, n)
	}
}

func TestHoldedListInvoices(t *testing.T) {
	s := newHoldedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoicing/v1/documents/invoice", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("paid"))
		assert.Equal(t, "c1", r.URL.Query().Get("contactid"))
		assert.Equal(t, "1735689600", r.URL.Query().Get("starttmp"))
		_, _ = w.Write([]byte(`[
			{"id":"i1","docType":"invoice","docNumber":"F001","contactId":"c1","contactName":"Acme","date":1736000000,
			 "products":[{"name":"Consulting","units":2,"price":100,"tax":21}],"subtotal":200,"tax":42,"total":242,"status":1},
			{"id":"i2","docType":"invoice","total":10},
			{"docType":"invoice","total":5}
		]`))
	}, true)

	res := toolstest.CallTool(t, s, "holded_list_invoices", map[string]any{
		"status":      "paid",
		"contact_id":  "c1",
		"from":        "2025-01-01",
		"max_results": 10,
	})
	require.False(t, res.IsError, res.Text)
	assert.EqualValues(t, 2, res.JSON["count"])
	invoices := res.JSON["invoices"].([]any)
	first := invoices[0].(map[string]any)
	assert.Equal(t, "i1", first["id"])
	assert.Equal(t, "Acme", first["contact_name"])
	assert.EqualValues(t, 242, first["total"])
	items := first["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Consulting", items[0].(map[string]any)["name"])
}

func TestHoldedCreateInvoice(t *testing.T) {
	var body map[string]any
	s := newHoldedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoicing/v1/documents/estimate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"status":1,"id":"est-1","info":"created"}`))
	}, false)

	res := toolstest.CallTool(t, s, "holded_create_invoice", map[string]any{
		"contact_id": "c1",
		"doc_type":   "estimate",
		"date":       "2025-03-01",
		"items": []any{
			map[string]any{"name": "Workshop", "price": 500, "tax_rate": 21},
		},
		"currency": "EUR",
	})
	require.False(t, res.IsError, res.Text)
	assert.Equal(t, "est-1", res.JSON["id"])
	assert.Equal(t, "estimate", res.JSON["doc_type"])

	assert.Equal(t, "c1", body["contactId"])
	assert.Equal(t, "eur", body["currency"])
	assert.EqualValues(t, 1740787200, body["date"])
	lines := body["items"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.EqualValues(t, 1, line["units"])
	assert.EqualValues(t, 500, line["subtotal"])
	assert.EqualValues(t, 21, line["tax"])
}

func TestHoldedTools_Errors(t *testing.T) {
	s := newHoldedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/invoicing/v1/contacts/gone" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":0,"info":"Not found"}`))
			return
		}
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}, false)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr string
	}{
		{
			name:    "invoice without items",
			tool:    "holded_create_invoice",
			args:    map[string]any{"contact_id": "c1"},
			wantErr: "at least one item",
		},
		{
			name:    "invoice with bad tax",
			tool:    "holded_create_invoice",
			args:    map[string]any{"contact_id": "c1", "items": []any{map[string]any{"name": "x", "tax_rate": 150}}},
			wantErr: "tax rate must be between 0 and 100",
		},
		{
			name:    "unknown doc type",
			tool:    "holded_get_invoice",
			args:    map[string]any{"invoice_id": "i1", "doc_type": "receipt"},
			wantErr: "receipt",
		},
		{
			name:    "bad date",
			tool:    "holded_list_invoices",
			args:    map[string]any{"from": "01/02/2025"},
			wantErr: "from must be a date in YYYY-MM-DD form",
		},
		{
			name:    "unknown contact type",
			tool:    "holded_list_contacts",
			args:    map[string]any{"type": "partner"},
			wantErr: "partner",
		},
		{
			name:    "treasury with bad iban",
			tool:    "holded_create_treasury_account",
			args:    map[string]any{"name": "Main", "iban": "not-an-iban"},
			wantErr: "invalid IBAN",
		},
		{
			name:    "ledger account without id",
			tool:    "holded_get_income_account",
			args:    map[string]any{},
			wantErr: "account_id is required",
		},
		{
			name:    "contact not found",
			tool:    "holded_get_contact",
			args:    map[string]any{"contact_id": "gone"},
			wantErr: "not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := toolstest.CallTool(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError)
			require.NotNil(t, res.JSON, res.Text)
			assert.Equal(t, false, res.JSON["success"])
			assert.Contains(t, res.JSON["error"], tt.wantErr)
		})
	}
}

func TestHoldedLedgerTools(t *testing.T) {
	s := newHoldedServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/invoicing/v1/expensesaccounts":
			_, _ = w.Write([]byte(`[{"id":"e1","name":"Office supplies","accountNum":62900000}]`))
		case "/invoicing/v1/incomesaccounts/in1":
			_, _ = w.Write([]byte(`{"id":"in1","name":"Sales"}`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}, true)

	res := toolstest.CallTool(t, s, "holded_list_expense_accounts", map[string]any{})
	require.False(t, res.IsError, res.Text)
	assert.EqualValues(t, 1, res.JSON["count"])

	res = toolstest.CallTool(t, s, "holded_get_income_account", map[string]any{"account_id": "in1"})
	require.False(t, res.IsError, res.Text)
	account := res.JSON["account"].(map[string]any)
	assert.Equal(t, "Sales", account["name"])
}
