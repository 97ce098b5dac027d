package holded

import "time"

// Document types.
const (
	DocInvoice      = "invoice"
	DocSalesReceipt = "salesreceipt"
	DocCreditNote   = "creditnote"
	DocEstimate     = "estimate"
	DocProforma     = "proform"
	DocSalesOrder   = "salesorder"
	DocPurchase     = "purchase"
)

var docTypes = map[string]bool{
	DocInvoice: true, DocSalesReceipt: true, DocCreditNote: true, DocEstimate: true,
	DocProforma: true, DocSalesOrder: true, DocPurchase: true,
}

// Invoice payment states accepted by list filters.
const (
	StatusUnpaid  = "unpaid"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// Contact types.
const (
	ContactClient   = "client"
	ContactSupplier = "supplier"
	ContactLead     = "lead"
	ContactDebtor   = "debtor"
	ContactCreditor = "creditor"
)

var contactTypes = map[string]bool{
	ContactClient: true, ContactSupplier: true, ContactLead: true, ContactDebtor: true, ContactCreditor: true,
}

// Treasury account types.
const (
	TreasuryBank  = "bank"
	TreasuryCash  = "cash"
	TreasuryOther = "other"
)

// DateLayout is the date format of tool arguments.
const DateLayout = "2006-01-02"

// Item is an invoice line.
type Item struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	// Price is the net unit price.
	Price     float64 `json:"price"`
	TaxRate   float64 `json:"tax_rate"`
	Discount  float64 `json:"discount,omitempty"`
	ProductID string  `json:"product_id,omitempty"`
}

// Invoice is an invoicing document.
type Invoice struct {
	ID            string     `json:"id"`
	DocType       string     `json:"doc_type"`
	Number        string     `json:"number,omitempty"`
	ContactID     string     `json:"contact_id,omitempty"`
	ContactName   string     `json:"contact_name,omitempty"`
	ContactEmail  string     `json:"contact_email,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Items         []Item     `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Total         float64    `json:"total"`
	Paid          bool       `json:"paid"`
	PaidAmount    float64    `json:"paid_amount"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	Status        string     `json:"status"`
	Currency      string     `json:"currency,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// InvoiceDraft is the input for creating a document.
type InvoiceDraft struct {
	ContactID     string
	DocType       string
	Date          time.Time
	DueDate       time.Time
	Items         []Item
	Notes         string
	Tags          []string
	PaymentMethod string
	Currency      string
}

// InvoiceCriteria filters a document listing.
type InvoiceCriteria struct {
	DocType    string
	ContactID  string
	Status     string
	From       time.Time
	To         time.Time
	MaxResults int
}

// Address is a postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a *Address) empty() bool {
	return a == nil || *a == Address{}
}

// Contact is a client, supplier or other business contact.
type Contact struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Code            string     `json:"code,omitempty"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Mobile          string     `json:"mobile,omitempty"`
	VATNumber       string     `json:"vat_number,omitempty"`
	BillingAddress  *Address   `json:"billing_address,omitempty"`
	ShippingAddress *Address   `json:"shipping_address,omitempty"`
	Type            string     `json:"type"`
	Notes           string     `json:"notes,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// ContactDraft is the input for creating a contact.
type ContactDraft struct {
	Name            string
	Type            string
	Code            string
	Email           string
	Phone           string
	Mobile          string
	VATNumber       string
	BillingAddress  *Address
	ShippingAddress *Address
	Notes           string
	Tags            []string
}

// Product is a catalog product or service.
type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code,omitempty"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Cost        *float64   `json:"cost,omitempty"`
	TaxRate     float64    `json:"tax_rate"`
	Type        string     `json:"type"`
	Stock       *float64   `json:"stock,omitempty"`
	TrackStock  bool       `json:"track_stock"`
	Active      bool       `json:"active"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// TreasuryAccount is a bank or cash account.
type TreasuryAccount struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Type                    string     `json:"type"`
	IBAN                    string     `json:"iban,omitempty"`
	SWIFT                   string     `json:"swift,omitempty"`
	BankName                string     `json:"bank_name,omitempty"`
	AccountingAccount       string     `json:"accounting_account,omitempty"`
	AccountingAccountNumber string     `json:"accounting_account_number,omitempty"`
	Balance                 float64    `json:"balance"`
	InitialBalance          float64    `json:"initial_balance"`
	Active                  bool       `json:"active"`
	Notes                   string     `json:"notes,omitempty"`
	CreatedAt               *time.Time `json:"created_at,omitempty"`
	UpdatedAt               *time.Time `json:"updated_at,omitempty"`
}

// TreasuryDraft is the input for creating a treasury account.
type TreasuryDraft struct {
	Name                    string
	Type                    string
	IBAN                    string
	SWIFT                   string
	BankName                string
	AccountingAccountNumber string
	InitialBalance          float64
	Notes                   string
}

// LedgerAccount is an expense or income account of the chart of accounts.
type LedgerAccount struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	AccountNumber string     `json:"account_number,omitempty"`
	Code          string     `json:"code,omitempty"`
	Category      string     `json:"category,omitempty"`
	Subcategory   string     `json:"subcategory,omitempty"`
	Description   string     `json:"description,omitempty"`
	Active        bool       `json:"active"`
	Balance       float64    `json:"balance"`
	ParentID      string     `json:"parent_id,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
