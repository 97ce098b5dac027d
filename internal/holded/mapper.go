package holded

import (
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/connectorhub/internal/connector"
)

// ParseDate parses a YYYY-MM-DD argument. Empty input yields the zero time.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, connector.Invalidf("%s must be a date in YYYY-MM-DD form", field)
	}
	return t, nil
}

func unixTime(n Number) *time.Time {
	if n <= 0 {
		return nil
	}
	t := time.Unix(int64(n), 0).UTC()
	return &t
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func active(b *bool) bool {
	return b == nil || *b
}

func first(vals ...Str) string {
	for _, v := range vals {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// documentStatus maps the numeric status of stored documents.
var documentStatus = map[string]string{
	"0": StatusUnpaid,
	"1": StatusPaid,
	"2": "partially_paid",
	"3": "cancelled",
}

// ToInvoice maps an invoicing document.
func ToInvoice(r *DocumentRecord) (*Invoice, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("invoice", "id")
	}
	lines := r.Items
	if len(lines) == 0 {
		lines = r.Products
	}
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		price := l.Subtotal
		if price == 0 {
			price = l.Price
		}
		units := float64(l.Units)
		if units == 0 {
			units = 1
		}
		items = append(items, Item{
			Name:        string(l.Name),
			Description: string(l.Desc),
			Quantity:    units,
			Price:       float64(price),
			TaxRate:     float64(l.Tax),
			Discount:    float64(l.Discount),
			ProductID:   string(l.ProductID),
		})
	}

	status := string(r.Status)
	if s, ok := documentStatus[status]; ok {
		status = s
	}
	if status == "" {
		status = "draft"
	}
	paidAmount := r.PaidAmount
	if paidAmount == 0 {
		paidAmount = r.PaymentsTotal
	}
	typ := string(r.DocType)
	if typ == "" {
		typ = DocInvoice
	}
	return &Invoice{
		ID:            string(r.ID),
		DocType:       typ,
		Number:        first(r.DocNumber, r.Number),
		ContactID:     first(r.ContactID, r.Contact),
		ContactName:   string(r.ContactName),
		ContactEmail:  string(r.ContactEmail),
		Date:          unixTime(r.Date),
		DueDate:       unixTime(r.DueDate),
		Items:         items,
		Subtotal:      float64(r.Subtotal),
		Tax:           float64(r.Tax),
		Total:         float64(r.Total),
		Paid:          (r.Paid != nil && *r.Paid) || status == StatusPaid,
		PaidAmount:    float64(paidAmount),
		PaymentMethod: string(r.PaymentMethod),
		Status:        status,
		Currency:      string(r.Currency),
		Notes:         string(r.Notes),
		Tags:          r.Tags,
		CreatedAt:     unixTime(r.CreatedAt),
	}, nil
}

func docType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return DocInvoice, nil
	}
	if !docTypes[t] {
		return "", connector.Invalidf("unknown document type %q", t)
	}
	return t, nil
}

// FromInvoiceDraft validates d and builds the create body. It returns the
// document type, which goes into the request path.
func FromInvoiceDraft(d InvoiceDraft) (string, *DocumentBody, error) {
	typ, err := docType(d.DocType)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(d.ContactID) == "" {
		return "", nil, connector.Required("contact_id")
	}
	if len(d.Items) == 0 {
		return "", nil, connector.Invalidf("invoice needs at least one item")
	}
	if !d.Date.IsZero() && !d.DueDate.IsZero() && d.DueDate.Before(d.Date) {
		return "", nil, connector.Invalidf("due date is before the invoice date")
	}
	body := &DocumentBody{
		ContactID:     d.ContactID,
		Date:          unixSeconds(d.Date),
		DueDate:       unixSeconds(d.DueDate),
		Items:         make([]LineBody, 0, len(d.Items)),
		Notes:         d.Notes,
		Tags:          d.Tags,
		PaymentMethod: d.PaymentMethod,
		Currency:      strings.ToLower(d.Currency),
	}
	for i, it := range d.Items {
		if strings.TrimSpace(it.Name) == "" {
			return "", nil, connector.Invalidf("item %d: name is required", i)
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		switch {
		case qty < 0:
			return "", nil, connector.Invalidf("item %d: quantity must be positive", i)
		case it.Price < 0:
			return "", nil, connector.Invalidf("item %d: price must not be negative", i)
		case it.TaxRate < 0 || it.TaxRate > 100:
			return "", nil, connector.Invalidf("item %d: tax rate must be between 0 and 100", i)
		case it.Discount < 0 || it.Discount > 100:
			return "", nil, connector.Invalidf("item %d: discount must be between 0 and 100", i)
		}
		body.Items = append(body.Items, LineBody{
			Name:      it.Name,
			Desc:      it.Description,
			Units:     qty,
			Subtotal:  it.Price,
			Tax:       it.TaxRate,
			Discount:  it.Discount,
			ProductID: it.ProductID,
		})
	}
	return typ, body, nil
}

// InvoiceQuery validates c and returns the document type and the query of
// the listing call.
func InvoiceQuery(c InvoiceCriteria) (string, url.Values, error) {
	typ, err := docType(c.DocType)
	if err != nil {
		return "", nil, err
	}
	if !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From) {
		return "", nil, connector.Invalidf("to date is before from date")
	}
	q := url.Values{}
	if c.ContactID != "" {
		q.Set("contactid", c.ContactID)
	}
	if !c.From.IsZero() {
		q.Set("starttmp", strconv.FormatInt(c.From.Unix(), 10))
	}
	if !c.To.IsZero() {
		// Inclusive of the whole end day.
		q.Set("endtmp", strconv.FormatInt(c.To.Add(24*time.Hour-time.Second).Unix(), 10))
	}
	switch strings.ToLower(c.Status) {
	case "":
	case StatusUnpaid:
		q.Set("paid", "0")
	case StatusPaid:
		q.Set("paid", "1")
	case StatusOverdue:
		q.Set("paid", "2")
	default:
		return "", nil, connector.Invalidf("status must be %s, %s or %s", StatusUnpaid, StatusPaid, StatusOverdue)
	}
	return typ, q, nil
}

func toAddress(a *AddressRecord) *Address {
	if a == nil {
		return nil
	}
	out := &Address{
		Street:     string(a.Address),
		City:       string(a.City),
		Province:   string(a.Province),
		PostalCode: string(a.PostalCode),
		Country:    string(a.Country),
	}
	if out.empty() {
		return nil
	}
	return out
}

func fromAddress(a *Address) *AddressBody {
	if a.empty() {
		return nil
	}
	return &AddressBody{
		Address:    a.Street,
		City:       a.City,
		Province:   a.Province,
		PostalCode: a.PostalCode,
		Country:    strings.ToUpper(a.Country),
	}
}

// ToContact maps a contact.
func ToContact(r *ContactRecord) (*Contact, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("contact", "id")
	}
	typ := string(r.Type)
	if typ == "" {
		typ = ContactClient
	}
	return &Contact{
		ID:              string(r.ID),
		Name:            string(r.Name),
		Code:            string(r.Code),
		Email:           string(r.Email),
		Phone:           string(r.Phone),
		Mobile:          string(r.Mobile),
		VATNumber:       string(r.VATNumber),
		BillingAddress:  toAddress(r.BillAddress),
		ShippingAddress: toAddress(r.ShipAddress),
		Type:            typ,
		Notes:           string(r.Notes),
		Tags:            r.Tags,
		CreatedAt:       unixTime(r.CreatedAt),
		UpdatedAt:       unixTime(r.UpdatedAt),
	}, nil
}

// ContactType validates a contact type; empty selects every type.
func ContactType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t != "" && !contactTypes[t] {
		return "", connector.Invalidf("unknown contact type %q", t)
	}
	return t, nil
}

// FromContactDraft validates d and builds the create body.
func FromContactDraft(d ContactDraft) (*ContactBody, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, connector.Required("name")
	}
	typ, err := ContactType(d.Type)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		typ = ContactClient
	}
	if d.Email != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			return nil, connector.Invalidf("invalid email %q", d.Email)
		}
	}
	return &ContactBody{
		Name:        strings.TrimSpace(d.Name),
		Type:        typ,
		Code:        d.Code,
		Email:       d.Email,
		Phone:       d.Phone,
		Mobile:      d.Mobile,
		VATNumber:   strings.ToUpper(strings.ReplaceAll(d.VATNumber, " ", "")),
		BillAddress: fromAddress(d.BillingAddress),
		ShipAddress: fromAddress(d.ShippingAddress),
		Notes:       d.Notes,
		Tags:        d.Tags,
	}, nil
}

// ToProduct maps a product. A product without an active flag is active.
func ToProduct(r *ProductRecord) (*Product, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("product", "id")
	}
	p := &Product{
		ID:          string(r.ID),
		Name:        string(r.Name),
		Code:        first(r.Code, r.SKU),
		Description: string(r.Desc),
		Price:       float64(r.Price),
		TaxRate:     float64(r.Tax),
		Type:        first(r.Type, r.Kind),
		TrackStock:  r.TrackStock,
		Active:      active(r.Active),
		Category:    string(r.Category),
		Tags:        r.Tags,
		CreatedAt:   unixTime(r.CreatedAt),
		UpdatedAt:   unixTime(r.UpdatedAt),
	}
	if p.Type == "" {
		p.Type = "product"
	}
	if r.Cost != nil && *r.Cost != 0 {
		c := float64(*r.Cost)
		p.Cost = &c
	}
	if r.Stock != nil {
		s := float64(*r.Stock)
		p.Stock = &s
	}
	return p, nil
}

// ToTreasury maps a treasury account.
func ToTreasury(r *TreasuryRecord) (*TreasuryAccount, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("treasury account", "id")
	}
	typ := string(r.Type)
	if typ == "" {
		typ = TreasuryBank
	}
	return &TreasuryAccount{
		ID:                      string(r.ID),
		Name:                    string(r.Name),
		Type:                    typ,
		IBAN:                    string(r.IBAN),
		SWIFT:                   string(r.SWIFT),
		BankName:                string(r.BankName),
		AccountingAccount:       string(r.AccountingAccount),
		AccountingAccountNumber: string(r.AccountNumber),
		Balance:                 float64(r.Balance),
		InitialBalance:          float64(r.InitialBalance),
		Active:                  active(r.Active),
		Notes:                   string(r.Notes),
		CreatedAt:               unixTime(r.CreatedAt),
		UpdatedAt:               unixTime(r.UpdatedAt),
	}, nil
}

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

// FromTreasuryDraft validates d and builds the create body. IBANs are
// normalized to upper case without spaces.
func FromTreasuryDraft(d TreasuryDraft) (*TreasuryBody, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, connector.Required("name")
	}
	typ := strings.ToLower(strings.TrimSpace(d.Type))
	switch typ {
	case "":
		typ = TreasuryBank
	case TreasuryBank, TreasuryCash, TreasuryOther:
	default:
		return nil, connector.Invalidf("treasury type must be %s, %s or %s", TreasuryBank, TreasuryCash, TreasuryOther)
	}
	iban := strings.ToUpper(strings.ReplaceAll(d.IBAN, " ", ""))
	if iban != "" && !ibanPattern.MatchString(iban) {
		return nil, connector.Invalidf("invalid IBAN %q", d.IBAN)
	}
	return &TreasuryBody{
		Name:           strings.TrimSpace(d.Name),
		Type:           typ,
		IBAN:           iban,
		SWIFT:          strings.ToUpper(strings.TrimSpace(d.SWIFT)),
		BankName:       d.BankName,
		AccountNumber:  d.AccountingAccountNumber,
		InitialBalance: d.InitialBalance,
		Notes:          d.Notes,
	}, nil
}

// ToLedgerAccount maps an expense or income account.
func ToLedgerAccount(r *LedgerRecord) (*LedgerAccount, error) {
	if r == nil || r.ID == "" {
		return nil, connector.MissingFieldError("account", "id")
	}
	return &LedgerAccount{
		ID:            string(r.ID),
		Name:          string(r.Name),
		AccountNumber: string(r.AccountNum),
		Code:          string(r.Code),
		Category:      string(r.Category),
		Subcategory:   string(r.Subcategory),
		Description:   string(r.Desc),
		Active:        active(r.Active),
		Balance:       float64(r.Balance),
		ParentID:      string(r.ParentID),
		CreatedAt:     unixTime(r.CreatedAt),
		UpdatedAt:     unixTime(r.UpdatedAt),
	}, nil
}
