package holded

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes a JSON number or a numeric string. Holded is not
// consistent about which one it returns.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Str decodes a JSON string or a bare number as a string.
type Str string

func (s *Str) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Str(v)
	default:
		*s = Str(b)
	}
	return nil
}

// Line is a document line as returned by the API. Created documents echo
// "items"; stored documents list "products".
type Line struct {
	Name      Str    `json:"name"`
	Desc      Str    `json:"desc"`
	Units     Number `json:"units"`
	Subtotal  Number `json:"subtotal"`
	Price     Number `json:"price"`
	Tax       Number `json:"tax"`
	Discount  Number `json:"discount"`
	ProductID Str    `json:"productId"`
}

// DocumentRecord is an invoicing document.
type DocumentRecord struct {
	ID            Str      `json:"id"`
	DocType       Str      `json:"docType"`
	DocNumber     Str      `json:"docNumber"`
	Number        Str      `json:"number"`
	ContactID     Str      `json:"contactId"`
	Contact       Str      `json:"contact"`
	ContactName   Str      `json:"contactName"`
	ContactEmail  Str      `json:"contactEmail"`
	Date          Number   `json:"date"`
	DueDate       Number   `json:"dueDate"`
	CreatedAt     Number   `json:"createdAt"`
	Items         []Line   `json:"items"`
	Products      []Line   `json:"products"`
	Subtotal      Number   `json:"subtotal"`
	Tax           Number   `json:"tax"`
	Total         Number   `json:"total"`
	Paid          *bool    `json:"paid"`
	PaidAmount    Number   `json:"paidAmount"`
	PaymentsTotal Number   `json:"paymentsTotal"`
	PaymentMethod Str      `json:"paymentMethod"`
	Status        Str      `json:"status"`
	Currency      Str      `json:"currency"`
	Notes         Str      `json:"notes"`
	Tags          []string `json:"tags"`
}

type AddressRecord struct {
	Address    Str `json:"address"`
	City       Str `json:"city"`
	Province   Str `json:"province"`
	PostalCode Str `json:"postalCode"`
	Country    Str `json:"country"`
}

// ContactRecord is a contact. Field matching is case-insensitive, so
// "vatnumber" and "vatNumber" both land in VATNumber.
type ContactRecord struct {
	ID          Str            `json:"id"`
	Name        Str            `json:"name"`
	Code        Str            `json:"code"`
	Email       Str            `json:"email"`
	Phone       Str            `json:"phone"`
	Mobile      Str            `json:"mobile"`
	VATNumber   Str            `json:"vatnumber"`
	BillAddress *AddressRecord `json:"billAddress"`
	ShipAddress *AddressRecord `json:"shipAddress"`
	Type        Str            `json:"type"`
	Notes       Str            `json:"notes"`
	Tags        []string       `json:"tags"`
	CreatedAt   Number         `json:"createdAt"`
	UpdatedAt   Number         `json:"updatedAt"`
}

type ProductRecord struct {
	ID         Str      `json:"id"`
	Name       Str      `json:"name"`
	Code       Str      `json:"code"`
	SKU        Str      `json:"sku"`
	Desc       Str      `json:"desc"`
	Price      Number   `json:"price"`
	Cost       *Number  `json:"cost"`
	Tax        Number   `json:"tax"`
	Type       Str      `json:"type"`
	Kind       Str      `json:"kind"`
	Stock      *Number  `json:"stock"`
	TrackStock bool     `json:"trackStock"`
	Active     *bool    `json:"active"`
	Category   Str      `json:"category"`
	Tags       []string `json:"tags"`
	CreatedAt  Number   `json:"createdAt"`
	UpdatedAt  Number   `json:"updatedAt"`
}

type TreasuryRecord struct {
	ID                Str    `json:"id"`
	Name              Str    `json:"name"`
	Type              Str    `json:"type"`
	IBAN              Str    `json:"iban"`
	SWIFT             Str    `json:"swift"`
	BankName          Str    `json:"bankName"`
	AccountingAccount Str    `json:"accountingAccount"`
	AccountNumber     Str    `json:"accountNumber"`
	Balance           Number `json:"balance"`
	InitialBalance    Number `json:"initialBalance"`
	Active            *bool  `json:"active"`
	Notes             Str    `json:"notes"`
	CreatedAt         Number `json:"createdAt"`
	UpdatedAt         Number `json:"updatedAt"`
}

// LedgerRecord is an expense or income account.
type LedgerRecord struct {
	ID          Str    `json:"id"`
	Name        Str    `json:"name"`
	AccountNum  Str    `json:"accountNum"`
	Code        Str    `json:"code"`
	Category    Str    `json:"category"`
	Subcategory Str    `json:"subcategory"`
	Desc        Str    `json:"desc"`
	Active      *bool  `json:"active"`
	Balance     Number `json:"balance"`
	ParentID    Str    `json:"parentId"`
	CreatedAt   Number `json:"createdAt"`
	UpdatedAt   Number `json:"updatedAt"`
}

// Created is the response of create endpoints.
type Created struct {
	Status Number `json:"status"`
	ID     Str    `json:"id"`
	Info   Str    `json:"info"`
}

type LineBody struct {
	Name      string  `json:"name"`
	Desc      string  `json:"desc,omitempty"`
	Units     float64 `json:"units"`
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Discount  float64 `json:"discount,omitempty"`
	ProductID string  `json:"productId,omitempty"`
}

// DocumentBody creates a document. The document type is part of the path.
type DocumentBody struct {
	ContactID     string     `json:"contactId"`
	Date          int64      `json:"date,omitempty"`
	DueDate       int64      `json:"dueDate,omitempty"`
	Items         []LineBody `json:"items"`
	Notes         string     `json:"notes,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Currency      string     `json:"currency,omitempty"`
}

type AddressBody struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type ContactBody struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Code        string       `json:"code,omitempty"`
	Email       string       `json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Mobile      string       `json:"mobile,omitempty"`
	VATNumber   string       `json:"vatnumber,omitempty"`
	BillAddress *AddressBody `json:"billAddress,omitempty"`
	ShipAddress *AddressBody `json:"shipAddress,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
}

type TreasuryBody struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	IBAN           string  `json:"iban,omitempty"`
	SWIFT          string  `json:"swift,omitempty"`
	BankName       string  `json:"bankName,omitempty"`
	AccountNumber  string  `json:"accountNumber,omitempty"`
	InitialBalance float64 `json:"initialBalance"`
	Notes          string  `json:"notes,omitempty"`
}
