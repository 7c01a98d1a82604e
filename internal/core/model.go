package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes the financial document families. Invoices and
// bills share one lifecycle table; quotes and purchase orders have their own.
type DocumentKind string

const (
	KindInvoice       DocumentKind = "invoice"
	KindBill          DocumentKind = "bill"
	KindQuote         DocumentKind = "quote"
	KindPurchaseOrder DocumentKind = "purchase_order"
	KindCreditNote    DocumentKind = "credit_note"
)

// Noun returns the singular display noun for error messages.
func (k DocumentKind) Noun() string {
	switch k {
	case KindPurchaseOrder:
		return "purchase order"
	case KindCreditNote:
		return "credit note"
	}
	return string(k)
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusPaid      Status = "paid"
	StatusVoided    Status = "voided"

	// Credit note terminal state once remaining credit reaches zero.
	StatusApplied Status = "applied"

	// Quote lifecycle.
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusInvoiced Status = "invoiced"

	// Purchase order terminal state once converted to a bill.
	StatusBilled Status = "billed"
)

// AmountType states how unit prices relate to tax.
type AmountType string

const (
	AmountTypeExclusive AmountType = "exclusive"
	AmountTypeInclusive AmountType = "inclusive"
	AmountTypeNoTax     AmountType = "no_tax"
)

func (a AmountType) Valid() bool {
	switch a {
	case AmountTypeExclusive, AmountTypeInclusive, AmountTypeNoTax:
		return true
	}
	return false
}

// Contact is the minimal counterparty master record. Its name is snapshotted
// onto documents at creation time so renames do not rewrite history.
type Contact struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LineItem is owned by its parent document. On a draft edit the whole line
// set is deleted and recreated; there is no partial line patch.
type LineItem struct {
	ID              int             `json:"id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	LineAmount      decimal.Decimal `json:"line_amount"`
}

// Document is an invoice or bill header with its derived balances.
//
// Invariants maintained by the services:
//
//	Total     = round2(SubTotal + TotalTax)
//	AmountDue = max(0, round2(Total - AmountPaid)), 0 <= AmountPaid <= Total
//
// Line items are mutable only while Status is draft.
type Document struct {
	ID             int             `json:"id"`
	Kind           DocumentKind    `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	ContactID      int             `json:"contact_id"`
	ContactName    string          `json:"contact_name"`
	Status         Status          `json:"status"`
	AmountType     AmountType      `json:"amount_type"`
	IssueDate      string          `json:"issue_date"` // YYYY-MM-DD
	DueDate        string          `json:"due_date"`   // YYYY-MM-DD
	SubTotal       decimal.Decimal `json:"sub_total"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	Lines          []LineItem      `json:"line_items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
}

// Payment records money received (invoice) or paid out (bill) against exactly
// one document. Immutable once created; no reversal operation exists.
type Payment struct {
	ID          int             `json:"id"`
	InvoiceID   *int            `json:"invoice_id,omitempty"`
	BillID      *int            `json:"bill_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"` // YYYY-MM-DD
	Reference   string          `json:"reference,omitempty"`
	AccountCode string          `json:"account_code,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreditNoteType string

const (
	CreditNoteSales    CreditNoteType = "sales"
	CreditNotePurchase CreditNoteType = "purchase"
)

// CreditNote carries a balance that can be applied against outstanding
// documents. RemainingCredit starts equal to Total and only ever decreases;
// the note becomes applied once it reaches zero.
type CreditNote struct {
	ID               int             `json:"id"`
	Type             CreditNoteType  `json:"type"`
	CreditNoteNumber string          `json:"credit_note_number"`
	ContactID        int             `json:"contact_id"`
	ContactName      string          `json:"contact_name"`
	Status           Status          `json:"status"`
	AmountType       AmountType      `json:"amount_type"`
	IssueDate        string          `json:"issue_date"` // YYYY-MM-DD
	SubTotal         decimal.Decimal `json:"sub_total"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	Total            decimal.Decimal `json:"total"`
	RemainingCredit  decimal.Decimal `json:"remaining_credit"`
	// Document the note was most recently applied to, if any.
	AppliedToID *int       `json:"applied_to_id,omitempty"`
	Lines       []LineItem `json:"line_items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Allocation is one decision of the credit allocator: this much of the note's
// balance went to this invoice. The ordered allocation list is the audit trail
// of an auto-allocate run.
type Allocation struct {
	InvoiceID int             `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}
