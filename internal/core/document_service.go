package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LineItemInput is one raw line of a create or edit request. Derived amounts
// are computed by the calculator, never accepted from the caller.
type LineItemInput struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
}

// CreateDocumentRequest creates a draft invoice or bill.
type CreateDocumentRequest struct {
	ContactID  int             `json:"contact_id"`
	AmountType AmountType      `json:"amount_type"`
	IssueDate  string          `json:"issue_date"`
	DueDate    string          `json:"due_date"`
	Lines      []LineItemInput `json:"line_items"`
}

// UpdateDocumentRequest replaces a draft document's editable fields. The line
// set is replaced wholesale; payment history is preserved and the amount due
// re-derived from the new total.
type UpdateDocumentRequest struct {
	AmountType AmountType      `json:"amount_type"`
	IssueDate  string          `json:"issue_date"`
	DueDate    string          `json:"due_date"`
	Lines      []LineItemInput `json:"line_items"`
}

// DocumentService manages invoice and bill headers, their line items, and
// their lifecycle transitions.
type DocumentService interface {
	CreateInvoice(ctx context.Context, req CreateDocumentRequest) (*Document, error)
	CreateBill(ctx context.Context, req CreateDocumentRequest) (*Document, error)
	// UpdateDraft rejects any document whose status is not draft.
	UpdateDraft(ctx context.Context, kind DocumentKind, id int, req UpdateDocumentRequest) (*Document, error)
	// Transition moves a document along its kind's lifecycle table.
	Transition(ctx context.Context, kind DocumentKind, id int, to Status) (*Document, error)
	GetDocument(ctx context.Context, kind DocumentKind, id int) (*Document, error)
	ListDocuments(ctx context.Context, kind DocumentKind, status *Status, contactID *int) ([]Document, error)
}

type documentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const dateLayout = "2006-01-02"

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// buildLines validates raw line input and runs the calculator over each line.
func buildLines(inputs []LineItemInput, amountType AmountType) ([]LineItem, Totals, error) {
	if len(inputs) == 0 {
		return nil, Totals{}, validationErrorf("at least one line item is required")
	}

	lines := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		if in.Quantity.IsNegative() {
			return nil, Totals{}, validationErrorf("line %d: quantity cannot be negative", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return nil, Totals{}, validationErrorf("line %d: unit price cannot be negative", i+1)
		}
		if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
			return nil, Totals{}, validationErrorf("line %d: discount percent must be between 0 and 100", i+1)
		}
		if in.TaxRatePercent.IsNegative() {
			return nil, Totals{}, validationErrorf("line %d: tax rate cannot be negative", i+1)
		}

		amounts := CalculateLine(in.Quantity, in.UnitPrice, in.DiscountPercent, in.TaxRatePercent, amountType)
		lines = append(lines, LineItem{
			Description:     in.Description,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.DiscountPercent,
			TaxRatePercent:  in.TaxRatePercent,
			TaxAmount:       amounts.TaxAmount,
			LineAmount:      amounts.LineAmount,
		})
	}
	return lines, AggregateTotals(lines), nil
}

func numberPrefix(kind DocumentKind) string {
	switch kind {
	case KindInvoice:
		return "INV"
	case KindBill:
		return "BILL"
	case KindQuote:
		return "QUO"
	case KindPurchaseOrder:
		return "PO"
	case KindCreditNote:
		return "CN"
	}
	return "DOC"
}

// nextDocumentNumber bumps the per-kind sequence atomically and formats the
// document number. The upsert holds a row lock until the surrounding
// transaction commits, so numbers are gapless and never duplicated under
// concurrent creation.
func nextDocumentNumber(ctx context.Context, tx pgx.Tx, kind DocumentKind) (string, error) {
	var last int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (kind, last_number)
		VALUES ($1, 1)
		ON CONFLICT (kind)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, string(kind)).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to generate sequence number for %s: %w", kind, err)
	}
	return fmt.Sprintf("%s-%05d", numberPrefix(kind), last), nil
}

func (s *documentService) CreateInvoice(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	return s.create(ctx, KindInvoice, req)
}

func (s *documentService) CreateBill(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	return s.create(ctx, KindBill, req)
}

func (s *documentService) create(ctx context.Context, kind DocumentKind, req CreateDocumentRequest) (*Document, error) {
	if !req.AmountType.Valid() {
		return nil, validationErrorf("invalid amount type %q", req.AmountType)
	}
	if !validDate(req.IssueDate) {
		return nil, validationErrorf("invalid issue date %q, expected YYYY-MM-DD", req.IssueDate)
	}
	if req.DueDate != "" && !validDate(req.DueDate) {
		return nil, validationErrorf("invalid due date %q, expected YYYY-MM-DD", req.DueDate)
	}

	lines, totals, err := buildLines(req.Lines, req.AmountType)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Snapshot the contact name onto the document.
	var contactName string
	err = tx.QueryRow(ctx, "SELECT name FROM contacts WHERE id = $1", req.ContactID).Scan(&contactName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("contact", req.ContactID)
		}
		return nil, fmt.Errorf("failed to resolve contact %d: %w", req.ContactID, err)
	}

	number, err := nextDocumentNumber(ctx, tx, kind)
	if err != nil {
		return nil, err
	}

	var dueDate *string
	if req.DueDate != "" {
		dueDate = &req.DueDate
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO documents (kind, document_number, contact_id, contact_name, status, amount_type,
		                       issue_date, due_date, sub_total, total_tax, total, amount_paid, amount_due)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $11)
		RETURNING id
	`, string(kind), number, req.ContactID, contactName, string(StatusDraft), string(req.AmountType),
		req.IssueDate, dueDate, totals.SubTotal, totals.TotalTax, totals.Total).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", kind.Noun(), err)
	}

	if err := insertLines(ctx, tx, id, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit %s creation: %w", kind.Noun(), err)
	}

	return s.GetDocument(ctx, kind, id)
}

func insertLines(ctx context.Context, tx pgx.Tx, documentID int, lines []LineItem) error {
	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO line_items (document_id, line_number, description, quantity, unit_price,
			                        discount_percent, tax_rate_percent, tax_amount, line_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, documentID, i+1, l.Description, l.Quantity, l.UnitPrice,
			l.DiscountPercent, l.TaxRatePercent, l.TaxAmount, l.LineAmount)
		if err != nil {
			return fmt.Errorf("failed to insert line %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *documentService) UpdateDraft(ctx context.Context, kind DocumentKind, id int, req UpdateDocumentRequest) (*Document, error) {
	if !req.AmountType.Valid() {
		return nil, validationErrorf("invalid amount type %q", req.AmountType)
	}
	if req.IssueDate != "" && !validDate(req.IssueDate) {
		return nil, validationErrorf("invalid issue date %q, expected YYYY-MM-DD", req.IssueDate)
	}
	if req.DueDate != "" && !validDate(req.DueDate) {
		return nil, validationErrorf("invalid due date %q, expected YYYY-MM-DD", req.DueDate)
	}

	lines, totals, err := buildLines(req.Lines, req.AmountType)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status Status
	var amountPaid decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT status, amount_paid FROM documents WHERE id = $1 AND kind = $2 FOR UPDATE",
		id, string(kind),
	).Scan(&status, &amountPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError(kind.Noun(), id)
		}
		return nil, fmt.Errorf("failed to lock %s %d: %w", kind.Noun(), id, err)
	}
	if !IsEditable(status) {
		return nil, stateErrorf("Only draft %ss can be edited", kind.Noun())
	}

	// Replace the line set wholesale.
	if _, err := tx.Exec(ctx, "DELETE FROM line_items WHERE document_id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to clear line items for %s %d: %w", kind.Noun(), id, err)
	}
	if err := insertLines(ctx, tx, id, lines); err != nil {
		return nil, err
	}

	// New totals replace the old ones, but payment history is preserved: the
	// amount due is re-derived from the new total and the existing payments.
	amountDue := RecomputeDue(totals.Total, amountPaid)

	_, err = tx.Exec(ctx, `
		UPDATE documents
		SET amount_type = $1,
		    issue_date = COALESCE(NULLIF($2, '')::date, issue_date),
		    due_date = COALESCE(NULLIF($3, '')::date, due_date),
		    sub_total = $4, total_tax = $5, total = $6, amount_due = $7,
		    updated_at = NOW()
		WHERE id = $8
	`, string(req.AmountType), req.IssueDate, req.DueDate,
		totals.SubTotal, totals.TotalTax, totals.Total, amountDue, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %d: %w", kind.Noun(), id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit %s update: %w", kind.Noun(), err)
	}

	return s.GetDocument(ctx, kind, id)
}

func (s *documentService) Transition(ctx context.Context, kind DocumentKind, id int, to Status) (*Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var from Status
	err = tx.QueryRow(ctx,
		"SELECT status FROM documents WHERE id = $1 AND kind = $2 FOR UPDATE",
		id, string(kind),
	).Scan(&from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError(kind.Noun(), id)
		}
		return nil, fmt.Errorf("failed to lock %s %d: %w", kind.Noun(), id, err)
	}

	if err := CanTransition(kind, from, to); err != nil {
		return nil, err
	}

	switch to {
	case StatusPaid:
		_, err = tx.Exec(ctx,
			"UPDATE documents SET status = $1, paid_at = NOW(), updated_at = NOW() WHERE id = $2",
			string(to), id)
	case StatusVoided:
		_, err = tx.Exec(ctx,
			"UPDATE documents SET status = $1, voided_at = NOW(), updated_at = NOW() WHERE id = $2",
			string(to), id)
	default:
		_, err = tx.Exec(ctx,
			"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2",
			string(to), id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition %s %d: %w", kind.Noun(), id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return s.GetDocument(ctx, kind, id)
}

const documentColumns = `
	d.id, d.kind, d.document_number, d.contact_id, d.contact_name, d.status, d.amount_type,
	d.issue_date::text, COALESCE(d.due_date::text, ''),
	d.sub_total, d.total_tax, d.total, d.amount_paid, d.amount_due,
	d.created_at, d.updated_at, d.paid_at, d.voided_at`

func scanDocument(row pgx.Row, d *Document) error {
	return row.Scan(
		&d.ID, &d.Kind, &d.DocumentNumber, &d.ContactID, &d.ContactName, &d.Status, &d.AmountType,
		&d.IssueDate, &d.DueDate,
		&d.SubTotal, &d.TotalTax, &d.Total, &d.AmountPaid, &d.AmountDue,
		&d.CreatedAt, &d.UpdatedAt, &d.PaidAt, &d.VoidedAt,
	)
}

func (s *documentService) GetDocument(ctx context.Context, kind DocumentKind, id int) (*Document, error) {
	return getDocumentQ(ctx, s.pool, kind, id)
}

func getDocumentQ(ctx context.Context, q pgxQuerier, kind DocumentKind, id int) (*Document, error) {
	var d Document
	row := q.QueryRow(ctx,
		"SELECT "+documentColumns+" FROM documents d WHERE d.id = $1 AND d.kind = $2",
		id, string(kind))
	if err := scanDocument(row, &d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError(kind.Noun(), id)
		}
		return nil, fmt.Errorf("failed to fetch %s %d: %w", kind.Noun(), id, err)
	}

	if rq, ok := q.(pgxRowQuerier); ok {
		lines, err := fetchDocumentLines(ctx, rq, d.ID)
		if err != nil {
			return nil, err
		}
		d.Lines = lines
	}
	return &d, nil
}

func fetchDocumentLines(ctx context.Context, q pgxRowQuerier, documentID int) ([]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, description, quantity, unit_price, discount_percent, tax_rate_percent, tax_amount, line_amount
		FROM line_items
		WHERE document_id = $1
		ORDER BY line_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var lines []LineItem
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.Description, &l.Quantity, &l.UnitPrice,
			&l.DiscountPercent, &l.TaxRatePercent, &l.TaxAmount, &l.LineAmount); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *documentService) ListDocuments(ctx context.Context, kind DocumentKind, status *Status, contactID *int) ([]Document, error) {
	query := "SELECT " + documentColumns + " FROM documents d WHERE d.kind = $1"
	args := []any{string(kind)}

	if status != nil {
		args = append(args, string(*status))
		query += fmt.Sprintf(" AND d.status = $%d", len(args))
	}
	if contactID != nil {
		args = append(args, *contactID)
		query += fmt.Sprintf(" AND d.contact_id = $%d", len(args))
	}
	query += " ORDER BY d.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", kind.Noun(), err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind.Noun(), err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
