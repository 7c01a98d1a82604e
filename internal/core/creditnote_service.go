package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CreateCreditNoteRequest creates a draft credit note; its remaining credit
// starts equal to the computed total.
type CreateCreditNoteRequest struct {
	Type       CreditNoteType  `json:"type"`
	ContactID  int             `json:"contact_id"`
	AmountType AmountType      `json:"amount_type"`
	IssueDate  string          `json:"issue_date"`
	Lines      []LineItemInput `json:"line_items"`
}

// ApplyCreditRequest applies part of a note's balance to one document.
type ApplyCreditRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	InvoiceID *int            `json:"invoice_id,omitempty"`
	BillID    *int            `json:"bill_id,omitempty"`
}

// AutoAllocateResult returns the updated note and the ordered allocation
// decisions of the run.
type AutoAllocateResult struct {
	CreditNote  *CreditNote  `json:"credit_note"`
	Allocations []Allocation `json:"allocations"`
}

// CreditNoteService manages credit notes and the two ways their balance is
// consumed: a manual apply against one document, and a greedy FIFO
// auto-allocation across a contact's oldest outstanding invoices.
type CreditNoteService interface {
	CreateCreditNote(ctx context.Context, req CreateCreditNoteRequest) (*CreditNote, error)
	GetCreditNote(ctx context.Context, id int) (*CreditNote, error)
	ListCreditNotes(ctx context.Context, status *Status) ([]CreditNote, error)
	Transition(ctx context.Context, id int, to Status) (*CreditNote, error)
	Apply(ctx context.Context, id int, req ApplyCreditRequest) (*CreditNote, error)
	AutoAllocate(ctx context.Context, id int) (*AutoAllocateResult, error)
}

type creditNoteService struct {
	pool *pgxpool.Pool
}

func NewCreditNoteService(pool *pgxpool.Pool) CreditNoteService {
	return &creditNoteService{pool: pool}
}

func (s *creditNoteService) CreateCreditNote(ctx context.Context, req CreateCreditNoteRequest) (*CreditNote, error) {
	if req.Type != CreditNoteSales && req.Type != CreditNotePurchase {
		return nil, validationErrorf("invalid credit note type %q", req.Type)
	}
	if !req.AmountType.Valid() {
		return nil, validationErrorf("invalid amount type %q", req.AmountType)
	}
	if !validDate(req.IssueDate) {
		return nil, validationErrorf("invalid issue date %q, expected YYYY-MM-DD", req.IssueDate)
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

	var contactName string
	err = tx.QueryRow(ctx, "SELECT name FROM contacts WHERE id = $1", req.ContactID).Scan(&contactName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("contact", req.ContactID)
		}
		return nil, fmt.Errorf("failed to resolve contact %d: %w", req.ContactID, err)
	}

	number, err := nextDocumentNumber(ctx, tx, KindCreditNote)
	if err != nil {
		return nil, err
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO credit_notes (type, credit_note_number, contact_id, contact_name, status, amount_type,
		                          issue_date, sub_total, total_tax, total, remaining_credit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id
	`, string(req.Type), number, req.ContactID, contactName, string(StatusDraft), string(req.AmountType),
		req.IssueDate, totals.SubTotal, totals.TotalTax, totals.Total).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert credit note: %w", err)
	}

	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO credit_note_lines (credit_note_id, line_number, description, quantity, unit_price,
			                               discount_percent, tax_rate_percent, tax_amount, line_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, id, i+1, l.Description, l.Quantity, l.UnitPrice,
			l.DiscountPercent, l.TaxRatePercent, l.TaxAmount, l.LineAmount)
		if err != nil {
			return nil, fmt.Errorf("failed to insert credit note line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit note creation: %w", err)
	}

	return s.GetCreditNote(ctx, id)
}

const creditNoteColumns = `
	cn.id, cn.type, cn.credit_note_number, cn.contact_id, cn.contact_name, cn.status, cn.amount_type,
	cn.issue_date::text, cn.sub_total, cn.total_tax, cn.total, cn.remaining_credit,
	cn.applied_to_id, cn.created_at, cn.updated_at`

func scanCreditNote(row pgx.Row, n *CreditNote) error {
	return row.Scan(
		&n.ID, &n.Type, &n.CreditNoteNumber, &n.ContactID, &n.ContactName, &n.Status, &n.AmountType,
		&n.IssueDate, &n.SubTotal, &n.TotalTax, &n.Total, &n.RemainingCredit,
		&n.AppliedToID, &n.CreatedAt, &n.UpdatedAt,
	)
}

func (s *creditNoteService) GetCreditNote(ctx context.Context, id int) (*CreditNote, error) {
	var n CreditNote
	row := s.pool.QueryRow(ctx, "SELECT "+creditNoteColumns+" FROM credit_notes cn WHERE cn.id = $1", id)
	if err := scanCreditNote(row, &n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("credit note", id)
		}
		return nil, fmt.Errorf("failed to fetch credit note %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, description, quantity, unit_price, discount_percent, tax_rate_percent, tax_amount, line_amount
		FROM credit_note_lines
		WHERE credit_note_id = $1
		ORDER BY line_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit note lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l LineItem
		if err := rows.Scan(&l.ID, &l.Description, &l.Quantity, &l.UnitPrice,
			&l.DiscountPercent, &l.TaxRatePercent, &l.TaxAmount, &l.LineAmount); err != nil {
			return nil, fmt.Errorf("failed to scan credit note line: %w", err)
		}
		n.Lines = append(n.Lines, l)
	}
	return &n, rows.Err()
}

func (s *creditNoteService) ListCreditNotes(ctx context.Context, status *Status) ([]CreditNote, error) {
	query := "SELECT " + creditNoteColumns + " FROM credit_notes cn"
	args := []any{}
	if status != nil {
		query += " WHERE cn.status = $1"
		args = append(args, string(*status))
	}
	query += " ORDER BY cn.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit notes: %w", err)
	}
	defer rows.Close()

	var notes []CreditNote
	for rows.Next() {
		var n CreditNote
		if err := scanCreditNote(rows, &n); err != nil {
			return nil, fmt.Errorf("failed to scan credit note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *creditNoteService) Transition(ctx context.Context, id int, to Status) (*CreditNote, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var from Status
	var remaining decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT status, remaining_credit FROM credit_notes WHERE id = $1 FOR UPDATE", id,
	).Scan(&from, &remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("credit note", id)
		}
		return nil, fmt.Errorf("failed to lock credit note %d: %w", id, err)
	}

	if err := CanTransition(KindCreditNote, from, to); err != nil {
		return nil, err
	}
	// Applied is normally reached by consuming the balance; an explicit
	// transition is only legal once nothing is left to apply.
	if to == StatusApplied && remaining.IsPositive() {
		return nil, businessRuleErrorf("Credit note still has remaining credit")
	}

	_, err = tx.Exec(ctx,
		"UPDATE credit_notes SET status = $1, updated_at = NOW() WHERE id = $2",
		string(to), id)
	if err != nil {
		return nil, fmt.Errorf("failed to transition credit note %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return s.GetCreditNote(ctx, id)
}

func (s *creditNoteService) Apply(ctx context.Context, id int, req ApplyCreditRequest) (*CreditNote, error) {
	kind, docID, err := resolveTarget(req.InvoiceID, req.BillID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, validationErrorf("credit amount must be greater than zero")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var noteType CreditNoteType
	var noteStatus Status
	var remaining decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT type, status, remaining_credit FROM credit_notes WHERE id = $1 FOR UPDATE", id,
	).Scan(&noteType, &noteStatus, &remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("credit note", id)
		}
		return nil, fmt.Errorf("failed to lock credit note %d: %w", id, err)
	}

	if noteStatus != StatusApproved {
		return nil, businessRuleErrorf("Credit note must be approved to be applied, current status: %s", noteStatus)
	}
	if !remaining.IsPositive() {
		return nil, businessRuleErrorf("Credit note has no remaining credit")
	}
	if noteType == CreditNoteSales && kind != KindInvoice {
		return nil, validationErrorf("sales credit notes can only be applied to invoices")
	}
	if noteType == CreditNotePurchase && kind != KindBill {
		return nil, validationErrorf("purchase credit notes can only be applied to bills")
	}
	amount := round2(req.Amount)
	if amount.GreaterThan(remaining) {
		return nil, businessRuleErrorf("Amount exceeds remaining credit")
	}

	var docStatus Status
	var total, amountPaid decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT status, total, amount_paid FROM documents WHERE id = $1 AND kind = $2 FOR UPDATE",
		docID, string(kind),
	).Scan(&docStatus, &total, &amountPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError(kind.Noun(), docID)
		}
		return nil, fmt.Errorf("failed to lock %s %d: %w", kind.Noun(), docID, err)
	}

	if !CanReceivePayment(docStatus) {
		return nil, businessRuleErrorf("%s must be submitted or approved to receive credit, current status: %s",
			capitalize(kind.Noun()), docStatus)
	}
	amountDue := RecomputeDue(total, amountPaid)
	if amount.GreaterThan(amountDue) {
		return nil, businessRuleErrorf("Amount exceeds amount due")
	}

	if err := applyToDocumentTx(ctx, tx, docID, total, amountPaid, amount); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO credit_allocations (credit_note_id, document_id, amount)
		VALUES ($1, $2, $3)
	`, id, docID, amount); err != nil {
		return nil, fmt.Errorf("failed to record allocation: %w", err)
	}

	newRemaining := round2(remaining.Sub(amount))
	newStatus := noteStatus
	if !newRemaining.IsPositive() {
		newStatus = StatusApplied
	}
	if _, err := tx.Exec(ctx, `
		UPDATE credit_notes
		SET remaining_credit = $1, status = $2, applied_to_id = $3, updated_at = NOW()
		WHERE id = $4
	`, newRemaining, string(newStatus), docID, id); err != nil {
		return nil, fmt.Errorf("failed to update credit note %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit credit application: %w", err)
	}

	return s.GetCreditNote(ctx, id)
}

// applyToDocumentTx mutates a locked document's balances exactly as a payment
// would: paid goes up, due is re-derived, status flips to paid at zero due.
func applyToDocumentTx(ctx context.Context, tx pgx.Tx, docID int, total, amountPaid, amount decimal.Decimal) error {
	newPaid := round2(amountPaid.Add(amount))
	newDue := RecomputeDue(total, newPaid)

	var err error
	if newDue.IsZero() {
		_, err = tx.Exec(ctx, `
			UPDATE documents
			SET amount_paid = $1, amount_due = $2, status = $3, paid_at = NOW(), updated_at = NOW()
			WHERE id = $4
		`, newPaid, newDue, string(StatusPaid), docID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE documents
			SET amount_paid = $1, amount_due = $2, updated_at = NOW()
			WHERE id = $3
		`, newPaid, newDue, docID)
	}
	if err != nil {
		return fmt.Errorf("failed to update document %d balances: %w", docID, err)
	}
	return nil
}

func (s *creditNoteService) AutoAllocate(ctx context.Context, id int) (*AutoAllocateResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var noteType CreditNoteType
	var noteStatus Status
	var contactID int
	var remaining decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT type, status, contact_id, remaining_credit FROM credit_notes WHERE id = $1 FOR UPDATE", id,
	).Scan(&noteType, &noteStatus, &contactID, &remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("credit note", id)
		}
		return nil, fmt.Errorf("failed to lock credit note %d: %w", id, err)
	}

	if noteType != CreditNoteSales {
		return nil, businessRuleErrorf("Only sales credit notes can be auto-allocated")
	}
	if noteStatus != StatusApproved {
		return nil, businessRuleErrorf("Credit note must be approved to be applied, current status: %s", noteStatus)
	}
	if !remaining.IsPositive() {
		return nil, businessRuleErrorf("Credit note has no remaining credit")
	}

	// Lock the contact's outstanding invoices, oldest debt first, and take an
	// immutable snapshot for the planner. A payment arriving through another
	// connection blocks until this transaction commits.
	rows, err := tx.Query(ctx, `
		SELECT id, issue_date::text, total, amount_paid, amount_due
		FROM documents
		WHERE kind = $1 AND contact_id = $2 AND amount_due > 0 AND status IN ($3, $4)
		ORDER BY issue_date ASC, id ASC
		FOR UPDATE
	`, string(KindInvoice), contactID, string(StatusSubmitted), string(StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding invoices: %w", err)
	}

	type invoiceBalance struct {
		total      decimal.Decimal
		amountPaid decimal.Decimal
	}
	var snapshot []OutstandingInvoice
	balances := make(map[int]invoiceBalance)
	for rows.Next() {
		var inv OutstandingInvoice
		var b invoiceBalance
		if err := rows.Scan(&inv.ID, &inv.IssueDate, &b.total, &b.amountPaid, &inv.AmountDue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan outstanding invoice: %w", err)
		}
		snapshot = append(snapshot, inv)
		balances[inv.ID] = b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outstanding invoices: %w", err)
	}

	// Plan first, then apply the plan atomically within this transaction.
	plan := BuildAllocationPlan(remaining, snapshot)

	for _, alloc := range plan {
		b := balances[alloc.InvoiceID]
		if err := applyToDocumentTx(ctx, tx, alloc.InvoiceID, b.total, b.amountPaid, alloc.Amount); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO credit_allocations (credit_note_id, document_id, amount)
			VALUES ($1, $2, $3)
		`, id, alloc.InvoiceID, alloc.Amount); err != nil {
			return nil, fmt.Errorf("failed to record allocation: %w", err)
		}
		remaining = round2(remaining.Sub(alloc.Amount))
	}

	newStatus := noteStatus
	if !remaining.IsPositive() {
		newStatus = StatusApplied
	}
	var appliedTo *int
	if len(plan) > 0 {
		appliedTo = &plan[len(plan)-1].InvoiceID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE credit_notes
		SET remaining_credit = $1, status = $2,
		    applied_to_id = COALESCE($3, applied_to_id), updated_at = NOW()
		WHERE id = $4
	`, remaining, string(newStatus), appliedTo, id); err != nil {
		return nil, fmt.Errorf("failed to update credit note %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit auto-allocation: %w", err)
	}

	note, err := s.GetCreditNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		plan = []Allocation{}
	}
	return &AutoAllocateResult{CreditNote: note, Allocations: plan}, nil
}
