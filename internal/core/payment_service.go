package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest targets exactly one of InvoiceID or BillID.
type RecordPaymentRequest struct {
	InvoiceID   *int            `json:"invoice_id,omitempty"`
	BillID      *int            `json:"bill_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Reference   string          `json:"reference,omitempty"`
	AccountCode string          `json:"account_code,omitempty"`
}

// PaymentService records immutable payments against documents and keeps the
// target's paid/due balances and status consistent.
type PaymentService interface {
	// RecordPayment validates and applies one payment in a single
	// transaction: the target row is locked before the amount-due check so
	// two concurrent payments cannot both pass it against the same balance.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, id int) (*Payment, error)
	ListPayments(ctx context.Context, kind DocumentKind, documentID int) ([]Payment, error)
}

type paymentService struct {
	pool *pgxpool.Pool
}

func NewPaymentService(pool *pgxpool.Pool) PaymentService {
	return &paymentService{pool: pool}
}

// resolveTarget maps the invoice-XOR-bill reference onto a document kind and id.
func resolveTarget(invoiceID, billID *int) (DocumentKind, int, error) {
	switch {
	case invoiceID != nil && billID != nil:
		return "", 0, validationErrorf("specify either an invoice or a bill, not both")
	case invoiceID != nil:
		return KindInvoice, *invoiceID, nil
	case billID != nil:
		return KindBill, *billID, nil
	default:
		return "", 0, validationErrorf("either an invoice or a bill must be specified")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s *paymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*Payment, error) {
	kind, docID, err := resolveTarget(req.InvoiceID, req.BillID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, validationErrorf("payment amount must be greater than zero")
	}
	if !validDate(req.PaymentDate) {
		return nil, validationErrorf("invalid payment date %q, expected YYYY-MM-DD", req.PaymentDate)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status Status
	var total, amountPaid decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT status, total, amount_paid FROM documents WHERE id = $1 AND kind = $2 FOR UPDATE",
		docID, string(kind),
	).Scan(&status, &total, &amountPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError(kind.Noun(), docID)
		}
		return nil, fmt.Errorf("failed to lock %s %d: %w", kind.Noun(), docID, err)
	}

	if !CanReceivePayment(status) {
		return nil, businessRuleErrorf("%s must be submitted or approved to receive payment, current status: %s",
			capitalize(kind.Noun()), status)
	}

	// The row is locked, so this due amount cannot go stale before the write.
	amountDue := RecomputeDue(total, amountPaid)
	if req.Amount.GreaterThan(amountDue) {
		return nil, businessRuleErrorf("Payment exceeds amount due")
	}

	p := Payment{
		InvoiceID:   req.InvoiceID,
		BillID:      req.BillID,
		Amount:      round2(req.Amount),
		PaymentDate: req.PaymentDate,
		Reference:   req.Reference,
		AccountCode: req.AccountCode,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, bill_id, amount, payment_date, reference, account_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, req.InvoiceID, req.BillID, p.Amount, req.PaymentDate, req.Reference, req.AccountCode).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	newPaid := round2(amountPaid.Add(p.Amount))
	newDue := RecomputeDue(total, newPaid)
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
		return nil, fmt.Errorf("failed to update %s balances: %w", kind.Noun(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	return &p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id int) (*Payment, error) {
	var p Payment
	err := s.pool.QueryRow(ctx, `
		SELECT id, invoice_id, bill_id, amount, payment_date::text,
		       COALESCE(reference, ''), COALESCE(account_code, ''), created_at
		FROM payments WHERE id = $1
	`, id).Scan(&p.ID, &p.InvoiceID, &p.BillID, &p.Amount, &p.PaymentDate,
		&p.Reference, &p.AccountCode, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("payment", id)
		}
		return nil, fmt.Errorf("failed to fetch payment %d: %w", id, err)
	}
	return &p, nil
}

func (s *paymentService) ListPayments(ctx context.Context, kind DocumentKind, documentID int) ([]Payment, error) {
	column := "invoice_id"
	if kind == KindBill {
		column = "bill_id"
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, bill_id, amount, payment_date::text,
		       COALESCE(reference, ''), COALESCE(account_code, ''), created_at
		FROM payments WHERE `+column+` = $1
		ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.BillID, &p.Amount, &p.PaymentDate,
			&p.Reference, &p.AccountCode, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
