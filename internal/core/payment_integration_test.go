package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"invoice-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func TestRecordPayment_FullySettlesInvoice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	contact := mustCreateContact(t, pool, "Acme Ltd")
	docs := core.NewDocumentService(pool)
	payments := core.NewPaymentService(pool)

	inv, err := docs.CreateInvoice(ctx, core.CreateDocumentRequest{
		ContactID:  contact.ID,
		AmountType: core.AmountTypeExclusive,
		IssueDate:  "2024-03-01",
		Lines: []core.LineItemInput{
			{Description: "widgets", Quantity: dec("4"), UnitPrice: dec("300"), TaxRatePercent: dec("15")},
		},
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	mustApprove(t, docs, core.KindInvoice, inv.ID)

	payment, err := payments.RecordPayment(ctx, core.RecordPaymentRequest{
		InvoiceID:   intPtr(inv.ID),
		Amount:      dec("1380"),
		PaymentDate: "2024-03-15",
		Reference:   "wire #4512",
	})
	if err != nil {
		t.Fatalf("failed to record payment: %v", err)
	}
	if payment.ID == 0 {
		t.Error("payment id not assigned")
	}

	got, err := docs.GetDocument(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("failed to fetch invoice: %v", err)
	}
	if !got.AmountPaid.Equal(dec("1380.00")) || !got.AmountDue.IsZero() {
		t.Errorf("paid/due = %s/%s, want 1380.00/0", got.AmountPaid, got.AmountDue)
	}
	if got.Status != core.StatusPaid {
		t.Errorf("status = %s, want paid after full settlement", got.Status)
	}
	if got.PaidAt == nil {
		t.Error("paidAt not set on full settlement")
	}
}

func TestRecordPayment_PartialKeepsStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	contact := mustCreateContact(t, pool, "Acme Ltd")
	docs := core.NewDocumentService(pool)
	payments := core.NewPaymentService(pool)

	inv, err := docs.CreateInvoice(ctx, core.CreateDocumentRequest{
		ContactID:  contact.ID,
		AmountType: core.AmountTypeNoTax,
		IssueDate:  "2024-03-01",
		Lines:      plainLines("1000"),
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	mustApprove(t, docs, core.KindInvoice, inv.ID)

	if _, err := payments.RecordPayment(ctx, core.RecordPaymentRequest{
		InvoiceID:   intPtr(inv.ID),
		Amount:      dec("400"),
		PaymentDate: "2024-03-10",
	}); err != nil {
		t.Fatalf("failed to record payment: %v", err)
	}

	got, err := docs.GetDocument(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("failed to fetch invoice: %v", err)
	}
	if !got.AmountPaid.Equal(dec("400.00")) || !got.AmountDue.Equal(dec("600.00")) {
		t.Errorf("paid/due = %s/%s, want 400.00/600.00", got.AmountPaid, got.AmountDue)
	}
	if got.Status != core.StatusApproved {
		t.Errorf("status = %s, want approved until fully paid", got.Status)
	}
	if got.PaidAt != nil {
		t.Error("paidAt set on partial payment")
	}
}

func TestRecordPayment_ExceedsDueRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	contact := mustCreateContact(t, pool, "Acme Ltd")
	docs := core.NewDocumentService(pool)
	payments := core.NewPaymentService(pool)

	inv, err := docs.CreateInvoice(ctx, core.CreateDocumentRequest{
		ContactID:  contact.ID,
		AmountType: core.AmountTypeNoTax,
		IssueDate:  "2024-03-01",
		Lines:      plainLines("300"),
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	mustApprove(t, docs, core.KindInvoice, inv.ID)

	_, err = payments.RecordPayment(ctx, core.RecordPaymentRequest{
		InvoiceID:   intPtr(inv.ID),
		Amount:      dec("500"),
		PaymentDate: "2024-03-10",
	})
	if err == nil {
		t.Fatal("expected overpayment to be rejected")
	}
	var ruleErr *core.BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected BusinessRuleError, got %T: %v", err, err)
	}
	if err.Error() != "Payment exceeds amount due" {
		t.Errorf("message = %q, want %q", err.Error(), "Payment exceeds amount due")
	}

	// Rejection must leave no trace: no payment row, balances untouched.
	got, err := docs.GetDocument(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("failed to fetch invoice: %v", err)
	}
	if !got.AmountPaid.IsZero() || !got.AmountDue.Equal(dec("300.00")) {
		t.Errorf("paid/due = %s/%s, want 0/300.00 unchanged", got.AmountPaid, got.AmountDue)
	}
	rows, err := payments.ListPayments(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("failed to list payments: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("payment rows = %d, want 0 after rejection", len(rows))
	}
}

func TestRecordPayment_DraftRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	contact := mustCreateContact(t, pool, "Acme Ltd")
	docs := core.NewDocumentService(pool)
	payments := core.NewPaymentService(pool)

	inv, err := docs.CreateInvoice(ctx, core.CreateDocumentRequest{
		ContactID:  contact.ID,
		AmountType: core.AmountTypeNoTax,
		IssueDate:  "2024-03-01",
		Lines:      plainLines("100"),
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}

	_, err = payments.RecordPayment(ctx, core.RecordPaymentRequest{
		InvoiceID:   intPtr(inv.ID),
		Amount:      dec("100"),
		PaymentDate: "2024-03-10",
	})
	if err == nil {
		t.Fatal("expected payment against a draft to be rejected")
	}
	var ruleErr *core.BusinessRuleError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected BusinessRuleError, got %T: %v", err, err)
	}
}

func TestRecordPayment_TargetValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	payments := core.NewPaymentService(pool)

	tests := []struct {
		name string
		req  core.RecordPaymentRequest
	}{
		{
			name: "neither target",
			req:  core.RecordPaymentRequest{Amount: dec("10"), PaymentDate: "2024-03-10"},
		},
		{
			name: "both targets",
			req: core.RecordPaymentRequest{
				InvoiceID: intPtr(1), BillID: intPtr(2),
				Amount: dec("10"), PaymentDate: "2024-03-10",
			},
		},
		{
			name: "zero amount",
			req:  core.RecordPaymentRequest{InvoiceID: intPtr(1), Amount: decimal.Zero, PaymentDate: "2024-03-10"},
		},
		{
			name: "negative amount",
			req:  core.RecordPaymentRequest{InvoiceID: intPtr(1), Amount: dec("-5"), PaymentDate: "2024-03-10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payments.RecordPayment(ctx, tt.req)
			var valErr *core.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestRecordPayment_BillPath(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	contact := mustCreateContact(t, pool, "Supplier GmbH")
	docs := core.NewDocumentService(pool)
	payments := core.NewPaymentService(pool)

	bill, err := docs.CreateBill(ctx, core.CreateDocumentRequest{
		ContactID:  contact.ID,
		AmountType: core.AmountTypeNoTax,
		IssueDate:  "2024-03-01",
		Lines:      plainLines("250"),
	})
	if err != nil {
		t.Fatalf("failed to create bill: %v", err)
	}
	mustApprove(t, docs, core.KindBill, bill.ID)

	payment, err := payments.RecordPayment(ctx, core.RecordPaymentRequest{
		BillID:      intPtr(bill.ID),
		Amount:      dec("250"),
		PaymentDate: "2024-03-20",
	})
	if err != nil {
		t.Fatalf("failed to record bill payment: %v", err)
	}
	if payment.BillID == nil || *payment.BillID != bill.ID {
		t.Errorf("payment bill id = %v, want %d", payment.BillID, bill.ID)
	}
	if payment.InvoiceID != nil {
		t.Error("payment invoice id set on a bill payment")
	}

	got, err := docs.GetDocument(ctx, core.KindBill, bill.ID)
	if err != nil {
		t.Fatalf("failed to fetch bill: %v", err)
	}
	if got.Status != core.StatusPaid {
		t.Errorf("bill status = %s, want paid", got.Status)
	}
}

// Two goroutines race to pay the full amount due. The row lock serializes
// them, so exactly one succeeds and the balance never goes negative.
func TestRecordPayment_ConcurrentOverpayGuard(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	contact := mustCreateContact(t, pool, "Acme Ltd")
	docs := core.NewDocumentService(pool)
	payments := core.NewPaymentService(pool)

	inv, err := docs.CreateInvoice(ctx, core.CreateDocumentRequest{
		ContactID:  contact.ID,
		AmountType: core.AmountTypeNoTax,
		IssueDate:  "2024-03-01",
		Lines:      plainLines("800"),
	})
	if err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	mustApprove(t, docs, core.KindInvoice, inv.ID)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = payments.RecordPayment(ctx, core.RecordPaymentRequest{
				InvoiceID:   intPtr(inv.ID),
				Amount:      dec("800"),
				PaymentDate: "2024-03-10",
			})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var ruleErr *core.BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("unexpected error type %T: %v", err, err)
		}
		rejected++
	}
	if succeeded != 1 || rejected != 1 {
		t.Errorf("succeeded=%d rejected=%d, want exactly one of each", succeeded, rejected)
	}

	got, err := docs.GetDocument(ctx, core.KindInvoice, inv.ID)
	if err != nil {
		t.Fatalf("failed to fetch invoice: %v", err)
	}
	if !got.AmountPaid.Equal(dec("800.00")) || !got.AmountDue.IsZero() {
		t.Errorf("paid/due = %s/%s, want 800.00/0", got.AmountPaid, got.AmountDue)
	}
}
