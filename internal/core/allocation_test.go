package core_test

import (
	"testing"

	"invoice-ledger/internal/core"
)

func TestBuildAllocationPlan_OldestFirst(t *testing.T) {
	// Credit 500 against invoice X (300 due, older) and Y (400 due): X is
	// settled in full, Y gets the remainder.
	invoices := []core.OutstandingInvoice{
		{ID: 1, IssueDate: "2024-01-01", AmountDue: dec("300.00")},
		{ID: 2, IssueDate: "2024-02-01", AmountDue: dec("400.00")},
	}

	plan := core.BuildAllocationPlan(dec("500.00"), invoices)
	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan))
	}
	if plan[0].InvoiceID != 1 || !plan[0].Amount.Equal(dec("300.00")) {
		t.Errorf("first allocation = {%d, %s}, want {1, 300.00}", plan[0].InvoiceID, plan[0].Amount)
	}
	if plan[1].InvoiceID != 2 || !plan[1].Amount.Equal(dec("200.00")) {
		t.Errorf("second allocation = {%d, %s}, want {2, 200.00}", plan[1].InvoiceID, plan[1].Amount)
	}
}

func TestBuildAllocationPlan_CreditExhaustedEarly(t *testing.T) {
	invoices := []core.OutstandingInvoice{
		{ID: 1, IssueDate: "2024-01-01", AmountDue: dec("100.00")},
		{ID: 2, IssueDate: "2024-02-01", AmountDue: dec("100.00")},
		{ID: 3, IssueDate: "2024-03-01", AmountDue: dec("100.00")},
	}

	plan := core.BuildAllocationPlan(dec("150.00"), invoices)
	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan))
	}
	if !plan[0].Amount.Equal(dec("100.00")) || !plan[1].Amount.Equal(dec("50.00")) {
		t.Errorf("allocations = [%s, %s], want [100.00, 50.00]", plan[0].Amount, plan[1].Amount)
	}
}

func TestBuildAllocationPlan_CreditExceedsAllDebt(t *testing.T) {
	invoices := []core.OutstandingInvoice{
		{ID: 1, IssueDate: "2024-01-01", AmountDue: dec("40.00")},
		{ID: 2, IssueDate: "2024-02-01", AmountDue: dec("60.00")},
	}

	plan := core.BuildAllocationPlan(dec("999.00"), invoices)
	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan))
	}
	total := plan[0].Amount.Add(plan[1].Amount)
	if !total.Equal(dec("100.00")) {
		t.Errorf("allocated %s in total, want 100.00", total)
	}
}

func TestBuildAllocationPlan_GreedyNeverPrefersExactMatch(t *testing.T) {
	// A look-ahead allocator would settle invoice 2 exactly; the greedy fold
	// must consume invoice 1 first regardless.
	invoices := []core.OutstandingInvoice{
		{ID: 1, IssueDate: "2024-01-01", AmountDue: dec("70.00")},
		{ID: 2, IssueDate: "2024-02-01", AmountDue: dec("100.00")},
	}

	plan := core.BuildAllocationPlan(dec("100.00"), invoices)
	if len(plan) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(plan))
	}
	if plan[0].InvoiceID != 1 || !plan[0].Amount.Equal(dec("70.00")) {
		t.Errorf("first allocation = {%d, %s}, want {1, 70.00}", plan[0].InvoiceID, plan[0].Amount)
	}
	if plan[1].InvoiceID != 2 || !plan[1].Amount.Equal(dec("30.00")) {
		t.Errorf("second allocation = {%d, %s}, want {2, 30.00}", plan[1].InvoiceID, plan[1].Amount)
	}
}

func TestBuildAllocationPlan_SkipsZeroDue(t *testing.T) {
	invoices := []core.OutstandingInvoice{
		{ID: 1, IssueDate: "2024-01-01", AmountDue: dec("0.00")},
		{ID: 2, IssueDate: "2024-02-01", AmountDue: dec("50.00")},
	}

	plan := core.BuildAllocationPlan(dec("50.00"), invoices)
	if len(plan) != 1 || plan[0].InvoiceID != 2 {
		t.Fatalf("expected a single allocation to invoice 2, got %+v", plan)
	}
}

func TestBuildAllocationPlan_Empty(t *testing.T) {
	if plan := core.BuildAllocationPlan(dec("500.00"), nil); len(plan) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
	if plan := core.BuildAllocationPlan(dec("0.00"), []core.OutstandingInvoice{
		{ID: 1, IssueDate: "2024-01-01", AmountDue: dec("100.00")},
	}); len(plan) != 0 {
		t.Errorf("expected empty plan for zero credit, got %+v", plan)
	}
}

func TestBuildAllocationPlan_Deterministic(t *testing.T) {
	invoices := []core.OutstandingInvoice{
		{ID: 7, IssueDate: "2023-11-05", AmountDue: dec("123.45")},
		{ID: 3, IssueDate: "2023-12-01", AmountDue: dec("0.01")},
		{ID: 9, IssueDate: "2024-01-20", AmountDue: dec("999.99")},
	}

	first := core.BuildAllocationPlan(dec("600.00"), invoices)
	second := core.BuildAllocationPlan(dec("600.00"), invoices)

	if len(first) != len(second) {
		t.Fatalf("plan lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].InvoiceID != second[i].InvoiceID || !first[i].Amount.Equal(second[i].Amount) {
			t.Errorf("allocation %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
