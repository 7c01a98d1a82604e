package core

import "github.com/shopspring/decimal"

// OutstandingInvoice is an immutable snapshot of one invoice's balance, taken
// while the row is locked, for the allocation planner to work over.
type OutstandingInvoice struct {
	ID        int
	IssueDate string
	AmountDue decimal.Decimal
}

// BuildAllocationPlan distributes a credit balance across outstanding
// invoices: a left-to-right greedy fold over the caller-ordered list (oldest
// debt first), taking min(remaining, due) at each step and stopping when the
// balance is exhausted. It never looks ahead to minimize allocation count or
// prefer exact matches, so the same snapshot always yields the same plan.
func BuildAllocationPlan(remaining decimal.Decimal, invoices []OutstandingInvoice) []Allocation {
	var plan []Allocation
	for _, inv := range invoices {
		if !remaining.IsPositive() {
			break
		}
		if !inv.AmountDue.IsPositive() {
			continue
		}
		amount := decimal.Min(remaining, inv.AmountDue).Round(2)
		plan = append(plan, Allocation{InvoiceID: inv.ID, Amount: amount})
		remaining = remaining.Sub(amount)
	}
	return plan
}
