package core

// Legal lifecycle transitions per document kind. A transition is allowed only
// if the (from, to) pair appears here; everything else is a StateError.
//
// Invoices and bills share one table. Paid and voided are terminal.
var invoiceTransitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusVoided},
	StatusSubmitted: {StatusApproved, StatusVoided},
	StatusApproved:  {StatusPaid, StatusVoided},
	StatusPaid:      {},
	StatusVoided:    {},
}

// Credit notes become applied (rather than paid) once fully consumed.
var creditNoteTransitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusVoided},
	StatusSubmitted: {StatusApproved, StatusVoided},
	StatusApproved:  {StatusApplied, StatusVoided},
	StatusApplied:   {},
	StatusVoided:    {},
}

// Quotes add an invoiced terminal state reachable only from accepted.
var quoteTransitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusVoided},
	StatusSent:     {StatusAccepted, StatusDeclined, StatusVoided},
	StatusAccepted: {StatusInvoiced, StatusVoided},
	StatusDeclined: {},
	StatusInvoiced: {},
	StatusVoided:   {},
}

var purchaseOrderTransitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted, StatusVoided},
	StatusSubmitted: {StatusApproved, StatusVoided},
	StatusApproved:  {StatusBilled, StatusVoided},
	StatusBilled:    {},
	StatusVoided:    {},
}

func transitionTable(kind DocumentKind) map[Status][]Status {
	switch kind {
	case KindCreditNote:
		return creditNoteTransitions
	case KindQuote:
		return quoteTransitions
	case KindPurchaseOrder:
		return purchaseOrderTransitions
	default:
		return invoiceTransitions
	}
}

// CanTransition reports whether the given lifecycle edge is legal for the
// document kind. The returned StateError names the attempted pair.
func CanTransition(kind DocumentKind, from, to Status) error {
	for _, allowed := range transitionTable(kind)[from] {
		if allowed == to {
			return nil
		}
	}
	return stateErrorf("Cannot transition from '%s' to '%s'", from, to)
}

// IsEditable reports whether a document's line items may still change.
func IsEditable(s Status) bool {
	return s == StatusDraft
}

// CanReceivePayment is true only for submitted and approved documents: a
// draft cannot be paid, and a paid or voided document cannot be paid again.
func CanReceivePayment(s Status) bool {
	return s == StatusSubmitted || s == StatusApproved
}
