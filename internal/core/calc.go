package core

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmounts is the output of the line item calculator: the net amount of
// the line (after discount, excluding tax) and its tax, both rounded to cents.
type LineAmounts struct {
	LineAmount decimal.Decimal
	TaxAmount  decimal.Decimal
}

// CalculateLine computes a single line's amounts from its raw inputs and the
// parent document's amount type. It is pure and independent of line order;
// range validation of the inputs belongs to the caller.
func CalculateLine(quantity, unitPrice, discountPercent, taxRatePercent decimal.Decimal, amountType AmountType) LineAmounts {
	gross := quantity.Mul(unitPrice).Mul(hundred.Sub(discountPercent)).Div(hundred)

	switch amountType {
	case AmountTypeInclusive:
		// The quoted price already contains tax: back the net amount out.
		net := gross.Div(one.Add(taxRatePercent.Div(hundred)))
		return LineAmounts{
			LineAmount: round2(net),
			TaxAmount:  round2(gross.Sub(net)),
		}
	case AmountTypeNoTax:
		return LineAmounts{
			LineAmount: round2(gross),
			TaxAmount:  decimal.Zero,
		}
	default: // exclusive
		line := round2(gross)
		return LineAmounts{
			LineAmount: line,
			TaxAmount:  round2(line.Mul(taxRatePercent).Div(hundred)),
		}
	}
}

// Totals are the document-level sums derived from line items.
type Totals struct {
	SubTotal decimal.Decimal
	TotalTax decimal.Decimal
	Total    decimal.Decimal
}

// AggregateTotals folds already-rounded line amounts into document totals.
// The canonical rounding rule is: round each line, then sum the rounded
// lines. Total is rounded once more to keep the stored invariant
// Total = round2(SubTotal + TotalTax) even if callers pass unrounded lines.
func AggregateTotals(lines []LineItem) Totals {
	var sub, tax decimal.Decimal
	for _, l := range lines {
		sub = sub.Add(l.LineAmount)
		tax = tax.Add(l.TaxAmount)
	}
	return Totals{
		SubTotal: sub,
		TotalTax: tax,
		Total:    round2(sub.Add(tax)),
	}
}

// RecomputeDue derives the outstanding balance from the document total and
// cumulative payments, clamped at zero.
func RecomputeDue(total, amountPaid decimal.Decimal) decimal.Decimal {
	due := round2(total.Sub(amountPaid))
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
