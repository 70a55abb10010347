package reconbank

import "github.com/shopspring/decimal"

// RoundHalfUp rounds v to 2 decimal places using round-half-up, the
// rounding mode for every fee/tax calculation here (RoundBank is not
// used anywhere in this module).
func RoundHalfUp(v decimal.Decimal) decimal.Decimal {
	return roundHalfUp2(v)
}

// roundHalfUp2 rounds v to 2 decimal places, half-up.
func roundHalfUp2(v decimal.Decimal) decimal.Decimal {
	scaled := v.Mul(decimal.New(100, 0))
	rounded := scaled.Add(decimal.New(5, -1).Mul(sign(scaled))).Truncate(0)
	return rounded.Div(decimal.New(100, 0)).Truncate(2)
}

func sign(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.New(-1, 0)
	}
	return decimal.New(1, 0)
}

// VATRate is the standard 16% value-added-tax rate used to recompute
// aggregated VAT on bank fees (see processor_fees.go).
var VATRate = decimal.NewFromFloat(0.16)

// VATOnBase returns 16% of base, rounded half-up to the cent.
func VATOnBase(base decimal.Decimal) decimal.Decimal {
	return roundHalfUp2(base.Mul(VATRate))
}

// WithinTolerance reports whether a and b differ by no more than tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// BalanceMultiplier returns +1 or -1 for the ledger-line side given the
// account's normal balance side: assets/expenses increase on debit,
// liabilities/equity/income increase on credit.
func BalanceMultiplier(normalSide DrCr, lineSide DrCr) int {
	if normalSide == lineSide {
		return 1
	}
	return -1
}

// SumDebits and SumCredits total a ledger-line slice; used by validators
// and tests to check that entries balance.
func SumDebits(lines []LedgerLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Debit)
	}
	return total
}

func SumCredits(lines []LedgerLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Credit)
	}
	return total
}

// IsBalanced reports whether a slice of ledger lines sums debits=credits
// exactly (decimal, never float).
func IsBalanced(lines []LedgerLine) bool {
	return SumDebits(lines).Equal(SumCredits(lines))
}
