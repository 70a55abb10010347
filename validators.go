package reconbank

// Cross-source validators. Validators never fail a dispatch; each one
// returns a human-readable warning (empty when the inputs agree) and logs
// it, so a reviewer can see soft discrepancies that the processors
// themselves tolerate.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValidateCardDepositsAgainstClose compares the sum of the day's card
// deposits to the treasury close's reported card total, within
// Config.ToleranceValidation. Returns a warning string, or "" if within
// tolerance.
func ValidateCardDepositsAgainstClose(deposits []BankMovement, close DailyClose, tol decimal.Decimal) string {
	sum := decimal.Zero
	for _, m := range deposits {
		sum = sum.Add(m.Amount())
	}
	if WithinTolerance(sum, close.TotalCard, tol) {
		return ""
	}
	diff := sum.Sub(close.TotalCard)
	msg := fmt.Sprintf("card deposits %s vs treasury card total %s (diff %s) exceeds tolerance %s", sum, close.TotalCard, diff, tol)
	logValidators.WithField("date", close.CloseDate.Format("2006-01-02")).Warn(msg)
	return msg
}

// ValidateCashDepositsAgainstClose is the cash-side counterpart.
func ValidateCashDepositsAgainstClose(deposits []BankMovement, close DailyClose, tol decimal.Decimal) string {
	sum := decimal.Zero
	for _, m := range deposits {
		sum = sum.Add(m.Amount())
	}
	if WithinTolerance(sum, close.TotalCash, tol) {
		return ""
	}
	diff := sum.Sub(close.TotalCash)
	msg := fmt.Sprintf("cash deposits %s vs treasury cash total %s (diff %s) exceeds tolerance %s", sum, close.TotalCash, diff, tol)
	logValidators.WithField("date", close.CloseDate.Format("2006-01-02")).Warn(msg)
	return msg
}

// ValidateCloseInvoiceSplit checks the daily-close invariant that the sum
// of individual invoices never exceeds the deposit amount; the global
// invoice is meant to absorb the remainder, not the other way around.
func ValidateCloseInvoiceSplit(close DailyClose, depositAmount decimal.Decimal) string {
	individual := close.TotalIndividual()
	if individual.LessThanOrEqual(depositAmount) {
		return ""
	}
	msg := fmt.Sprintf("close %s: individual invoices %s exceed deposit %s", close.CloseDate.Format("2006-01-02"), individual, depositAmount)
	logValidators.WithField("date", close.CloseDate.Format("2006-01-02")).Warn(msg)
	return msg
}

// ValidatePayrollCoverage warns when a payroll's perceptions don't cover
// its deductions plus dispersion plus secondary payables, the same
// shortfall processor_payroll.go papers over with a balancing line, but
// surfaced here as an explicit cross-check for a reviewer.
func ValidatePayrollCoverage(pr Payroll) string {
	perceptions := decimal.Zero
	for _, p := range pr.Perceptions {
		perceptions = perceptions.Add(p.Amount)
	}
	deductions := decimal.Zero
	for _, d := range pr.Deductions {
		deductions = deductions.Add(d.Amount)
	}
	required := deductions.Add(pr.DispersionTotal).Add(pr.ChecksTotal).Add(pr.VacationsTotal).Add(pr.SeveranceTotal)
	if perceptions.GreaterThanOrEqual(required) {
		return ""
	}
	msg := fmt.Sprintf("payroll %d: perceptions %s fall short of required %s by %s", pr.Number, perceptions, required, required.Sub(perceptions))
	logValidators.WithField("payroll", pr.Number).Warn(msg)
	return msg
}

// ValidateMonthEdgeSkip is a documentation-level check used by dispatcher
// tests: confirms a date was correctly classified as a month-edge date
// under the configured window.
func ValidateMonthEdgeSkip(date time.Time, monthEdgeDays int) bool {
	return isMonthEdge(date, monthEdgeDays)
}
