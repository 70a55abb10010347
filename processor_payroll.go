package reconbank

// Payroll + check-cashed processor: PAYROLL, CHECK_CASHED. The
// perception/deduction account taxonomy is supplied per-company at
// runtime via Payroll.Perceptions/Deductions, not hardcoded here.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// genericSalaryAccount is the balancing line used when perceptions fall
// short of (deductions + dispersion + payables).
var genericSalaryAccount = LedgerAccountPair{Account: "6200", SubAccount: "010000"}

// BuildPayrollPlan builds the dispersion movement and its ~15-19 line
// ledger entry for one payroll run.
func BuildPayrollPlan(movements []BankMovement, date time.Time, pr *Payroll) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "NOMINA", Description: fmt.Sprintf("Payroll %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		plan.Warnings = append(plan.Warnings, "no payroll dispersion for this day")
		return plan, nil
	}
	if pr == nil {
		plan.Warnings = append(plan.Warnings, "missing payroll side-channel data")
		return plan, nil
	}
	if pr.matchedBuckets == nil {
		pr.matchedBuckets = map[string]bool{}
	}

	bank := BankAccounts["efectivo"]
	description := fmt.Sprintf("DISPERSION NOMINA %d %s", pr.Number, date.Format("02/01/2006"))

	mv := MovementRow{
		Bank: bank.Bank, Account: bank.AccountNumber, Date: date,
		Kind: 2, Expense: pr.DispersionTotal, Description: description,
		Class: "NOMINA", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE",
	}
	plan.Movements = append(plan.Movements, mv)
	plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)

	var lines []LedgerLine
	for _, p := range pr.Perceptions {
		if p.Amount.IsZero() {
			continue
		}
		lines = append(lines, LedgerLine{Account: p.Account, SubAccount: p.SubAccount, Side: Debit, Debit: p.Amount, Note: p.Concept})
	}

	payablesTotal := pr.ChecksTotal.Add(pr.VacationsTotal).Add(pr.SeveranceTotal)

	perceptionsTotal := decimal.Zero
	for _, p := range pr.Perceptions {
		perceptionsTotal = perceptionsTotal.Add(p.Amount)
	}
	deductionsTotal := decimal.Zero
	for _, d := range pr.Deductions {
		if d.Amount.IsZero() {
			continue
		}
		lines = append(lines, LedgerLine{Account: d.Account, SubAccount: d.SubAccount, Side: Credit, Credit: d.Amount, Note: d.Concept})
		deductionsTotal = deductionsTotal.Add(d.Amount)
	}

	lines = append(lines, LedgerLine{
		Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit,
		Credit: pr.DispersionTotal, Note: description,
	})
	if payablesTotal.IsPositive() {
		lines = append(lines, LedgerLine{
			Account: LedgerAccounts.AcreedoresNomina.Account, SubAccount: LedgerAccounts.AcreedoresNomina.SubAccount,
			Side: Credit, Credit: payablesTotal, Note: "provision cheques/vacaciones/finiquitos",
		})
	}

	required := deductionsTotal.Add(pr.DispersionTotal).Add(payablesTotal)
	if perceptionsTotal.LessThan(required) {
		gap := required.Sub(perceptionsTotal)
		lines = append(lines, LedgerLine{
			Account: genericSalaryAccount.Account, SubAccount: genericSalaryAccount.SubAccount,
			Side: Debit, Debit: gap, Note: "sueldos genericos (ajuste)",
		})
	}

	if !IsBalanced(lines) {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("payroll ledger does not balance: debits=%s credits=%s", SumDebits(lines), SumCredits(lines)))
	}

	plan.Lines = lines
	plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	plan.Validations = append(plan.Validations, fmt.Sprintf("payroll %d net total %s", pr.Number, pr.NetTotal()))

	return plan, nil
}

// BuildCheckCashedPlan matches each CHECK_CASHED line against the
// payroll's unmatched secondary buckets (checks/vacations/severance)
// within ToleranceCents. On match, a two-line ledger entry cancels the
// provision; unmatched lines are reported back as UNKNOWN via the plan's
// Unmatched list (not our payroll).
func BuildCheckCashedPlan(cfg Config, movements []BankMovement, date time.Time, pr *Payroll) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "CHEQUE_COBRADO", Description: fmt.Sprintf("Checks cashed %s", date.Format("2006-01-02")), Date: date}

	if pr == nil {
		plan.Warnings = append(plan.Warnings, "missing payroll side-channel data; cannot match checks")
		return plan, nil
	}
	if pr.matchedBuckets == nil {
		pr.matchedBuckets = map[string]bool{}
	}

	bank := BankAccounts["efectivo"]
	buckets := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"checks", pr.ChecksTotal},
		{"vacations", pr.VacationsTotal},
		{"severance", pr.SeveranceTotal},
	}

	for i, m := range movements {
		matched := false
		for _, b := range buckets {
			if pr.matchedBuckets[b.name] {
				continue
			}
			if WithinTolerance(m.Amount(), b.amount, cfg.ToleranceCents) {
				pr.matchedBuckets[b.name] = true
				matched = true

				description := fmt.Sprintf("CHEQUE COBRADO %s", m.Description)
				mv := MovementRow{
					Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date,
					Kind: 2, Expense: m.Amount(), Description: description,
					Class: "NOMINA", ExpenseKind: "CHEQUE", LedgerKind: "EXPENSE",
				}
				plan.Movements = append(plan.Movements, mv)
				plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
				plan.SourceLines = append(plan.SourceLines, []int{i})

				lines := []LedgerLine{
					{Account: LedgerAccounts.AcreedoresNomina.Account, SubAccount: LedgerAccounts.AcreedoresNomina.SubAccount, Side: Debit, Debit: m.Amount(), Note: description},
					{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: m.Amount(), Note: description},
				}
				plan.Lines = append(plan.Lines, lines...)
				plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
				break
			}
		}
		if !matched {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("no payroll bucket match for check %s; leaving UNKNOWN", m.Amount()))
			plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
				Line: i, Action: ActionUnknown,
				Note: fmt.Sprintf("no payroll bucket match for check %s", m.Amount()),
			})
		}
	}

	return plan, nil
}
