package reconbank

// Expense-account payment processor: EXPENSE_ACCOUNT_PAYMENT. Like
// supplier payments, these lines are held for one day by the dispatcher
// before settlement.

import (
	"fmt"
	"time"
)

// BuildExpenseAccountPaymentPlan matches each debit against an open AP
// invoice within Config.ToleranceValidation ($0.50, a looser tolerance
// than the exact-sum matchers since expense-account payments often carry
// bank rounding). Matched movements are inserted with a settlement that
// brings the AP invoice's balance down; unmatched movements are reported
// as warnings.
func BuildExpenseAccountPaymentPlan(storage *Storage, cfg Config, movements []BankMovement, date time.Time) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "PAGO_GASTOS", Description: fmt.Sprintf("Expense account payments %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		return plan, nil
	}

	bank := BankAccounts["gastos"]

	for i, m := range movements {
		amount := m.Amount()
		invoice, found, err := storage.ViewUnpaidAPInvoiceByAmount(amount, cfg.ToleranceValidation)
		if err != nil {
			return plan, fmt.Errorf("AP invoice lookup: %w", err)
		}
		if !found {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("no open AP invoice matches expense-account payment %s on %s", amount, m.Description))
			plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
				Line: i, Action: ActionNeedsReview,
				Note: fmt.Sprintf("no open AP invoice matches expense-account payment %s", amount),
			})
			continue
		}

		balance := mustParseDecimal(invoice.BalanceDec)
		newBalance := balance.Sub(amount)
		newStatus := "PARTIAL"
		if !newBalance.IsPositive() {
			newBalance = decZero
			newStatus = "PAID"
		}

		vat := mustParseDecimal(invoice.VATDec)
		description := fmt.Sprintf("PAGO GASTOS FACTURA %s %s", invoice.Supplier, invoice.Invoice)

		mv := MovementRow{
			Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date,
			Kind: 3, Expense: amount, Description: description,
			Class: "PAGO GASTOS", ExpenseKind: "TRANSFERENCIA", LedgerKind: "EXPENSE",
			InvoiceRef: invoice.Invoice, Counterparty: invoice.Supplier,
		}
		movementIndex := len(plan.Movements)
		plan.Movements = append(plan.Movements, mv)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
		plan.SourceLines = append(plan.SourceLines, []int{i})

		plan.APPaymentSettlements = append(plan.APPaymentSettlements, APPaymentSettlement{
			MovementIndex: movementIndex,
			Supplier:      invoice.Supplier,
			Invoice:       invoice.Invoice,
			Amount:        amount,
			NewBalance:    newBalance,
			NewStatus:     newStatus,
		})

		lines := []LedgerLine{
			{Account: LedgerAccounts.ProveedoresGlobal.Account, SubAccount: LedgerAccounts.ProveedoresGlobal.SubAccount, Side: Debit, Debit: amount, Note: description},
			{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Credit, Credit: amount, Note: description},
		}
		if vat.IsPositive() {
			lines = append(lines,
				LedgerLine{Account: LedgerAccounts.IVAAcreditablePtePago.Account, SubAccount: LedgerAccounts.IVAAcreditablePtePago.SubAccount, Side: Credit, Credit: vat, Note: description},
				LedgerLine{Account: LedgerAccounts.IVAAcreditablePagado.Account, SubAccount: LedgerAccounts.IVAAcreditablePagado.SubAccount, Side: Debit, Debit: vat, Note: description},
			)
		}
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("expense-account payments: %d/%d matched", len(plan.Movements), len(movements)))
	return plan, nil
}
