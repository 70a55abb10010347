package reconbank

// Customer-collection processor: CUSTOMER_COLLECTION. Two phases: Phase
// B matches a deposit against a pending reconciliation row already
// entered by another ERP module (mirrors supplier payment); Phase A
// creates the collection from scratch when no such row exists, looking
// the invoice up by number parsed out of the description and falling
// back to an amount match against open AR invoices.

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var invoiceNumberRegex = regexp.MustCompile(`(?i)cliente\s*:?\s*(\d+)`)

// BuildCustomerCollectionPlan runs Phase B first (cheaper, no ledger
// writes) and falls through to Phase A for anything left unmatched.
func BuildCustomerCollectionPlan(storage *Storage, cfg Config, movements []BankMovement, date time.Time) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "COBRO_CLIENTE", Description: fmt.Sprintf("Customer collections %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		return plan, nil
	}

	bank := BankAccounts["efectivo"]

	for i, m := range movements {
		amount := m.Amount()

		if row, found, err := storage.ViewFindPendingReconciliation(m.Account, "CUSTOMER", date, cfg.SupplierReconcileWindowDays, amount, cfg.ToleranceCents); err != nil {
			return plan, fmt.Errorf("pending reconciliation lookup: %w", err)
		} else if found {
			plan.Reconciliations = append(plan.Reconciliations, ReconciliationUpdate{
				Folio:      row.Folio,
				Note:       fmt.Sprintf("customer collection reconciled against statement line %q", m.Description),
				SourceLine: i,
			})
			continue
		}

		invoiceNumber, hasNumber := "", false
		if match := invoiceNumberRegex.FindStringSubmatch(m.Description); match != nil {
			invoiceNumber, hasNumber = match[1], true
		}

		var invoice ARInvoicePending
		var found bool
		var err error
		if hasNumber {
			invoice, found, err = storage.ViewGetPendingARInvoice(invoiceNumber)
		}
		if (!hasNumber || !found) && err == nil {
			invoice, found, err = storage.ViewPendingARInvoiceByAmount(amount, cfg.ToleranceValidation)
		}
		if err != nil {
			return plan, fmt.Errorf("AR invoice lookup: %w", err)
		}
		if !found {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("no open AR invoice matches collection %s on %s", amount, m.Description))
			plan.Unmatched = append(plan.Unmatched, UnmatchedLine{
				Line: i, Action: ActionNeedsReview,
				Note: fmt.Sprintf("no open AR invoice matches collection %s", amount),
			})
			continue
		}

		balance := mustParseDecimal(invoice.BalanceDec)
		newBalance := balance.Sub(amount)
		if newBalance.IsNegative() {
			newBalance = decimal.Zero
		}

		description := fmt.Sprintf("COBRO CLIENTE FACTURA %s", invoice.Number)
		mv := MovementRow{
			Bank: bank.Bank, Account: bank.AccountNumber, Date: m.Date,
			Kind: 1, Income: amount, Description: description,
			Class: "COBRANZA", LedgerKind: "INCOME", InvoiceRef: invoice.Number,
		}
		movementIndex := len(plan.Movements)
		plan.Movements = append(plan.Movements, mv)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)
		plan.SourceLines = append(plan.SourceLines, []int{i})

		plan.ARCollectionSettlements = append(plan.ARCollectionSettlements, ARCollectionSettlement{
			MovementIndex: movementIndex,
			InvoiceNumber: invoice.Number,
			Amount:        amount,
			NewBalance:    newBalance,
		})

		base := amount.Div(decimal.NewFromInt(1).Add(VATRate))
		vat := RoundHalfUp(amount.Sub(base))
		lines := []LedgerLine{
			{Account: bank.LedgerAccount, SubAccount: bank.LedgerSubAccount, Side: Debit, Debit: amount, Note: description},
			{Account: LedgerAccounts.ClientesGlobal.Account, SubAccount: LedgerAccounts.ClientesGlobal.SubAccount, Side: Credit, Credit: amount, Note: description},
		}
		if vat.IsPositive() {
			lines = append(lines,
				LedgerLine{Account: LedgerAccounts.IVAAcumulableCobrado.Account, SubAccount: LedgerAccounts.IVAAcumulableCobrado.SubAccount, Side: Credit, Credit: vat, Note: description},
				LedgerLine{Account: LedgerAccounts.IVAAcumulablePteCobro.Account, SubAccount: LedgerAccounts.IVAAcumulablePteCobro.SubAccount, Side: Debit, Debit: vat, Note: description},
			)
		}
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("customer collections: %d movements", len(plan.Movements)))
	return plan, nil
}
