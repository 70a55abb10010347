package reconbank

// Bank-fee processor: FEE_WIRE / FEE_WIRE_VAT / FEE_CARD / FEE_CARD_VAT.
// Aggregates the day's fees per bank account and fabricates the matching
// purchase invoice for the bank provider.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var feeBaseKinds = map[ProcessKind]bool{FeeWire: true, FeeCard: true}

// BuildFeesPlan collapses all four fee kinds for the day, grouped by bank
// account, into one MovementRow + one APInvoiceRow per account. VAT is
// recomputed as 16% of the aggregated base, never summed from the bank's
// own per-line VAT rows, so the ledger carries a single consistent
// rounding instead of accumulated cent drift.
func BuildFeesPlan(movements []BankMovement, date time.Time) (ExecutionPlan, error) {
	plan := ExecutionPlan{ProcessKind: "COMISIONES", Description: fmt.Sprintf("Bank fees %s", date.Format("2006-01-02")), Date: date}

	if len(movements) == 0 {
		plan.Warnings = append(plan.Warnings, "no fees for this day")
		return plan, nil
	}

	byAccount := map[string][]BankMovement{}
	for _, m := range movements {
		byAccount[m.Account] = append(byAccount[m.Account], m)
	}

	for account, group := range byAccount {
		subtotal := decimal.Zero
		for _, m := range group {
			if feeBaseKinds[m.Kind] {
				subtotal = subtotal.Add(m.Amount())
			}
		}
		subtotal = RoundHalfUp(subtotal)
		vat := VATOnBase(subtotal)
		total := subtotal.Add(vat)
		if !total.IsPositive() {
			continue
		}

		accountKey, ok := AccountKeyByNumber(account)
		if !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("account %s not recognized for fees", account))
			continue
		}
		bank := BankAccounts[accountKey]
		description := fmt.Sprintf("COMISIONES BANCARIAS %s", date.Format("02/01/2006"))
		invoiceRef := date.Format("02012006")

		mv := MovementRow{
			Bank: bank.Bank, Account: account, Date: date,
			Kind: 3, Expense: total, Description: description,
			Class: "COMISIONES BANCARIAS", ExpenseKind: "TRANSFERENCIA",
			Reconciled: true, LedgerKind: "EXPENSE", InvoiceRef: invoiceRef,
			Counterparty: BankFeeProviderCode, CounterpartyName: BankFeeProviderName,
		}
		plan.Movements = append(plan.Movements, mv)
		plan.InvoicesPerMovement = append(plan.InvoicesPerMovement, 0)

		plan.APInvoices = append(plan.APInvoices, APInvoiceRow{
			Supplier: BankFeeProviderCode, Invoice: invoiceRef, Date: date,
			Subtotal: subtotal, VAT: vat, Total: total,
		})

		lines := feesLedgerLines(total, vat, bank.LedgerAccount, bank.LedgerSubAccount, description)
		plan.Lines = append(plan.Lines, lines...)
		plan.LinesPerMovement = append(plan.LinesPerMovement, len(lines))
	}

	plan.Validations = append(plan.Validations, fmt.Sprintf("fee movements processed: %d", len(movements)))
	return plan, nil
}

// feesLedgerLines builds the fixed 4-line bank-fee template.
func feesLedgerLines(total, vat decimal.Decimal, bankAccount, bankSubAccount, note string) []LedgerLine {
	return []LedgerLine{
		{Account: LedgerAccounts.ProveedoresGlobal.Account, SubAccount: LedgerAccounts.ProveedoresGlobal.SubAccount, Side: Debit, Debit: total, Note: note},
		{Account: LedgerAccounts.IVAAcreditablePtePago.Account, SubAccount: LedgerAccounts.IVAAcreditablePtePago.SubAccount, Side: Credit, Credit: vat, Note: note},
		{Account: LedgerAccounts.IVAAcreditablePagado.Account, SubAccount: LedgerAccounts.IVAAcreditablePagado.SubAccount, Side: Debit, Debit: vat, Note: note},
		{Account: bankAccount, SubAccount: bankSubAccount, Side: Credit, Credit: total, Note: note},
	}
}
